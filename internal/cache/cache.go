// Package cache holds short-lived keyed state: OTP codes, verification
// markers and sliding rate-limit windows. The memory backend is process-local;
// the Redis backend is shared between instances.
package cache

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("cache: key not found")

type Store interface {
	// Set stores value under key, replacing any previous value
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Get returns ErrNotFound for missing or expired keys
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
	// Hit admits one event into the sliding window of key if fewer than limit
	// events were admitted during the last window. When the event is rejected,
	// retryAfter is the time until the oldest admitted event leaves the window.
	Hit(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (allowed bool, retryAfter time.Duration, err error)
	Close() error
}

// Take reads and deletes key in one call
func Take(ctx context.Context, s Store, key string) (string, error) {
	value, err := s.Get(ctx, key)
	if err != nil {
		return "", err
	}
	if err = s.Delete(ctx, key); err != nil {
		return "", err
	}
	return value, nil
}
