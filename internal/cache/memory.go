package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value     string
	expiresAt time.Time
}

// Memory is lost on restart and not shared across processes.
type Memory struct {
	mu      sync.Mutex
	now     func() time.Time
	values  map[string]entry
	windows map[string][]time.Time
}

func NewMemory() *Memory {
	return &Memory{
		now:     time.Now,
		values:  make(map[string]entry),
		windows: make(map[string][]time.Time),
	}
}

// WithClock replaces the time source used for value expiry
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
	return m
}

func (m *Memory) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	m.values[key] = e
	return nil
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.values[key]
	if !ok {
		return "", ErrNotFound
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		delete(m.values, key)
		return "", ErrNotFound
	}
	return e.value, nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *Memory) Hit(_ context.Context, key string, now time.Time, window time.Duration, limit int) (bool, time.Duration, error) {
	if limit <= 0 {
		return true, 0, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	recent := m.windows[key][:0:0]
	for _, t := range m.windows[key] {
		if now.Sub(t) < window {
			recent = append(recent, t)
		}
	}
	if len(recent) >= limit {
		m.windows[key] = recent
		return false, window - now.Sub(recent[0]), nil
	}
	m.windows[key] = append(recent, now)
	return true, 0, nil
}

// Sweep drops expired values and empty windows older than window
func (m *Memory) Sweep(window time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for k, e := range m.values {
		if !e.expiresAt.IsZero() && !now.Before(e.expiresAt) {
			delete(m.values, k)
		}
	}
	for k, ts := range m.windows {
		if len(ts) == 0 || now.Sub(ts[len(ts)-1]) >= window {
			delete(m.windows, k)
		}
	}
}

func (m *Memory) Close() error {
	return nil
}
