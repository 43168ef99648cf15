// Package auth guards the admin-only operations. Every request presents a
// credential which is run through an ordered list of checkers; there are no
// sessions.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"finsurvey/entity"
	"finsurvey/lib/clock"
	"finsurvey/lib/secure"
	"finsurvey/lib/sl"
)

var ErrForbidden = errors.New("access restricted")

type Verdict int

const (
	Indeterminate Verdict = iota
	Authorized
	Denied
)

// Checker inspects one credential kind. Indeterminate passes the credential
// on to the next checker.
type Checker func(ctx context.Context, credential string) (Verdict, *entity.Admin, error)

type Database interface {
	GetAccessToken(ctx context.Context, hash string) (*entity.AccessToken, error)
	DeleteAccessToken(ctx context.Context, hash string) error
}

type Auth struct {
	checkers []Checker
	log      *slog.Logger
}

func New(log *slog.Logger, checkers ...Checker) *Auth {
	return &Auth{
		checkers: checkers,
		log:      log.With(sl.Module("impl.auth")),
	}
}

// Authorize returns ErrForbidden for a missing, unknown or expired credential.
func (a *Auth) Authorize(ctx context.Context, credential string) (*entity.Admin, error) {
	if credential == "" {
		return nil, ErrForbidden
	}
	for _, check := range a.checkers {
		verdict, admin, err := check(ctx, credential)
		if err != nil {
			return nil, fmt.Errorf("authorize: %w", err)
		}
		switch verdict {
		case Authorized:
			return admin, nil
		case Denied:
			a.log.With(sl.Secret("credential", credential)).Debug("credential denied")
			return nil, ErrForbidden
		}
	}
	return nil, ErrForbidden
}

// StaticKeys accepts long-lived keys from configuration.
func StaticKeys(keys []string) Checker {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k != "" {
			set[k] = struct{}{}
		}
	}
	return func(_ context.Context, credential string) (Verdict, *entity.Admin, error) {
		if _, ok := set[credential]; ok {
			return Authorized, &entity.Admin{Kind: entity.CredentialStaticKey}, nil
		}
		return Indeterminate, nil, nil
	}
}

// AccessTokens accepts emailed access codes by their hash. An expired token
// is deleted and denied.
func AccessTokens(db Database, hasher secure.Hasher, now clock.Clock) Checker {
	if now == nil {
		now = clock.System
	}
	return func(ctx context.Context, credential string) (Verdict, *entity.Admin, error) {
		hash := hasher.Hash(credential)
		token, err := db.GetAccessToken(ctx, hash)
		if err != nil {
			return Indeterminate, nil, err
		}
		if token == nil {
			return Indeterminate, nil, nil
		}
		if token.Expired(now()) {
			if err = db.DeleteAccessToken(ctx, hash); err != nil {
				return Denied, nil, err
			}
			return Denied, nil, nil
		}
		expiresAt := token.ExpiresAt
		return Authorized, &entity.Admin{
			Kind:      entity.CredentialAccessToken,
			Email:     token.Email,
			ExpiresAt: &expiresAt,
		}, nil
	}
}
