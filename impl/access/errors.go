package access

import (
	"errors"
	"fmt"
	"time"

	"finsurvey/entity"
	"finsurvey/internal/database"
)

var (
	ErrNoRecipients  = errors.New("no admin recipients configured")
	ErrNotFound      = errors.New("access request not found")
	ErrInvalidAction = errors.New("invalid action")
	// ErrNotify marks a decision that was stored but whose email failed
	ErrNotify = errors.New("requester notification failed")
	// ErrDuplicateToken is what the repository returns on a unique index hit
	ErrDuplicateToken = database.ErrDuplicate
)

// RateLimitError reports how long the requester has to wait.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("too many requests, retry in %s", e.RetryAfter.Round(time.Second))
}

// AlreadyDecidedError is the benign outcome of a repeated decision.
type AlreadyDecidedError struct {
	Status entity.AccessStatus
}

func (e *AlreadyDecidedError) Error() string {
	return fmt.Sprintf("request already %s", e.Status)
}
