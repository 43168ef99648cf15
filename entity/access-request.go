package entity

import (
	"net/http"
	"strings"
	"time"

	"finsurvey/lib/validate"
)

// AccessStatus of a dashboard access request.
// Transitions are one-way: pending -> approved or pending -> denied.
type AccessStatus string

const (
	StatusPending  AccessStatus = "pending"
	StatusApproved AccessStatus = "approved"
	StatusDenied   AccessStatus = "denied"
)

// Decision actions carried by the approve/deny links.
const (
	ActionApprove = "approve"
	ActionDeny    = "deny"
)

// AccessRequest is kept after the decision as an audit record.
type AccessRequest struct {
	ID            string       `json:"id" bson:"_id"`
	Name          string       `json:"name" bson:"name" validate:"required"`
	Email         string       `json:"email" bson:"email" validate:"required,email"`
	Reason        string       `json:"reason" bson:"reason" validate:"required"`
	Status        AccessStatus `json:"status" bson:"status"`
	ApprovalToken string       `json:"-" bson:"approvalToken"`
	CreatedAt     time.Time    `json:"created_at" bson:"createdAt"`
	UpdatedAt     time.Time    `json:"updated_at" bson:"updatedAt"`
	DecidedAt     *time.Time   `json:"decided_at,omitempty" bson:"decidedAt,omitempty"`
}

func (a *AccessRequest) IsPending() bool {
	return a.Status == StatusPending
}

// AccessRequestForm is the public request payload.
type AccessRequestForm struct {
	Name   string `json:"name" validate:"required"`
	Email  string `json:"email" validate:"required,email"`
	Reason string `json:"reason" validate:"required"`
}

func (f *AccessRequestForm) Bind(_ *http.Request) error {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = NormalizeEmail(f.Email)
	f.Reason = strings.TrimSpace(f.Reason)
	return validate.Struct(f)
}

// StatusForAction maps a decision action to its terminal status.
func StatusForAction(action string) (AccessStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(action)) {
	case ActionApprove:
		return StatusApproved, true
	case ActionDeny:
		return StatusDenied, true
	}
	return "", false
}
