package entity

import "time"

// AccessToken stores only the hash of an emailed access code.
// The collection carries a TTL index on expiresAt.
type AccessToken struct {
	TokenHash string    `bson:"tokenHash"`
	Email     string    `bson:"email"`
	ExpiresAt time.Time `bson:"expiresAt"`
	CreatedAt time.Time `bson:"createdAt"`
}

// Expired reports whether now is past ExpiresAt; the expiry instant itself
// still authorizes.
func (t *AccessToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// CredentialKind tells which checker accepted an admin credential.
type CredentialKind string

const (
	CredentialStaticKey   CredentialKind = "static_key"
	CredentialAccessToken CredentialKind = "access_token"
)

// Admin is the principal attached to a request that passed the guard.
type Admin struct {
	Kind      CredentialKind `json:"kind"`
	Email     string         `json:"email,omitempty"`
	ExpiresAt *time.Time     `json:"expires_at,omitempty"`
}
