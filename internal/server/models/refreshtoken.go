package models

import "time"

// RefreshToken is a persisted refresh credential. Only the SHA-256 of the
// opaque token is stored.
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string
	Expires   time.Time
	Revoked   bool
	CreatedAt time.Time
}

// BlacklistedToken is a revoked access token kept until its natural expiry.
type BlacklistedToken struct {
	Token     string
	ExpiresAt time.Time
}
