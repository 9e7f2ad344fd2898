// Package blacklist stores revoked access tokens until they expire.
package blacklist

import (
	"context"
	"time"
)

// Repository is the token revocation store.
type Repository interface {
	// Add blacklists token until expiresAt. Adding the same token twice is
	// not an error.
	Add(ctx context.Context, token string, expiresAt time.Time) error
	// IsBlacklisted reports whether token is revoked and not yet expired at now.
	IsBlacklisted(ctx context.Context, token string, now time.Time) (bool, error)
	// PurgeExpired deletes entries whose expiry is before now.
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}
