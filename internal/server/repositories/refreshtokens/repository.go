// Package refreshtokens declares the server-side repository contract for
// managing refresh tokens in persistent storage.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/learnhub/internal/server/models"
)

// Repository defines operations for issuing, rotating and revoking refresh
// tokens. Tokens are addressed by their SHA-256 hash only.
type Repository interface {
	// Create stores a new refresh token hash for userID.
	Create(ctx context.Context, userID string, tokenHash string, expires time.Time) error

	// Consume atomically marks the token revoked and returns it. A token that
	// was already revoked yields common.ErrRefreshTokenRevoked, an unknown one
	// common.ErrorNotFound. Expiry is left for the caller to judge.
	Consume(ctx context.Context, tokenHash string) (*models.RefreshToken, error)

	// Revoke marks a single token revoked. Unknown tokens are not an error.
	Revoke(ctx context.Context, tokenHash string) error

	// RevokeAllForUser revokes every live token of userID.
	RevokeAllForUser(ctx context.Context, userID string) (int64, error)

	// PurgeExpired deletes rows that expired before now.
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}
