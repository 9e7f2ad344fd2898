// Package verifications stores the per-user verification record used for
// both e-mail confirmation and password reset.
package verifications

import (
	"context"

	"github.com/dmitrijs2005/learnhub/internal/server/models"
)

// Repository persists AccountVerification rows, one per user.
type Repository interface {
	// Upsert writes v, replacing any previous record of the same user.
	Upsert(ctx context.Context, v *models.AccountVerification) error
	// GetByUserID returns common.ErrorNotFound when the user has no record.
	GetByUserID(ctx context.Context, userID string) (*models.AccountVerification, error)
}
