package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/learnhub/internal/common"
	"github.com/dmitrijs2005/learnhub/internal/dbx"
	"github.com/dmitrijs2005/learnhub/internal/server/auth"
	"github.com/dmitrijs2005/learnhub/internal/server/models"
	"github.com/dmitrijs2005/learnhub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/learnhub/internal/timex"
)

// AdminSeed describes the system-protected super admin.
type AdminSeed struct {
	Email    string
	FullName string
	Password string
}

// SeedAdmin creates the super admin when no admin exists yet. It reports
// whether a user was created. The account is verified and active.
func SeedAdmin(ctx context.Context, db dbx.DBTX, tx dbx.Transactor, m repomanager.RepositoryManager, seed AdminSeed, now timex.Clock) (bool, error) {
	if now == nil {
		now = timex.UTCNow
	}
	if seed.Email == "" || seed.Password == "" {
		return false, fmt.Errorf("seed admin: email and password are required")
	}

	exists, err := m.Users(db).AnyAdmin(ctx)
	if err != nil {
		return false, fmt.Errorf("seed admin: %w", err)
	}
	if exists {
		return false, nil
	}

	hash, err := auth.HashPassword(seed.Password)
	if err != nil {
		return false, err
	}
	code, err := auth.NewVerificationCode()
	if err != nil {
		return false, err
	}

	err = tx.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		user, err := m.Users(tx).Create(ctx, &models.User{
			FullName:          seed.FullName,
			Email:             common.NormalizeEmail(seed.Email),
			PasswordHash:      hash,
			Role:              models.RoleAdmin,
			IsActive:          true,
			IsSystemProtected: true,
		})
		if err != nil {
			return err
		}
		return m.Verifications(tx).Upsert(ctx, &models.AccountVerification{
			UserID:    user.ID,
			Code:      code,
			CheckedOK: true,
			IssuedAt:  now(),
		})
	})
	if err != nil {
		return false, fmt.Errorf("seed admin: %w", err)
	}
	return true, nil
}
