// Package users declares the server-side repository contract for platform
// accounts and a PostgreSQL implementation of it.
package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/learnhub/internal/server/models"
)

// Repository persists users. Lookups by e-mail are case-insensitive and
// implementations return common.ErrorNotFound when no row matches.
type Repository interface {
	// Create inserts user, assigning an ID when empty. A duplicate e-mail
	// yields common.ErrorAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	UpdatePassword(ctx context.Context, id string, passwordHash string) error
	SetActive(ctx context.Context, id string, active bool) error
	SetDeleted(ctx context.Context, id string, deleted bool) error
	SetRole(ctx context.Context, id string, role models.Role) error
	SetTokensValidAfter(ctx context.Context, id string, t time.Time) error
	// SearchByEmail returns users whose e-mail contains fragment, newest first.
	SearchByEmail(ctx context.Context, fragment string, limit int) ([]*models.User, error)
	// AnyAdmin reports whether a non-deleted admin exists.
	AnyAdmin(ctx context.Context) (bool, error)
}
