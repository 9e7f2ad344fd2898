package blacklist

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/learnhub/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Add(ctx context.Context, token string, expiresAt time.Time) error {
	query := `
		INSERT INTO blacklisted_tokens (token, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (token) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, token, expiresAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) IsBlacklisted(ctx context.Context, token string, now time.Time) (bool, error) {
	query := `
		SELECT EXISTS (SELECT 1 FROM blacklisted_tokens WHERE token = $1 AND expires_at > $2)
	`
	var found bool
	if err := r.db.QueryRowContext(ctx, query, token, now).Scan(&found); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return found, nil
}

func (r *PostgresRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		DELETE FROM blacklisted_tokens
		WHERE expires_at <= $1
	`
	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
