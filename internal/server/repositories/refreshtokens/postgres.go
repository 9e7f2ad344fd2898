package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/learnhub/internal/common"
	"github.com/dmitrijs2005/learnhub/internal/dbx"
	"github.com/dmitrijs2005/learnhub/internal/server/models"
	"github.com/google/uuid"
)

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, userID string, tokenHash string, expires time.Time) error {
	query := `
		INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.db.ExecContext(ctx, query, uuid.NewString(), userID, tokenHash, expires); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Consume(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	query := `
		UPDATE refresh_tokens SET is_revoked = TRUE
		WHERE token_hash = $1 AND NOT is_revoked
		RETURNING id, user_id, expires_at, created_at
	`
	token := &models.RefreshToken{TokenHash: tokenHash}
	err := r.db.QueryRowContext(ctx, query, tokenHash).
		Scan(&token.ID, &token.UserID, &token.Expires, &token.CreatedAt)
	if err == nil {
		return token, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("db error: %w", err)
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM refresh_tokens WHERE token_hash = $1)`, tokenHash).Scan(&exists); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	if exists {
		return nil, common.ErrRefreshTokenRevoked
	}
	return nil, common.ErrorNotFound
}

func (r *PostgresRepository) Revoke(ctx context.Context, tokenHash string) error {
	query := `
		UPDATE refresh_tokens SET is_revoked = TRUE
		WHERE token_hash = $1
	`
	if _, err := r.db.ExecContext(ctx, query, tokenHash); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) RevokeAllForUser(ctx context.Context, userID string) (int64, error) {
	query := `
		UPDATE refresh_tokens SET is_revoked = TRUE
		WHERE user_id = $1 AND NOT is_revoked
	`
	return r.exec(ctx, query, userID)
}

func (r *PostgresRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		DELETE FROM refresh_tokens
		WHERE expires_at < $1
	`
	return r.exec(ctx, query, now)
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
