package verifications

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/learnhub/internal/common"
	"github.com/dmitrijs2005/learnhub/internal/dbx"
	"github.com/dmitrijs2005/learnhub/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Upsert(ctx context.Context, v *models.AccountVerification) error {
	query :=
		`INSERT INTO account_verifications (user_id, code, checked_ok, reset_requested, issued_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id) DO UPDATE
		 SET code = EXCLUDED.code, checked_ok = EXCLUDED.checked_ok,
		     reset_requested = EXCLUDED.reset_requested, issued_at = EXCLUDED.issued_at
		 `

	if _, err := r.db.ExecContext(ctx, query, v.UserID, v.Code, v.CheckedOK, v.ResetRequested, v.IssuedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByUserID(ctx context.Context, userID string) (*models.AccountVerification, error) {
	query :=
		`SELECT user_id, code, checked_ok, reset_requested, issued_at
		 FROM account_verifications
		 WHERE user_id = $1
		 `

	v := &models.AccountVerification{}
	err := r.db.QueryRowContext(ctx, query, userID).
		Scan(&v.UserID, &v.Code, &v.CheckedOK, &v.ResetRequested, &v.IssuedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return v, nil
}
