// Package adminlog is the audit trail of administrative actions.
package adminlog

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/learnhub/internal/dbx"
	"github.com/dmitrijs2005/learnhub/internal/server/models"
)

// Repository appends admin actions and lists them per target user.
type Repository interface {
	Record(ctx context.Context, a *models.AdminAction) error
	ListForUser(ctx context.Context, targetUserID string, limit int) ([]*models.AdminAction, error)
}

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Record(ctx context.Context, a *models.AdminAction) error {
	query :=
		`INSERT INTO admin_action_logs (admin_id, target_user_id, action, details, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id
		 `
	if err := r.db.QueryRowContext(ctx, query, a.AdminID, a.TargetUserID, a.Action, a.Details, a.CreatedAt).Scan(&a.ID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListForUser(ctx context.Context, targetUserID string, limit int) ([]*models.AdminAction, error) {
	query :=
		`SELECT id, admin_id, target_user_id, action, details, created_at
		 FROM admin_action_logs
		 WHERE target_user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2
		 `
	rows, err := r.db.QueryContext(ctx, query, targetUserID, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.AdminAction
	for rows.Next() {
		a := &models.AdminAction{}
		if err := rows.Scan(&a.ID, &a.AdminID, &a.TargetUserID, &a.Action, &a.Details, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}
