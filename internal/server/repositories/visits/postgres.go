// Package visits records successful sign-ins.
package visits

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/learnhub/internal/dbx"
)

// Repository appends visit rows.
type Repository interface {
	Record(ctx context.Context, userID string, at time.Time) error
}

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Record(ctx context.Context, userID string, at time.Time) error {
	query := `INSERT INTO user_visits (user_id, visited_at) VALUES ($1, $2)`
	if _, err := r.db.ExecContext(ctx, query, userID, at); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
