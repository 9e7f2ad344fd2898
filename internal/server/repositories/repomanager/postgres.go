// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/learnhub/internal/dbx"
	"github.com/dmitrijs2005/learnhub/internal/server/migrations"
	"github.com/dmitrijs2005/learnhub/internal/server/repositories/adminlog"
	"github.com/dmitrijs2005/learnhub/internal/server/repositories/blacklist"
	"github.com/dmitrijs2005/learnhub/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/learnhub/internal/server/repositories/users"
	"github.com/dmitrijs2005/learnhub/internal/server/repositories/verifications"
	"github.com/dmitrijs2005/learnhub/internal/server/repositories/visits"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository implementations
// and exposes a schema migration hook.
type PostgresRepositoryManager struct{}

func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Verifications(db dbx.DBTX) verifications.Repository {
	return verifications.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository {
	return refreshtokens.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Blacklist(db dbx.DBTX) blacklist.Repository {
	return blacklist.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Visits(db dbx.DBTX) visits.Repository {
	return visits.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) AdminLog(db dbx.DBTX) adminlog.Repository {
	return adminlog.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed RepositoryManager.
func NewPostgresRepositoryManager() RepositoryManager {
	return &PostgresRepositoryManager{}
}
