package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/learnhub/internal/dbx"
	"github.com/dmitrijs2005/learnhub/internal/server/repositories/adminlog"
	"github.com/dmitrijs2005/learnhub/internal/server/repositories/blacklist"
	"github.com/dmitrijs2005/learnhub/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/learnhub/internal/server/repositories/users"
	"github.com/dmitrijs2005/learnhub/internal/server/repositories/verifications"
	"github.com/dmitrijs2005/learnhub/internal/server/repositories/visits"
)

// RepositoryManager vends repositories bound to a DBTX so services can run
// the same repositories inside or outside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Verifications(db dbx.DBTX) verifications.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Blacklist(db dbx.DBTX) blacklist.Repository
	Visits(db dbx.DBTX) visits.Repository
	AdminLog(db dbx.DBTX) adminlog.Repository
}
