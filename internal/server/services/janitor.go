package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/learnhub/internal/dbx"
	"github.com/dmitrijs2005/learnhub/internal/logging"
	"github.com/dmitrijs2005/learnhub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/learnhub/internal/timex"
)

// Sweeper drops stale in-memory state. *lockout.MemoryTracker satisfies it.
type Sweeper interface {
	Sweep(now time.Time) int
}

// Janitor periodically deletes blacklist entries and refresh tokens that are
// past their expiry.
type Janitor struct {
	db          dbx.DBTX
	repomanager repomanager.RepositoryManager
	sweeper     Sweeper
	logger      logging.Logger
	now         timex.Clock
	interval    time.Duration
}

// NewJanitor builds a Janitor. sweeper and now may be nil.
func NewJanitor(db dbx.DBTX, m repomanager.RepositoryManager, sweeper Sweeper, logger logging.Logger, interval time.Duration, now timex.Clock) *Janitor {
	if now == nil {
		now = timex.UTCNow
	}
	return &Janitor{db: db, repomanager: m, sweeper: sweeper, logger: logger.With("module", "janitor"), now: now, interval: interval}
}

// PurgeOnce removes expired rows and returns how many blacklist and refresh
// token rows were deleted.
func (j *Janitor) PurgeOnce(ctx context.Context) (int64, int64, error) {
	now := j.now()

	blacklisted, err := j.repomanager.Blacklist(j.db).PurgeExpired(ctx, now)
	if err != nil {
		return 0, 0, fmt.Errorf("purge blacklist: %w", err)
	}
	refresh, err := j.repomanager.RefreshTokens(j.db).PurgeExpired(ctx, now)
	if err != nil {
		return blacklisted, 0, fmt.Errorf("purge refresh tokens: %w", err)
	}
	if j.sweeper != nil {
		j.sweeper.Sweep(now)
	}
	return blacklisted, refresh, nil
}

// Run purges every interval until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b, r, err := j.PurgeOnce(ctx)
			if err != nil {
				j.logger.Error(ctx, "purge failed", "error", err)
				continue
			}
			j.logger.Debug(ctx, "purged expired tokens", "blacklisted", b, "refresh", r)
		}
	}
}
