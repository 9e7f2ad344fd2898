// Package server assembles the LearnHub server: database, repositories,
// services, background workers and the HTTP API.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/learnhub/internal/dbx"
	"github.com/dmitrijs2005/learnhub/internal/logging"
	"github.com/dmitrijs2005/learnhub/internal/server/auth"
	"github.com/dmitrijs2005/learnhub/internal/server/config"
	"github.com/dmitrijs2005/learnhub/internal/server/httpapi"
	"github.com/dmitrijs2005/learnhub/internal/server/lockout"
	"github.com/dmitrijs2005/learnhub/internal/server/mailer"
	"github.com/dmitrijs2005/learnhub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/learnhub/internal/server/services"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "learnhub"

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	tx          dbx.Transactor
	repomanager repomanager.RepositoryManager
	redis       redis.UniversalClient
	mail        *mailer.Queue
	accounts    *services.AccountService
	admin       *services.AdminService
	janitor     *services.Janitor
}

func NewApp(c *config.Config) (*App, error) {
	logger := logging.NewFromLevel(os.Stdout, c.LogLevel)

	if c.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := OpenDB(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	tx := dbx.NewSQLTransactor(db, nil)

	app := &App{config: c, logger: logger, db: db, tx: tx, repomanager: rm}

	policy := lockout.Policy{Threshold: c.LockoutThreshold, Duration: c.LockoutDuration}
	var (
		tracker lockout.Tracker
		sweeper services.Sweeper
	)
	switch c.LockoutBackend {
	case config.LockoutBackendRedis:
		app.redis = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{c.RedisAddr},
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		})
		tracker = lockout.NewRedisTracker(app.redis, redisKeyPrefix, policy, nil)
	default:
		mem := lockout.NewMemoryTracker(policy, nil)
		tracker, sweeper = mem, mem
	}

	var sender mailer.Sender
	if c.SMTPHost != "" {
		sender = mailer.NewSMTPSender(mailer.SMTPConfig{
			Host:     c.SMTPHost,
			Port:     c.SMTPPort,
			Username: c.SMTPUsername,
			Password: c.SMTPPassword,
			From:     c.SMTPFrom,
		})
	} else {
		logger.Warn(context.Background(), "no SMTP host configured, mail is written to the log")
		sender = mailer.NewLogSender(logger)
	}
	app.mail = mailer.NewQueue(sender, logger, c.MailDrainInterval, c.MailMaxAttempts)

	issuer := auth.NewIssuer([]byte(c.SecretKey), c.Issuer, c.Audience, c.AccessTokenValidityDuration, nil)

	app.accounts = services.NewAccountService(db, tx, rm, issuer, tracker, app.mail, logger, c, nil)
	app.admin = services.NewAdminService(db, tx, rm, logger, nil)
	app.janitor = services.NewJanitor(db, rm, sweeper, logger, c.RevocationPurgeInterval, nil)

	return app, nil
}

// OpenDB opens a pgx-backed *sql.DB for dsn.
func OpenDB(dsn string) (*sql.DB, error) {
	return sql.Open("pgx", dsn)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) seedAdmin(ctx context.Context) error {
	if app.config.AdminEmail == "" || app.config.AdminPassword == "" {
		return nil
	}

	created, err := services.SeedAdmin(ctx, app.db, app.tx, app.repomanager, services.AdminSeed{
		Email:    app.config.AdminEmail,
		FullName: app.config.AdminName,
		Password: app.config.AdminPassword,
	}, nil)
	if err != nil {
		return err
	}
	if created {
		app.logger.Info(ctx, "Super admin created", "email", app.config.AdminEmail)
	}
	return nil
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpapi.NewHTTPServer(app.config.HTTPAddr, app.logger, app.accounts, app.admin, httpapi.Options{
		AllowedOrigins:  app.config.AllowedOrigins,
		CookieSecure:    app.config.CookieSecure,
		PendingEmailTTL: app.config.VerificationCodeTTL,
		RememberTTL:     app.config.RefreshTokenValidityDuration,
	})

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) close() error {
	var errs []error
	if app.redis != nil {
		errs = append(errs, app.redis.Close())
	}
	errs = append(errs, app.db.Close())
	return errors.Join(errs...)
}

// Run migrates the schema, seeds the super admin and serves until ctx is
// cancelled or a termination signal arrives.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	defer func() {
		if err := app.close(); err != nil {
			app.logger.Error(ctx, "close failed", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	if err := app.db.PingContext(ctx); err != nil {
		return fmt.Errorf("db ping: %w", err)
	}
	if err := app.repomanager.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	if err := app.seedAdmin(ctx); err != nil {
		return err
	}

	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.mail.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		app.janitor.Run(ctx)
	}()

	wg.Wait()

	app.logger.Info(context.Background(), "App stopped")
	return nil
}
