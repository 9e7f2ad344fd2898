// Package httpapi exposes the account lifecycle and administration
// services as a JSON API on top of gin.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/learnhub/internal/logging"
	"github.com/dmitrijs2005/learnhub/internal/server/models"
	"github.com/dmitrijs2005/learnhub/internal/server/services"
	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 10 * time.Second

// AccountService is the part of *services.AccountService the handlers use.
type AccountService interface {
	Signup(ctx context.Context, in services.SignupInput) (*services.SignupResult, error)
	VerifyAccount(ctx context.Context, email, code string) error
	ResendVerification(ctx context.Context, email string) error
	Signin(ctx context.Context, email, password string) (*services.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*services.Session, error)
	AutoLogin(ctx context.Context, rememberToken string) (*services.Session, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, in services.ResetPasswordInput) error
	Logout(ctx context.Context, accessToken, rememberToken string) error
	Authenticate(ctx context.Context, token string) (*services.Principal, error)
	Me(ctx context.Context, p *services.Principal) (*models.User, error)
}

// AdminService is the part of *services.AdminService the handlers use.
type AdminService interface {
	ChangeRole(ctx context.Context, admin *services.Principal, targetID string, role models.Role) (*models.User, error)
	Delete(ctx context.Context, admin *services.Principal, targetID string) (*models.User, error)
	Restore(ctx context.Context, admin *services.Principal, targetID string) (*models.User, error)
	Disable(ctx context.Context, admin *services.Principal, targetID string) (*models.User, error)
	Enable(ctx context.Context, admin *services.Principal, targetID string) (*models.User, error)
	Search(ctx context.Context, fragment string) ([]*models.User, error)
	Get(ctx context.Context, id string) (*models.User, error)
	History(ctx context.Context, targetID string) ([]*models.AdminAction, error)
}

// Options carries the transport settings taken from config.
type Options struct {
	AllowedOrigins []string
	CookieSecure   bool
	// PendingEmailTTL is the lifetime of the signup cookie.
	PendingEmailTTL time.Duration
	// RememberTTL is the lifetime of the remember-me cookie.
	RememberTTL time.Duration
}

type HTTPServer struct {
	address  string
	accounts AccountService
	admin    AdminService
	logger   logging.Logger
	opts     Options
	engine   *gin.Engine
}

func NewHTTPServer(a string, l logging.Logger, accounts AccountService, admin AdminService, opts Options) *HTTPServer {
	s := &HTTPServer{
		address:  a,
		accounts: accounts,
		admin:    admin,
		logger:   l.With("module", "http_server"),
		opts:     opts,
	}
	s.engine = s.routes()
	return s
}

// Handler returns the router, for tests and embedding.
func (s *HTTPServer) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
