// Package services contains server-side business logic. AccountService
// drives the account lifecycle: signup, e-mail verification, sign-in with
// lockout, token rotation, password reset and logout.
package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/learnhub/internal/common"
	"github.com/dmitrijs2005/learnhub/internal/dbx"
	"github.com/dmitrijs2005/learnhub/internal/logging"
	"github.com/dmitrijs2005/learnhub/internal/server/auth"
	"github.com/dmitrijs2005/learnhub/internal/server/config"
	"github.com/dmitrijs2005/learnhub/internal/server/lockout"
	"github.com/dmitrijs2005/learnhub/internal/server/mailer"
	"github.com/dmitrijs2005/learnhub/internal/server/models"
	"github.com/dmitrijs2005/learnhub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/learnhub/internal/timex"
)

// MailQueue accepts outbound e-mail. *mailer.Queue satisfies it.
type MailQueue interface {
	Enqueue(kind mailer.Kind, email, name, payload string)
}

// TokenPair bundles a short-lived access token and a rotating refresh token.
type TokenPair struct {
	AccessToken    string
	AccessExpires  time.Time
	RefreshToken   string
	RefreshExpires time.Time
}

// Session is the result of a successful sign-in or refresh.
type Session struct {
	TokenPair
	User *models.User
}

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID    string
	Email     string
	FullName  string
	Role      models.Role
	Token     string
	ExpiresAt time.Time
}

// SignupInput is the validated signup request.
type SignupInput struct {
	FullName        string
	Email           string
	Password        string
	ConfirmPassword string
}

// SignupResult tells the transport which e-mail is now pending verification.
type SignupResult struct {
	Email  string
	Resent bool
}

// AccountService implements the account lifecycle state machine.
type AccountService struct {
	db          dbx.DBTX
	tx          dbx.Transactor
	repomanager repomanager.RepositoryManager
	issuer      *auth.Issuer
	lockout     lockout.Tracker
	mail        MailQueue
	logger      logging.Logger
	now         timex.Clock

	refreshTTL     time.Duration
	codeTTL        time.Duration
	resendCooldown time.Duration
	publicURL      string

	// dummyHash is verified against when the user does not exist so that
	// unknown and known e-mails cost the same.
	dummyHash string
}

// NewAccountService wires the state machine. now may be nil.
func NewAccountService(
	db dbx.DBTX,
	tx dbx.Transactor,
	m repomanager.RepositoryManager,
	issuer *auth.Issuer,
	tracker lockout.Tracker,
	mail MailQueue,
	logger logging.Logger,
	cfg *config.Config,
	now timex.Clock,
) *AccountService {
	if now == nil {
		now = timex.UTCNow
	}
	dummy, _ := auth.HashPassword("learnhub-timing-equaliser")

	return &AccountService{
		db:             db,
		tx:             tx,
		repomanager:    m,
		issuer:         issuer,
		lockout:        tracker,
		mail:           mail,
		logger:         logger.With("module", "accounts"),
		now:            now,
		refreshTTL:     cfg.RefreshTokenValidityDuration,
		codeTTL:        cfg.VerificationCodeTTL,
		resendCooldown: cfg.ResendCooldown,
		publicURL:      strings.TrimRight(cfg.PublicURL, "/"),
		dummyHash:      dummy,
	}
}

// Signup registers a new account or, for an existing unverified one,
// re-sends its code once the resend cooldown has passed.
func (s *AccountService) Signup(ctx context.Context, in SignupInput) (*SignupResult, error) {
	email := common.NormalizeEmail(in.Email)
	if in.Password != in.ConfirmPassword {
		return nil, newError(KindValidation, common.ErrPasswordMismatch, "passwords do not match")
	}

	existing, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	switch {
	case err == nil:
		return s.signupExisting(ctx, existing)
	case !errors.Is(err, common.ErrorNotFound):
		return nil, fmt.Errorf("signup lookup: %w", err)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	code, err := auth.NewVerificationCode()
	if err != nil {
		return nil, err
	}

	user := &models.User{
		FullName:     strings.TrimSpace(in.FullName),
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleRegularUser,
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		created, err := s.repomanager.Users(tx).Create(ctx, user)
		if err != nil {
			return err
		}
		return s.repomanager.Verifications(tx).Upsert(ctx, &models.AccountVerification{
			UserID:   created.ID,
			Code:     code,
			IssuedAt: s.now(),
		})
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, newError(KindConflict, common.ErrorAlreadyExists, "an account with this email already exists")
		}
		return nil, fmt.Errorf("signup: %w", err)
	}

	s.mail.Enqueue(mailer.KindVerification, user.Email, user.FullName, code)
	s.logger.Info(ctx, "user signed up", "user_id", user.ID)

	return &SignupResult{Email: user.Email}, nil
}

func (s *AccountService) signupExisting(ctx context.Context, user *models.User) (*SignupResult, error) {
	v, err := s.repomanager.Verifications(s.db).GetByUserID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("signup verification lookup: %w", err)
	}
	if v.CheckedOK || user.IsDeleted {
		return nil, newError(KindConflict, common.ErrorAlreadyExists, "an account with this email already exists")
	}

	if err := s.rotateCode(ctx, user, v, mailer.KindResendVerification); err != nil {
		return nil, err
	}
	return &SignupResult{Email: user.Email, Resent: true}, nil
}

// rotateCode replaces the verification code of an unverified account and
// queues it, unless the previous one was issued inside the resend cooldown.
func (s *AccountService) rotateCode(ctx context.Context, user *models.User, v *models.AccountVerification, kind mailer.Kind) error {
	if remaining := s.cooldownLeft(v); remaining > 0 {
		return throttled(common.ErrResendThrottled, remaining)
	}

	code, err := auth.NewVerificationCode()
	if err != nil {
		return err
	}
	next := *v
	next.Code = code
	next.IssuedAt = s.now()
	next.ResetRequested = false

	if err := s.repomanager.Verifications(s.db).Upsert(ctx, &next); err != nil {
		return fmt.Errorf("rotate code: %w", err)
	}
	s.mail.Enqueue(kind, user.Email, user.FullName, code)
	return nil
}

func (s *AccountService) cooldownLeft(v *models.AccountVerification) time.Duration {
	elapsed := s.now().Sub(v.IssuedAt)
	if elapsed >= s.resendCooldown {
		return 0
	}
	return s.resendCooldown - elapsed
}

func (s *AccountService) codeExpired(v *models.AccountVerification) bool {
	return s.now().Sub(v.IssuedAt) > s.codeTTL
}

func codesEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// pendingUser loads the account named by the pending-verification cookie.
func (s *AccountService) pendingUser(ctx context.Context, email string) (*models.User, *models.AccountVerification, error) {
	email = common.NormalizeEmail(email)
	if email == "" {
		return nil, nil, newError(KindValidation, common.ErrNoPendingEmail, "no pending verification, please sign up first")
	}

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil, newError(KindValidation, common.ErrNoPendingEmail, "no pending verification, please sign up first")
		}
		return nil, nil, fmt.Errorf("pending user lookup: %w", err)
	}
	if user.IsDeleted {
		return nil, nil, newError(KindValidation, common.ErrNoPendingEmail, "no pending verification, please sign up first")
	}
	v, err := s.repomanager.Verifications(s.db).GetByUserID(ctx, user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("pending verification lookup: %w", err)
	}
	return user, v, nil
}

// VerifyAccount redeems code for the account pending under email.
func (s *AccountService) VerifyAccount(ctx context.Context, email, code string) error {
	user, v, err := s.pendingUser(ctx, email)
	if err != nil {
		return err
	}
	if v.CheckedOK {
		return newError(KindConflict, common.ErrAlreadyVerified, "this account is already verified")
	}
	if !codesEqual(strings.TrimSpace(code), v.Code) {
		return newError(KindValidation, common.ErrInvalidCode, "invalid verification code")
	}
	if s.codeExpired(v) {
		return newError(KindValidation, common.ErrCodeExpired, "verification code has expired, please request a new one")
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		next := *v
		next.CheckedOK = true
		if err := s.repomanager.Verifications(tx).Upsert(ctx, &next); err != nil {
			return err
		}
		return s.repomanager.Users(tx).SetActive(ctx, user.ID, true)
	})
	if err != nil {
		return fmt.Errorf("verify account: %w", err)
	}

	s.logger.Info(ctx, "account verified", "user_id", user.ID)
	return nil
}

// ResendVerification issues a fresh code for the pending account, at most
// once per resend cooldown.
func (s *AccountService) ResendVerification(ctx context.Context, email string) error {
	user, v, err := s.pendingUser(ctx, email)
	if err != nil {
		return err
	}
	if v.CheckedOK {
		return newError(KindConflict, common.ErrAlreadyVerified, "this account is already verified")
	}
	return s.rotateCode(ctx, user, v, mailer.KindResendVerification)
}

func (s *AccountService) invalidCredentials(ctx context.Context, email string) error {
	remaining, err := s.lockout.RecordFailure(ctx, email)
	if err != nil {
		return fmt.Errorf("record failure: %w", err)
	}
	if remaining > 0 {
		s.logger.Warn(ctx, "sign-in locked out", "email", email)
		return lockedOut(remaining)
	}
	return newError(KindAuthentication, common.ErrInvalidCredentials, "invalid email or password")
}

// Signin checks credentials and account state and issues a session.
func (s *AccountService) Signin(ctx context.Context, email, password string) (*Session, error) {
	email = common.NormalizeEmail(email)

	remaining, err := s.lockout.IsLockedOut(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("lockout check: %w", err)
	}
	if remaining > 0 {
		return nil, lockedOut(remaining)
	}

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("signin lookup: %w", err)
		}
		auth.VerifyPassword(password, s.dummyHash)
		return nil, s.invalidCredentials(ctx, email)
	}
	if !auth.VerifyPassword(password, user.PasswordHash) {
		return nil, s.invalidCredentials(ctx, email)
	}

	if user.IsDeleted {
		return nil, newError(KindAuthentication, common.ErrAccountDeleted, "this account has been deleted")
	}

	v, err := s.repomanager.Verifications(s.db).GetByUserID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("signin verification lookup: %w", err)
	}
	if !v.CheckedOK {
		if err := s.rotateCode(ctx, user, v, mailer.KindResendVerification); err != nil {
			var se *Error
			if !errors.As(err, &se) {
				return nil, err
			}
		}
		return nil, newError(KindAuthentication, common.ErrNotVerified, "please verify your email, a verification code has been sent")
	}
	if !user.IsActive {
		return nil, newError(KindAuthentication, common.ErrAccountInactive, "this account is disabled")
	}

	if err := s.lockout.Reset(ctx, email); err != nil {
		s.logger.Warn(ctx, "lockout reset failed", "error", err)
	}
	if err := s.repomanager.Visits(s.db).Record(ctx, user.ID, s.now()); err != nil {
		s.logger.Warn(ctx, "record visit failed", "user_id", user.ID, "error", err)
	}

	pair, err := s.issuePair(ctx, s.db, user)
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "user signed in", "user_id", user.ID)
	return &Session{TokenPair: *pair, User: user}, nil
}

func (s *AccountService) issuePair(ctx context.Context, db dbx.DBTX, user *models.User) (*TokenPair, error) {
	id := auth.Identity{
		UserID:   user.ID,
		Email:    user.Email,
		FullName: user.FullName,
		Role:     user.Role,
	}
	if user.TokensValidAfter != nil {
		id.MinIssuedAt = *user.TokensValidAfter
	}
	access, accessExp, err := s.issuer.IssueAccess(id)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	refresh, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}
	refreshExp := s.now().Add(s.refreshTTL)
	if err := s.repomanager.RefreshTokens(db).Create(ctx, user.ID, common.HashToken(refresh), refreshExp); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:    access,
		AccessExpires:  accessExp,
		RefreshToken:   refresh,
		RefreshExpires: refreshExp,
	}, nil
}

// Refresh rotates refreshToken: the presented token is revoked and a new pair
// issued. A token can be presented successfully only once.
func (s *AccountService) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, newError(KindUnauthorized, common.ErrInvalidToken, "invalid refresh token")
	}

	var session *Session
	err := s.tx.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		token, err := s.repomanager.RefreshTokens(tx).Consume(ctx, common.HashToken(refreshToken))
		switch {
		case errors.Is(err, common.ErrRefreshTokenRevoked):
			return newError(KindUnauthorized, common.ErrRefreshTokenRevoked, "refresh token has been revoked")
		case errors.Is(err, common.ErrorNotFound):
			return newError(KindUnauthorized, common.ErrInvalidToken, "invalid refresh token")
		case err != nil:
			return err
		}
		if !token.Expires.After(s.now()) {
			return newError(KindUnauthorized, common.ErrRefreshTokenExpired, "refresh token has expired")
		}

		user, err := s.repomanager.Users(tx).GetByID(ctx, token.UserID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return newError(KindUnauthorized, common.ErrInvalidToken, "invalid refresh token")
			}
			return err
		}
		if user.IsDeleted || !user.IsActive {
			return newError(KindUnauthorized, common.ErrInvalidToken, "invalid refresh token")
		}

		pair, err := s.issuePair(ctx, tx, user)
		if err != nil {
			return err
		}
		session = &Session{TokenPair: *pair, User: user}
		return nil
	})
	if err != nil {
		if _, ok := AsError(err); ok {
			return nil, err
		}
		return nil, fmt.Errorf("refresh: %w", err)
	}
	return session, nil
}

// AutoLogin signs in from the remember-me cookie, which holds a refresh
// token. It rotates that token exactly like Refresh.
func (s *AccountService) AutoLogin(ctx context.Context, rememberToken string) (*Session, error) {
	return s.Refresh(ctx, rememberToken)
}

// ForgotPassword queues a reset link for email. It succeeds whether or not
// the account exists.
func (s *AccountService) ForgotPassword(ctx context.Context, email string) error {
	email = common.NormalizeEmail(email)

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		return fmt.Errorf("forgot password lookup: %w", err)
	}
	if user.IsDeleted {
		return nil
	}

	v, err := s.repomanager.Verifications(s.db).GetByUserID(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("forgot password verification lookup: %w", err)
	}
	if v.ResetRequested && s.cooldownLeft(v) > 0 {
		s.logger.Debug(ctx, "password reset throttled", "user_id", user.ID)
		return nil
	}

	code, err := auth.NewVerificationCode()
	if err != nil {
		return err
	}
	next := *v
	next.Code = code
	next.IssuedAt = s.now()
	next.ResetRequested = true
	if err := s.repomanager.Verifications(s.db).Upsert(ctx, &next); err != nil {
		return fmt.Errorf("forgot password: %w", err)
	}

	s.mail.Enqueue(mailer.KindPasswordReset, user.Email, user.FullName, s.resetLink(user.Email, code))
	s.logger.Info(ctx, "password reset requested", "user_id", user.ID)
	return nil
}

// resetLink carries e-mail and code in the fragment so they never reach
// server logs or Referer headers.
func (s *AccountService) resetLink(email, code string) string {
	q := url.Values{}
	q.Set("email", email)
	q.Set("code", code)
	return s.publicURL + "/reset-password#" + q.Encode()
}

// ResetPasswordInput is the validated reset request.
type ResetPasswordInput struct {
	Email           string
	Code            string
	Password        string
	ConfirmPassword string
}

// ResetPassword sets a new password using an outstanding reset code and
// ends every existing session of the user.
func (s *AccountService) ResetPassword(ctx context.Context, in ResetPasswordInput) error {
	if in.Password != in.ConfirmPassword {
		return newError(KindValidation, common.ErrPasswordMismatch, "passwords do not match")
	}

	invalid := newError(KindValidation, common.ErrInvalidCode, "invalid or unknown reset code")

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, common.NormalizeEmail(in.Email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return invalid
		}
		return fmt.Errorf("reset lookup: %w", err)
	}
	if user.IsDeleted {
		return invalid
	}
	v, err := s.repomanager.Verifications(s.db).GetByUserID(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("reset verification lookup: %w", err)
	}
	if !v.ResetRequested || !codesEqual(strings.TrimSpace(in.Code), v.Code) {
		return invalid
	}
	if s.codeExpired(v) {
		return newError(KindValidation, common.ErrCodeExpired, "reset code has expired, please request a new one")
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return err
	}

	// JWT iat has second precision, so the cutoff is the next whole second.
	// Tokens minted before the reset in the same second fall below it.
	validAfter := s.now().Truncate(time.Second).Add(time.Second)

	err = s.tx.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).UpdatePassword(ctx, user.ID, hash); err != nil {
			return err
		}
		next := *v
		next.ResetRequested = false
		if err := s.repomanager.Verifications(tx).Upsert(ctx, &next); err != nil {
			return err
		}
		if _, err := s.repomanager.RefreshTokens(tx).RevokeAllForUser(ctx, user.ID); err != nil {
			return err
		}
		return s.repomanager.Users(tx).SetTokensValidAfter(ctx, user.ID, validAfter)
	})
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}

	s.logger.Info(ctx, "password reset", "user_id", user.ID)
	return nil
}

// Logout blacklists accessToken while it is still valid and revokes the
// remember-me refresh token, if any. Both arguments may be empty.
func (s *AccountService) Logout(ctx context.Context, accessToken, rememberToken string) error {
	if accessToken != "" {
		claims, err := s.issuer.Parse(accessToken)
		if err == nil && claims.ExpiresAt != nil && claims.ExpiresAt.Time.After(s.now()) {
			if err := s.repomanager.Blacklist(s.db).Add(ctx, accessToken, claims.ExpiresAt.Time); err != nil {
				return fmt.Errorf("logout: %w", err)
			}
		}
	}
	if rememberToken != "" {
		if err := s.repomanager.RefreshTokens(s.db).Revoke(ctx, common.HashToken(rememberToken)); err != nil {
			return fmt.Errorf("logout: %w", err)
		}
	}
	return nil
}

// CheckToken is the request filter: it rejects blacklisted, malformed and
// expired bearer tokens.
func (s *AccountService) CheckToken(ctx context.Context, token string) (*auth.Claims, error) {
	blacklisted, err := s.repomanager.Blacklist(s.db).IsBlacklisted(ctx, token, s.now())
	if err != nil {
		return nil, fmt.Errorf("blacklist check: %w", err)
	}
	if blacklisted {
		return nil, newError(KindUnauthorized, common.ErrTokenBlacklisted, "token has been revoked")
	}

	claims, err := s.issuer.Parse(token)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return nil, newError(KindUnauthorized, common.ErrTokenExpired, "token has expired")
		}
		return nil, newError(KindUnauthorized, common.ErrInvalidToken, "invalid token")
	}
	return claims, nil
}

// Authenticate validates token and resolves the current state of its owner.
// Role comes from the database so role changes apply immediately.
func (s *AccountService) Authenticate(ctx context.Context, token string) (*Principal, error) {
	claims, err := s.CheckToken(ctx, token)
	if err != nil {
		return nil, err
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, newError(KindUnauthorized, common.ErrInvalidToken, "invalid token")
		}
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	if user.IsDeleted || !user.IsActive {
		return nil, newError(KindUnauthorized, common.ErrInvalidToken, "invalid token")
	}
	if user.TokensValidAfter != nil && claims.IssuedAt != nil && claims.IssuedAt.Time.Before(*user.TokensValidAfter) {
		return nil, newError(KindUnauthorized, common.ErrInvalidToken, "session has ended, please sign in again")
	}

	return &Principal{
		UserID:    user.ID,
		Email:     user.Email,
		FullName:  user.FullName,
		Role:      user.Role,
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Me returns the account behind p.
func (s *AccountService) Me(ctx context.Context, p *Principal) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, newError(KindNotFound, common.ErrorNotFound, "user not found")
		}
		return nil, fmt.Errorf("me: %w", err)
	}
	return user, nil
}
