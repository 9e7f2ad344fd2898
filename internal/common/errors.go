// Package common defines shared constants, helpers and sentinel errors used
// across the server layers. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")
	ErrorValidation   = errors.New("validation error")

	// Sign-in errors.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrLockedOut          = errors.New("too many failed attempts")
	ErrNotVerified        = errors.New("account not verified")
	ErrAccountDeleted     = errors.New("account deleted")
	ErrAccountInactive    = errors.New("account inactive")

	// Verification code errors.
	ErrAlreadyVerified     = errors.New("account already verified")
	ErrInvalidCode         = errors.New("invalid verification code")
	ErrCodeExpired         = errors.New("verification code expired")
	ErrResendThrottled     = errors.New("verification code resend throttled")
	ErrNoPendingEmail      = errors.New("no pending verification")
	ErrPasswordMismatch    = errors.New("passwords do not match")
	ErrSystemProtectedUser = errors.New("user is system protected")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenBlacklisted = errors.New("token revoked")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
	ErrRefreshTokenRevoked = errors.New("refresh token revoked")
)
