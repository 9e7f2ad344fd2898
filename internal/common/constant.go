package common

const (
	// PendingEmailCookieName binds a browser to the email awaiting verification.
	PendingEmailCookieName = "learnhub_pending_email"

	// RememberMeCookieName carries the rotating refresh token used by auto-login.
	RememberMeCookieName = "learnhub_remember"

	// BearerPrefix is the Authorization header scheme for access tokens.
	BearerPrefix = "Bearer "
)
