package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// EnvPrefix prefixes every environment variable read by parseEnv.
const EnvPrefix = "LEARNHUB_"

// lookupFunc matches os.LookupEnv.
type lookupFunc func(key string) (string, bool)

// parseEnv overlays LEARNHUB_* environment variables onto config. Secrets
// (JWT key, SMTP and Redis passwords, admin password) are expected to come
// from here rather than from files.
func parseEnv(config *Config, lookup lookupFunc) error {
	e := envReader{lookup: lookup}

	e.str("HTTP_ADDR", &config.HTTPAddr)
	e.str("DATABASE_DSN", &config.DatabaseDSN)
	e.str("JWT_SECRET", &config.SecretKey)
	e.str("JWT_ISSUER", &config.Issuer)
	e.str("JWT_AUDIENCE", &config.Audience)
	e.duration("ACCESS_TOKEN_TTL", &config.AccessTokenValidityDuration)
	e.duration("REFRESH_TOKEN_TTL", &config.RefreshTokenValidityDuration)
	e.duration("VERIFICATION_CODE_TTL", &config.VerificationCodeTTL)
	e.duration("RESEND_COOLDOWN", &config.ResendCooldown)
	e.integer("LOCKOUT_THRESHOLD", &config.LockoutThreshold)
	e.duration("LOCKOUT_DURATION", &config.LockoutDuration)
	e.str("LOCKOUT_BACKEND", &config.LockoutBackend)
	e.str("REDIS_ADDR", &config.RedisAddr)
	e.str("REDIS_PASSWORD", &config.RedisPassword)
	e.integer("REDIS_DB", &config.RedisDB)
	e.str("SMTP_HOST", &config.SMTPHost)
	e.integer("SMTP_PORT", &config.SMTPPort)
	e.str("SMTP_USERNAME", &config.SMTPUsername)
	e.str("SMTP_PASSWORD", &config.SMTPPassword)
	e.str("SMTP_FROM", &config.SMTPFrom)
	e.duration("MAIL_DRAIN_INTERVAL", &config.MailDrainInterval)
	e.integer("MAIL_MAX_ATTEMPTS", &config.MailMaxAttempts)
	e.str("PUBLIC_URL", &config.PublicURL)
	e.list("ALLOWED_ORIGINS", &config.AllowedOrigins)
	e.boolean("COOKIE_SECURE", &config.CookieSecure)
	e.str("LOG_LEVEL", &config.LogLevel)
	e.duration("REVOCATION_PURGE_INTERVAL", &config.RevocationPurgeInterval)
	e.str("ADMIN_EMAIL", &config.AdminEmail)
	e.str("ADMIN_NAME", &config.AdminName)
	e.str("ADMIN_PASSWORD", &config.AdminPassword)

	return e.err
}

type envReader struct {
	lookup lookupFunc
	err    error
}

func (e *envReader) get(name string) (string, bool) {
	v, ok := e.lookup(EnvPrefix + name)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func (e *envReader) fail(name string, err error) {
	if e.err == nil {
		e.err = fmt.Errorf("env %s%s: %w", EnvPrefix, name, err)
	}
}

func (e *envReader) str(name string, dst *string) {
	if v, ok := e.get(name); ok {
		*dst = v
	}
}

func (e *envReader) integer(name string, dst *int) {
	v, ok := e.get(name)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(name, err)
		return
	}
	*dst = n
}

func (e *envReader) duration(name string, dst *time.Duration) {
	v, ok := e.get(name)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(name, err)
		return
	}
	*dst = d
}

func (e *envReader) boolean(name string, dst *bool) {
	v, ok := e.get(name)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(name, err)
		return
	}
	*dst = b
}

func (e *envReader) list(name string, dst *[]string) {
	v, ok := e.get(name)
	if !ok {
		return
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	*dst = out
}
