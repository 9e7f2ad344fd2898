package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/learnhub/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig mirrors Config for unmarshalling JSON or YAML files. Durations
// use timex.Duration so both "30m" and integer nanoseconds are accepted.
// Zero values are treated as "not set" and leave the current value intact.
type FileConfig struct {
	HTTPAddr                     string         `json:"http_addr" yaml:"http_addr"`
	DatabaseDSN                  string         `json:"database_dsn" yaml:"database_dsn"`
	SecretKey                    string         `json:"secret_key" yaml:"secret_key"`
	Issuer                       string         `json:"issuer" yaml:"issuer"`
	Audience                     string         `json:"audience" yaml:"audience"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration" yaml:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration" yaml:"refresh_token_validity_duration"`
	VerificationCodeTTL          timex.Duration `json:"verification_code_ttl" yaml:"verification_code_ttl"`
	ResendCooldown               timex.Duration `json:"resend_cooldown" yaml:"resend_cooldown"`
	LockoutThreshold             int            `json:"lockout_threshold" yaml:"lockout_threshold"`
	LockoutDuration              timex.Duration `json:"lockout_duration" yaml:"lockout_duration"`
	LockoutBackend               string         `json:"lockout_backend" yaml:"lockout_backend"`
	RedisAddr                    string         `json:"redis_addr" yaml:"redis_addr"`
	RedisPassword                string         `json:"redis_password" yaml:"redis_password"`
	RedisDB                      int            `json:"redis_db" yaml:"redis_db"`
	SMTPHost                     string         `json:"smtp_host" yaml:"smtp_host"`
	SMTPPort                     int            `json:"smtp_port" yaml:"smtp_port"`
	SMTPUsername                 string         `json:"smtp_username" yaml:"smtp_username"`
	SMTPPassword                 string         `json:"smtp_password" yaml:"smtp_password"`
	SMTPFrom                     string         `json:"smtp_from" yaml:"smtp_from"`
	MailDrainInterval            timex.Duration `json:"mail_drain_interval" yaml:"mail_drain_interval"`
	MailMaxAttempts              int            `json:"mail_max_attempts" yaml:"mail_max_attempts"`
	PublicURL                    string         `json:"public_url" yaml:"public_url"`
	AllowedOrigins               []string       `json:"allowed_origins" yaml:"allowed_origins"`
	CookieSecure                 *bool          `json:"cookie_secure" yaml:"cookie_secure"`
	LogLevel                     string         `json:"log_level" yaml:"log_level"`
	RevocationPurgeInterval      timex.Duration `json:"revocation_purge_interval" yaml:"revocation_purge_interval"`
	AdminEmail                   string         `json:"admin_email" yaml:"admin_email"`
	AdminName                    string         `json:"admin_name" yaml:"admin_name"`
}

// parseFile overlays values from the config file at path onto config.
// An empty path is a no-op. Files ending in .yaml or .yml are decoded as
// YAML, everything else as JSON.
func parseFile(config *Config, path string) error {
	if path == "" {
		return nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, c)
	default:
		err = json.Unmarshal(raw, c)
	}
	if err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	c.apply(config)
	return nil
}

func (c *FileConfig) apply(config *Config) {
	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.Issuer, c.Issuer)
	setString(&config.Audience, c.Audience)
	setDuration(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setDuration(&config.RefreshTokenValidityDuration, c.RefreshTokenValidityDuration)
	setDuration(&config.VerificationCodeTTL, c.VerificationCodeTTL)
	setDuration(&config.ResendCooldown, c.ResendCooldown)
	setInt(&config.LockoutThreshold, c.LockoutThreshold)
	setDuration(&config.LockoutDuration, c.LockoutDuration)
	setString(&config.LockoutBackend, c.LockoutBackend)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisPassword, c.RedisPassword)
	setInt(&config.RedisDB, c.RedisDB)
	setString(&config.SMTPHost, c.SMTPHost)
	setInt(&config.SMTPPort, c.SMTPPort)
	setString(&config.SMTPUsername, c.SMTPUsername)
	setString(&config.SMTPPassword, c.SMTPPassword)
	setString(&config.SMTPFrom, c.SMTPFrom)
	setDuration(&config.MailDrainInterval, c.MailDrainInterval)
	setInt(&config.MailMaxAttempts, c.MailMaxAttempts)
	setString(&config.PublicURL, c.PublicURL)
	if len(c.AllowedOrigins) > 0 {
		config.AllowedOrigins = c.AllowedOrigins
	}
	if c.CookieSecure != nil {
		config.CookieSecure = *c.CookieSecure
	}
	setString(&config.LogLevel, c.LogLevel)
	setDuration(&config.RevocationPurgeInterval, c.RevocationPurgeInterval)
	setString(&config.AdminEmail, c.AdminEmail)
	setString(&config.AdminName, c.AdminName)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
