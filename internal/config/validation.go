// validation.go - Startup validation of configuration values.
//
// Collects every problem before failing so the operator sees all of them
// at once.
package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// ValidationError describes one invalid setting.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation failed for %s: %s", e.Field, e.Message)
}

// Validator accumulates validation errors.
type Validator struct {
	errors []ValidationError
}

// AddError records a validation error.
func (v *Validator) AddError(field, message string) {
	v.errors = append(v.errors, ValidationError{Field: field, Message: message})
}

// HasErrors returns true if there are validation errors.
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns all validation errors.
func (v *Validator) Errors() []ValidationError {
	return v.errors
}

// Err returns nil or a single error listing every problem.
func (v *Validator) Err() error {
	if !v.HasErrors() {
		return nil
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "configuration validation failed with %d error(s):", len(v.errors))
	for i, err := range v.errors {
		fmt.Fprintf(&sb, "\n  %d. %s", i+1, err.Error())
	}
	return fmt.Errorf("%s", sb.String())
}

// Required flags an empty value.
func (v *Validator) Required(key, value string) {
	if value == "" {
		v.AddError(key, "required environment variable not set")
	}
}

// Addr validates a listen address of the form "host:port" or ":port".
func (v *Validator) Addr(key, value string) {
	if value == "" {
		return
	}
	_, portStr, err := net.SplitHostPort(value)
	if err != nil {
		v.AddError(key, "must be host:port or :port")
		return
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		v.AddError(key, "port must be a number")
		return
	}
	if port < 0 || port > 65535 {
		v.AddError(key, "port must be between 0 and 65535")
	}
}

// Enum validates that value is one of allowed.
func (v *Validator) Enum(key, value string, allowed []string) {
	for _, opt := range allowed {
		if value == opt {
			return
		}
	}
	v.AddError(key, fmt.Sprintf("must be one of: %s (got: %s)", strings.Join(allowed, ", "), value))
}

// NonNegative flags negative numbers.
func (v *Validator) NonNegative(key string, value int64) {
	if value < 0 {
		v.AddError(key, "must not be negative")
	}
}

// Password accepts plain text or a well-formed bcrypt hash.
func (v *Validator) Password(key, value string) {
	if !strings.HasPrefix(value, "$2") {
		return
	}
	if !strings.HasPrefix(value, "$2a$") &&
		!strings.HasPrefix(value, "$2b$") &&
		!strings.HasPrefix(value, "$2y$") {
		v.AddError(key, "must be a valid bcrypt hash (starts with $2a$, $2b$, or $2y$)")
		return
	}
	// Bcrypt hashes are 60 characters
	if len(value) != 60 {
		v.AddError(key, "bcrypt hash must be exactly 60 characters")
	}
}

// Validate checks cfg and returns every problem found.
func Validate(cfg *Config) error {
	v := &Validator{}

	v.Required("SFD_ADMIN_USER", cfg.AdminUser)
	v.Required("SFD_ADMIN_PASS", cfg.AdminPass)
	v.Required("SFD_UPLOAD_USER", cfg.UploadUser)
	v.Required("SFD_UPLOAD_PASS", cfg.UploadPass)
	v.Password("SFD_ADMIN_PASS", cfg.AdminPass)
	v.Password("SFD_UPLOAD_PASS", cfg.UploadPass)

	v.Addr("SFD_ADDR", cfg.Addr)
	v.Enum("SFD_ENV", cfg.Env, []string{"development", "staging", "production"})
	v.Enum("SFD_LOG_LEVEL", cfg.LogLevel, []string{"debug", "info", "warn", "error"})
	v.Enum("SFD_LOG_FORMAT", cfg.LogFormat, []string{"text", "json"})

	v.NonNegative("SFD_MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)
	v.NonNegative("SFD_SESSION_TTL", int64(cfg.SessionTTL))
	v.NonNegative("SFD_LOCKOUT_ATTEMPTS", int64(cfg.LockoutAttempts))
	if cfg.LoginRate < 0 {
		v.AddError("SFD_LOGIN_RATE", "must not be negative")
	}
	if cfg.LoginRate > 0 && cfg.LoginWindow <= 0 {
		v.AddError("SFD_LOGIN_WINDOW", "must be positive when SFD_LOGIN_RATE is set")
	}

	v.NonNegative("SFD_CLEANUP_INTERVAL", int64(cfg.CleanupInterval))
	if cfg.CleanupInterval > 0 && cfg.CleanupMaxAge <= 0 {
		v.AddError("SFD_CLEANUP_MAX_AGE", "must be positive when SFD_CLEANUP_INTERVAL is set")
	}

	v.Enum("SFD_STORAGE", cfg.Storage, []string{StorageDir, StorageMinio})
	switch cfg.Storage {
	case StorageDir:
		v.Required("SFD_UPLOAD_DIR", cfg.UploadDir)
	case StorageMinio:
		v.Required("SFD_S3_ENDPOINT", cfg.S3Endpoint)
		v.Required("SFD_S3_ACCESS_KEY", cfg.S3AccessKey)
		v.Required("SFD_S3_SECRET_KEY", cfg.S3SecretKey)
		v.Required("SFD_BUCKET", cfg.Bucket)
		v.NonNegative("SFD_STORAGE_BREAKER_FAILURES", int64(cfg.BreakerFailures))
		v.NonNegative("SFD_STORAGE_BREAKER_TIMEOUT", int64(cfg.BreakerTimeout))
	}

	return v.Err()
}

// Warnings lists optional settings worth reviewing; they never block startup.
func Warnings(cfg *Config) []string {
	var warnings []string
	if !strings.HasPrefix(cfg.AdminPass, "$2") || !strings.HasPrefix(cfg.UploadPass, "$2") {
		warnings = append(warnings, "plain-text password configured; consider a bcrypt hash from cmd/hashpw")
	}
	if cfg.Env == "production" && !cfg.CookieSecure {
		warnings = append(warnings, "SFD_COOKIE_SECURE is false in production")
	}
	if cfg.LogFormat != "json" && cfg.Env == "production" {
		warnings = append(warnings, "SFD_LOG_FORMAT not json in production")
	}
	return warnings
}
