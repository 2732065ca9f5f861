// Package config loads service configuration from the environment (and an
// optional .env file) and validates it at startup.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

// Storage backends.
const (
	StorageDir   = "dir"
	StorageMinio = "minio"
)

type Config struct {
	Addr      string `env:"SFD_ADDR" default:":3000"`
	Env       string `env:"SFD_ENV" default:"development"`
	LogLevel  string `env:"SFD_LOG_LEVEL" default:"info"`
	LogFormat string `env:"SFD_LOG_FORMAT" default:"text"`

	AdminUser  string `env:"SFD_ADMIN_USER" default:"admin"`
	AdminPass  string `env:"SFD_ADMIN_PASS"`
	UploadUser string `env:"SFD_UPLOAD_USER" default:"uploader"`
	UploadPass string `env:"SFD_UPLOAD_PASS"`

	UploadDir      string `env:"SFD_UPLOAD_DIR" default:"uploads"`
	PublicDir      string `env:"SFD_PUBLIC_DIR"`
	MaxUploadBytes int64  `env:"SFD_MAX_UPLOAD_BYTES" default:"0"`

	SessionTTL   time.Duration `env:"SFD_SESSION_TTL" default:"0s"`
	CookieSecure bool          `env:"SFD_COOKIE_SECURE" default:"false"`

	LoginRate       int           `env:"SFD_LOGIN_RATE" default:"10"`
	LoginWindow     time.Duration `env:"SFD_LOGIN_WINDOW" default:"1m"`
	LockoutAttempts int           `env:"SFD_LOCKOUT_ATTEMPTS" default:"5"`
	LockoutDuration time.Duration `env:"SFD_LOCKOUT_DURATION" default:"15m"`
	LockoutWindow   time.Duration `env:"SFD_LOCKOUT_WINDOW" default:"10m"`

	Storage     string `env:"SFD_STORAGE" default:"dir"`
	S3Endpoint  string `env:"SFD_S3_ENDPOINT"`
	S3AccessKey string `env:"SFD_S3_ACCESS_KEY"`
	S3SecretKey string `env:"SFD_S3_SECRET_KEY"`
	Bucket      string `env:"SFD_BUCKET"`

	BreakerFailures int           `env:"SFD_STORAGE_BREAKER_FAILURES" default:"5"`
	BreakerTimeout  time.Duration `env:"SFD_STORAGE_BREAKER_TIMEOUT" default:"30s"`

	CleanupInterval time.Duration `env:"SFD_CLEANUP_INTERVAL" default:"1h"`
	CleanupMaxAge   time.Duration `env:"SFD_CLEANUP_MAX_AGE" default:"24h"`

	Version string `env:"SFD_VERSION" default:"dev"`
	Commit  string `env:"SFD_COMMIT" default:"unknown"`
}

// Load reads .env (if present) and the environment, then validates.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
