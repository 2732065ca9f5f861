package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"file-intake/internal/config"
	"file-intake/internal/logging"
	"file-intake/internal/server"
	"file-intake/internal/session"
	"file-intake/internal/storage"
	"file-intake/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	logger := logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	for _, w := range config.Warnings(cfg) {
		logger.Warn("config", "warning", w)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	store, err := newStore(ctx, cfg)
	cancel()
	if err != nil {
		logger.Error("storage unavailable", "backend", cfg.Storage, "err", err)
		os.Exit(1)
	}

	srv, err := newServer(cfg, store, logger, clockwork.NewRealClock())
	if err != nil {
		logger.Error("server setup failed", "err", err)
		os.Exit(1)
	}

	jobCtx, stopJobs := context.WithCancel(context.Background())
	defer stopJobs()
	startCleanup(jobCtx, cfg, store, logger, clockwork.NewRealClock())

	// Start the HTTP server in a background goroutine.
	// This allows us to listen for OS signals while the server runs.
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting", "addr", cfg.Addr, "version", cfg.Version, "commit", cfg.Commit, "storage", cfg.Storage)
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
		stopJobs()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("shutdown error", "err", err)
			os.Exit(1)
		}
		logger.Info("shutdown complete")
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	}
}

// newStore builds the configured storage backend and makes sure its
// location exists.
func newStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	var store storage.Store
	switch cfg.Storage {
	case config.StorageDir:
		store = storage.NewDirStore(cfg.UploadDir)
	case config.StorageMinio:
		ms, err := storage.NewMinioStore(storage.MinioConfig{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.Bucket,
		})
		if err != nil {
			return nil, err
		}
		store = storage.NewBreakerStore(ms, storage.BreakerConfig{
			MaxFailures: cfg.BreakerFailures,
			Timeout:     cfg.BreakerTimeout,
			Logger:      slog.Default().With("component", "storage"),
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage)
	}

	if err := store.Ensure(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// startCleanup runs the staging janitor for stores that leave partial
// uploads on disk. It reports whether a job was started.
func startCleanup(ctx context.Context, cfg *config.Config, store storage.Store, logger *slog.Logger, clock clockwork.Clock) bool {
	sweeper, ok := store.(server.StagingSweeper)
	if !ok || cfg.CleanupInterval <= 0 {
		return false
	}
	go server.StartCleanupJob(ctx, server.CleanupConfig{
		Interval: cfg.CleanupInterval,
		MaxAge:   cfg.CleanupMaxAge,
		Sweeper:  sweeper,
		Clock:    clock,
		Logger:   logger.With("component", "cleanup"),
	})
	return true
}

func newServer(cfg *config.Config, store storage.Store, logger *slog.Logger, clock clockwork.Clock) (*server.Server, error) {
	public, err := web.Public(cfg.PublicDir)
	if err != nil {
		return nil, fmt.Errorf("public dir: %w", err)
	}

	gate := session.NewGate(
		map[session.Role]session.Credential{
			session.RoleAdmin:    {Username: cfg.AdminUser, Password: cfg.AdminPass},
			session.RoleUploader: {Username: cfg.UploadUser, Password: cfg.UploadPass},
		},
		session.NewMemoryStore(cfg.SessionTTL, clock),
		session.NewLockout(cfg.LockoutAttempts, cfg.LockoutDuration, cfg.LockoutWindow, clock),
	)

	return server.New(server.Config{
		Addr:           cfg.Addr,
		Store:          store,
		Gate:           gate,
		Public:         public,
		Logger:         logger,
		Clock:          clock,
		MaxUploadBytes: cfg.MaxUploadBytes,
		SessionTTL:     cfg.SessionTTL,
		CookieSecure:   cfg.CookieSecure,
		LoginRate:      cfg.LoginRate,
		LoginWindow:    cfg.LoginWindow,
		Version:        cfg.Version,
		Commit:         cfg.Commit,
	})
}
