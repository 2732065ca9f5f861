package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
)

// StagingSweeper removes abandoned partial uploads older than cutoff.
type StagingSweeper interface {
	SweepStaging(ctx context.Context, cutoff time.Time) (int, error)
}

// CleanupConfig holds configuration for the cleanup job
type CleanupConfig struct {
	Interval time.Duration
	MaxAge   time.Duration
	Sweeper  StagingSweeper
	Clock    clockwork.Clock
	Logger   *slog.Logger
}

// StartCleanupJob sweeps once, then every Interval until ctx is done.
// It blocks; run it in its own goroutine.
func StartCleanupJob(ctx context.Context, cfg CleanupConfig) {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Sweeper == nil || cfg.Interval <= 0 {
		cfg.Logger.Info("cleanup disabled")
		return
	}

	cfg.Logger.Info("cleanup starting", "interval", cfg.Interval, "max_age", cfg.MaxAge)

	ticker := cfg.Clock.NewTicker(cfg.Interval)
	defer ticker.Stop()

	runCleanup(ctx, cfg)
	for {
		select {
		case <-ctx.Done():
			cfg.Logger.Info("cleanup stopped")
			return
		case <-ticker.Chan():
			runCleanup(ctx, cfg)
		}
	}
}

func runCleanup(ctx context.Context, cfg CleanupConfig) {
	start := cfg.Clock.Now()
	removed, err := cfg.Sweeper.SweepStaging(ctx, start.Add(-cfg.MaxAge))
	if err != nil {
		cfg.Logger.Warn("cleanup failed", "removed", removed, "err", err)
		return
	}
	if removed > 0 {
		cfg.Logger.Info("cleanup complete", "removed", removed, "ms", cfg.Clock.Since(start).Milliseconds())
	}
}
