// Package retention prunes chat audit records and inquiries past their
// retention window.
package retention

import (
	"context"
	"log/slog"
	"time"

	"github.com/devmud/devmud-site/internal/shared"
)

// Pruner deletes records created before cutoff.
type Pruner interface {
	PruneBefore(ctx context.Context, cutoff time.Time) (turns int64, inquiries int64, err error)
}

// Worker periodically prunes records older than MaxAge.
type Worker struct {
	pruner   Pruner
	maxAge   time.Duration
	interval time.Duration
	retry    shared.RetryPolicy
	now      func() time.Time
	logger   *slog.Logger
}

// NewWorker creates a retention worker.
func NewWorker(pruner Pruner, maxAge, interval time.Duration, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		pruner:   pruner,
		maxAge:   maxAge,
		interval: interval,
		retry:    shared.RetryPolicy{MaxAttempts: 3, BaseDelay: 100 * time.Millisecond},
		now:      time.Now,
		logger:   logger,
	}
}

// Start runs a sweep immediately and then on every tick until ctx is done.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	go func() {
		defer ticker.Stop()
		w.logger.Info("Retention worker started", "interval", w.interval, "max_age", w.maxAge)

		w.Sweep(ctx)
		for {
			select {
			case <-ticker.C:
				w.Sweep(ctx)
			case <-ctx.Done():
				w.logger.Info("Retention worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

// Sweep prunes once. Errors are logged, not returned: the next tick retries.
func (w *Worker) Sweep(ctx context.Context) {
	cutoff := w.now().Add(-w.maxAge)

	var turns, inquiries int64
	err := shared.RetryOnConflict(ctx, w.retry, "prune", func(ctx context.Context) error {
		var err error
		turns, inquiries, err = w.pruner.PruneBefore(ctx, cutoff)
		return err
	})
	if err != nil {
		if ctx.Err() != nil {
			w.logger.Debug("Retention sweep interrupted", "error", err)
			return
		}
		w.logger.Error("Retention sweep failed", "error", err, "cutoff", cutoff)
		return
	}

	if turns > 0 || inquiries > 0 {
		w.logger.Info("Retention sweep pruned records", "turns", turns, "inquiries", inquiries, "cutoff", cutoff)
	}
}
