package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/DanielPopoola/ficmart-settlement/internal/application/services"
	"github.com/DanielPopoola/ficmart-settlement/internal/clock"
)

// Sweeper runs one capture sweep.
type Sweeper interface {
	Run(ctx context.Context, now time.Time) (*services.SweepResult, error)
}

// CaptureWorker runs the capture sweep on a fixed interval inside the
// process. External schedulers hitting /cron/capture-due do the same work.
type CaptureWorker struct {
	sweeper  Sweeper
	clock    clock.Clock
	interval time.Duration
	logger   *slog.Logger
}

func NewCaptureWorker(
	sweeper Sweeper,
	clk clock.Clock,
	interval time.Duration,
	logger *slog.Logger,
) *CaptureWorker {
	return &CaptureWorker{
		sweeper:  sweeper,
		clock:    clk,
		interval: interval,
		logger:   logger,
	}
}

// Start blocks until ctx is cancelled.
func (w *CaptureWorker) Start(ctx context.Context) {
	w.logger.Info("capture worker started", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("capture worker stopping")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

func (w *CaptureWorker) RunOnce(ctx context.Context) {
	result, err := w.sweeper.Run(ctx, w.clock.Now())
	if err != nil {
		w.logger.Error("capture sweep failed", "error", err)
		return
	}
	if result.Selected > 0 {
		w.logger.Info("processed scheduled capture sweep",
			"selected", result.Selected,
			"captured", result.Captured,
			"failed", result.Failed,
		)
	}
}
