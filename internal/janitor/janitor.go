// Package janitor periodically settles CVs whose background run was lost,
// e.g. because the process restarted mid-generation.
package janitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cv-optimizer/internal/usecase"

	"github.com/robfig/cron/v3"
)

// Recoverer settles CVs that have not moved since before.
type Recoverer interface {
	RecoverStale(ctx context.Context, before time.Time) (usecase.Recovery, error)
}

type Janitor struct {
	cron       *cron.Cron
	recoverer  Recoverer
	spec       string
	staleAfter time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

// New builds a janitor running on the cron spec, e.g. "@every 15m".
func New(r Recoverer, spec string, staleAfter time.Duration, logger *slog.Logger) *Janitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Janitor{
		cron:       cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		recoverer:  r,
		spec:       spec,
		staleAfter: staleAfter,
		logger:     logger.With("component", "janitor"),
		now:        time.Now,
	}
}

// Start registers the sweep, runs one before returning so CVs left over from
// a previous process are settled, then starts the schedule.
func (j *Janitor) Start(ctx context.Context) error {
	if _, err := j.cron.AddFunc(j.spec, func() { j.Sweep(ctx) }); err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}
	j.Sweep(ctx)

	j.cron.Start()
	j.logger.Info("janitor started", "spec", j.spec, "stale_after", j.staleAfter)
	return nil
}

// Stop halts the schedule and waits for a running sweep.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
	j.logger.Info("janitor stopped")
}

func (j *Janitor) Sweep(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	rec, err := j.recoverer.RecoverStale(ctx, j.now().Add(-j.staleAfter))
	if err != nil {
		j.logger.Error("sweep failed", "error", err)
		return
	}
	if rec.Failed > 0 || rec.Dispatched > 0 {
		j.logger.Info("sweep settled stale cvs", "failed", rec.Failed, "dispatched", rec.Dispatched)
	}
}
