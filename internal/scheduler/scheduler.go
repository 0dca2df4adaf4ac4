// Package scheduler triggers sync drains periodically and on reconnect.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/marcus/nt/internal/sync"
)

// Syncer is the drain entry point of the sync engine.
type Syncer interface {
	SyncNow(ctx context.Context) (sync.Summary, error)
}

// Reconnecter delivers offline→online edge notifications.
type Reconnecter interface {
	Subscribe() (<-chan bool, func())
}

// Scheduler invokes the syncer on an interval and whenever connectivity
// returns. Concurrent triggers are harmless: the engine serializes drains
// and reports overlapping calls as skipped.
type Scheduler struct {
	syncer   Syncer
	monitor  Reconnecter
	interval time.Duration
	debounce time.Duration
}

// New creates a scheduler. Zero interval defaults to 5 minutes.
func New(syncer Syncer, monitor Reconnecter, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Scheduler{
		syncer:   syncer,
		monitor:  monitor,
		interval: interval,
		debounce: 2 * time.Second,
	}
}

// SetDebounce overrides the reconnect debounce. Tests only.
func (s *Scheduler) SetDebounce(d time.Duration) { s.debounce = d }

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	reconnects, cancel := s.monitor.Subscribe()
	defer cancel()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.drain(ctx, "interval")
		case _, ok := <-reconnects:
			if !ok {
				return
			}
			// give the link a moment to settle before replaying the queue
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.debounce):
			}
			s.drain(ctx, "reconnect")
		}
	}
}

func (s *Scheduler) drain(ctx context.Context, trigger string) {
	summary, err := s.syncer.SyncNow(ctx)
	if err != nil {
		slog.Warn("scheduled sync failed", "trigger", trigger, "err", err)
		return
	}
	if summary.Skipped {
		slog.Debug("scheduled sync skipped", "trigger", trigger)
		return
	}
	slog.Info("scheduled sync done", "trigger", trigger,
		"pulled", summary.Pulled, "pushed", summary.Pushed,
		"dropped", summary.Dropped, "conflicts", summary.Conflicts,
		"remaining", summary.Remaining)
}
