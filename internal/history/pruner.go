package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/jsdocpreview/internal/logfields"
)

// DefaultPruneInterval is how often the pruner runs when no interval is given.
const DefaultPruneInterval = time.Hour

// Pruner periodically deletes runs older than the retention window.
type Pruner struct {
	scheduler gocron.Scheduler
	store     *Store
	retention time.Duration
	logger    *slog.Logger
}

// StartPruner schedules pruning of store every interval and runs one prune
// immediately.
func StartPruner(store *Store, retention, interval time.Duration, logger *slog.Logger) (*Pruner, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = DefaultPruneInterval
	}
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	p := &Pruner{scheduler: s, store: store, retention: retention, logger: logger}

	if _, err := s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(p.prune),
		gocron.WithName("history-prune"),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	); err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("failed to create prune job: %w", err)
	}
	s.Start()
	return p, nil
}

func (p *Pruner) prune() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := p.store.Prune(ctx, time.Now().Add(-p.retention))
	if err != nil {
		p.logger.Warn("History prune failed", logfields.Error(err))
		return
	}
	if n > 0 {
		p.logger.Info("Pruned run history", slog.Int64("removed", n))
	}
}

// Stop shuts the scheduler down.
func (p *Pruner) Stop() error {
	return p.scheduler.Shutdown()
}
