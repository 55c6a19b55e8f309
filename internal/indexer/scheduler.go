package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Scheduler runs periodic bulk syncs so the vector index converges even
// when individual sync events are missed.
type Scheduler struct {
	cron    *cron.Cron
	indexer *Indexer
	spec    string
	logger  *slog.Logger
	wg      sync.WaitGroup
}

// NewScheduler creates a Scheduler that runs SyncAll on the given cron
// spec, e.g. "@every 1h".
func NewScheduler(ix *Indexer, spec string, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:    cron.New(),
		indexer: ix,
		spec:    spec,
		logger:  logger,
	}
}

// Start registers the sync job and starts the scheduler. One sync runs
// immediately so the index is populated without waiting for the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.runSync(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc(%q): %w", s.spec, err)
	}

	s.cron.Start()
	s.logger.Info("sync scheduler started", "spec", s.spec)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runSync(ctx)
	}()

	return nil
}

// Stop stops the scheduler and waits for any running sync to finish,
// including the immediate startup run.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.logger.Info("sync scheduler stopped")
}

func (s *Scheduler) runSync(ctx context.Context) {
	if _, err := s.indexer.SyncAll(ctx); err != nil {
		s.logger.Error("scheduled sync failed", "error", err)
	}
}
