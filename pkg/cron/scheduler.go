// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// CatalogSeeder restores the built-in categories.
type CatalogSeeder interface {
	SeedSystemCategories(ctx context.Context) (int64, error)
}

const jobTimeout = 5 * time.Minute

// Scheduler manages background scheduled jobs using robfig/cron.
type Scheduler struct {
	cron     *cron.Cron
	seeder   CatalogSeeder
	schedule string
	logger   *slog.Logger
}

// NewScheduler creates a new job scheduler. schedule is a standard 5-field cron expression.
func NewScheduler(seeder CatalogSeeder, schedule string, logger *slog.Logger) *Scheduler {
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	return &Scheduler{
		cron:     c,
		seeder:   seeder,
		schedule: schedule,
		logger:   logger,
	}
}

// Start registers the jobs and begins running them.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.seedCatalog); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.Int("jobs", len(s.cron.Entries())),
		slog.String("catalog_schedule", s.schedule),
	)
	return nil
}

// Stop stops the scheduler. The returned context is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunNow runs the catalog job synchronously.
func (s *Scheduler) RunNow() {
	s.seedCatalog()
}

// seedCatalog re-inserts any built-in category that went missing, the fallback included.
func (s *Scheduler) seedCatalog() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	inserted, err := s.seeder.SeedSystemCategories(ctx)
	if err != nil {
		s.logger.Error("catalog seed failed", slog.Any("error", err))
		return
	}

	level := slog.LevelDebug
	if inserted > 0 {
		level = slog.LevelWarn
	}
	s.logger.Log(ctx, level, "catalog seed completed",
		slog.Int64("inserted", inserted),
		slog.Duration("took", time.Since(start)),
	)
}
