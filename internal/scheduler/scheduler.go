package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"whitelist-bot/internal/jobs"
	"whitelist-bot/internal/logger"
)

// Scheduler manages cron job scheduling
type Scheduler struct {
	cron *cron.Cron
	jobs *jobs.JobRunner
}

// NewScheduler creates a new scheduler with the provided job runner.
// It fails when a configured schedule cannot be parsed.
func NewScheduler(jobRunner *jobs.JobRunner) (*Scheduler, error) {
	// UTC with seconds precision
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
	)

	s := &Scheduler{
		cron: c,
		jobs: jobRunner,
	}

	if err := s.registerJobs(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) registerJobs() error {
	cfg := s.jobs.Config().Scheduler

	if _, err := s.cron.AddFunc(cfg.EvictDrafts, s.jobs.EvictStaleDrafts); err != nil {
		return fmt.Errorf("register EvictStaleDrafts job: %w", err)
	}

	if _, err := s.cron.AddFunc(cfg.ReportCases, s.jobs.ReportCases); err != nil {
		return fmt.Errorf("register ReportCases job: %w", err)
	}

	logger.Info("All cron jobs registered successfully", "evict_drafts", cfg.EvictDrafts, "report_cases", cfg.ReportCases)
	return nil
}

// Start begins the cron scheduler
func (s *Scheduler) Start() {
	logger.Info("Starting cron scheduler...")
	s.cron.Start()
}

// Stop gracefully stops the cron scheduler, waiting for running jobs
func (s *Scheduler) Stop() {
	logger.Info("Stopping cron scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Cron scheduler stopped")
}

// Entries returns the number of registered jobs
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}
