package jobs

import (
	"time"

	"whitelist-bot/internal/config"
	"whitelist-bot/internal/logger"
	"whitelist-bot/internal/workflow"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	drafts *workflow.CaseStore
	cases  *workflow.Registry
	config *config.Config
	now    func() time.Time
}

// NewJobRunner creates a new job runner over the process-scoped case state
func NewJobRunner(drafts *workflow.CaseStore, cases *workflow.Registry, cfg *config.Config) *JobRunner {
	return &JobRunner{
		drafts: drafts,
		cases:  cases,
		config: cfg,
		now:    time.Now,
	}
}

// Config returns the configuration the runner was built with
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	logger.Debug("Starting job", "job", jobName)
	jobFunc()
	logger.Debug("Job completed", "job", jobName)
}

// RunAll runs every job once (for manual execution)
func (jr *JobRunner) RunAll() {
	jr.EvictStaleDrafts()
	jr.ReportCases()
}
