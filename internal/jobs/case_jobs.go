package jobs

import (
	"whitelist-bot/internal/logger"
)

// EvictStaleDrafts drops form drafts that were never completed with a legal status.
// The case itself stays open; the next legal status choice reports CaseDataLost.
func (jr *JobRunner) EvictStaleDrafts() {
	jr.runWithRecovery("EvictStaleDrafts", func() {
		cutoff := jr.now().Add(-jr.config.DraftTTL())
		evicted := jr.drafts.EvictOlderThan(cutoff)
		if evicted > 0 {
			logger.Info("Evicted stale drafts", "count", evicted, "cutoff", cutoff, "remaining", jr.drafts.Len())
		}
	})
}

// ReportCases logs the number of open cases per stage.
func (jr *JobRunner) ReportCases() {
	jr.runWithRecovery("ReportCases", func() {
		counts := jr.cases.Counts()
		args := make([]any, 0, 2+2*len(counts))
		args = append(args, "total", jr.cases.Len())
		for stage, n := range counts {
			args = append(args, string(stage), n)
		}
		logger.Info("Open cases", args...)
	})
}
