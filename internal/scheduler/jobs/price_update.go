package jobs

import (
	"context"
	"fmt"

	"github.com/jhango/pricesync/internal/report"
	"github.com/jhango/pricesync/internal/updater"
	"github.com/jhango/pricesync/pkg/logger"
)

// PriceUpdateJob runs the daily full-catalog recalculation against fresh
// market rates.
type PriceUpdateJob struct {
	orchestrator *updater.Orchestrator
	repository   *updater.Repository
	emailer      *report.Emailer
	logger       *logger.Logger
	schedule     string
}

// NewPriceUpdateJob creates the daily price update job. The repository and
// emailer may be nil; persistence and reporting are then skipped.
func NewPriceUpdateJob(orch *updater.Orchestrator, repo *updater.Repository, emailer *report.Emailer, log *logger.Logger, schedule string) *PriceUpdateJob {
	if schedule == "" {
		schedule = "0 6 * * *"
	}
	return &PriceUpdateJob{
		orchestrator: orch,
		repository:   repo,
		emailer:      emailer,
		logger:       log.WithField("job", "price-update"),
		schedule:     schedule,
	}
}

func (j *PriceUpdateJob) Name() string { return "price-update" }

func (j *PriceUpdateJob) Schedule() string { return j.schedule }

// Run executes one full-catalog auto run and distributes its report.
func (j *PriceUpdateJob) Run(ctx context.Context) error {
	runReport, err := j.orchestrator.Run(ctx, updater.Params{Mode: updater.ModeAuto})
	if err != nil {
		return fmt.Errorf("auto price run: %w", err)
	}

	if j.repository != nil {
		if err := j.repository.Save(ctx, runReport); err != nil {
			j.logger.WithError(err).Error("Run history save failed")
		}
	}
	if j.emailer != nil {
		j.emailer.Notify(ctx, runReport)
	}

	if runReport.Failed > 0 {
		j.logger.WithField("failed", runReport.Failed).Warn("Run finished with failures")
	}
	return nil
}
