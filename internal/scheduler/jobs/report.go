package jobs

import (
	"context"

	"github.com/wonny/perfa/pkg/logger"
)

// Generator regenerates the full analytics report from the latest ledger
// and price data. Implemented by the analysis pipeline in cmd wiring.
type Generator interface {
	Generate(ctx context.Context) error
}

// ReportJob rebuilds the report on a nightly schedule, after the market
// data for the day has settled.
type ReportJob struct {
	generator Generator
	schedule  string
	logger    *logger.Logger
}

// NewReportJob creates a new report regeneration job
func NewReportJob(generator Generator, schedule string, log *logger.Logger) *ReportJob {
	return &ReportJob{
		generator: generator,
		schedule:  schedule,
		logger:    log,
	}
}

// Name returns the job name
func (j *ReportJob) Name() string {
	return "report_regeneration"
}

// Schedule returns the cron schedule expression
func (j *ReportJob) Schedule() string {
	return j.schedule
}

// Run executes the report regeneration
func (j *ReportJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled report regeneration")

	if err := j.generator.Generate(ctx); err != nil {
		return err
	}

	j.logger.Info("Report regeneration completed")
	return nil
}
