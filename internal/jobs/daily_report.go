package jobs

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DailyReportJob builds the previous UTC day's report and caches it.
type DailyReportJob struct {
	reports ReportStore
	now     func() time.Time
	log     *zap.Logger
}

func NewDailyReportJob(reports ReportStore, log *zap.Logger) *DailyReportJob {
	return &DailyReportJob{reports: reports, now: time.Now, log: log}
}

func (j *DailyReportJob) Name() string { return "daily_report" }

func (j *DailyReportJob) Run(ctx context.Context) error {
	day := j.now().UTC().AddDate(0, 0, -1)

	report, err := j.reports.StoreDailyReport(ctx, day)
	if err != nil {
		return fmt.Errorf("failed to build daily report for %s: %w", day.Format(time.DateOnly), err)
	}

	j.log.Info("Daily report generated",
		zap.String("date", report.Date),
		zap.Uint64("total_events", report.TotalEvents),
		zap.Float64("revenue", report.Revenue),
		zap.Int("new_users", report.NewUsers))
	return nil
}
