package jobs

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// RetentionJob deletes events older than the retention period.
type RetentionJob struct {
	purger EventPurger
	days   int
	now    func() time.Time
	log    *zap.Logger
}

func NewRetentionJob(purger EventPurger, days int, log *zap.Logger) *RetentionJob {
	return &RetentionJob{purger: purger, days: days, now: time.Now, log: log}
}

func (j *RetentionJob) Name() string { return "retention_cleanup" }

func (j *RetentionJob) Run(ctx context.Context) error {
	if j.days <= 0 {
		return fmt.Errorf("retention days must be positive, got %d", j.days)
	}

	cutoff := j.now().UTC().AddDate(0, 0, -j.days)
	if err := j.purger.DeleteOlderThan(ctx, cutoff); err != nil {
		return fmt.Errorf("failed to delete events older than %s: %w", cutoff.Format(time.RFC3339), err)
	}

	j.log.Info("Old analytics events deleted",
		zap.Time("cutoff", cutoff),
		zap.Int("retention_days", j.days))
	return nil
}
