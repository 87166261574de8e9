package jobs

import (
	"context"
	"time"

	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/analytics"
)

// Job is a unit of periodic maintenance work
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// ReportStore builds a daily report and writes it to the cache
type ReportStore interface {
	StoreDailyReport(ctx context.Context, day time.Time) (*analytics.DailyReport, error)
}

// EventPurger deletes persisted events older than a cutoff
type EventPurger interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) error
}
