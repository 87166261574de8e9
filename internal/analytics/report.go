package analytics

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/domain"
	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/repository"
)

const topPromptsLimit = 10

// DailyReport aggregates one UTC day of events and transactions.
type DailyReport struct {
	Date         string                  `json:"date"`
	EventCounts  map[string]uint64       `json:"event_counts"`
	TotalEvents  uint64                  `json:"total_events"`
	Revenue      float64                 `json:"revenue"`
	Transactions int64                   `json:"transactions"`
	NewUsers     int                     `json:"new_users"`
	ActiveUsers  uint64                  `json:"active_users"`
	TopPrompts   []repository.ValueCount `json:"top_prompts"`
	GeneratedAt  time.Time               `json:"generated_at"`
}

// ReportBuilder assembles the daily marketplace report
type ReportBuilder struct {
	events      repository.EventReader
	marketplace repository.MarketplaceReader
	now         func() time.Time
	log         *zap.Logger
}

// NewReportBuilder creates a new report builder
func NewReportBuilder(events repository.EventReader, marketplace repository.MarketplaceReader, log *zap.Logger) *ReportBuilder {
	return &ReportBuilder{events: events, marketplace: marketplace, now: time.Now, log: log}
}

// Build computes the report for the UTC calendar day containing day
func (r *ReportBuilder) Build(ctx context.Context, day time.Time) (*DailyReport, error) {
	start := startOfDay(day)
	end := start.AddDate(0, 0, 1)
	window := repository.EventFilter{Start: start, End: end}

	counts, err := r.events.CountByType(ctx, window)
	if err != nil {
		return nil, fmt.Errorf("failed to count events: %w", err)
	}

	active, err := r.events.CountDistinctUsers(ctx, window)
	if err != nil {
		return nil, fmt.Errorf("failed to count active users: %w", err)
	}

	viewed := window
	viewed.EventTypes = []domain.EventType{domain.EventPromptViewed}
	viewed.EntityType = "prompt"
	topPrompts, err := r.events.TopEntities(ctx, viewed, topPromptsLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load top prompts: %w", err)
	}
	if topPrompts == nil {
		topPrompts = []repository.ValueCount{}
	}

	revenue, txCount, err := r.marketplace.CompletedRevenue(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load revenue: %w", err)
	}

	newUsers, err := r.marketplace.UsersCreatedBetween(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load new users: %w", err)
	}

	report := &DailyReport{
		Date:         start.Format(time.DateOnly),
		EventCounts:  make(map[string]uint64, len(counts)),
		Revenue:      round2(revenue),
		Transactions: txCount,
		NewUsers:     len(newUsers),
		ActiveUsers:  active,
		TopPrompts:   topPrompts,
		GeneratedAt:  r.now().UTC(),
	}
	for t, n := range counts {
		report.EventCounts[string(t)] = n
		report.TotalEvents += n
	}

	r.log.Info("Daily report built",
		zap.String("date", report.Date),
		zap.Uint64("total_events", report.TotalEvents),
		zap.Float64("revenue", report.Revenue))

	return report, nil
}
