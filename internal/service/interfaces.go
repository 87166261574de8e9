package service

import (
	"context"
	"time"

	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/analytics"
	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/domain"
	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/dto"
	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/pipeline"
)

// EventTracker accepts events into the ingestion buffer
type EventTracker interface {
	Track(p pipeline.TrackParams)
}

// PipelineController exposes the flush worker to the admin surface
type PipelineController interface {
	RequestFlush()
	Stats() pipeline.FlushStats
}

// StateReporter reports the store circuit breaker state
type StateReporter interface {
	State() string
}

type FunnelComputer interface {
	ComputeFunnel(ctx context.Context, steps []domain.EventType, start, end time.Time, segment *analytics.SegmentFilter) (*analytics.FunnelResult, error)
}

type BehaviorAnalyzer interface {
	AbandonedCarts(ctx context.Context, threshold time.Duration) ([]analytics.AbandonedCart, error)
	CohortRetention(ctx context.Context, cohortDate time.Time, offsets []int) (*analytics.CohortRetention, error)
	LifetimeValue(ctx context.Context, userID string) (*analytics.LifetimeValue, error)
	PowerUsers(ctx context.Context, criteria analytics.PowerUserCriteria) ([]analytics.PowerUser, error)
	ChurnRisk(ctx context.Context, userID string, lookbackDays int) (*analytics.ChurnRisk, error)
}

type InsightsProvider interface {
	PromptAnalytics(ctx context.Context, promptID string, days int) (*analytics.PromptAnalytics, error)
	UserSummary(ctx context.Context, userID string, days int) (*analytics.UserSummary, error)
	UserJourney(ctx context.Context, userID string, limit int) ([]analytics.JourneyStep, error)
	MarketplaceAnalytics(ctx context.Context, days int) (*analytics.MarketplaceAnalytics, error)
}

type DailyReportBuilder interface {
	Build(ctx context.Context, day time.Time) (*analytics.DailyReport, error)
}

// ClientInfo carries request attributes attached to tracked events
type ClientInfo struct {
	SessionID string
	IPAddress string
	UserAgent string
	Referrer  string
}

// EventServicer defines the interface for event ingestion operations
type EventServicer interface {
	ProcessEvent(req *dto.TrackEventRequest, client ClientInfo) error
	ProcessBulkEvents(reqs []dto.TrackEventRequest, client ClientInfo) (int, []string)
	RequestFlush() int
	PipelineStats() *dto.PipelineStatsResponse
}

// ReportServicer defines the interface for analytics read operations
type ReportServicer interface {
	Funnel(ctx context.Context, req *dto.FunnelRequest) (*analytics.FunnelResult, error)
	AbandonedCarts(ctx context.Context, threshold time.Duration) ([]analytics.AbandonedCart, error)
	CohortRetention(ctx context.Context, cohortDate time.Time, offsets []int) (*analytics.CohortRetention, error)
	LifetimeValue(ctx context.Context, userID string) (*analytics.LifetimeValue, error)
	PowerUsers(ctx context.Context, criteria analytics.PowerUserCriteria) ([]analytics.PowerUser, error)
	ChurnRisk(ctx context.Context, userID string, lookbackDays int) (*analytics.ChurnRisk, error)
	PromptAnalytics(ctx context.Context, promptID string, days int) (*analytics.PromptAnalytics, error)
	UserSummary(ctx context.Context, userID string, days int) (*analytics.UserSummary, error)
	UserJourney(ctx context.Context, userID string, limit int) ([]analytics.JourneyStep, error)
	MarketplaceAnalytics(ctx context.Context, days int) (*analytics.MarketplaceAnalytics, error)
	DailyReport(ctx context.Context, day time.Time) (*analytics.DailyReport, error)
}
