package analytics

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/domain"
	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/repository"
)

const (
	DefaultJourneyLimit = 100
	MaxJourneyLimit     = 1000

	topCategoriesLimit = 10
	topSearchesLimit   = 20
)

// PromptAnalytics summarizes views, clicks and purchases of one prompt.
type PromptAnalytics struct {
	PromptID              string                `json:"prompt_id"`
	PeriodDays            int                   `json:"period_days"`
	Views                 uint64                `json:"views"`
	Clicks                uint64                `json:"clicks"`
	Purchases             uint64                `json:"purchases"`
	UniqueUsers           uint64                `json:"unique_users"`
	ViewToClickRate       float64               `json:"view_to_click_rate"`
	ClickToPurchaseRate   float64               `json:"click_to_purchase_rate"`
	OverallConversionRate float64               `json:"overall_conversion_rate"`
	DailyViews            []repository.DayCount `json:"daily_views"`
}

// UserSummary counts a user's events by type over a trailing window.
type UserSummary struct {
	UserID      string            `json:"user_id"`
	PeriodDays  int               `json:"period_days"`
	EventCounts map[string]uint64 `json:"event_counts"`
	TotalEvents uint64            `json:"total_events"`
}

type JourneyStep struct {
	Timestamp  time.Time        `json:"timestamp"`
	EventType  domain.EventType `json:"event_type"`
	EntityType string           `json:"entity_type,omitempty"`
	EntityID   string           `json:"entity_id,omitempty"`
	Metadata   map[string]any   `json:"metadata"`
	SessionID  string           `json:"session_id,omitempty"`
	Device     string           `json:"device,omitempty"`
}

// MarketplaceAnalytics lists the most browsed categories and most frequent
// searches.
type MarketplaceAnalytics struct {
	PeriodDays    int                     `json:"period_days"`
	TopCategories []repository.ValueCount `json:"top_categories"`
	TopSearches   []repository.ValueCount `json:"top_searches"`
}

// InsightsEngine answers per-prompt, per-user and marketplace-wide activity questions
type InsightsEngine struct {
	events repository.EventReader
	now    func() time.Time
	log    *zap.Logger
}

// NewInsightsEngine creates a new insights engine
func NewInsightsEngine(events repository.EventReader, log *zap.Logger) *InsightsEngine {
	return &InsightsEngine{events: events, now: time.Now, log: log}
}

func (e *InsightsEngine) since(days int) (time.Time, error) {
	if days <= 0 {
		return time.Time{}, fmt.Errorf("%w: days must be positive", ErrInvalidArgument)
	}
	return e.now().UTC().AddDate(0, 0, -days), nil
}

// PromptAnalytics summarises views, clicks and purchases of one prompt
func (e *InsightsEngine) PromptAnalytics(ctx context.Context, promptID string, days int) (*PromptAnalytics, error) {
	if promptID == "" {
		return nil, fmt.Errorf("%w: prompt id is required", ErrInvalidArgument)
	}
	start, err := e.since(days)
	if err != nil {
		return nil, err
	}

	filter := repository.EventFilter{
		EntityType: "prompt",
		EntityID:   promptID,
		Start:      start,
	}

	counts, err := e.events.CountByType(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count prompt events: %w", err)
	}

	unique, err := e.events.CountDistinctUsers(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count prompt users: %w", err)
	}

	viewsFilter := filter
	viewsFilter.EventTypes = []domain.EventType{domain.EventPromptViewed}
	daily, err := e.events.DailyCounts(ctx, viewsFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to load daily views: %w", err)
	}
	if daily == nil {
		daily = []repository.DayCount{}
	}

	views := counts[domain.EventPromptViewed]
	clicks := counts[domain.EventPromptClicked]
	purchases := counts[domain.EventPromptPurchased]

	return &PromptAnalytics{
		PromptID:              promptID,
		PeriodDays:            days,
		Views:                 views,
		Clicks:                clicks,
		Purchases:             purchases,
		UniqueUsers:           unique,
		ViewToClickRate:       round2(percent(clicks, views)),
		ClickToPurchaseRate:   round2(percent(purchases, clicks)),
		OverallConversionRate: round2(percent(purchases, views)),
		DailyViews:            daily,
	}, nil
}

// UserSummary counts a user's events by type
func (e *InsightsEngine) UserSummary(ctx context.Context, userID string, days int) (*UserSummary, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidArgument)
	}
	start, err := e.since(days)
	if err != nil {
		return nil, err
	}

	counts, err := e.events.CountByType(ctx, repository.EventFilter{UserID: userID, Start: start})
	if err != nil {
		return nil, fmt.Errorf("failed to count user events: %w", err)
	}

	summary := &UserSummary{
		UserID:      userID,
		PeriodDays:  days,
		EventCounts: make(map[string]uint64, len(counts)),
	}
	for t, n := range counts {
		summary.EventCounts[string(t)] = n
		summary.TotalEvents += n
	}
	return summary, nil
}

// UserJourney returns a user's most recent events, newest first
func (e *InsightsEngine) UserJourney(ctx context.Context, userID string, limit int) ([]JourneyStep, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidArgument)
	}
	if limit <= 0 {
		limit = DefaultJourneyLimit
	}
	if limit > MaxJourneyLimit {
		limit = MaxJourneyLimit
	}

	events, err := e.events.ListEvents(ctx, repository.EventFilter{
		UserID: userID,
		Newest: true,
		Limit:  limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load user journey: %w", err)
	}

	journey := make([]JourneyStep, 0, len(events))
	for i := range events {
		ev := &events[i]
		journey = append(journey, JourneyStep{
			Timestamp:  ev.CreatedAt.UTC(),
			EventType:  ev.EventType,
			EntityType: ev.EntityType,
			EntityID:   ev.EntityID,
			Metadata:   ev.MetadataMap(),
			SessionID:  ev.SessionID,
			Device:     ev.UserAgent,
		})
	}
	return journey, nil
}

// MarketplaceAnalytics reports the most browsed categories and most frequent searches
func (e *InsightsEngine) MarketplaceAnalytics(ctx context.Context, days int) (*MarketplaceAnalytics, error) {
	start, err := e.since(days)
	if err != nil {
		return nil, err
	}

	categories, err := e.events.TopMetadataValues(ctx, repository.EventFilter{
		EventTypes: []domain.EventType{domain.EventCategoryBrowsed},
		Start:      start,
	}, "category", topCategoriesLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load top categories: %w", err)
	}

	searches, err := e.events.TopMetadataValues(ctx, repository.EventFilter{
		EventTypes: []domain.EventType{domain.EventSearchPerformed},
		Start:      start,
	}, "query", topSearchesLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load top searches: %w", err)
	}

	if categories == nil {
		categories = []repository.ValueCount{}
	}
	if searches == nil {
		searches = []repository.ValueCount{}
	}

	return &MarketplaceAnalytics{
		PeriodDays:    days,
		TopCategories: categories,
		TopSearches:   searches,
	}, nil
}
