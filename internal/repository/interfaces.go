package repository

import (
	"context"
	"time"

	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/domain"
)

// EventFilter narrows event reads. Zero values mean "no constraint"; the
// time range is half-open [Start, End).
type EventFilter struct {
	EventTypes []domain.EventType
	UserID     string
	UserIDs    []string
	SessionIDs []string
	EntityType string
	EntityID   string
	Metadata   map[string]string
	Start      time.Time
	End        time.Time

	// IdentifiedOnly skips anonymous events.
	IdentifiedOnly bool
	// WithSession skips events without a session id.
	WithSession bool

	Newest bool
	Limit  int
}

// UserActivity is a per-user aggregate over a time window.
type UserActivity struct {
	UserID      string
	TotalEvents uint64
	Purchases   uint64
	Sessions    uint64
}

// ValueCount is a grouped count keyed by a string value.
type ValueCount struct {
	Value string `json:"value"`
	Count uint64 `json:"count"`
}

// DayCount is a count for one UTC calendar day.
type DayCount struct {
	Day   time.Time `json:"day"`
	Count uint64    `json:"count"`
}

// EventWriter persists batches of events
type EventWriter interface {
	// InsertBatch writes all events in a single block insert
	InsertBatch(ctx context.Context, events []*domain.AnalyticsEvent) (int, error)
}

// EventReader runs the read-side queries used by the analytics engines
type EventReader interface {
	CountEvents(ctx context.Context, filter EventFilter) (uint64, error)
	CountDistinctUsers(ctx context.Context, filter EventFilter) (uint64, error)
	CountByType(ctx context.Context, filter EventFilter) (map[domain.EventType]uint64, error)
	ListEvents(ctx context.Context, filter EventFilter) ([]domain.AnalyticsEvent, error)
	DailyCounts(ctx context.Context, filter EventFilter) ([]DayCount, error)
	TopEntities(ctx context.Context, filter EventFilter, limit int) ([]ValueCount, error)
	TopMetadataValues(ctx context.Context, filter EventFilter, key string, limit int) ([]ValueCount, error)

	// ActiveUsers returns identified users whose event and purchase counts
	// within [since, now) are at least the given minimums.
	ActiveUsers(ctx context.Context, since time.Time, minEvents, minPurchases uint64) ([]UserActivity, error)
}

// EventStore is the full event storage surface
type EventStore interface {
	EventWriter
	EventReader

	// DeleteOlderThan removes events created before cutoff
	DeleteOlderThan(ctx context.Context, cutoff time.Time) error

	// InitSchema creates the events table if it does not exist
	InitSchema(ctx context.Context) error

	Ping(ctx context.Context) error
	Close() error
}

// MarketplaceReader reads marketplace users and transactions
type MarketplaceReader interface {
	UsersCreatedBetween(ctx context.Context, start, end time.Time) ([]string, error)
	UserProfiles(ctx context.Context, ids []string) (map[string]domain.UserProfile, error)
	TransactionsByBuyer(ctx context.Context, buyerID string) ([]domain.Transaction, error)
	// CompletedRevenue sums completed transactions created in [start, end)
	CompletedRevenue(ctx context.Context, start, end time.Time) (float64, int64, error)
}
