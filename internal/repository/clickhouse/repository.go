package clickhouse

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/domain"
)

const eventsTable = "analytics_events"

// Repository stores analytics events in ClickHouse. It implements
// repository.EventStore.
type Repository struct {
	client *Client
	log    *zap.Logger
}

// NewRepository creates a new ClickHouse repository
func NewRepository(client *Client, log *zap.Logger) *Repository {
	return &Repository{
		client: client,
		log:    log,
	}
}

// InitSchema creates the events table. ReplacingMergeTree keyed on the event
// id collapses duplicate batches written by flush retries; reads use FINAL.
func (r *Repository) InitSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS ` + eventsTable + ` (
		id UUID,
		user_id String,
		session_id String,
		event_type LowCardinality(String),
		entity_type LowCardinality(String),
		entity_id String,
		metadata String,
		ip_address String,
		user_agent String,
		referrer String,
		created_at DateTime64(3, 'UTC'),
		INDEX idx_session_id session_id TYPE bloom_filter GRANULARITY 4,
		INDEX idx_user_id user_id TYPE bloom_filter GRANULARITY 4,
		INDEX idx_entity (entity_type, entity_id) TYPE bloom_filter GRANULARITY 4
	) ENGINE = ReplacingMergeTree
	PARTITION BY toYYYYMM(created_at)
	ORDER BY (event_type, created_at, id)
	SETTINGS index_granularity = 8192
	`

	if err := r.client.Conn().Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create %s table: %w", eventsTable, err)
	}

	r.log.Info("ClickHouse schema initialized", zap.String("table", eventsTable))
	return nil
}

// InsertBatch writes events in one block insert. Either the whole block is
// sent or an error is returned.
func (r *Repository) InsertBatch(ctx context.Context, events []*domain.AnalyticsEvent) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}

	batch, err := r.client.Conn().PrepareBatch(ctx, "INSERT INTO "+eventsTable)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare batch: %w", err)
	}

	for _, event := range events {
		metadata := event.Metadata
		if metadata == "" {
			metadata = "{}"
		}

		err := batch.Append(
			event.ID,
			event.UserID,
			event.SessionID,
			string(event.EventType),
			event.EntityType,
			event.EntityID,
			metadata,
			event.IPAddress,
			event.UserAgent,
			event.Referrer,
			event.CreatedAt.UTC(),
		)
		if err != nil {
			_ = batch.Abort()
			return 0, fmt.Errorf("failed to append event %s to batch: %w", event.ID, err)
		}
	}

	if err := batch.Send(); err != nil {
		return 0, fmt.Errorf("failed to send batch: %w", err)
	}

	return len(events), nil
}

// DeleteOlderThan issues a delete mutation for events created before cutoff
func (r *Repository) DeleteOlderThan(ctx context.Context, cutoff time.Time) error {
	query := "ALTER TABLE " + eventsTable + " DELETE WHERE created_at < ?"
	if err := r.client.Conn().Exec(ctx, query, cutoff.UTC()); err != nil {
		return fmt.Errorf("failed to delete events older than %s: %w", cutoff.Format(time.RFC3339), err)
	}

	r.log.Info("Scheduled deletion of old events", zap.Time("cutoff", cutoff))
	return nil
}

// Ping checks if the ClickHouse connection is alive
func (r *Repository) Ping(ctx context.Context) error {
	return r.client.Conn().Ping(ctx)
}

// Close closes the ClickHouse connection
func (r *Repository) Close() error {
	return r.client.Close()
}
