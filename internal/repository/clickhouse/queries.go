package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/domain"
	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/repository"
)

const eventColumns = "id, user_id, session_id, event_type, entity_type, entity_id, metadata, ip_address, user_agent, referrer, created_at"

func (r *Repository) closeRows(rows driver.Rows, query string) {
	if err := rows.Close(); err != nil {
		r.log.Error("Failed to close rows", zap.String("query", query), zap.Error(err))
	}
}

// CountEvents counts events matching the filter
func (r *Repository) CountEvents(ctx context.Context, filter repository.EventFilter) (uint64, error) {
	where, args := buildWhere(filter)
	query := fmt.Sprintf("SELECT count() FROM %s FINAL %s", eventsTable, where)

	var count uint64
	if err := r.client.Conn().QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}

// CountDistinctUsers counts distinct identified users matching the filter
func (r *Repository) CountDistinctUsers(ctx context.Context, filter repository.EventFilter) (uint64, error) {
	filter.IdentifiedOnly = true
	where, args := buildWhere(filter)
	query := fmt.Sprintf("SELECT uniqExact(user_id) FROM %s FINAL %s", eventsTable, where)

	var count uint64
	if err := r.client.Conn().QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count distinct users: %w", err)
	}
	return count, nil
}

// CountByType groups matching events by type
func (r *Repository) CountByType(ctx context.Context, filter repository.EventFilter) (map[domain.EventType]uint64, error) {
	where, args := buildWhere(filter)
	query := fmt.Sprintf(`
		SELECT event_type, count() AS total
		FROM %s FINAL
		%s
		GROUP BY event_type`, eventsTable, where)

	rows, err := r.client.Conn().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query counts by type: %w", err)
	}
	defer r.closeRows(rows, "count_by_type")

	counts := make(map[domain.EventType]uint64)
	for rows.Next() {
		var (
			eventType string
			total     uint64
		)
		if err := rows.Scan(&eventType, &total); err != nil {
			return nil, fmt.Errorf("failed to scan count by type row: %w", err)
		}
		counts[domain.EventType(eventType)] = total
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating count by type rows: %w", err)
	}
	return counts, nil
}

// ListEvents returns matching events ordered by creation time
func (r *Repository) ListEvents(ctx context.Context, filter repository.EventFilter) ([]domain.AnalyticsEvent, error) {
	where, args := buildWhere(filter)
	order := "ASC"
	if filter.Newest {
		order = "DESC"
	}
	query := fmt.Sprintf("SELECT %s FROM %s FINAL %s ORDER BY created_at %s", eventColumns, eventsTable, where, order)
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := r.client.Conn().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer r.closeRows(rows, "list_events")

	var events []domain.AnalyticsEvent
	for rows.Next() {
		var (
			e         domain.AnalyticsEvent
			id        uuid.UUID
			eventType string
		)
		if err := rows.Scan(&id, &e.UserID, &e.SessionID, &eventType, &e.EntityType, &e.EntityID,
			&e.Metadata, &e.IPAddress, &e.UserAgent, &e.Referrer, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		e.ID = id
		e.EventType = domain.EventType(eventType)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event rows: %w", err)
	}
	return events, nil
}

// DailyCounts counts matching events per UTC day, oldest first
func (r *Repository) DailyCounts(ctx context.Context, filter repository.EventFilter) ([]repository.DayCount, error) {
	where, args := buildWhere(filter)
	query := fmt.Sprintf(`
		SELECT toDate(created_at) AS day, count() AS total
		FROM %s FINAL
		%s
		GROUP BY day
		ORDER BY day ASC`, eventsTable, where)

	rows, err := r.client.Conn().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily counts: %w", err)
	}
	defer r.closeRows(rows, "daily_counts")

	var counts []repository.DayCount
	for rows.Next() {
		var c repository.DayCount
		if err := rows.Scan(&c.Day, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan daily count row: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily count rows: %w", err)
	}
	return counts, nil
}

// TopEntities returns the most frequent entity ids among matching events
func (r *Repository) TopEntities(ctx context.Context, filter repository.EventFilter, limit int) ([]repository.ValueCount, error) {
	where, args := buildWhere(filter)
	query := fmt.Sprintf(`
		SELECT entity_id AS value, count() AS total
		FROM %s FINAL
		%s
		GROUP BY value
		HAVING value != ''
		ORDER BY total DESC
		LIMIT ?`, eventsTable, where)
	args = append(args, limit)

	return r.valueCounts(ctx, "top_entities", query, args)
}

// TopMetadataValues returns the most frequent values of a metadata field
func (r *Repository) TopMetadataValues(ctx context.Context, filter repository.EventFilter, key string, limit int) ([]repository.ValueCount, error) {
	where, args := buildWhere(filter)
	query := fmt.Sprintf(`
		SELECT JSONExtractString(metadata, ?) AS value, count() AS total
		FROM %s FINAL
		%s
		GROUP BY value
		HAVING value != ''
		ORDER BY total DESC
		LIMIT ?`, eventsTable, where)
	args = append([]any{key}, args...)
	args = append(args, limit)

	return r.valueCounts(ctx, "top_metadata_values", query, args)
}

func (r *Repository) valueCounts(ctx context.Context, name, query string, args []any) ([]repository.ValueCount, error) {
	rows, err := r.client.Conn().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", name, err)
	}
	defer r.closeRows(rows, name)

	var out []repository.ValueCount
	for rows.Next() {
		var vc repository.ValueCount
		if err := rows.Scan(&vc.Value, &vc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", name, err)
		}
		out = append(out, vc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s rows: %w", name, err)
	}
	return out, nil
}

// ActiveUsers aggregates per-user activity since the given time and keeps
// users meeting both minimums
func (r *Repository) ActiveUsers(ctx context.Context, since time.Time, minEvents, minPurchases uint64) ([]repository.UserActivity, error) {
	query := fmt.Sprintf(`
		SELECT
			user_id,
			count() AS total_events,
			countIf(event_type = ?) AS purchases,
			uniqExactIf(session_id, session_id != '') AS sessions
		FROM %s FINAL
		WHERE created_at >= ? AND user_id != ''
		GROUP BY user_id
		HAVING total_events >= ? AND purchases >= ?`, eventsTable)

	rows, err := r.client.Conn().Query(ctx, query,
		string(domain.EventPromptPurchased), since.UTC(), minEvents, minPurchases)
	if err != nil {
		return nil, fmt.Errorf("failed to query active users: %w", err)
	}
	defer r.closeRows(rows, "active_users")

	var users []repository.UserActivity
	for rows.Next() {
		var u repository.UserActivity
		if err := rows.Scan(&u.UserID, &u.TotalEvents, &u.Purchases, &u.Sessions); err != nil {
			return nil, fmt.Errorf("failed to scan active user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating active user rows: %w", err)
	}
	return users, nil
}
