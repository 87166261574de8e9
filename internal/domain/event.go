package domain

import (
	"time"

	"github.com/google/uuid"
)

// AnalyticsEvent is a single tracked fact. Optional string fields are empty
// when absent, which matches how they are stored in ClickHouse.
type AnalyticsEvent struct {
	ID         uuid.UUID `json:"id" ch:"id"`
	UserID     string    `json:"user_id,omitempty" ch:"user_id"`
	SessionID  string    `json:"session_id,omitempty" ch:"session_id"`
	EventType  EventType `json:"event_type" ch:"event_type"`
	EntityType string    `json:"entity_type,omitempty" ch:"entity_type"`
	EntityID   string    `json:"entity_id,omitempty" ch:"entity_id"`
	Metadata   string    `json:"metadata" ch:"metadata"`
	IPAddress  string    `json:"ip_address,omitempty" ch:"ip_address"`
	UserAgent  string    `json:"user_agent,omitempty" ch:"user_agent"`
	Referrer   string    `json:"referrer,omitempty" ch:"referrer"`
	CreatedAt  time.Time `json:"created_at" ch:"created_at"`
}

// MetadataMap decodes the stored metadata. Undecodable metadata yields an empty map.
func (e *AnalyticsEvent) MetadataMap() map[string]any {
	return DecodeMetadata(e.Metadata)
}
