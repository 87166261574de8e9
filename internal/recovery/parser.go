package recovery

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/domain"
)

var ErrEmptyMessage = errors.New("message carries no events")

// JSONBatchParser decodes the JSON array bodies written by the dead-letter
// publisher.
type JSONBatchParser struct{}

func NewJSONBatchParser() *JSONBatchParser {
	return &JSONBatchParser{}
}

// Parse rejects the whole message if any event lacks an id or a type; ids
// are kept so replayed events collapse with any earlier copy in the store.
func (p *JSONBatchParser) Parse(body []byte) ([]*domain.AnalyticsEvent, error) {
	var events []*domain.AnalyticsEvent
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message body: %w", err)
	}
	if len(events) == 0 {
		return nil, ErrEmptyMessage
	}

	for i, ev := range events {
		switch {
		case ev == nil:
			return nil, fmt.Errorf("event %d is null", i)
		case ev.ID == uuid.Nil:
			return nil, fmt.Errorf("event %d has no id", i)
		case ev.EventType == "":
			return nil, fmt.Errorf("event %d has no event type", i)
		}
		if ev.Metadata == "" {
			ev.Metadata = "{}"
		}
	}
	return events, nil
}
