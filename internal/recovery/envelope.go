package recovery

import (
	"context"

	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/domain"
)

// Envelope carries the events of one queue message and deletes the message
// once acknowledged. An unacknowledged message becomes visible again after
// the queue's visibility timeout.
type Envelope struct {
	MessageID string
	Events    []*domain.AnalyticsEvent
	ack       func(context.Context) error
}

// NewEnvelope creates a new message envelope
func NewEnvelope(messageID string, events []*domain.AnalyticsEvent, ack func(context.Context) error) *Envelope {
	return &Envelope{
		MessageID: messageID,
		Events:    events,
		ack:       ack,
	}
}

// Ack acknowledges successful processing
func (e *Envelope) Ack(ctx context.Context) error {
	if e.ack != nil {
		return e.ack(ctx)
	}
	return nil
}
