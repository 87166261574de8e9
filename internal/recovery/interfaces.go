package recovery

import (
	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/domain"
)

// MessageParser decodes a dead-letter message body into the events it carries
type MessageParser interface {
	Parse(body []byte) ([]*domain.AnalyticsEvent, error)
}
