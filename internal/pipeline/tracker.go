package pipeline

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/domain"
	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/metrics"
)

// TrackParams describes an event to record. Only EventType is required.
type TrackParams struct {
	UserID     string
	EventType  domain.EventType
	EntityType string
	EntityID   string
	Metadata   map[string]any
	SessionID  string
	IPAddress  string
	UserAgent  string
	Referrer   string
}

// Tracker is the ingestion entry point used by request handlers. Track never
// blocks on persistence and never fails the caller: problems are logged,
// counted and the event is dropped.
type Tracker struct {
	buffer    *Buffer
	notifier  FlushNotifier
	batchSize int
	closed    atomic.Bool
	now       func() time.Time
	log       *zap.Logger
}

// NewTracker creates a tracker appending to buffer and signalling notifier
// once batchSize events are buffered.
func NewTracker(buffer *Buffer, notifier FlushNotifier, batchSize int, log *zap.Logger) *Tracker {
	return &Tracker{
		buffer:    buffer,
		notifier:  notifier,
		batchSize: batchSize,
		now:       time.Now,
		log:       log,
	}
}

// Track records an event.
func (t *Tracker) Track(p TrackParams) {
	defer func() {
		if r := recover(); r != nil {
			metrics.EventsDropped.WithLabelValues(metrics.DropReasonPanic).Inc()
			t.log.Error("Recovered panic while tracking event",
				zap.String("event_type", string(p.EventType)),
				zap.Any("panic", r))
		}
	}()

	if t.closed.Load() {
		metrics.EventsDropped.WithLabelValues(metrics.DropReasonClosed).Inc()
		t.log.Warn("Tracker is closed, dropping event", zap.String("event_type", string(p.EventType)))
		return
	}

	if p.EventType == "" {
		metrics.EventsDropped.WithLabelValues(metrics.DropReasonInvalid).Inc()
		t.log.Warn("Dropping event without event type",
			zap.String("entity_type", p.EntityType),
			zap.String("entity_id", p.EntityID))
		return
	}

	metadata, truncated, err := domain.EncodeMetadata(p.Metadata)
	if err != nil {
		t.log.Warn("Failed to encode event metadata, storing empty metadata",
			zap.String("event_type", string(p.EventType)),
			zap.Error(err))
	}
	if truncated {
		metrics.MetadataTruncated.Inc()
	}

	event := &domain.AnalyticsEvent{
		ID:         uuid.New(),
		UserID:     p.UserID,
		SessionID:  p.SessionID,
		EventType:  p.EventType,
		EntityType: p.EntityType,
		EntityID:   p.EntityID,
		Metadata:   metadata,
		IPAddress:  p.IPAddress,
		UserAgent:  p.UserAgent,
		Referrer:   p.Referrer,
		CreatedAt:  t.now().UTC(),
	}

	size, err := t.buffer.Append(event)
	if err != nil {
		reason := metrics.DropReasonInvalid
		if errors.Is(err, ErrBufferFull) {
			reason = metrics.DropReasonFull
		}
		metrics.EventsDropped.WithLabelValues(reason).Inc()
		t.log.Warn("Failed to buffer event",
			zap.String("event_type", string(p.EventType)),
			zap.Int("buffer_size", size),
			zap.Error(err))
		return
	}

	metrics.EventsTracked.Inc()
	metrics.BufferSize.Set(float64(size))

	if size >= t.batchSize {
		t.notifier.NotifyThreshold()
	}
}

// Close stops accepting events. Buffered events are left for the flush worker.
func (t *Tracker) Close() {
	if t.closed.CompareAndSwap(false, true) {
		t.log.Info("Tracker closed", zap.Int("buffered_events", t.buffer.Size()))
	}
}
