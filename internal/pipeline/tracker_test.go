package pipeline

import (
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/domain"
)

type countingNotifier struct {
	calls atomic.Int64
}

func (n *countingNotifier) NotifyThreshold() {
	n.calls.Add(1)
}

type panickingNotifier struct{}

func (panickingNotifier) NotifyThreshold() {
	panic("boom")
}

func TestTracker_BelowThresholdOnlyBuffers(t *testing.T) {
	buffer := NewBuffer(0)
	notifier := &countingNotifier{}
	tracker := NewTracker(buffer, notifier, 100, zap.NewNop())

	for i := 0; i < 99; i++ {
		tracker.Track(TrackParams{EventType: domain.EventPromptViewed})
	}

	assert.Equal(t, 99, buffer.Size())
	assert.Equal(t, int64(0), notifier.calls.Load())
}

func TestTracker_SignalsAtThreshold(t *testing.T) {
	buffer := NewBuffer(0)
	notifier := &countingNotifier{}
	tracker := NewTracker(buffer, notifier, 10, zap.NewNop())

	for i := 0; i < 12; i++ {
		tracker.Track(TrackParams{EventType: domain.EventPromptViewed})
	}

	assert.Equal(t, int64(3), notifier.calls.Load())
}

func TestTracker_StampsEvent(t *testing.T) {
	buffer := NewBuffer(0)
	tracker := NewTracker(buffer, &countingNotifier{}, 100, zap.NewNop())
	fixed := time.Date(2026, 5, 4, 10, 30, 0, 0, time.FixedZone("CET", 3600))
	tracker.now = func() time.Time { return fixed }

	tracker.Track(TrackParams{
		UserID:     "user-1",
		EventType:  domain.EventPromptAddToCart,
		EntityType: "prompt",
		EntityID:   "prompt-9",
		Metadata:   map[string]any{"price": 12.5},
		SessionID:  "sess-1",
		IPAddress:  "10.0.0.1",
		UserAgent:  "test-agent",
		Referrer:   "https://example.com",
	})

	events := buffer.DrainUpTo(1)
	require.Len(t, events, 1)
	e := events[0]
	assert.NotEqual(t, uuid.Nil, e.ID)
	assert.Equal(t, "user-1", e.UserID)
	assert.Equal(t, domain.EventPromptAddToCart, e.EventType)
	assert.Equal(t, "prompt-9", e.EntityID)
	assert.Equal(t, "sess-1", e.SessionID)
	assert.JSONEq(t, `{"price":12.5}`, e.Metadata)
	assert.True(t, e.CreatedAt.Equal(fixed))
	assert.Equal(t, time.UTC, e.CreatedAt.Location())
}

func TestTracker_DropsEmptyEventType(t *testing.T) {
	buffer := NewBuffer(0)
	tracker := NewTracker(buffer, &countingNotifier{}, 100, zap.NewNop())

	tracker.Track(TrackParams{UserID: "user-1"})

	assert.Equal(t, 0, buffer.Size())
}

func TestTracker_UnencodableMetadataKeepsEvent(t *testing.T) {
	buffer := NewBuffer(0)
	tracker := NewTracker(buffer, &countingNotifier{}, 100, zap.NewNop())

	tracker.Track(TrackParams{
		EventType: domain.EventSearchPerformed,
		Metadata:  map[string]any{"score": math.Inf(1)},
	})

	events := buffer.DrainUpTo(1)
	require.Len(t, events, 1)
	assert.Equal(t, "{}", events[0].Metadata)
}

func TestTracker_FullBufferDropsSilently(t *testing.T) {
	buffer := NewBuffer(2)
	tracker := NewTracker(buffer, &countingNotifier{}, 100, zap.NewNop())

	for i := 0; i < 5; i++ {
		tracker.Track(TrackParams{EventType: domain.EventPromptViewed})
	}

	assert.Equal(t, 2, buffer.Size())
}

func TestTracker_Close(t *testing.T) {
	buffer := NewBuffer(0)
	tracker := NewTracker(buffer, &countingNotifier{}, 100, zap.NewNop())

	tracker.Track(TrackParams{EventType: domain.EventPromptViewed})
	tracker.Close()
	tracker.Close()
	tracker.Track(TrackParams{EventType: domain.EventPromptViewed})

	assert.Equal(t, 1, buffer.Size())
}

func TestTracker_RecoversPanics(t *testing.T) {
	buffer := NewBuffer(0)
	tracker := NewTracker(buffer, panickingNotifier{}, 1, zap.NewNop())

	assert.NotPanics(t, func() {
		tracker.Track(TrackParams{EventType: domain.EventPromptViewed})
	})
	assert.Equal(t, 1, buffer.Size())
}
