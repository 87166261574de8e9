package pipeline

import (
	"errors"
	"sync"

	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/domain"
)

// ErrBufferFull is returned by Append when the buffer is at its size cap.
var ErrBufferFull = errors.New("ingestion buffer is full")

// Buffer holds events that have not been persisted yet, oldest first.
// The same mutex guards the events and the flush-in-progress flag, and no
// I/O happens while it is held.
type Buffer struct {
	mu       sync.Mutex
	events   []*domain.AnalyticsEvent
	maxSize  int
	flushing bool
}

// NewBuffer creates a buffer. maxSize 0 means unbounded.
func NewBuffer(maxSize int) *Buffer {
	return &Buffer{maxSize: maxSize}
}

// Append adds an event at the back and returns the new size.
func (b *Buffer) Append(event *domain.AnalyticsEvent) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.maxSize > 0 && len(b.events) >= b.maxSize {
		return len(b.events), ErrBufferFull
	}
	b.events = append(b.events, event)
	return len(b.events), nil
}

// DrainUpTo removes and returns up to n of the oldest events.
func (b *Buffer) DrainUpTo(n int) []*domain.AnalyticsEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n <= 0 || len(b.events) == 0 {
		return nil
	}
	if n > len(b.events) {
		n = len(b.events)
	}

	batch := make([]*domain.AnalyticsEvent, n)
	copy(batch, b.events[:n])
	clear(b.events[:n])
	b.events = b.events[n:]
	if len(b.events) == 0 {
		b.events = nil
	}
	return batch
}

// Restore puts a drained batch back at the front, keeping its order.
// The size cap does not apply.
func (b *Buffer) Restore(batch []*domain.AnalyticsEvent) {
	if len(batch) == 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	merged := make([]*domain.AnalyticsEvent, 0, len(batch)+len(b.events))
	merged = append(merged, batch...)
	merged = append(merged, b.events...)
	b.events = merged
}

// Size returns the number of buffered events.
func (b *Buffer) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

func (b *Buffer) tryBeginFlush() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.flushing {
		return false
	}
	b.flushing = true
	return true
}

func (b *Buffer) endFlush() {
	b.mu.Lock()
	b.flushing = false
	b.mu.Unlock()
}
