package pipeline

import (
	"context"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/domain"
	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/repository"
)

// BreakerWriter fails fast while the event store keeps rejecting writes.
type BreakerWriter struct {
	next repository.EventWriter
	cb   *gobreaker.CircuitBreaker[int]
}

// NewBreakerWriter wraps next with a breaker that opens after failures
// consecutive errors and half-opens after timeout.
func NewBreakerWriter(next repository.EventWriter, failures uint32, timeout time.Duration, log *zap.Logger) *BreakerWriter {
	settings := gobreaker.Settings{
		Name:        "event-store",
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &BreakerWriter{
		next: next,
		cb:   gobreaker.NewCircuitBreaker[int](settings),
	}
}

// InsertBatch forwards to the wrapped writer unless the breaker is open.
func (b *BreakerWriter) InsertBatch(ctx context.Context, events []*domain.AnalyticsEvent) (int, error) {
	return b.cb.Execute(func() (int, error) {
		return b.next.InsertBatch(ctx, events)
	})
}

// State reports the breaker state for diagnostics.
func (b *BreakerWriter) State() string {
	return b.cb.State().String()
}
