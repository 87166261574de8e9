package recovery

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/domain"
	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/metrics"
	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/repository"
)

// finalFlushTimeout bounds the flush of the last batch after shutdown
const finalFlushTimeout = 10 * time.Second

// BatchWriterConfig configures the batch writer
type BatchWriterConfig struct {
	MaxBatchSize int
	FlushTimeout time.Duration
}

// BatchWriter collects envelopes until MaxBatchSize events are pending or
// FlushTimeout passes, inserts them in one call and acknowledges the
// messages only after the insert succeeded.
type BatchWriter struct {
	writer repository.EventWriter
	config BatchWriterConfig
	log    *zap.Logger
}

// NewBatchWriter creates a new batch writer
func NewBatchWriter(writer repository.EventWriter, config BatchWriterConfig, log *zap.Logger) *BatchWriter {
	return &BatchWriter{
		writer: writer,
		config: config,
		log:    log,
	}
}

// Start processes envelopes from in until it is closed or ctx is cancelled
func (w *BatchWriter) Start(ctx context.Context, in <-chan *Envelope) {
	ticker := time.NewTicker(w.config.FlushTimeout)
	defer ticker.Stop()

	var (
		batch   []*Envelope
		pending int
	)

	flushFinal := func() {
		if len(batch) == 0 {
			return
		}
		w.log.Info("Flushing final batch", zap.Int("envelope_count", len(batch)))
		finalCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalFlushTimeout)
		defer cancel()
		w.processBatch(finalCtx, batch)
	}

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Batch writer shutting down")
			flushFinal()
			return

		case envelope, ok := <-in:
			if !ok {
				w.log.Info("Batch writer input channel closed")
				flushFinal()
				return
			}

			batch = append(batch, envelope)
			pending += len(envelope.Events)

			if pending >= w.config.MaxBatchSize {
				w.log.Info("Batch size threshold reached", zap.Int("event_count", pending))
				w.processBatch(ctx, batch)
				batch, pending = nil, 0
				ticker.Reset(w.config.FlushTimeout)
			}

		case <-ticker.C:
			if len(batch) > 0 {
				w.log.Info("Batch timeout reached", zap.Int("envelope_count", len(batch)))
				w.processBatch(ctx, batch)
				batch, pending = nil, 0
			}
		}
	}
}

// processBatch inserts the events of all envelopes and acks them on success
func (w *BatchWriter) processBatch(ctx context.Context, envelopes []*Envelope) {
	if len(envelopes) == 0 {
		return
	}

	var events []*domain.AnalyticsEvent
	for _, env := range envelopes {
		events = append(events, env.Events...)
	}

	insertedCount, err := w.writer.InsertBatch(ctx, events)
	if err != nil {
		w.log.Error("Failed to replay batch; messages left for redelivery",
			zap.Error(err),
			zap.Int("event_count", len(events)),
			zap.Int("message_count", len(envelopes)))
		return
	}

	if insertedCount != len(events) {
		w.log.Warn("Partial replay; messages left for redelivery",
			zap.Int("inserted", insertedCount),
			zap.Int("expected", len(events)))
		return
	}

	metrics.EventsReplayed.Add(float64(insertedCount))
	w.log.Info("Replayed dead-lettered events", zap.Int("count", insertedCount))
	w.ackAll(ctx, envelopes)
}

func (w *BatchWriter) ackAll(ctx context.Context, envelopes []*Envelope) {
	for _, env := range envelopes {
		if err := env.Ack(ctx); err != nil {
			w.log.Error("Failed to ack envelope",
				zap.String("message_id", env.MessageID),
				zap.Error(err))
		}
	}
}
