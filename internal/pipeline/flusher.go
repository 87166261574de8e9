package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/domain"
	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/metrics"
	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/queue"
	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/repository"
)

// FlushStatus is the outcome of a flush.
type FlushStatus string

const (
	StatusSuccess      FlushStatus = "success"
	StatusEmpty        FlushStatus = "empty"
	StatusBusy         FlushStatus = "busy"
	StatusSkipped      FlushStatus = "skipped"
	StatusDeadLettered FlushStatus = "dead_lettered"
	StatusDropped      FlushStatus = "dropped"
	// StatusRestored means retrying was interrupted by shutdown and the
	// batch is back in the buffer.
	StatusRestored FlushStatus = "restored"
)

// FlushResult reports what a flush did.
type FlushResult struct {
	Status   FlushStatus `json:"status"`
	Count    int         `json:"count"`
	Attempts int         `json:"attempts"`
}

// FlushConfig controls batching and retry.
type FlushConfig struct {
	BatchSize     int
	FlushInterval time.Duration
	// Timeout bounds a single store write; 0 disables it.
	Timeout      time.Duration
	MaxRetries   int
	RetryInitial time.Duration
	RetryMax     time.Duration
}

// FlushStats is a snapshot of worker counters.
type FlushStats struct {
	Buffered     int         `json:"buffered"`
	Flushes      uint64      `json:"flushes"`
	Persisted    uint64      `json:"persisted"`
	Failures     uint64      `json:"failures"`
	DeadLettered uint64      `json:"dead_lettered"`
	Dropped      uint64      `json:"dropped"`
	Busy         uint64      `json:"busy"`
	LastStatus   FlushStatus `json:"last_status,omitempty"`
	LastFlushAt  time.Time   `json:"last_flush_at"`
}

// FlushWorker moves buffered events into the event store. It flushes when
// the tracker reports the batch threshold, on a fixed interval, and on
// explicit request. Only one flush runs at a time.
type FlushWorker struct {
	buffer     *Buffer
	writer     repository.EventWriter
	deadLetter queue.DeadLetterPublisher
	cfg        FlushConfig
	log        *zap.Logger

	threshold chan struct{}
	forced    chan struct{}
	sleep     func(ctx context.Context, d time.Duration) error

	flushes      atomic.Uint64
	persisted    atomic.Uint64
	failures     atomic.Uint64
	deadLettered atomic.Uint64
	dropped      atomic.Uint64
	busy         atomic.Uint64

	lastMu     sync.Mutex
	lastStatus FlushStatus
	lastFlush  time.Time
}

// NewFlushWorker creates a flush worker. deadLetter may be nil, in which
// case batches that exhaust their retries are dropped.
func NewFlushWorker(buffer *Buffer, writer repository.EventWriter, deadLetter queue.DeadLetterPublisher, cfg FlushConfig, log *zap.Logger) *FlushWorker {
	return &FlushWorker{
		buffer:     buffer,
		writer:     writer,
		deadLetter: deadLetter,
		cfg:        cfg,
		log:        log,
		threshold:  make(chan struct{}, 1),
		forced:     make(chan struct{}, 1),
		sleep:      sleepContext,
	}
}

// NotifyThreshold signals that the buffer reached the batch size. Repeated
// signals coalesce.
func (w *FlushWorker) NotifyThreshold() {
	select {
	case w.threshold <- struct{}{}:
	default:
	}
}

// RequestFlush asks the worker to flush regardless of buffer size.
func (w *FlushWorker) RequestFlush() {
	select {
	case w.forced <- struct{}{}:
	default:
	}
}

// Serve runs the trigger loop until ctx is cancelled.
func (w *FlushWorker) Serve(ctx context.Context) error {
	if w.cfg.FlushInterval <= 0 {
		return fmt.Errorf("flush worker has non-positive interval %s", w.cfg.FlushInterval)
	}

	ticker := time.NewTicker(w.cfg.FlushInterval)
	defer ticker.Stop()

	w.log.Info("Flush worker started",
		zap.Int("batch_size", w.cfg.BatchSize),
		zap.Duration("flush_interval", w.cfg.FlushInterval))

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Flush worker stopping", zap.Int("buffered_events", w.buffer.Size()))
			return ctx.Err()
		case <-w.threshold:
			w.flushOnThreshold(ctx)
		case <-ticker.C:
			w.Flush(ctx)
		case <-w.forced:
			w.Flush(ctx)
		}
	}
}

func (w *FlushWorker) flushOnThreshold(ctx context.Context) FlushResult {
	if w.buffer.Size() < w.cfg.BatchSize {
		return FlushResult{Status: StatusSkipped}
	}

	result := w.Flush(ctx)
	if result.Status == StatusSuccess && w.buffer.Size() >= w.cfg.BatchSize {
		w.NotifyThreshold()
	}
	return result
}

// Flush persists up to one batch. A call made while another flush is in
// progress returns StatusBusy without doing anything.
func (w *FlushWorker) Flush(ctx context.Context) FlushResult {
	if !w.buffer.tryBeginFlush() {
		w.busy.Add(1)
		return FlushResult{Status: StatusBusy}
	}
	defer w.buffer.endFlush()

	start := time.Now()
	result := w.flushBatch(ctx)
	if result.Status != StatusEmpty {
		metrics.FlushDuration.WithLabelValues(string(result.Status)).Observe(time.Since(start).Seconds())
		w.flushes.Add(1)
		w.lastMu.Lock()
		w.lastStatus = result.Status
		w.lastFlush = time.Now()
		w.lastMu.Unlock()
	}
	metrics.BufferSize.Set(float64(w.buffer.Size()))

	return result
}

func (w *FlushWorker) flushBatch(ctx context.Context) FlushResult {
	batch := w.buffer.DrainUpTo(w.cfg.BatchSize)
	if len(batch) == 0 {
		return FlushResult{Status: StatusEmpty}
	}

	bo := w.newBackOff()
	attempts := 0
	for {
		attempts++
		err := w.insert(ctx, batch)
		if err == nil {
			w.persisted.Add(uint64(len(batch)))
			metrics.EventsPersisted.Add(float64(len(batch)))
			metrics.FlushBatchSize.Observe(float64(len(batch)))
			w.log.Debug("Batch persisted",
				zap.Int("event_count", len(batch)),
				zap.Int("attempts", attempts))
			return FlushResult{Status: StatusSuccess, Count: len(batch), Attempts: attempts}
		}

		w.failures.Add(1)
		metrics.FlushFailures.Inc()

		if attempts > w.cfg.MaxRetries {
			w.log.Error("Failed to persist batch, retries exhausted",
				zap.Int("event_count", len(batch)),
				zap.Int("attempts", attempts),
				zap.Error(err))
			return w.discard(ctx, batch, attempts)
		}

		w.buffer.Restore(batch)
		wait := bo.NextBackOff()
		w.log.Warn("Failed to persist batch, restored to buffer",
			zap.Int("event_count", len(batch)),
			zap.Int("attempt", attempts),
			zap.Duration("retry_in", wait),
			zap.Error(err))

		if err := w.sleep(ctx, wait); err != nil {
			w.log.Warn("Flush retry interrupted, batch left in buffer",
				zap.Int("event_count", len(batch)),
				zap.Error(err))
			return FlushResult{Status: StatusRestored, Count: len(batch), Attempts: attempts}
		}

		// Restore put the batch at the front and the guard keeps other
		// drains out, so this takes back exactly the events just attempted.
		batch = w.buffer.DrainUpTo(len(batch))
	}
}

func (w *FlushWorker) insert(ctx context.Context, batch []*domain.AnalyticsEvent) error {
	if w.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.cfg.Timeout)
		defer cancel()
	}
	_, err := w.writer.InsertBatch(ctx, batch)
	return err
}

// discard hands an undeliverable batch to the dead-letter queue, or drops
// it when there is none or publishing fails.
func (w *FlushWorker) discard(ctx context.Context, batch []*domain.AnalyticsEvent, attempts int) FlushResult {
	if w.deadLetter != nil {
		publishCtx := context.WithoutCancel(ctx)
		if w.cfg.Timeout > 0 {
			var cancel context.CancelFunc
			publishCtx, cancel = context.WithTimeout(publishCtx, w.cfg.Timeout)
			defer cancel()
		}

		err := w.deadLetter.PublishBatch(publishCtx, batch)
		if err == nil {
			w.deadLettered.Add(uint64(len(batch)))
			metrics.EventsDeadLettered.Add(float64(len(batch)))
			return FlushResult{Status: StatusDeadLettered, Count: len(batch), Attempts: attempts}
		}
		w.log.Error("Failed to dead-letter batch", zap.Int("event_count", len(batch)), zap.Error(err))

		var partial *queue.PartialPublishError
		if errors.As(err, &partial) && partial.Sent > 0 && partial.Sent < len(batch) {
			w.deadLettered.Add(uint64(partial.Sent))
			metrics.EventsDeadLettered.Add(float64(partial.Sent))
			batch = batch[partial.Sent:]
		}
	}

	w.dropped.Add(uint64(len(batch)))
	metrics.EventsDropped.WithLabelValues(metrics.DropReasonRetries).Add(float64(len(batch)))
	w.log.Error("Dropped batch after exhausting retries",
		zap.Int("event_count", len(batch)),
		zap.Time("oldest_event", batch[0].CreatedAt))
	return FlushResult{Status: StatusDropped, Count: len(batch), Attempts: attempts}
}

// Drain flushes until the buffer is empty or ctx expires. It is meant for
// shutdown, after Serve has returned.
func (w *FlushWorker) Drain(ctx context.Context) error {
	w.log.Info("Draining ingestion buffer", zap.Int("buffered_events", w.buffer.Size()))

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		result := w.Flush(ctx)
		switch result.Status {
		case StatusEmpty:
			w.log.Info("Ingestion buffer drained")
			return nil
		case StatusRestored:
			return ctx.Err()
		case StatusBusy:
			if err := w.sleep(ctx, 50*time.Millisecond); err != nil {
				return err
			}
		}
	}
}

// Stats returns a snapshot of the worker counters.
func (w *FlushWorker) Stats() FlushStats {
	w.lastMu.Lock()
	lastStatus, lastFlush := w.lastStatus, w.lastFlush
	w.lastMu.Unlock()

	return FlushStats{
		Buffered:     w.buffer.Size(),
		Flushes:      w.flushes.Load(),
		Persisted:    w.persisted.Load(),
		Failures:     w.failures.Load(),
		DeadLettered: w.deadLettered.Load(),
		Dropped:      w.dropped.Load(),
		Busy:         w.busy.Load(),
		LastStatus:   lastStatus,
		LastFlushAt:  lastFlush,
	}
}

func (w *FlushWorker) newBackOff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = w.cfg.RetryInitial
	bo.MaxInterval = w.cfg.RetryMax
	bo.Multiplier = 2
	bo.MaxElapsedTime = 0
	bo.Reset()
	return bo
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
