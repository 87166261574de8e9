package recovery

import (
	"context"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"

	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/config"
	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/queue"
	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/repository"
)

const stageBufferSize = 100

// Replayer drains the dead-letter queue back into the event store through
// three stages: receive, parse, batch write.
type Replayer struct {
	receiver    *Receiver
	parser      *ParserStage
	batchWriter *BatchWriter
}

// NewReplayer wires the replay pipeline
func NewReplayer(cfg config.Replayer, queueConsumer queue.QueueConsumer, writer repository.EventWriter, log *zap.Logger) *Replayer {
	receiver := NewReceiver(queueConsumer, ReceiverConfig{
		MaxMessages:     10,
		WaitTimeSeconds: 20,
	}, log)

	parser := NewParserStage(queueConsumer, NewJSONBatchParser(), log)

	batchWriter := NewBatchWriter(writer, BatchWriterConfig{
		MaxBatchSize: cfg.BatchSizeMax,
		FlushTimeout: time.Duration(cfg.BatchTimeoutSec) * time.Second,
	}, log)

	return &Replayer{
		receiver:    receiver,
		parser:      parser,
		batchWriter: batchWriter,
	}
}

// String names the service in supervisor events.
func (r *Replayer) String() string {
	return "dead-letter-replayer"
}

// Serve runs the pipeline until ctx is cancelled
func (r *Replayer) Serve(ctx context.Context) error {
	messageChan := make(chan types.Message, stageBufferSize)
	envelopeChan := make(chan *Envelope, stageBufferSize)

	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		r.receiver.Start(ctx, messageChan)
	}()

	go func() {
		defer wg.Done()
		r.parser.Start(ctx, messageChan, envelopeChan)
	}()

	go func() {
		defer wg.Done()
		r.batchWriter.Start(ctx, envelopeChan)
	}()

	wg.Wait()
	return ctx.Err()
}
