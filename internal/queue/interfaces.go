package queue

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/domain"
)

// DeadLetterPublisher hands batches that could not be persisted to a durable queue
type DeadLetterPublisher interface {
	PublishBatch(ctx context.Context, events []*domain.AnalyticsEvent) error
}

// QueueConsumer defines the interface for consuming messages from a queue
type QueueConsumer interface {
	ReceiveMessages(ctx context.Context, input *sqs.ReceiveMessageInput) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, input *sqs.DeleteMessageInput) (*sqs.DeleteMessageOutput, error)
	QueueURL() string
}
