package recovery

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/domain"
)

const testQueueURL = "https://sqs.eu-central-1.amazonaws.com/123/analytics-dlq"

// MockQueueConsumer is a mock implementation of queue.QueueConsumer
type MockQueueConsumer struct {
	mock.Mock
}

func (m *MockQueueConsumer) ReceiveMessages(ctx context.Context, input *sqs.ReceiveMessageInput) (*sqs.ReceiveMessageOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sqs.ReceiveMessageOutput), args.Error(1)
}

func (m *MockQueueConsumer) DeleteMessage(ctx context.Context, input *sqs.DeleteMessageInput) (*sqs.DeleteMessageOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sqs.DeleteMessageOutput), args.Error(1)
}

func (m *MockQueueConsumer) QueueURL() string {
	args := m.Called()
	return args.String(0)
}

// MockEventWriter is a mock implementation of repository.EventWriter
type MockEventWriter struct {
	mock.Mock
}

func (m *MockEventWriter) InsertBatch(ctx context.Context, events []*domain.AnalyticsEvent) (int, error) {
	args := m.Called(ctx, events)
	return args.Int(0), args.Error(1)
}

// MockMessageParser is a mock implementation of MessageParser
type MockMessageParser struct {
	mock.Mock
}

func (m *MockMessageParser) Parse(body []byte) ([]*domain.AnalyticsEvent, error) {
	args := m.Called(body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.AnalyticsEvent), args.Error(1)
}

func newTestEvents(n int) []*domain.AnalyticsEvent {
	events := make([]*domain.AnalyticsEvent, n)
	for i := range events {
		events[i] = &domain.AnalyticsEvent{
			ID:        uuid.New(),
			UserID:    "user123",
			EventType: domain.EventPromptViewed,
			Metadata:  "{}",
			CreatedAt: time.Date(2026, 6, 1, 12, 0, i, 0, time.UTC),
		}
	}
	return events
}
