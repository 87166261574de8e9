package sqs

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"

	envConfig "github.com/juanpasaflipz/ai-prompt-marketplace/internal/config"
	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/domain"
	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/queue"
)

// MaxEventsPerMessage bounds how many events go into one dead-letter message
const MaxEventsPerMessage = 50

// API is the subset of the SQS client used here
type API interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Client talks to the dead-letter queue
type Client struct {
	api      API
	queueURL string
	log      *zap.Logger
}

// NewClient creates a new SQS client
func NewClient(ctx context.Context, cfg envConfig.SQS, log *zap.Logger) (*Client, error) {
	configOpts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}

	var clientOpts []func(*sqs.Options)

	// ElasticMQ or LocalStack
	if cfg.Endpoint != "" {
		log.Info("Configuring SQS for local development",
			zap.String("endpoint", cfg.Endpoint))
		configOpts = append(configOpts,
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("dummy", "dummy", "")))

		clientOpts = append(clientOpts, func(o *sqs.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	log.Info("SQS client created",
		zap.String("region", cfg.Region),
		zap.String("queue_url", cfg.DeadLetterQueueURL))

	return NewClientWithAPI(sqs.NewFromConfig(awsCfg, clientOpts...), cfg.DeadLetterQueueURL, log), nil
}

// NewClientWithAPI wraps an existing SQS API implementation
func NewClientWithAPI(api API, queueURL string, log *zap.Logger) *Client {
	return &Client{api: api, queueURL: queueURL, log: log}
}

// ReceiveMessages receives messages from SQS
func (c *Client) ReceiveMessages(ctx context.Context, input *sqs.ReceiveMessageInput) (*sqs.ReceiveMessageOutput, error) {
	return c.api.ReceiveMessage(ctx, input)
}

// DeleteMessage deletes a message from SQS
func (c *Client) DeleteMessage(ctx context.Context, input *sqs.DeleteMessageInput) (*sqs.DeleteMessageOutput, error) {
	return c.api.DeleteMessage(ctx, input)
}

// QueueURL returns the configured queue URL
func (c *Client) QueueURL() string {
	return c.queueURL
}

// PublishBatch sends the events as JSON array messages of at most
// MaxEventsPerMessage events each. Chunks sent before a failure stay sent;
// the error is then a *queue.PartialPublishError counting the unsent events.
func (c *Client) PublishBatch(ctx context.Context, events []*domain.AnalyticsEvent) error {
	bodies, err := EncodeChunks(events, MaxEventsPerMessage)
	if err != nil {
		return err
	}

	for i, body := range bodies {
		chunkLen := MaxEventsPerMessage
		if rest := len(events) - i*MaxEventsPerMessage; rest < chunkLen {
			chunkLen = rest
		}

		_, err := c.api.SendMessage(ctx, &sqs.SendMessageInput{
			QueueUrl:    aws.String(c.queueURL),
			MessageBody: aws.String(body),
			MessageAttributes: map[string]types.MessageAttributeValue{
				"EventCount": {
					DataType:    aws.String("Number"),
					StringValue: aws.String(strconv.Itoa(chunkLen)),
				},
			},
		})
		if err != nil {
			sent := i * MaxEventsPerMessage
			c.log.Error("Failed to send dead-letter message",
				zap.Int("chunk", i),
				zap.Int("chunks", len(bodies)),
				zap.Int("sent_events", sent),
				zap.Int("unsent_events", len(events)-sent),
				zap.Error(err))
			return &queue.PartialPublishError{
				Sent:   sent,
				Unsent: len(events) - sent,
				Err:    fmt.Errorf("failed to send message to SQS: %w", err),
			}
		}
	}

	c.log.Warn("Events published to dead-letter queue",
		zap.Int("event_count", len(events)),
		zap.Int("message_count", len(bodies)))

	return nil
}

// EncodeChunks splits events into JSON array bodies of at most size events
func EncodeChunks(events []*domain.AnalyticsEvent, size int) ([]string, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid chunk size %d", size)
	}

	bodies := make([]string, 0, (len(events)+size-1)/size)
	for start := 0; start < len(events); start += size {
		end := start + size
		if end > len(events) {
			end = len(events)
		}
		body, err := json.Marshal(events[start:end])
		if err != nil {
			return nil, fmt.Errorf("failed to marshal events: %w", err)
		}
		bodies = append(bodies, string(body))
	}
	return bodies, nil
}
