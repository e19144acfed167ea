package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/tib-ai/triage/pkg/common/logger"
	"github.com/tib-ai/triage/pkg/common/models"
)

const (
	fetchRetryDelay   = time.Second
	handlerRetryDelay = 500 * time.Millisecond
	handlerMaxBackoff = 30 * time.Second
)

// messageReader is the subset of *kafka.Reader the consumer uses.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	reader     messageReader
	fetchDelay time.Duration
	retryDelay time.Duration
	maxBackoff time.Duration
}

type EventHandler func(ctx context.Context, event models.Event) error

func NewConsumer(brokers []string, topic string, groupID string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})

	return newConsumer(reader)
}

func newConsumer(reader messageReader) *Consumer {
	return &Consumer{
		reader:     reader,
		fetchDelay: fetchRetryDelay,
		retryDelay: handlerRetryDelay,
		maxBackoff: handlerMaxBackoff,
	}
}

// DecodeMessage parses a message written by EncodeMessage.
func DecodeMessage(message kafka.Message) (models.Event, error) {
	var event models.Event
	err := json.Unmarshal(message.Value, &event)
	return event, err
}

// Consume blocks until ctx is cancelled. Messages that fail to decode are
// committed and skipped. A failing handler is retried with backoff until it
// succeeds, so a message is committed only after it has been processed.
// Group offsets are positional: committing a later message would skip it.
func (c *Consumer) Consume(ctx context.Context, handler EventHandler) error {
	for {
		message, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return ctx.Err()
			}
			logger.Log.WithError(err).Error("Failed to fetch message")
			if err := sleep(ctx, c.fetchDelay); err != nil {
				return err
			}
			continue
		}

		event, err := DecodeMessage(message)
		if err != nil {
			logger.Log.WithError(err).Error("Failed to unmarshal event")
			c.commit(ctx, message)
			continue
		}

		if err := c.handle(ctx, handler, event); err != nil {
			return err
		}
		c.commit(ctx, message)
	}
}

// handle runs handler until it succeeds. It only returns an error when ctx
// is cancelled, leaving the message uncommitted for the next consumer.
func (c *Consumer) handle(ctx context.Context, handler EventHandler, event models.Event) error {
	delay := c.retryDelay
	for attempt := 1; ; attempt++ {
		err := handler(ctx, event)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		logger.Log.WithError(err).WithFields(map[string]interface{}{
			"event_id": event.ID,
			"attempt":  attempt,
		}).Error("Failed to process event, retrying")

		if err := sleep(ctx, delay); err != nil {
			return err
		}
		delay *= 2
		if delay > c.maxBackoff {
			delay = c.maxBackoff
		}
	}
}

func (c *Consumer) commit(ctx context.Context, message kafka.Message) {
	if err := c.reader.CommitMessages(ctx, message); err != nil {
		logger.Log.WithError(err).Error("Failed to commit message")
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
