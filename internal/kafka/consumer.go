package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/segmentio/kafka-go"

	"alert-service/internal/alerts"
	"alert-service/internal/logging"
	"alert-service/internal/models"
)

type Config struct {
	Broker  string // comma separated
	Topic   string
	GroupID string
}

// MessageReader is the part of *kafka.Reader the consumer uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// TaskCompletionHandler runs the alert check for one completed task.
type TaskCompletionHandler interface {
	Handle(ctx context.Context, taskID string) (alerts.CompletionResult, error)
}

// Consumer reads task_completed events and runs the alert check for each.
type Consumer struct {
	reader  MessageReader
	handler TaskCompletionHandler
	logger  *logging.Logger
}

func NewConsumer(cfg Config, handler TaskCompletionHandler, logger *logging.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     strings.Split(cfg.Broker, ","),
		Topic:       cfg.Topic,
		GroupID:     cfg.GroupID,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.FirstOffset,
	})
	return NewConsumerWithReader(reader, handler, logger)
}

func NewConsumerWithReader(reader MessageReader, handler TaskCompletionHandler, logger *logging.Logger) *Consumer {
	return &Consumer{reader: reader, handler: handler, logger: logger}
}

// Start runs the consumer loop in a goroutine until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.logger.Infof("Kafka consumer started")
		if err := c.Run(ctx); err != nil {
			c.logger.Errorf("Kafka consumer stopped: %v", err)
			return
		}
		c.logger.Infof("Kafka consumer stopped")
	}()
}

// Run fetches, handles and commits messages one at a time. Every message is
// committed once handled, including ones that could not be processed.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		c.handle(ctx, msg)

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Errorf("Commit offset %d failed: %v", msg.Offset, err)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) {
	var event models.TaskCompletedEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		c.logger.Errorf("Unmarshal message at offset %d failed: %v", msg.Offset, err)
		return
	}
	if event.TaskID == "" {
		c.logger.Errorf("Invalid message at offset %d: missing task_id", msg.Offset)
		return
	}

	res, err := c.handler.Handle(ctx, event.TaskID)
	if err != nil {
		c.logger.Errorf("Task %s: %v", event.TaskID, err)
		return
	}
	if res.Checked {
		c.logger.Infof("Task %s: alerts checked", event.TaskID)
	} else {
		c.logger.Debugf("Task %s: skipped (%s)", event.TaskID, res.SkipReason)
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
