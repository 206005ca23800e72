// Package kafka publishes trained events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/intents/pkg/eventstream"
)

// DefaultTopic is the topic trained events are written to.
const DefaultTopic = "intents.trained"

// MessageWriter is the subset of kafka.Writer used by Publisher.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher writes trained events as JSON messages keyed by system ID.
type Publisher struct {
	writer MessageWriter
	topic  string
	logger *slog.Logger
}

// Config holds configuration for the Kafka publisher.
type Config struct {
	Brokers []string

	// Topic defaults to DefaultTopic.
	Topic string

	// WriteTimeout bounds each write. Defaults to 10s.
	WriteTimeout time.Duration
}

// NewPublisher creates a publisher backed by a kafka-go Writer.
func NewPublisher(c Config, logger *slog.Logger) (*Publisher, error) {
	if len(c.Brokers) == 0 {
		return nil, errors.New("at least one kafka broker is required")
	}

	topic := c.Topic
	if topic == "" {
		topic = DefaultTopic
	}

	timeout := c.WriteTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(c.Brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		WriteTimeout:           timeout,
		AllowAutoTopicCreation: true,
	}

	logger.Debug("kafka publisher initialized",
		"brokers", c.Brokers,
		"topic", topic,
	)

	return NewPublisherWithWriter(w, topic, logger), nil
}

// NewPublisherWithWriter creates a publisher around an existing writer.
func NewPublisherWithWriter(w MessageWriter, topic string, logger *slog.Logger) *Publisher {
	return &Publisher{
		writer: w,
		topic:  topic,
		logger: logger,
	}
}

// PublishTrained writes event as a single message. The message key is the
// first system ID so that events for a system stay ordered on one partition.
func (p *Publisher) PublishTrained(ctx context.Context, event *eventstream.TrainedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding trained event: %w", err)
	}

	msg := kafkago.Message{
		Value: value,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "event_id", Value: []byte(event.EventID)},
		},
	}
	if len(event.Systems) > 0 {
		msg.Key = []byte(event.Systems[0].SystemID)
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("writing to topic %s: %w", p.topic, err)
	}

	p.logger.Debug("published trained event",
		"event_id", event.EventID,
		"topic", p.topic,
		"systems", len(event.Systems),
	)

	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

var _ eventstream.Publisher = (*Publisher)(nil)
