// Package kafka publishes turn events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/alfredmayaki/chatrelay/pkg/eventstream"
)

// Config configures the Kafka publisher.
type Config struct {
	// Brokers is the list of bootstrap broker addresses. Required.
	Brokers []string

	// Topic is the destination topic. Required.
	Topic string

	// BatchTimeout bounds how long the writer buffers messages before
	// flushing. Defaults to one second, which keeps turn events near
	// real-time without a write per event.
	BatchTimeout time.Duration
}

// Publisher publishes turn events to Kafka, keyed by event ID so replays of
// the same event land on the same partition.
type Publisher struct {
	writer *kafkago.Writer
}

// NewPublisher creates a Kafka-backed eventstream publisher.
func NewPublisher(config Config) (*Publisher, error) {
	if len(config.Brokers) == 0 {
		return nil, errors.New("at least one broker address is required")
	}
	if config.Topic == "" {
		return nil, errors.New("topic is required")
	}
	if config.BatchTimeout == 0 {
		config.BatchTimeout = time.Second
	}

	return &Publisher{
		writer: &kafkago.Writer{
			Addr:         kafkago.TCP(config.Brokers...),
			Topic:        config.Topic,
			Balancer:     &kafkago.LeastBytes{},
			BatchTimeout: config.BatchTimeout,
		},
	}, nil
}

// PublishTurn marshals the event and writes it to the configured topic.
func (p *Publisher) PublishTurn(ctx context.Context, event *eventstream.TurnCompletedEvent) error {
	if event == nil {
		return eventstream.ErrNilTurnEvent
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling turn event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(event.EventID),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("writing turn event: %w", err)
	}

	return nil
}

// Close flushes buffered messages and releases the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
