package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaOptions configure the Kafka publisher.
type KafkaOptions struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes envelopes to one topic, keyed by Envelope.Key.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
}

var _ Publisher = (*KafkaPublisher)(nil)

// NewKafkaPublisher builds a synchronous writer with hash partitioning.
func NewKafkaPublisher(opts KafkaOptions) (*KafkaPublisher, error) {
	if len(opts.Brokers) == 0 || opts.Topic == "" {
		return nil, fmt.Errorf("kafka brokers and topic required")
	}
	if opts.BatchTimeout <= 0 {
		opts.BatchTimeout = 50 * time.Millisecond
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(opts.Brokers...),
		Topic:                  opts.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		BatchTimeout:           opts.BatchTimeout,
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: writer, topic: opts.Topic}, nil
}

// Publish writes one message and waits for the acks.
func (p *KafkaPublisher) Publish(ctx context.Context, env Envelope) error {
	data, err := encode(env)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(env.Key),
		Value: data,
		Time:  env.EmittedAt,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(env.Kind)},
			{Key: "id", Value: []byte(env.ID)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write kafka message to %s: %w", p.topic, err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
