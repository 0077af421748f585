package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"ms-events/internal/logger"
	"ms-events/internal/models"
)

// MessageWriter is the part of *kafka.Writer the producer needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	Writer MessageWriter
	Topics TopicSet
	Logger *logger.Logger
	Now    func() time.Time
}

func NewProducer(brokers []string, topicPrefix string, log *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
	}
	return &Producer{
		Writer: writer,
		Topics: Topics(topicPrefix),
		Logger: log,
		Now:    time.Now,
	}
}

// PublishCreated streams the event creation to Kafka
func (p *Producer) PublishCreated(ctx context.Context, event *models.Event) error {
	return p.publish(ctx, NewLifecycleMessage(TypeCreated, event.ID, event, p.Now()))
}

// PublishUpdated streams the event update to Kafka
func (p *Producer) PublishUpdated(ctx context.Context, event *models.Event) error {
	return p.publish(ctx, NewLifecycleMessage(TypeUpdated, event.ID, event, p.Now()))
}

// PublishDeleted streams the event deletion to Kafka
func (p *Producer) PublishDeleted(ctx context.Context, eventID int64) error {
	return p.publish(ctx, NewLifecycleMessage(TypeDeleted, eventID, nil, p.Now()))
}

func (p *Producer) publish(ctx context.Context, msg LifecycleMessage) error {
	msgBytes, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal %s message: %w", msg.Type, err)
	}

	topic := p.Topics.For(msg.Type)
	if p.Logger != nil {
		p.Logger.LogKafka("PUBLISH", topic, fmt.Sprintf("event %d (%s)", msg.EventID, msg.MessageID))
	}

	// Keyed by event id so every message for one event lands on one partition.
	err = p.Writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(strconv.FormatInt(msg.EventID, 10)),
		Value: msgBytes,
	})
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}

// NoopPublisher is used when Kafka is disabled.
type NoopPublisher struct{}

func (NoopPublisher) PublishCreated(context.Context, *models.Event) error { return nil }
func (NoopPublisher) PublishUpdated(context.Context, *models.Event) error { return nil }
func (NoopPublisher) PublishDeleted(context.Context, int64) error         { return nil }
func (NoopPublisher) Close() error                                        { return nil }
