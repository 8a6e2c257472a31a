package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// Producer publishes task envelopes to the tasks topic. It implements
// Scheduler; countdowns are encoded as the envelope's not-before timestamp
// and honored by the consumer.
type Producer struct {
	writer *kafka.Writer
	logger *logrus.Logger
}

func NewProducer(brokers []string, topic string, logger *logrus.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
	return &Producer{writer: writer, logger: logger}
}

func (p *Producer) Schedule(ctx context.Context, t Task, countdown time.Duration) error {
	if countdown > 0 {
		t.NotBefore = time.Now().Add(countdown)
	}
	value, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal task %s: %w", t.ID, err)
	}
	msg := kafka.Message{Key: []byte(t.ID), Value: value}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish task %s (%s): %w", t.ID, t.Type, err)
	}
	p.logger.Debugf("queue: scheduled task %s type=%s countdown=%s retries=%d", t.ID, t.Type, countdown, t.Retries)
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
