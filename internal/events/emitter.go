package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"escalation-service/internal/metrics"
	"escalation-service/internal/models"
)

// Event is the downstream signal emitted for every committed log record.
type Event struct {
	LogRecordID int64                `json:"log_record_id"`
	UserID      int64                `json:"user_id"`
	AlertID     int64                `json:"alert_id"`
	Type        models.LogRecordType `json:"type"`
	Channel     string               `json:"channel,omitempty"`
	Reason      string               `json:"reason,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
}

// Emitter publishes notification events to Kafka and pushes them to any
// WebSocket subscribers of the affected user. Best effort: the WebSocket
// push never fails the task.
type Emitter struct {
	writer *kafka.Writer
	hub    *Hub
	logger *logrus.Logger
}

func NewEmitter(brokers []string, topic string, hub *Hub, logger *logrus.Logger) *Emitter {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.Hash{},
	}
	return &Emitter{writer: writer, hub: hub, logger: logger}
}

func (e *Emitter) Emit(ctx context.Context, rec models.LogRecord) error {
	event := Event{
		LogRecordID: rec.ID,
		UserID:      rec.UserID,
		AlertID:     rec.AlertID,
		Type:        rec.Type,
		Channel:     rec.Channel,
		Reason:      rec.Reason,
		CreatedAt:   rec.CreatedAt,
	}
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal notification event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(rec.UserID, 10)),
		Value: value,
	}
	if err := e.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish notification event for record %d: %w", rec.ID, err)
	}

	e.hub.SendToUser(rec.UserID, value)
	metrics.LogRecordCreated(string(rec.Type))
	e.logger.Debugf("events: emitted notification event for record %d", rec.ID)
	return nil
}

func (e *Emitter) Close() error {
	return e.writer.Close()
}
