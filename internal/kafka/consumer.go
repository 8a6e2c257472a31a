package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"escalation-service/internal/escalation"
	"escalation-service/internal/metrics"
)

// Consumer turns upstream alert escalation events into first advance tasks.
type Consumer struct {
	reader *kafka.Reader
	coord  *escalation.Coordinator
	logger *logrus.Logger
}

func NewConsumer(brokers []string, topic, groupID string, coord *escalation.Coordinator, logger *logrus.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Consumer{reader: reader, coord: coord, logger: logger}
}

func (c *Consumer) Start(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.logger.Info("kafka: alert consumer started")
		for {
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return
				}
				c.logger.Errorf("kafka: read message failed: %v", err)
				continue
			}

			var event struct {
				AlertID   int64  `json:"alert_id"`
				UserID    int64  `json:"user_id"`
				Important bool   `json:"important"`
				Reason    string `json:"reason"`
			}
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				c.logger.Errorf("kafka: unmarshal message failed: %v", err)
				continue
			}
			if event.AlertID < 1 || event.UserID < 1 {
				c.logger.Error("kafka: invalid message: missing alert_id or user_id")
				continue
			}

			err = c.coord.Start(ctx, escalation.AdvanceArgs{
				UserID:    event.UserID,
				AlertID:   event.AlertID,
				Important: event.Important,
				Reason:    event.Reason,
			})
			if err != nil {
				c.logger.Errorf("kafka: failed to start escalation for user=%d alert=%d: %v", event.UserID, event.AlertID, err)
				continue
			}
			metrics.ChainStarted()
			c.logger.Infof("kafka: started escalation for user=%d alert=%d important=%t", event.UserID, event.AlertID, event.Important)
		}
	}()
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
