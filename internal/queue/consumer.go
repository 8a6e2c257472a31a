package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// Consumer reads task envelopes from the tasks topic and runs registered
// handlers. Tasks whose not-before timestamp lies in the future are parked
// on a timer; failed tasks are re-published with exponential backoff (or a
// handler-requested retry-after delay). maxRetries < 0 means unbounded.
type Consumer struct {
	reader     *kafka.Reader
	producer   *Producer
	logger     *logrus.Logger
	maxRetries int

	mu       sync.RWMutex
	handlers map[string]Handler
	wg       sync.WaitGroup
}

func NewConsumer(brokers []string, topic, groupID string, producer *Producer, logger *logrus.Logger, maxRetries int) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Consumer{
		reader:     reader,
		producer:   producer,
		logger:     logger,
		maxRetries: maxRetries,
		handlers:   make(map[string]Handler),
	}
}

// Register binds a handler to a task type. Must be called before Start.
func (c *Consumer) Register(taskType string, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[taskType] = h
}

// Start consumes until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.logger.Info("queue: consumer started")
		for {
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					c.wg.Wait()
					return
				}
				c.logger.Errorf("queue: fetch message failed: %v", err)
				continue
			}

			var t Task
			if err := json.Unmarshal(msg.Value, &t); err != nil {
				c.logger.Errorf("queue: unmarshal task failed: %v", err)
				_ = c.reader.CommitMessages(ctx, msg)
				continue
			}
			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				c.logger.Errorf("queue: commit failed for task %s: %v", t.ID, err)
			}

			if delay := time.Until(t.NotBefore); delay > 0 {
				c.wg.Add(1)
				go func(t Task, delay time.Duration) {
					defer c.wg.Done()
					timer := time.NewTimer(delay)
					defer timer.Stop()
					select {
					case <-ctx.Done():
						return
					case <-timer.C:
						c.execute(ctx, t)
					}
				}(t, delay)
				continue
			}
			c.execute(ctx, t)
		}
	}()
}

func (c *Consumer) execute(ctx context.Context, t Task) {
	c.mu.RLock()
	h, ok := c.handlers[t.Type]
	c.mu.RUnlock()
	if !ok {
		c.logger.Errorf("queue: no handler for task type %s, dropping task %s", t.Type, t.ID)
		return
	}

	err := h(ctx, t)
	if err == nil {
		return
	}

	if c.maxRetries >= 0 && t.Retries >= c.maxRetries {
		c.logger.Errorf("queue: task %s (%s) failed after %d retries, giving up: %v", t.ID, t.Type, t.Retries, err)
		return
	}

	t.Retries++
	delay := Backoff(t.Retries)
	var ra *RetryAfterError
	if errors.As(err, &ra) && ra.After > 0 {
		delay = ra.After
	}
	c.logger.Warnf("queue: task %s (%s) failed, retry %d in %s: %v", t.ID, t.Type, t.Retries, delay, err)
	if err := c.producer.Schedule(ctx, t, delay); err != nil {
		c.logger.Errorf("queue: re-schedule of task %s failed: %v", t.ID, err)
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
