package escalation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"escalation-service/internal/models"
	"escalation-service/internal/queue"
)

// Task types owned by the escalation engine.
const (
	TaskAdvance = "escalation.advance"
	TaskDeliver = "escalation.deliver"
	TaskSignal  = "escalation.signal"
	TaskMetrics = "escalation.metrics"
)

// AdvanceArgs is the continuation message for one coordinator step. It
// carries everything needed to resume the chain after a delay.
type AdvanceArgs struct {
	UserID                 int64  `json:"user_id"`
	AlertID                int64  `json:"alert_id"`
	PreviousPolicyID       *int64 `json:"previous_policy_id,omitempty"`
	Reason                 string `json:"reason,omitempty"`
	PreventPosting         bool   `json:"prevent_posting,omitempty"`
	NotifyEvenAcknowledged bool   `json:"notify_even_acknowledged,omitempty"`
	NotifyAnyway           bool   `json:"notify_anyway,omitempty"`
	Important              bool   `json:"important,omitempty"`
}

// DeliverArgs identifies one delivery attempt for a log record.
type DeliverArgs struct {
	LogRecordID int64 `json:"log_record_id"`
	UseFallback bool  `json:"use_fallback"`
}

// SignalArgs carries the record whose creation is signalled downstream.
type SignalArgs struct {
	LogRecordID int64 `json:"log_record_id"`
}

// MetricsArgs carries the user whose notification metrics need refreshing.
type MetricsArgs struct {
	UserID int64 `json:"user_id"`
}

// SignalEmitter delivers the downstream "notification event" signal for a
// freshly committed log record. Best effort.
type SignalEmitter interface {
	Emit(ctx context.Context, rec models.LogRecord) error
}

// MetricsUpdater refreshes external per-user notification metrics. Best
// effort.
type MetricsUpdater interface {
	Update(ctx context.Context, userID int64) error
}

// SignalHandler resolves the log record of a signal task and emits it.
type SignalHandler struct {
	store   Store
	emitter SignalEmitter
	logger  *logrus.Logger
}

func NewSignalHandler(store Store, emitter SignalEmitter, logger *logrus.Logger) *SignalHandler {
	return &SignalHandler{store: store, emitter: emitter, logger: logger}
}

func (h *SignalHandler) Handle(ctx context.Context, t queue.Task) error {
	var args SignalArgs
	if err := json.Unmarshal(t.Payload, &args); err != nil {
		return fmt.Errorf("decode signal args: %w", err)
	}
	rec, err := h.store.GetLogRecord(ctx, args.LogRecordID)
	if errors.Is(err, ErrNotFound) {
		h.logger.Warnf("signal: log record %d no longer exists", args.LogRecordID)
		return nil
	}
	if err != nil {
		return err
	}
	return h.emitter.Emit(ctx, rec)
}

// MetricsHandler runs the fire-and-forget metrics refresh task.
type MetricsHandler struct {
	updater MetricsUpdater
}

func NewMetricsHandler(updater MetricsUpdater) *MetricsHandler {
	return &MetricsHandler{updater: updater}
}

func (h *MetricsHandler) Handle(ctx context.Context, t queue.Task) error {
	var args MetricsArgs
	if err := json.Unmarshal(t.Payload, &args); err != nil {
		return fmt.Errorf("decode metrics args: %w", err)
	}
	return h.updater.Update(ctx, args.UserID)
}

// RegisterHandlers binds all engine task types on a queue consumer.
func RegisterHandlers(c *queue.Consumer, coord *Coordinator, disp *Dispatcher, sig *SignalHandler, met *MetricsHandler) {
	c.Register(TaskAdvance, coord.HandleAdvance)
	c.Register(TaskDeliver, disp.HandleDeliver)
	c.Register(TaskSignal, sig.Handle)
	c.Register(TaskMetrics, met.Handle)
}
