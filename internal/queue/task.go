package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Task is the envelope for one unit of deferred work. Delivery is
// at-least-once; handlers must be idempotent. The envelope carries its own
// ID and retry count so a handler can implement token-based dedup and
// first-attempt-only side effects.
type Task struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	NotBefore time.Time       `json:"not_before"`
	Retries   int             `json:"retries"`
}

// NewTask builds a task of the given type with a fresh ID and a JSON payload.
func NewTask(taskType string, payload any) (Task, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Task{}, fmt.Errorf("marshal %s payload: %w", taskType, err)
	}
	return Task{ID: uuid.NewString(), Type: taskType, Payload: raw}, nil
}

// Handler executes one task. A returned error triggers a task-level retry
// with backoff; return nil for terminal outcomes that must not be retried.
type Handler func(ctx context.Context, t Task) error

// Scheduler enqueues a task for execution after the given countdown.
type Scheduler interface {
	Schedule(ctx context.Context, t Task, countdown time.Duration) error
}

// RetryAfterError asks the consumer to retry the failed task after a fixed
// delay instead of the default exponential backoff. Used for channels that
// report throttling with an explicit retry-after.
type RetryAfterError struct {
	After time.Duration
	Err   error
}

func (e *RetryAfterError) Error() string {
	return fmt.Sprintf("retry after %s: %v", e.After, e.Err)
}

func (e *RetryAfterError) Unwrap() error { return e.Err }

const (
	backoffBase = 2 * time.Second
	backoffMax  = 10 * time.Minute
)

// Backoff returns the exponential delay before the given retry attempt
// (attempt 1 is the first retry).
func Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := backoffBase
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= backoffMax {
			return backoffMax
		}
	}
	if d > backoffMax {
		d = backoffMax
	}
	return d
}
