package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTask(t *testing.T) {
	type payload struct {
		UserID int64 `json:"user_id"`
	}
	task, err := NewTask("escalation.advance", payload{UserID: 7})
	require.NoError(t, err)
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, "escalation.advance", task.Type)
	assert.JSONEq(t, `{"user_id":7}`, string(task.Payload))
	assert.Zero(t, task.Retries)

	other, err := NewTask("escalation.advance", payload{UserID: 7})
	require.NoError(t, err)
	assert.NotEqual(t, task.ID, other.ID)
}

func TestNewTaskUnmarshalablePayload(t *testing.T) {
	_, err := NewTask("escalation.advance", func() {})
	assert.Error(t, err)
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, 2*time.Second, Backoff(0))
	assert.Equal(t, 2*time.Second, Backoff(1))
	assert.Equal(t, 4*time.Second, Backoff(2))
	assert.Equal(t, 8*time.Second, Backoff(3))
	assert.Equal(t, 10*time.Minute, Backoff(10))
	assert.Equal(t, 10*time.Minute, Backoff(100))
}

func TestRetryAfterError(t *testing.T) {
	cause := errors.New("too many requests")
	err := error(&RetryAfterError{After: 3 * time.Second, Err: cause})

	var ra *RetryAfterError
	require.ErrorAs(t, err, &ra)
	assert.Equal(t, 3*time.Second, ra.After)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "3s")
}

func TestMemorySchedulerCountdown(t *testing.T) {
	s := NewMemoryScheduler()
	task, err := NewTask("escalation.deliver", map[string]int64{"log_record_id": 1})
	require.NoError(t, err)

	require.NoError(t, s.Schedule(context.Background(), task, 0))
	require.NoError(t, s.Schedule(context.Background(), task, time.Minute))

	got := s.Drain()
	require.Len(t, got, 2)
	assert.True(t, got[0].Task.NotBefore.IsZero())
	assert.False(t, got[1].Task.NotBefore.IsZero())
	assert.Equal(t, time.Minute, got[1].Countdown)
	assert.Empty(t, s.Drain())
}
