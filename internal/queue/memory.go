package queue

import (
	"context"
	"sync"
	"time"
)

// Scheduled is a task captured by the in-memory scheduler together with its
// requested countdown.
type Scheduled struct {
	Task      Task
	Countdown time.Duration
}

// MemoryScheduler records scheduled tasks instead of publishing them. It
// backs tests and local single-process runs where no broker is available.
type MemoryScheduler struct {
	mu    sync.Mutex
	tasks []Scheduled
}

func NewMemoryScheduler() *MemoryScheduler {
	return &MemoryScheduler{}
}

func (m *MemoryScheduler) Schedule(_ context.Context, t Task, countdown time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if countdown > 0 {
		t.NotBefore = time.Now().Add(countdown)
	}
	m.tasks = append(m.tasks, Scheduled{Task: t, Countdown: countdown})
	return nil
}

// Drain returns all captured tasks and clears the buffer.
func (m *MemoryScheduler) Drain() []Scheduled {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.tasks
	m.tasks = nil
	return out
}
