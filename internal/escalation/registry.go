package escalation

import (
	"context"
	"sync"

	"escalation-service/internal/models"
)

// Notifier is the uniform send contract for a messaging backend. Transient
// throttling may be reported with *queue.RetryAfterError; any other error
// triggers a task-level retry.
type Notifier interface {
	Notify(ctx context.Context, user models.User, alert models.Alert, policy models.NotificationPolicy) error
}

// Registry maps channel identifiers to dynamically registered messaging
// backends. Unknown identifiers resolve to nil, not an error; the dispatcher
// turns that into a failed log record.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]Notifier
}

func NewRegistry() *Registry {
	return &Registry{backends: make(map[string]Notifier)}
}

func (r *Registry) Register(id string, n Notifier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[id] = n
}

func (r *Registry) Resolve(id string) Notifier {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.backends[id]
}
