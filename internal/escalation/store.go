package escalation

import (
	"context"
	"errors"

	"escalation-service/internal/models"
)

// ErrNotFound is returned by stores when a row does not exist. The engine
// treats it as terminal: retrying cannot make a deleted row reappear.
var ErrNotFound = errors.New("not found")

// Store is the persistence contract the engine runs against. InTx runs fn
// against a transaction-bound store; LockLease must hold an exclusive row
// lock until that transaction ends, serializing concurrent advances for the
// same (user, alert) pair.
type Store interface {
	InTx(ctx context.Context, fn func(Store) error) error

	GetUser(ctx context.Context, id int64) (models.User, error)
	GetOrganization(ctx context.Context, id int64) (models.Organization, error)
	GetAlert(ctx context.Context, id int64) (models.Alert, error)

	GetPolicy(ctx context.Context, id int64) (models.NotificationPolicy, error)
	GetPolicies(ctx context.Context, userID int64, important bool) ([]models.NotificationPolicy, error)
	// PolicyByOrder re-resolves a step by position when a stale
	// cross-reference points into another user's policy set.
	PolicyByOrder(ctx context.Context, userID int64, important bool, order int) (models.NotificationPolicy, error)
	// NextPolicy returns the step following p within (user, important)
	// order, or nil at the end of the list.
	NextPolicy(ctx context.Context, p models.NotificationPolicy) (*models.NotificationPolicy, error)

	// LockLease fetches or creates the lease row for the pair and locks it.
	LockLease(ctx context.Context, userID, alertID int64) (models.EscalationLease, error)
	SetLeaseToken(ctx context.Context, userID, alertID int64, token *string) error
	GetLease(ctx context.Context, userID, alertID int64) (models.EscalationLease, error)

	CreateLogRecord(ctx context.Context, rec models.LogRecord) (models.LogRecord, error)
	GetLogRecord(ctx context.Context, id int64) (models.LogRecord, error)
	// HasTriggered reports whether any triggered record exists for the pair.
	HasTriggered(ctx context.Context, userID, alertID int64) (bool, error)

	GetChatMessage(ctx context.Context, alertID int64) (models.ChatMessage, error)
}

// DefaultFallbackPolicy is the process-wide single-step policy used when a
// user has no steps configured for the requested importance tier.
func DefaultFallbackPolicy(user models.User, channel string) models.NotificationPolicy {
	return models.NotificationPolicy{
		UserID:  user.ID,
		Order:   0,
		Step:    models.StepNotify,
		Channel: channel,
	}
}
