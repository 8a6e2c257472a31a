package models

// EscalationLease is the dedup record for one (user, alert) pair. The token
// names the only advance task currently authorized to continue the chain; a
// task whose own ID does not match must treat itself as a stale duplicate.
// A nil token means no chain is active.
type EscalationLease struct {
	UserID       int64   `json:"user_id"`
	AlertID      int64   `json:"alert_id"`
	ActiveTaskID *string `json:"active_task_id,omitempty"`
}
