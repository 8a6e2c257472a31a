package db

import (
	"context"
	"fmt"

	"escalation-service/internal/models"
)

// LockLease fetches or creates the lease row for (user, alert) and acquires
// an exclusive row lock that lives until the surrounding transaction ends.
func (s *Store) LockLease(ctx context.Context, userID, alertID int64) (models.EscalationLease, error) {
	insert := `
	INSERT INTO escalation_leases (user_id, alert_id)
	VALUES ($1, $2)
	ON CONFLICT (user_id, alert_id) DO NOTHING`
	if _, err := s.q.Exec(ctx, insert, userID, alertID); err != nil {
		return models.EscalationLease{}, fmt.Errorf("failed to create lease: %w", err)
	}

	query := `
	SELECT user_id, alert_id, active_task_id
	FROM escalation_leases
	WHERE user_id = $1 AND alert_id = $2
	FOR UPDATE`

	var l models.EscalationLease
	err := s.q.QueryRow(ctx, query, userID, alertID).Scan(&l.UserID, &l.AlertID, &l.ActiveTaskID)
	if err != nil {
		return models.EscalationLease{}, fmt.Errorf("failed to lock lease: %w", err)
	}
	return l, nil
}

func (s *Store) SetLeaseToken(ctx context.Context, userID, alertID int64, token *string) error {
	query := `
	UPDATE escalation_leases
	SET active_task_id = $1
	WHERE user_id = $2 AND alert_id = $3`
	if _, err := s.q.Exec(ctx, query, token, userID, alertID); err != nil {
		return fmt.Errorf("failed to set lease token: %w", err)
	}
	return nil
}

// GetLease reads the lease without locking, for the operational API.
func (s *Store) GetLease(ctx context.Context, userID, alertID int64) (models.EscalationLease, error) {
	query := `
	SELECT user_id, alert_id, active_task_id
	FROM escalation_leases
	WHERE user_id = $1 AND alert_id = $2`

	var l models.EscalationLease
	err := s.q.QueryRow(ctx, query, userID, alertID).Scan(&l.UserID, &l.AlertID, &l.ActiveTaskID)
	if err != nil {
		return models.EscalationLease{}, notFound(err)
	}
	return l, nil
}
