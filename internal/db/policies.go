package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"escalation-service/internal/models"
)

const policyColumns = `id, user_id, important, step_order, step, wait_delay_seconds, COALESCE(channel, ''), created_at`

func scanPolicy(row pgx.Row) (models.NotificationPolicy, error) {
	var p models.NotificationPolicy
	var waitSeconds int64
	err := row.Scan(&p.ID, &p.UserID, &p.Important, &p.Order, &p.Step, &waitSeconds, &p.Channel, &p.CreatedAt)
	if err != nil {
		return models.NotificationPolicy{}, err
	}
	p.WaitDelay = time.Duration(waitSeconds) * time.Second
	return p, nil
}

func (s *Store) GetPolicy(ctx context.Context, id int64) (models.NotificationPolicy, error) {
	query := `SELECT ` + policyColumns + ` FROM notification_policies WHERE id = $1`
	p, err := scanPolicy(s.q.QueryRow(ctx, query, id))
	if err != nil {
		return models.NotificationPolicy{}, notFound(err)
	}
	return p, nil
}

// GetPolicies returns the user's ordered steps for one importance tier.
func (s *Store) GetPolicies(ctx context.Context, userID int64, important bool) ([]models.NotificationPolicy, error) {
	query := `
	SELECT ` + policyColumns + `
	FROM notification_policies
	WHERE user_id = $1 AND important = $2
	ORDER BY step_order`

	rows, err := s.q.Query(ctx, query, userID, important)
	if err != nil {
		return nil, fmt.Errorf("failed to get policies for user %d: %w", userID, err)
	}
	defer rows.Close()

	var policies []models.NotificationPolicy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan policy: %w", err)
		}
		policies = append(policies, p)
	}
	return policies, rows.Err()
}

func (s *Store) PolicyByOrder(ctx context.Context, userID int64, important bool, order int) (models.NotificationPolicy, error) {
	query := `
	SELECT ` + policyColumns + `
	FROM notification_policies
	WHERE user_id = $1 AND important = $2 AND step_order = $3
	ORDER BY id
	LIMIT 1`

	p, err := scanPolicy(s.q.QueryRow(ctx, query, userID, important, order))
	if err != nil {
		return models.NotificationPolicy{}, notFound(err)
	}
	return p, nil
}

// NextPolicy resolves the following step by position within the same
// (user, important) list; nil means the list is exhausted.
func (s *Store) NextPolicy(ctx context.Context, p models.NotificationPolicy) (*models.NotificationPolicy, error) {
	query := `
	SELECT ` + policyColumns + `
	FROM notification_policies
	WHERE user_id = $1 AND important = $2 AND step_order > $3
	ORDER BY step_order
	LIMIT 1`

	next, err := scanPolicy(s.q.QueryRow(ctx, query, p.UserID, p.Important, p.Order))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to resolve next policy after %d: %w", p.ID, err)
	}
	return &next, nil
}
