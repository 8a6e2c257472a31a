package db

import (
	"context"

	"escalation-service/internal/models"
)

func (s *Store) GetAlert(ctx context.Context, id int64) (models.Alert, error) {
	query := `
	SELECT id, organization_id, title, acknowledged, resolved, wiped_at,
	       silenced, notify_in_chat_enabled, skip_escalation_in_chat,
	       skip_escalation_reason, root_alert_id, created_at
	FROM alerts
	WHERE id = $1`

	var a models.Alert
	err := s.q.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.OrganizationID, &a.Title, &a.Acknowledged, &a.Resolved, &a.WipedAt,
		&a.Silenced, &a.NotifyInChatEnabled, &a.SkipEscalationInChat,
		&a.SkipEscalationReason, &a.RootAlertID, &a.CreatedAt,
	)
	if err != nil {
		return models.Alert{}, notFound(err)
	}
	return a, nil
}

func (s *Store) GetChatMessage(ctx context.Context, alertID int64) (models.ChatMessage, error) {
	query := `
	SELECT id, alert_id, channel_id, message_ts
	FROM chat_messages
	WHERE alert_id = $1
	ORDER BY id
	LIMIT 1`

	var m models.ChatMessage
	err := s.q.QueryRow(ctx, query, alertID).Scan(&m.ID, &m.AlertID, &m.ChannelID, &m.Timestamp)
	if err != nil {
		return models.ChatMessage{}, notFound(err)
	}
	return m, nil
}
