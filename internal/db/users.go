package db

import (
	"context"

	"escalation-service/internal/models"
)

func (s *Store) GetUser(ctx context.Context, id int64) (models.User, error) {
	query := `
	SELECT id, username, organization_id, notifications_allowed,
	       COALESCE(phone_number, ''), COALESCE(email, ''),
	       COALESCE(telegram_chat_id, 0), COALESCE(chat_user_id, '')
	FROM users
	WHERE id = $1`

	var u models.User
	err := s.q.QueryRow(ctx, query, id).Scan(
		&u.ID, &u.Username, &u.OrganizationID, &u.NotificationsAllowed,
		&u.PhoneNumber, &u.Email, &u.TelegramChatID, &u.ChatUserID,
	)
	if err != nil {
		return models.User{}, notFound(err)
	}
	return u, nil
}

func (s *Store) GetOrganization(ctx context.Context, id int64) (models.Organization, error) {
	query := `
	SELECT id, name, chat_team_id
	FROM organizations
	WHERE id = $1`

	var o models.Organization
	err := s.q.QueryRow(ctx, query, id).Scan(&o.ID, &o.Name, &o.ChatTeamID)
	if err != nil {
		return models.Organization{}, notFound(err)
	}
	return o, nil
}
