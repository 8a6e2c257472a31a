package models

// User is a notification recipient. Contact fields are empty when the user
// has not connected the corresponding channel.
type User struct {
	ID                   int64  `json:"id"`
	Username             string `json:"username"`
	OrganizationID       int64  `json:"organization_id"`
	NotificationsAllowed bool   `json:"notifications_allowed"`
	PhoneNumber          string `json:"phone_number,omitempty"`
	Email                string `json:"email,omitempty"`
	TelegramChatID       int64  `json:"telegram_chat_id,omitempty"`
	ChatUserID           string `json:"chat_user_id,omitempty"`
}

// Organization groups users and owns the chat-ops integration. A nil
// ChatTeamID means the organization has no chat workspace connected.
type Organization struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	ChatTeamID *string `json:"chat_team_id,omitempty"`
}
