package providers

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/slack-go/slack"

	"escalation-service/internal/models"
)

// SlackChat posts personal notifications into the thread of the alert's
// chat message.
type SlackChat struct {
	client *slack.Client
	logger *logrus.Logger
}

func NewSlackChat(botToken string, logger *logrus.Logger) *SlackChat {
	return &SlackChat{client: slack.New(botToken), logger: logger}
}

func (s *SlackChat) SendToThread(ctx context.Context, msg models.ChatMessage, user models.User, alert models.Alert, policy models.NotificationPolicy) error {
	text := fmt.Sprintf("Inviting <@%s> to look at the alert: %s", user.ChatUserID, alert.Title)
	_, _, err := s.client.PostMessageContext(ctx, msg.ChannelID,
		slack.MsgOptionText(text, false),
		slack.MsgOptionTS(msg.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("failed to post chat notification for alert %d: %w", alert.ID, err)
	}
	s.logger.Infof("chat: notification posted for user %d in thread of alert %d", user.ID, alert.ID)
	return nil
}
