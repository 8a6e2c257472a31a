package providers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-telegram/bot"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"escalation-service/internal/models"
	"escalation-service/internal/queue"
)

// Telegram delivers notifications via the go-telegram/bot library. Sends are
// throttled with a process-wide limiter; Telegram's own 429 responses are
// surfaced as retry-after errors so the task queue can reschedule.
type Telegram struct {
	bot     *bot.Bot
	limiter *rate.Limiter
	logger  *logrus.Logger
}

func NewTelegram(token string, ratePerSecond int, logger *logrus.Logger) (*Telegram, error) {
	b, err := bot.New(token)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Telegram bot: %w", err)
	}
	return &Telegram{
		bot:     b,
		limiter: rate.NewLimiter(rate.Limit(float64(ratePerSecond)), ratePerSecond),
		logger:  logger,
	}, nil
}

func (t *Telegram) NotifyUser(ctx context.Context, user models.User, alert models.Alert, policy models.NotificationPolicy) error {
	if user.TelegramChatID == 0 {
		return fmt.Errorf("user %d has no telegram chat id", user.ID)
	}

	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram rate limit wait: %w", err)
	}

	text := fmt.Sprintf("*Alert:* %s\nYou are invited to check it.", alert.Title)
	_, err := t.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    user.TelegramChatID,
		Text:      text,
		ParseMode: "Markdown",
	})
	if err != nil {
		var tooMany *bot.TooManyRequestsError
		if errors.As(err, &tooMany) {
			return &queue.RetryAfterError{
				After: time.Duration(tooMany.RetryAfter) * time.Second,
				Err:   err,
			}
		}
		return fmt.Errorf("failed to send Telegram message to chat %d: %w", user.TelegramChatID, err)
	}
	t.logger.Infof("telegram: message sent to user %d for alert %d", user.ID, alert.ID)
	return nil
}
