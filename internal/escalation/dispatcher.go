package escalation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"escalation-service/internal/models"
	"escalation-service/internal/queue"
)

// PhoneBackend delivers SMS and voice-call notifications. Its internal
// retry/backoff is opaque to the dispatcher.
type PhoneBackend interface {
	NotifyBySMS(ctx context.Context, user models.User, alert models.Alert, policy models.NotificationPolicy) error
	NotifyByCall(ctx context.Context, user models.User, alert models.Alert, policy models.NotificationPolicy) error
}

// TelegramConnector delivers telegram notifications and may report
// throttling with *queue.RetryAfterError.
type TelegramConnector interface {
	NotifyUser(ctx context.Context, user models.User, alert models.Alert, policy models.NotificationPolicy) error
}

// ChatSender posts a personal notification into the thread of the alert's
// existing chat-ops message.
type ChatSender interface {
	SendToThread(ctx context.Context, msg models.ChatMessage, user models.User, alert models.Alert, policy models.NotificationPolicy) error
}

// Dispatcher resolves the concrete channel for a log record and performs the
// delivery, translating channel-specific transient errors into task-level
// retries.
type Dispatcher struct {
	store     Store
	scheduler queue.Scheduler
	registry  *Registry
	phone     PhoneBackend
	telegram  TelegramConnector
	chat      ChatSender
	logger    *logrus.Logger

	fallbackChannel      string
	chatAwaitWindow      time.Duration
	chatRetryDelay       time.Duration
	telegramRetryDefault time.Duration
}

func NewDispatcher(store Store, scheduler queue.Scheduler, registry *Registry, phone PhoneBackend, telegram TelegramConnector, chat ChatSender, logger *logrus.Logger, fallbackChannel string, chatAwaitWindow, chatRetryDelay time.Duration) *Dispatcher {
	return &Dispatcher{
		store:                store,
		scheduler:            scheduler,
		registry:             registry,
		phone:                phone,
		telegram:             telegram,
		chat:                 chat,
		logger:               logger,
		fallbackChannel:      fallbackChannel,
		chatAwaitWindow:      chatAwaitWindow,
		chatRetryDelay:       chatRetryDelay,
		telegramRetryDefault: 3 * time.Second,
	}
}

// HandleDeliver is the queue handler for deliver tasks.
func (d *Dispatcher) HandleDeliver(ctx context.Context, t queue.Task) error {
	var args DeliverArgs
	if err := json.Unmarshal(t.Payload, &args); err != nil {
		return fmt.Errorf("decode deliver args: %w", err)
	}
	return d.deliver(ctx, args)
}

func (d *Dispatcher) deliver(ctx context.Context, args DeliverArgs) error {
	rec, err := d.store.GetLogRecord(ctx, args.LogRecordID)
	if errors.Is(err, ErrNotFound) {
		d.logger.Warnf("deliver: log record %d doesn't exist, the alert may have been deleted", args.LogRecordID)
		return nil
	}
	if err != nil {
		return err
	}

	alert, err := d.store.GetAlert(ctx, rec.AlertID)
	if errors.Is(err, ErrNotFound) {
		d.logger.Warnf("deliver: alert %d doesn't exist", rec.AlertID)
		return nil
	}
	if err != nil {
		return err
	}

	var user models.User
	userOK := true
	user, err = d.store.GetUser(ctx, rec.UserID)
	if errors.Is(err, ErrNotFound) {
		userOK = false
	} else if err != nil {
		return err
	}

	var policy *models.NotificationPolicy
	if args.UseFallback {
		if userOK && d.fallbackChannel != "" {
			p := DefaultFallbackPolicy(user, d.fallbackChannel)
			policy = &p
		}
	} else if rec.PolicyID != nil {
		p, err := d.store.GetPolicy(ctx, *rec.PolicyID)
		if err == nil {
			policy = &p
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
	}

	if !userOK || policy == nil {
		return d.fail(ctx, rec, policy, "expected data is missing", models.ErrCodeNone)
	}

	if !user.NotificationsAllowed {
		return d.fail(ctx, rec, nil, "notification is not allowed for user", models.ErrCodeForbidden)
	}

	switch policy.Channel {
	case models.ChannelSMS:
		if d.phone == nil {
			return d.fail(ctx, rec, policy, "phone backend is not configured", models.ErrCodeBackendUnavailable)
		}
		return d.phone.NotifyBySMS(ctx, user, alert, *policy)

	case models.ChannelPhoneCall:
		if d.phone == nil {
			return d.fail(ctx, rec, policy, "phone backend is not configured", models.ErrCodeBackendUnavailable)
		}
		return d.phone.NotifyByCall(ctx, user, alert, *policy)

	case models.ChannelTelegram:
		if d.telegram == nil {
			return d.fail(ctx, rec, policy, "telegram connector is not configured", models.ErrCodeBackendUnavailable)
		}
		err := d.telegram.NotifyUser(ctx, user, alert, *policy)
		var ra *queue.RetryAfterError
		if errors.As(err, &ra) {
			if ra.After <= 0 {
				ra.After = d.telegramRetryDefault
			}
			return ra
		}
		return err

	case models.ChannelSlack:
		return d.deliverChat(ctx, rec, user, alert, *policy)

	default:
		backend := d.registry.Resolve(policy.Channel)
		if backend == nil {
			d.logger.Infof("deliver: messaging backend %q is not available", policy.Channel)
			return d.fail(ctx, rec, policy, "messaging backend not available", models.ErrCodeBackendUnavailable)
		}
		return backend.Notify(ctx, user, alert, *policy)
	}
}

func (d *Dispatcher) deliverChat(ctx context.Context, rec models.LogRecord, user models.User, alert models.Alert, policy models.NotificationPolicy) error {
	if alert.SkipEscalationInChat {
		code := models.ErrCodeChat
		switch alert.SkipEscalationReason {
		case models.SkipReasonRateLimited:
			code = models.ErrCodeChatRateLimit
		case models.SkipReasonChannelArchived:
			code = models.ErrCodeChatArchived
		case models.SkipReasonAccountInactive:
			code = models.ErrCodeChatTokenError
		}
		d.logger.Debugf("deliver: chat escalation for alert %d is skipped, reason: %q", alert.ID, alert.SkipEscalationReason)
		return d.fail(ctx, rec, &policy,
			fmt.Sprintf("skipped escalation in chat, reason: %q", alert.SkipEscalationReason), code)
	}

	if !alert.NotifyInChatEnabled {
		return nil
	}

	org, err := d.store.GetOrganization(ctx, alert.OrganizationID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if errors.Is(err, ErrNotFound) || org.ChatTeamID == nil {
		d.logger.Debugf("deliver: chat notification for alert %d failed, no chat integration", alert.ID)
		return d.fail(ctx, rec, &policy, "chat integration does not exist", models.ErrCodeChatTokenError)
	}

	if rec.PreventPosting {
		d.logger.Debugf("deliver: chat posting for alert %d is prevented", alert.ID)
		return d.fail(ctx, rec, &policy, "prevented from posting in chat", models.ErrCodeChatPostingDisabled)
	}

	msg, err := d.store.GetChatMessage(ctx, alert.ID)
	switch {
	case err == nil:
		if d.chat == nil {
			return d.fail(ctx, rec, &policy, "chat sender is not configured", models.ErrCodeBackendUnavailable)
		}
		return d.chat.SendToThread(ctx, msg, user, alert, policy)
	case errors.Is(err, ErrNotFound):
		// The chat message is created by an independent pipeline; poll for
		// it with a bounded window so the task cannot loop forever.
		if time.Now().Before(rec.CreatedAt.Add(d.chatAwaitWindow)) {
			d.logger.Debugf("deliver: chat message for alert %d does not exist yet, re-checking in %s", alert.ID, d.chatRetryDelay)
			t, err := queue.NewTask(TaskDeliver, DeliverArgs{LogRecordID: rec.ID, UseFallback: rec.UsingFallback})
			if err != nil {
				return err
			}
			return d.scheduler.Schedule(ctx, t, d.chatRetryDelay)
		}
		d.logger.Debugf("deliver: chat message for alert %d still does not exist after %s", alert.ID, d.chatAwaitWindow)
		return d.fail(ctx, rec, &policy, "chat message does not exist", models.ErrCodeChat)
	default:
		return err
	}
}

// fail records a terminal failure for the attempt. The audit trail stays
// complete even for expected failure modes.
func (d *Dispatcher) fail(ctx context.Context, rec models.LogRecord, policy *models.NotificationPolicy, reason string, code models.ErrorCode) error {
	failed := models.LogRecord{
		UserID:    rec.UserID,
		AlertID:   rec.AlertID,
		Type:      models.LogFailed,
		Reason:    reason,
		ErrorCode: code,
	}
	if policy != nil {
		failed.PolicyID = policyID(policy)
		failed.Step = policy.Step
		failed.Channel = policy.Channel
	}
	if _, err := d.store.CreateLogRecord(ctx, failed); err != nil {
		return fmt.Errorf("record delivery failure: %w", err)
	}
	return nil
}
