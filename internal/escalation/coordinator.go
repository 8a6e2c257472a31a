package escalation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"escalation-service/internal/models"
	"escalation-service/internal/queue"
)

// Coordinator walks a user's notification policy for an alert, one task per
// step. Each step runs in a single transaction covering the lease lock and
// log record writes; follow-up work (delivery, the next step, signals,
// metrics) is scheduled only after that transaction commits.
type Coordinator struct {
	store     Store
	scheduler queue.Scheduler
	logger    *logrus.Logger

	baseDelay       time.Duration
	fallbackChannel string
}

func NewCoordinator(store Store, scheduler queue.Scheduler, logger *logrus.Logger, baseDelay time.Duration, fallbackChannel string) *Coordinator {
	return &Coordinator{
		store:           store,
		scheduler:       scheduler,
		logger:          logger,
		baseDelay:       baseDelay,
		fallbackChannel: fallbackChannel,
	}
}

// Start enqueues the first advance step of a chain for (user, alert).
func (c *Coordinator) Start(ctx context.Context, args AdvanceArgs) error {
	t, err := queue.NewTask(TaskAdvance, args)
	if err != nil {
		return err
	}
	return c.scheduler.Schedule(ctx, t, 0)
}

// HandleAdvance is the queue handler for advance tasks.
func (c *Coordinator) HandleAdvance(ctx context.Context, t queue.Task) error {
	var args AdvanceArgs
	if err := json.Unmarshal(t.Payload, &args); err != nil {
		return fmt.Errorf("decode advance args: %w", err)
	}
	return c.advance(ctx, t, args)
}

func (c *Coordinator) advance(ctx context.Context, task queue.Task, args AdvanceArgs) error {
	alert, err := c.store.GetAlert(ctx, args.AlertID)
	if errors.Is(err, ErrNotFound) {
		c.logger.Infof("advance: alert %d doesn't exist", args.AlertID)
		return nil
	}
	if err != nil {
		return err
	}

	// Post-commit side effects collected during the transaction.
	var after []func()

	err = c.store.InTx(ctx, func(s Store) error {
		user, err := s.GetUser(ctx, args.UserID)
		if errors.Is(err, ErrNotFound) {
			c.logger.Infof("advance: user %d doesn't exist", args.UserID)
			return nil
		}
		if err != nil {
			return err
		}

		if !user.NotificationsAllowed {
			c.logger.Infof("advance: user %d notification is not allowed", user.ID)
			_, err := s.CreateLogRecord(ctx, models.LogRecord{
				UserID:    user.ID,
				AlertID:   alert.ID,
				Type:      models.LogFailed,
				Reason:    "notification is not allowed for user",
				ErrorCode: models.ErrCodeForbidden,
			})
			return err
		}

		lease, err := s.LockLease(ctx, user.ID, alert.ID)
		if err != nil {
			return err
		}

		usingFallback := false
		var current *models.NotificationPolicy
		reason := args.Reason

		if args.PreviousPolicyID == nil {
			policies, err := s.GetPolicies(ctx, user.ID, args.Important)
			if err != nil {
				return err
			}
			if len(policies) == 0 && c.fallbackChannel != "" {
				policies = []models.NotificationPolicy{DefaultFallbackPolicy(user, c.fallbackChannel)}
				usingFallback = true
			}
			if len(policies) == 0 {
				c.logger.Infof("advance: no notification policies for user=%d alert=%d important=%t", user.ID, alert.ID, args.Important)
				return nil
			}
			current = &policies[0]

			// Summarize the distinct upcoming notify channels for the
			// first log line, first-seen order preserved.
			var channels []string
			seen := make(map[string]bool)
			for _, p := range policies {
				if p.Step == models.StepNotify && !seen[p.Channel] {
					seen[p.Channel] = true
					channels = append(channels, models.ChannelLabel(p.Channel))
				}
			}
			if reason != "" {
				reason = "Reason: " + reason + "\n"
			}
			if len(channels) > 0 {
				reason += "Further notification plan: " + strings.Join(channels, ", ")
			}
		} else {
			if lease.ActiveTaskID == nil || *lease.ActiveTaskID != task.ID {
				c.logger.Infof("advance: active task id mismatch for user=%d alert=%d, duplicate or non-active escalation", user.ID, alert.ID)
				return nil
			}
			prev, err := s.GetPolicy(ctx, *args.PreviousPolicyID)
			if errors.Is(err, ErrNotFound) {
				c.logger.Infof("advance: notification policy %d has been deleted", *args.PreviousPolicyID)
				return nil
			}
			if err != nil {
				return err
			}
			if prev.UserID != user.ID {
				// The referenced step migrated to another user's policy
				// set; re-resolve by position instead.
				prev, err = s.PolicyByOrder(ctx, user.ID, args.Important, prev.Order)
				if errors.Is(err, ErrNotFound) {
					c.logger.Infof("advance: no policy at order %d for user %d", prev.Order, user.ID)
					return nil
				}
				if err != nil {
					return err
				}
			}
			current, err = s.NextPolicy(ctx, prev)
			if err != nil {
				return err
			}
			reason = ""
		}

		countdown := time.Duration(0)
		stop := false
		var rec *models.LogRecord

		if current == nil {
			stop = true
			rec = c.finishedRecord(user, alert, nil, usingFallback, args.PreventPosting)
		} else {
			if (alert.Acknowledged && !args.NotifyEvenAcknowledged) || alert.Resolved || alert.WipedAt != nil || alert.RootAlertID != nil {
				c.logger.Infof("advance: alert %d acknowledged, resolved, attached or wiped", alert.ID)
				return nil
			}
			if alert.Silenced && !args.NotifyAnyway {
				c.logger.Infof("advance: skip notification of user %d because alert %d is silenced", user.ID, alert.ID)
				return nil
			}

			switch current.Step {
			case models.StepWait:
				countdown = current.WaitDelay
				rec = &models.LogRecord{
					UserID:         user.ID,
					AlertID:        alert.ID,
					Type:           models.LogTriggered,
					PolicyID:       policyID(current),
					Step:           current.Step,
					UsingFallback:  usingFallback,
					PreventPosting: args.PreventPosting,
				}
				c.logger.Infof("advance: waiting %s to notify user %d", countdown, user.ID)
			case models.StepNotify:
				if current.Channel == models.ChannelSlack && !alert.NotifyInChatEnabled {
					rec = &models.LogRecord{
						UserID:         user.ID,
						AlertID:        alert.ID,
						Type:           models.LogFailed,
						PolicyID:       policyID(current),
						Step:           current.Step,
						Channel:        current.Channel,
						Reason:         "alert chat notifications are disabled",
						ErrorCode:      models.ErrCodeChatPostingDisabled,
						UsingFallback:  usingFallback,
						PreventPosting: args.PreventPosting,
					}
				} else {
					rec = &models.LogRecord{
						UserID:         user.ID,
						AlertID:        alert.ID,
						Type:           models.LogTriggered,
						PolicyID:       policyID(current),
						Step:           current.Step,
						Channel:        current.Channel,
						Reason:         reason,
						UsingFallback:  usingFallback,
						PreventPosting: args.PreventPosting,
					}
				}
			}
		}

		if rec != nil {
			// First triggered record ever for this pair refreshes the
			// external per-user metric, once.
			if rec.Type == models.LogTriggered && args.PreviousPolicyID == nil {
				triggered, err := s.HasTriggered(ctx, user.ID, alert.ID)
				if err != nil {
					return err
				}
				if !triggered {
					after = append(after, c.deferTask(ctx, TaskMetrics, MetricsArgs{UserID: user.ID}, 0, ""))
				}
			}

			saved, err := s.CreateLogRecord(ctx, *rec)
			if err != nil {
				return err
			}
			rec = &saved

			// Suppress the downstream signal on task retries so a partially
			// executed step cannot emit twice.
			if task.Retries == 0 {
				after = append(after, c.deferTask(ctx, TaskSignal, SignalArgs{LogRecordID: saved.ID}, 0, ""))
			}
		}

		switch {
		case usingFallback:
			// The fallback is a single step: deliver it, close the chain.
			if rec != nil {
				after = append(after, c.deferTask(ctx, TaskDeliver, DeliverArgs{LogRecordID: rec.ID, UseFallback: true}, 0, ""))
			}
			if _, err := s.CreateLogRecord(ctx, *c.finishedRecord(user, alert, nil, usingFallback, args.PreventPosting)); err != nil {
				return err
			}
			return s.SetLeaseToken(ctx, user.ID, alert.ID, nil)
		case !stop:
			if rec != nil && current.Step != models.StepWait {
				after = append(after, c.deferTask(ctx, TaskDeliver, DeliverArgs{LogRecordID: rec.ID, UseFallback: false}, 0, ""))
			}
			delay := c.baseDelay + countdown
			taskID := uuid.NewString()
			if err := s.SetLeaseToken(ctx, user.ID, alert.ID, &taskID); err != nil {
				return err
			}
			nextArgs := args
			nextArgs.PreviousPolicyID = policyID(current)
			nextArgs.Reason = reason
			after = append(after, c.deferTask(ctx, TaskAdvance, nextArgs, delay, taskID))
			return nil
		default:
			return s.SetLeaseToken(ctx, user.ID, alert.ID, nil)
		}
	})
	if err != nil {
		return err
	}

	for _, fn := range after {
		fn()
	}
	return nil
}

func (c *Coordinator) finishedRecord(user models.User, alert models.Alert, policy *models.NotificationPolicy, usingFallback, preventPosting bool) *models.LogRecord {
	return &models.LogRecord{
		UserID:         user.ID,
		AlertID:        alert.ID,
		Type:           models.LogFinished,
		PolicyID:       policyID(policy),
		UsingFallback:  usingFallback,
		PreventPosting: preventPosting,
	}
}

// deferTask builds a task now (so its ID can be persisted as a lease token
// inside the transaction) and returns the post-commit schedule call.
func (c *Coordinator) deferTask(ctx context.Context, taskType string, payload any, countdown time.Duration, taskID string) func() {
	t, err := queue.NewTask(taskType, payload)
	if err != nil {
		return func() { c.logger.Errorf("advance: build %s task failed: %v", taskType, err) }
	}
	if taskID != "" {
		t.ID = taskID
	}
	return func() {
		if err := c.scheduler.Schedule(ctx, t, countdown); err != nil {
			c.logger.Errorf("advance: schedule %s task failed: %v", taskType, err)
		}
	}
}

func policyID(p *models.NotificationPolicy) *int64 {
	if p == nil || p.ID == 0 {
		return nil
	}
	id := p.ID
	return &id
}
