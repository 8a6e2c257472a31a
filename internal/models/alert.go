package models

import "time"

// SkipReason explains why chat-ops escalation was suppressed for an alert.
type SkipReason int

const (
	SkipReasonNone SkipReason = iota
	SkipReasonRateLimited
	SkipReasonChannelArchived
	SkipReasonAccountInactive
)

func (r SkipReason) String() string {
	switch r {
	case SkipReasonRateLimited:
		return "rate limited"
	case SkipReasonChannelArchived:
		return "channel archived"
	case SkipReasonAccountInactive:
		return "account inactive"
	default:
		return "none"
	}
}

// Alert is the escalation subject. Acknowledged, Resolved, WipedAt and
// RootAlertID gate the chain: a chain silently stops when any of them makes
// further notification pointless. RootAlertID is set when the alert has been
// attached to another alert as a duplicate.
type Alert struct {
	ID                   int64      `json:"id"`
	OrganizationID       int64      `json:"organization_id"`
	Title                string     `json:"title"`
	Acknowledged         bool       `json:"acknowledged"`
	Resolved             bool       `json:"resolved"`
	WipedAt              *time.Time `json:"wiped_at,omitempty"`
	Silenced             bool       `json:"silenced"`
	NotifyInChatEnabled  bool       `json:"notify_in_chat_enabled"`
	SkipEscalationInChat bool       `json:"skip_escalation_in_chat"`
	SkipEscalationReason SkipReason `json:"skip_escalation_reason"`
	RootAlertID          *int64     `json:"root_alert_id,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
}

// ChatMessage points at the chat-ops message posted for an alert. Personal
// chat notifications are delivered into its thread.
type ChatMessage struct {
	ID        int64  `json:"id"`
	AlertID   int64  `json:"alert_id"`
	ChannelID string `json:"channel_id"`
	Timestamp string `json:"message_ts"`
}
