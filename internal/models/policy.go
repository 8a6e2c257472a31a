package models

import "time"

// PolicyStep is the kind of a notification policy step.
type PolicyStep string

const (
	StepWait   PolicyStep = "wait"
	StepNotify PolicyStep = "notify"
)

// Delivery channel identifiers. Anything outside this list is resolved
// dynamically through the messaging backend registry.
const (
	ChannelSMS       = "sms"
	ChannelPhoneCall = "phone_call"
	ChannelTelegram  = "telegram"
	ChannelSlack     = "slack"
	ChannelEmail     = "email"
)

var channelLabels = map[string]string{
	ChannelSMS:       "SMS",
	ChannelPhoneCall: "Phone call",
	ChannelTelegram:  "Telegram",
	ChannelSlack:     "Slack",
	ChannelEmail:     "Email",
}

// ChannelLabel returns a human-readable name for a channel identifier,
// falling back to the identifier itself for dynamically registered backends.
func ChannelLabel(channel string) string {
	if label, ok := channelLabels[channel]; ok {
		return label
	}
	return channel
}

// NotificationPolicy is one ordered step of a user's escalation policy.
// Steps are immutable once created; ordering within (user, important) is
// given by Order.
type NotificationPolicy struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	Important bool       `json:"important"`
	Order     int        `json:"order"`
	Step      PolicyStep `json:"step"`
	// WaitDelay applies to wait steps only; zero means no extra delay.
	WaitDelay time.Duration `json:"wait_delay"`
	// Channel applies to notify steps only.
	Channel   string    `json:"channel,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
