package models

import "time"

// LogRecordType classifies an escalation log entry.
type LogRecordType string

const (
	LogTriggered LogRecordType = "triggered"
	LogFinished  LogRecordType = "finished"
	LogFailed    LogRecordType = "failed"
)

// ErrorCode refines failed log records. Zero means no error code recorded.
type ErrorCode int

const (
	ErrCodeNone ErrorCode = iota
	ErrCodeForbidden
	ErrCodeChat
	ErrCodeChatRateLimit
	ErrCodeChatArchived
	ErrCodeChatTokenError
	ErrCodeChatPostingDisabled
	ErrCodeBackendUnavailable
)

// LogRecord is one immutable entry of the escalation audit log. Records are
// append-only; every step outcome of a chain produces exactly one.
type LogRecord struct {
	ID             int64         `json:"id"`
	UserID         int64         `json:"user_id"`
	AlertID        int64         `json:"alert_id"`
	Type           LogRecordType `json:"type"`
	PolicyID       *int64        `json:"policy_id,omitempty"`
	Step           PolicyStep    `json:"step,omitempty"`
	Channel        string        `json:"channel,omitempty"`
	Reason         string        `json:"reason,omitempty"`
	ErrorCode      ErrorCode     `json:"error_code,omitempty"`
	UsingFallback  bool          `json:"using_fallback,omitempty"`
	PreventPosting bool          `json:"prevent_posting,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}
