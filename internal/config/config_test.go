package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost:5432/escalation")
	t.Setenv("KAFKA_BROKER", "localhost:9092")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.Debug)
	assert.Equal(t, "escalation_tasks", cfg.Kafka.TasksTopic)
	assert.Equal(t, "alert_escalations", cfg.Kafka.AlertsTopic)
	assert.Equal(t, "notification_events", cfg.Kafka.EventsTopic)
	assert.Equal(t, "escalation-service", cfg.Kafka.GroupID)
	assert.Equal(t, 5*time.Second, cfg.Escalation.BaseDelay)
	assert.Equal(t, "sms", cfg.Escalation.FallbackChannel)
	assert.Equal(t, time.Hour, cfg.Escalation.ChatAwaitWindow)
	assert.Equal(t, 60*time.Second, cfg.Escalation.ChatRetryDelay)
	assert.Equal(t, 20, cfg.Telegram.RatePerSecond)
	assert.Equal(t, ":8080", cfg.API.Port)
	assert.Equal(t, "/api/v0", cfg.API.BasePath)
	assert.Equal(t, "logs", cfg.Logging.Dir)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost:5432/escalation")
	t.Setenv("KAFKA_BROKER", "localhost:9092")
	t.Setenv("DEBUG", "true")
	t.Setenv("ESCALATION_BASE_DELAY", "10")
	t.Setenv("ESCALATION_FALLBACK_CHANNEL", "phone_call")
	t.Setenv("ESCALATION_CHAT_AWAIT_WINDOW", "1800")
	t.Setenv("ESCALATION_CHAT_RETRY_DELAY", "30")
	t.Setenv("TELEGRAM_RATE_PER_SECOND", "5")
	t.Setenv("API_PORT", ":9000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Debug)
	assert.Equal(t, 10*time.Second, cfg.Escalation.BaseDelay)
	assert.Equal(t, "phone_call", cfg.Escalation.FallbackChannel)
	assert.Equal(t, 30*time.Minute, cfg.Escalation.ChatAwaitWindow)
	assert.Equal(t, 30*time.Second, cfg.Escalation.ChatRetryDelay)
	assert.Equal(t, 5, cfg.Telegram.RatePerSecond)
	assert.Equal(t, ":9000", cfg.API.Port)
}

func TestLoadMissingRequired(t *testing.T) {
	t.Setenv("DB_DSN", "")
	t.Setenv("KAFKA_BROKER", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_DSN")
	assert.Contains(t, err.Error(), "KAFKA_BROKER")
}
