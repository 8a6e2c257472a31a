package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Debug bool
	DB    struct {
		DSN string
	}
	Kafka struct {
		Broker      string
		TasksTopic  string
		AlertsTopic string
		EventsTopic string
		GroupID     string
	}
	Escalation struct {
		// BaseDelay is added between every pair of policy steps.
		BaseDelay       time.Duration
		FallbackChannel string
		ChatAwaitWindow time.Duration
		ChatRetryDelay  time.Duration
	}
	Twilio struct {
		AccountSID string
		AuthToken  string
		FromNumber string
	}
	Telegram struct {
		BotToken      string
		RatePerSecond int
	}
	Slack struct {
		BotToken string
	}
	Email struct {
		SMTPServer string
		SMTPPort   int
		Username   string
		Password   string
		FromName   string
	}
	API struct {
		Port     string
		BasePath string
	}
	Logging struct {
		Dir   string
		Level string
	}
}

// Load reads environment variables, applies defaults, and returns a Config.
func Load() (Config, error) {
	// Load .env if present
	_ = godotenv.Load()

	var cfg Config

	cfg.Debug = os.Getenv("DEBUG") == "true"
	cfg.DB.DSN = os.Getenv("DB_DSN")

	cfg.Kafka.Broker = os.Getenv("KAFKA_BROKER")
	cfg.Kafka.TasksTopic = os.Getenv("KAFKA_TASKS_TOPIC")
	cfg.Kafka.AlertsTopic = os.Getenv("KAFKA_ALERTS_TOPIC")
	cfg.Kafka.EventsTopic = os.Getenv("KAFKA_EVENTS_TOPIC")
	cfg.Kafka.GroupID = os.Getenv("KAFKA_GROUP_ID")

	if d, err := strconv.Atoi(os.Getenv("ESCALATION_BASE_DELAY")); err == nil {
		cfg.Escalation.BaseDelay = time.Duration(d) * time.Second
	}
	cfg.Escalation.FallbackChannel = os.Getenv("ESCALATION_FALLBACK_CHANNEL")
	if d, err := strconv.Atoi(os.Getenv("ESCALATION_CHAT_AWAIT_WINDOW")); err == nil {
		cfg.Escalation.ChatAwaitWindow = time.Duration(d) * time.Second
	}
	if d, err := strconv.Atoi(os.Getenv("ESCALATION_CHAT_RETRY_DELAY")); err == nil {
		cfg.Escalation.ChatRetryDelay = time.Duration(d) * time.Second
	}

	cfg.Twilio.AccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	cfg.Twilio.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	cfg.Twilio.FromNumber = os.Getenv("TWILIO_FROM_NUMBER")

	cfg.Telegram.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	if r, err := strconv.Atoi(os.Getenv("TELEGRAM_RATE_PER_SECOND")); err == nil {
		cfg.Telegram.RatePerSecond = r
	}

	cfg.Slack.BotToken = os.Getenv("SLACK_BOT_TOKEN")

	cfg.Email.SMTPServer = os.Getenv("EMAIL_SMTP_SERVER")
	if p, err := strconv.Atoi(os.Getenv("EMAIL_SMTP_PORT")); err == nil {
		cfg.Email.SMTPPort = p
	}
	cfg.Email.Username = os.Getenv("EMAIL_USERNAME")
	cfg.Email.Password = os.Getenv("EMAIL_PASSWORD")
	cfg.Email.FromName = os.Getenv("EMAIL_FROM_NAME")

	cfg.API.Port = os.Getenv("API_PORT")
	cfg.API.BasePath = os.Getenv("API_BASE_PATH")

	cfg.Logging.Dir = os.Getenv("LOG_DIR")
	cfg.Logging.Level = os.Getenv("LOG_LEVEL")

	// Validate required settings
	missing := []string{}
	if cfg.DB.DSN == "" {
		missing = append(missing, "DB_DSN")
	}
	if cfg.Kafka.Broker == "" {
		missing = append(missing, "KAFKA_BROKER")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required configurations: %v", missing)
	}

	// Apply defaults
	if cfg.Kafka.TasksTopic == "" {
		cfg.Kafka.TasksTopic = "escalation_tasks"
	}
	if cfg.Kafka.AlertsTopic == "" {
		cfg.Kafka.AlertsTopic = "alert_escalations"
	}
	if cfg.Kafka.EventsTopic == "" {
		cfg.Kafka.EventsTopic = "notification_events"
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = "escalation-service"
	}
	if cfg.Escalation.BaseDelay == 0 {
		cfg.Escalation.BaseDelay = 5 * time.Second
	}
	if cfg.Escalation.FallbackChannel == "" {
		cfg.Escalation.FallbackChannel = "sms"
	}
	if cfg.Escalation.ChatAwaitWindow == 0 {
		cfg.Escalation.ChatAwaitWindow = time.Hour
	}
	if cfg.Escalation.ChatRetryDelay == 0 {
		cfg.Escalation.ChatRetryDelay = 60 * time.Second
	}
	if cfg.Telegram.RatePerSecond == 0 {
		cfg.Telegram.RatePerSecond = 20
	}
	if cfg.API.Port == "" {
		cfg.API.Port = ":8080"
	}
	if cfg.API.BasePath == "" {
		cfg.API.BasePath = "/api/v0"
	}
	if cfg.Logging.Dir == "" {
		cfg.Logging.Dir = "logs"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	return cfg, nil
}
