package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"

	"escalation-service/internal/api"
	"escalation-service/internal/config"
	"escalation-service/internal/db"
	"escalation-service/internal/escalation"
	"escalation-service/internal/events"
	"escalation-service/internal/kafka"
	"escalation-service/internal/logging"
	"escalation-service/internal/metrics"
	"escalation-service/internal/models"
	"escalation-service/internal/providers"
	"escalation-service/internal/queue"
)

func main() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	// Connect to database
	store, err := db.New(cfg.DB.DSN)
	if err != nil {
		logger.Errorf("Failed to connect to database: %v", err)
		log.Fatalf("Database connection failed: %v", err)
	}
	defer store.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Task queue
	brokers := []string{cfg.Kafka.Broker}
	producer := queue.NewProducer(brokers, cfg.Kafka.TasksTopic, logger)
	defer producer.Close()
	maxRetries := -1 // unbounded in production
	if cfg.Debug {
		maxRetries = 1
	}
	consumer := queue.NewConsumer(brokers, cfg.Kafka.TasksTopic, cfg.Kafka.GroupID, producer, logger, maxRetries)
	defer consumer.Close()

	// Delivery channels
	var phone escalation.PhoneBackend
	if cfg.Twilio.AccountSID != "" {
		phone = providers.NewTwilioPhone(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.FromNumber, logger)
	}
	var telegram escalation.TelegramConnector
	if cfg.Telegram.BotToken != "" {
		tg, err := providers.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.RatePerSecond, logger)
		if err != nil {
			log.Fatalf("Telegram init failed: %v", err)
		}
		telegram = tg
	}
	var chat escalation.ChatSender
	if cfg.Slack.BotToken != "" {
		chat = providers.NewSlackChat(cfg.Slack.BotToken, logger)
	}
	registry := escalation.NewRegistry()
	if cfg.Email.SMTPServer != "" {
		registry.Register(models.ChannelEmail, providers.NewEmail(cfg))
	}

	// Engine
	coord := escalation.NewCoordinator(store, producer, logger, cfg.Escalation.BaseDelay, cfg.Escalation.FallbackChannel)
	disp := escalation.NewDispatcher(store, producer, registry, phone, telegram, chat, logger,
		cfg.Escalation.FallbackChannel, cfg.Escalation.ChatAwaitWindow, cfg.Escalation.ChatRetryDelay)

	hub := events.NewHub(logger)
	emitter := events.NewEmitter(brokers, cfg.Kafka.EventsTopic, hub, logger)
	defer emitter.Close()

	escalation.RegisterHandlers(consumer, coord, disp,
		escalation.NewSignalHandler(store, emitter, logger),
		escalation.NewMetricsHandler(metrics.NewRecorder()))

	var wg sync.WaitGroup
	consumer.Start(ctx, &wg)

	// Alert intake
	alerts := kafka.NewConsumer(brokers, cfg.Kafka.AlertsTopic, cfg.Kafka.GroupID, coord, logger)
	defer alerts.Close()
	alerts.Start(ctx, &wg)

	// API server
	router := api.NewRouter(store, coord, hub, logger, cfg)
	server := &http.Server{Addr: cfg.API.Port, Handler: router}
	go func() {
		logger.Infof("Starting API server on %s", cfg.API.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("API server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")
	_ = server.Shutdown(context.Background())
	wg.Wait()
	logger.Info("Service stopped")
}
