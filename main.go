package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/zap"

	"supportdesk/internal/bot_engine"
	"supportdesk/internal/config"
	"supportdesk/internal/geocoder_client"
	"supportdesk/internal/notifier"
	"supportdesk/internal/repository"
	"supportdesk/internal/server"
	"supportdesk/internal/session"
	"supportdesk/internal/telegram_bot"
	"supportdesk/internal/training"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err) // Should not happen in development
	}
	defer func() {
		_ = logger.Sync() // Flushes buffer, if any
	}()
	authLog := logrus.New()

	// Load configuration
	cfgPath := "configs/config.yml"
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// Database connection
	db, err := repository.NewPostgresDB(cfg.Database.URL, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	repository.MigrateDB(db, logger)

	// Training data and conversation state
	trainingStore := training.NewStore(cfg.Bot.TrainingDataFile, logger)
	sessions, err := session.NewStore(
		time.Duration(cfg.Bot.SessionTTLMinutes)*time.Minute,
		time.Duration(cfg.Bot.DedupTTLHours)*time.Hour,
		cfg.Bot.DedupScope,
		logger,
	)
	if err != nil {
		logger.Fatal("Failed to create session store", zap.Error(err))
	}

	ticketRepo := repository.NewTicketRepository(db, logger)
	billingRepo := repository.NewBillingRepository(db, logger)

	geocoder := geocoder_client.NewClient(cfg.Geocoder.URL, cfg.Geocoder.APIKey)

	// Unknown-message notification side-channel (optional)
	var producer *notifier.Producer
	if cfg.Notifier.Enabled {
		producer = notifier.NewProducer(cfg.Notifier.KafkaBrokers, cfg.Notifier.UnknownMessageTopic, logger)
		defer producer.Close()
		logger.Info("Unknown-message notifier enabled", zap.String("topic", cfg.Notifier.UnknownMessageTopic))
	}

	engine := bot_engine.NewEngine(
		trainingStore,
		sessions,
		ticketRepo,
		billingRepo,
		geocoder,
		producer,
		logger,
		time.Duration(cfg.Bot.GeocodeTimeoutSeconds)*time.Second,
	)

	// Context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Telegram shim: relays chat messages and carries trainer notifications
	bot, err := telegram_bot.NewBot(cfg, engine, logger)
	if err != nil {
		logger.Warn("Failed to initialize Telegram bot, continuing without it", zap.Error(err))
		bot = nil
	}
	if bot != nil {
		go func() {
			if err := bot.Start(ctx); err != nil {
				logger.Error("Telegram bot failed", zap.Error(err))
			}
		}()

		if cfg.Notifier.Enabled {
			consumer := notifier.NewConsumer(cfg.Notifier.KafkaBrokers, cfg.Notifier.UnknownMessageTopic,
				cfg.Notifier.ConsumerGroup, bot, logger)
			defer consumer.Close()
			go consumer.Run(ctx)
		}
	}

	// Initialize and run the server
	srv := server.NewServer(db, engine, trainingStore, logger, authLog)
	srv.Run(cfg.Server.Port)

	<-ctx.Done()
	logger.Info("Application stopped.")
}
