package telegram_bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"supportdesk/internal/config"
	"supportdesk/internal/handler"
	"supportdesk/internal/models"
)

// Bot relays Telegram messages into the chat dispatcher and carries trainer
// notifications for unanswered messages. Messages must start with "chatbot";
// the rest of the text is forwarded as the user's message.
type Bot struct {
	api    *tgbotapi.BotAPI
	engine handler.MessageDispatcher
	logger *zap.Logger
	cfg    *config.Config
}

// NewBot creates a new Telegram bot instance. Returns (nil, nil) when the bot
// is disabled in config.
func NewBot(cfg *config.Config, engine handler.MessageDispatcher, logger *zap.Logger) (*Bot, error) {
	if !cfg.Telegram.Enabled || cfg.Telegram.BotToken == "" {
		logger.Info("Telegram bot is disabled (telegram.enabled=false or token is empty)")
		return nil, nil
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot API: %w", err)
	}

	logger.Info("Telegram bot authorized", zap.String("username", botAPI.Self.UserName))

	return &Bot{
		api:    botAPI,
		engine: engine,
		logger: logger,
		cfg:    cfg,
	}, nil
}

// Start begins listening for updates from Telegram.
func (b *Bot) Start(ctx context.Context) error {
	if b == nil {
		return nil // Bot is disabled
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	b.logger.Info("Telegram bot started, waiting for updates...")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Telegram bot shutting down...")
			b.api.StopReceivingUpdates()
			return nil
		case update := <-updates:
			if update.Message != nil {
				b.handleMessage(ctx, update.Message)
			}
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if message.From == nil || message.From.IsBot {
		return
	}

	text := strings.TrimSpace(message.Text)
	if !strings.HasPrefix(strings.ToLower(text), "chatbot") {
		return
	}
	userMessage := strings.TrimSpace(text[len("chatbot"):])

	userID := strconv.FormatInt(message.From.ID, 10)
	reply, err := b.engine.HandleMessage(ctx, userID, userMessage, nil, nil)
	if err != nil {
		b.logger.Error("Failed to handle relayed message",
			zap.String("user_id", userID),
			zap.Error(err))
		b.sendMessage(message.Chat.ID, "Sorry, I couldn't process your request right now.")
		return
	}

	b.sendMessage(message.Chat.ID, reply.Response)
}

// NotifyTrainer forwards an unknown-message record to the configured trainer
// chat. The notifier consumer calls this for every record on the topic.
func (b *Bot) NotifyTrainer(record models.UnknownMessage) error {
	if b == nil || b.cfg.Telegram.TrainerChatID == 0 {
		return nil
	}

	text := fmt.Sprintf("New unknown message\nUser: %s\nMessage: %s\nTime: %s",
		record.UserID, record.Message, record.Timestamp.Format("2006-01-02 15:04:05 UTC"))
	return b.sendMessage(b.cfg.Telegram.TrainerChatID, text)
}

func (b *Bot) sendMessage(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send Telegram message", zap.Int64("chat_id", chatID), zap.Error(err))
		return err
	}
	return nil
}
