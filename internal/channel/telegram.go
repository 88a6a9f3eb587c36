package channel

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"stepone/internal/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const telegramSendRetries = 2

// Telegram lets users reach the coach from chat: a plain message becomes a
// PlanRequest with the configured default emotion/intent, and the reply
// message is sent back.
type Telegram struct {
	token          string
	allowFrom      []int64 // allowed user IDs (empty = allow all)
	parseMode      string
	defaultEmotion string
	defaultIntent  string

	bot    *tgbotapi.BotAPI
	relay  PlanHandler
	logger *slog.Logger
}

type TelegramConfig struct {
	Token          string
	AllowFrom      []string // user IDs as strings
	ParseMode      string
	DefaultEmotion string
	DefaultIntent  string
	Relay          PlanHandler
	Logger         *slog.Logger
}

func NewTelegram(cfg TelegramConfig) *Telegram {
	var allowed []int64
	for _, s := range cfg.AllowFrom {
		if id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			allowed = append(allowed, id)
		}
	}
	if cfg.ParseMode == "" {
		cfg.ParseMode = "Markdown"
	}
	if cfg.DefaultEmotion == "" {
		cfg.DefaultEmotion = "neutral"
	}
	if cfg.DefaultIntent == "" {
		cfg.DefaultIntent = "talk"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Telegram{
		token:          cfg.Token,
		allowFrom:      allowed,
		parseMode:      cfg.ParseMode,
		defaultEmotion: cfg.DefaultEmotion,
		defaultIntent:  cfg.DefaultIntent,
		relay:          cfg.Relay,
		logger:         cfg.Logger,
	}
}

func (t *Telegram) Name() string { return "telegram" }

// Start connects to Telegram and polls for updates until ctx is cancelled.
func (t *Telegram) Start(ctx context.Context) error {
	bot, err := tgbotapi.NewBotAPI(t.token)
	if err != nil {
		return fmt.Errorf("telegram bot init: %w", err)
	}
	t.bot = bot
	t.logger.Info("telegram bot connected",
		"username", bot.Self.UserName,
		"id", bot.Self.ID,
	)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := bot.GetUpdatesChan(u)

	t.logger.Info("telegram polling started")

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("telegram channel stopping")
			bot.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			t.handleUpdate(ctx, update)
		}
	}
}

// Stop is a no-op: the bot stops when Start's context is cancelled.
func (t *Telegram) Stop() error {
	return nil
}

func (t *Telegram) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message == nil || update.Message.From == nil || update.Message.Chat == nil {
		return
	}

	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	if !t.isAllowed(userID) {
		t.logger.Warn("unauthorized telegram user",
			"user_id", userID,
			"username", update.Message.From.UserName,
		)
		t.sendMessage(chatID, "⛔ Unauthorized. Your user ID is not in the allow list.")
		return
	}

	text := strings.TrimSpace(update.Message.Text)
	if text == "" {
		return
	}

	if update.Message.IsCommand() {
		t.handleCommand(chatID, update.Message)
		return
	}

	t.logger.Info("telegram message received",
		"user_id", userID,
		"chat_id", chatID,
		"text_len", len(text),
	)

	typing := tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)
	_, _ = t.bot.Send(typing)

	resp := t.relay.Handle(ctx, domain.PlanRequest{
		Text:    text,
		Emotion: t.defaultEmotion,
		Intent:  t.defaultIntent,
	})
	t.sendMessage(chatID, resp.Message)
}

func (t *Telegram) handleCommand(chatID int64, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		t.sendMessage(chatID, "🌿 Hi, I'm StepOne. Tell me how you feel and I'll answer with two warm sentences and one small step.\n\nCommands:\n/status — Bot status\n/help — Show this message")
	case "help":
		t.sendMessage(chatID, "🌿 *StepOne Help*\n\nJust write how your day is going. I reply with a short, warm plan — never pressure, never guilt.\n\nCommands:\n/status — Bot status")
	case "status":
		t.sendMessage(chatID, fmt.Sprintf("🟢 StepOne\n\nBot: @%s\nYour ID: %d\nChat ID: %d", t.bot.Self.UserName, msg.From.ID, chatID))
	default:
		t.sendMessage(chatID, "Unknown command. Type /help for available commands.")
	}
}

func (t *Telegram) isAllowed(userID int64) bool {
	if len(t.allowFrom) == 0 {
		return true // empty list = allow all
	}
	for _, id := range t.allowFrom {
		if id == userID {
			return true
		}
	}
	return false
}

// sendMessage sends with the configured parse mode, falling back to plain
// text on parse errors and backing off on transient failures.
func (t *Telegram) sendMessage(chatID int64, text string) {
	for attempt := 0; attempt <= telegramSendRetries; attempt++ {
		msg := tgbotapi.NewMessage(chatID, text)
		if attempt == 0 && t.parseMode != "" {
			msg.ParseMode = t.parseMode
		}

		_, err := t.bot.Send(msg)
		if err == nil {
			return
		}

		errStr := err.Error()

		if attempt == 0 && msg.ParseMode != "" && strings.Contains(errStr, "can't parse entities") {
			t.logger.Warn("telegram markdown parse error, retrying as plain text",
				"err", err, "parseMode", t.parseMode,
			)
			continue
		}

		if attempt < telegramSendRetries {
			backoff := time.Duration(attempt+1) * time.Second
			t.logger.Warn("telegram send error, retrying", "err", err, "backoff", backoff)
			time.Sleep(backoff)
			continue
		}

		t.logger.Error("telegram send failed", "err", err, "attempts", attempt+1)
	}
}
