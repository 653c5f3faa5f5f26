package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/jihopark/mathshorts/internal/approval"
	"github.com/jihopark/mathshorts/internal/config"
)

// Telegram sends approval requests to a Telegram chat.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegram connects the Telegram bot.
func NewTelegram(cfg config.TelegramConfig) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram init failed: %w", err)
	}
	if cfg.ChatID == 0 {
		return nil, fmt.Errorf("telegram chat_id is required")
	}
	return &Telegram{bot: bot, chatID: cfg.ChatID}, nil
}

// NotifySubmission sends the rendered approval request message.
func (t *Telegram) NotifySubmission(ctx context.Context, ticket approval.Ticket) error {
	msg := tgbotapi.NewMessage(t.chatID, RenderSubmission(ticket))
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
