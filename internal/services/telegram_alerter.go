package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const telegramTimeout = 5 * time.Second

// TelegramAlerter posts delivery alerts to an operations chat.
type TelegramAlerter struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegramAlerter connects to the Bot API (the bot token is checked with getMe).
// An empty endpoint means the public Telegram API.
func NewTelegramAlerter(botToken string, chatID int64, endpoint string) (*TelegramAlerter, error) {
	if botToken == "" || chatID == 0 {
		return nil, errors.New("telegram alerter: bot token and chat id are required")
	}
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	bot, err := tgbotapi.NewBotAPIWithClient(botToken, endpoint, &http.Client{Timeout: telegramTimeout})
	if err != nil {
		return nil, err
	}
	return &TelegramAlerter{bot: bot, chatID: chatID}, nil
}

func (a *TelegramAlerter) Alert(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(a.chatID, text)
	msg.DisableWebPagePreview = true
	_, err := a.bot.Send(msg)
	return err
}
