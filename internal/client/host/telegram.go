package host

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramConfig describes the bot used to reach the user.
type TelegramConfig struct {
	Token  string
	ChatID int64
	// Endpoint overrides tgbotapi.APIEndpoint, e.g. for a local Bot API server.
	Endpoint string
}

// sender is the part of *tgbotapi.BotAPI the host uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram delivers notifications and downloads through a bot chat.
type Telegram struct {
	identity

	bot      sender
	chatID   int64
	fallback *Terminal
}

// NewTelegram connects the bot (a getMe round-trip) and returns a host that
// talks to chat cfg.ChatID. Confirmations are asked on fallback.
func NewTelegram(cfg TelegramConfig, httpClient *http.Client, fallback *Terminal, user *TelegramUser) (*Telegram, error) {
	if cfg.Token == "" {
		return nil, errors.New("telegram host: bot token is required")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram host: chat id is required")
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Token, endpoint, httpClient)
	if err != nil {
		return nil, fmt.Errorf("telegram host: %w", err)
	}
	return newTelegram(bot, cfg.ChatID, fallback, user), nil
}

func newTelegram(bot sender, chatID int64, fallback *Terminal, user *TelegramUser) *Telegram {
	return &Telegram{identity: identity{user: user}, bot: bot, chatID: chatID, fallback: fallback}
}

func (t *Telegram) Notify(ctx context.Context, msg string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := t.bot.Send(tgbotapi.NewMessage(t.chatID, msg)); err != nil {
		return fmt.Errorf("telegram notify: %w", err)
	}
	return nil
}

// Confirm is asked on the terminal; a bot chat has no synchronous prompt.
func (t *Telegram) Confirm(ctx context.Context, msg string) (bool, error) {
	if t.fallback == nil {
		return false, nil
	}
	return t.fallback.Confirm(ctx, msg)
}

func (t *Telegram) Download(ctx context.Context, filename string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := filepath.Base(filename)
	doc := tgbotapi.NewDocument(t.chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	doc.Caption = name

	m, err := t.bot.Send(doc)
	if err != nil {
		return "", fmt.Errorf("telegram send document: %w", err)
	}
	return fmt.Sprintf("telegram:%d/%d", t.chatID, m.MessageID), nil
}
