// Package notify sends operator notifications. Delivery is best effort: failures are
// logged and counted, never returned.
package notify

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/zcheck/blogpipe/pkg/httpx"
	"github.com/zcheck/blogpipe/pkg/logger"
	"github.com/zcheck/blogpipe/pkg/metrics"
	"go.uber.org/zap"
)

const DefaultTelegramAPI = "https://api.telegram.org"

// Notifier delivers one HTML formatted message.
type Notifier interface {
	Notify(ctx context.Context, message string)
}

type TelegramConfig struct {
	BotToken   string
	ChatID     string
	APIBase    string
	HTTPClient *http.Client
}

type Telegram struct {
	cfg    TelegramConfig
	client *resty.Client
}

// NewTelegram returns a Nop notifier when the bot token or chat id is missing.
func NewTelegram(cfg TelegramConfig) Notifier {
	if cfg.BotToken == "" || cfg.ChatID == "" {
		logger.Warn("telegram not configured, notifications disabled")
		return Nop{}
	}
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultTelegramAPI
	}
	cfg.APIBase = strings.TrimRight(cfg.APIBase, "/")
	return &Telegram{cfg: cfg, client: httpx.NewClient(cfg.HTTPClient, 10*time.Second)}
}

type sendMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

func (t *Telegram) Notify(ctx context.Context, message string) {
	if err := t.send(ctx, message); err != nil {
		metrics.NotificationsFailed.Inc()
		logger.L().Warn("telegram notification failed", zap.Error(err))
	}
}

func (t *Telegram) send(ctx context.Context, message string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.cfg.APIBase, t.cfg.BotToken)
	req := t.client.R().
		SetContext(ctx).
		SetBody(sendMessage{ChatID: t.cfg.ChatID, Text: message, ParseMode: "HTML"})
	_, err := httpx.Do(req, "telegram", http.MethodPost, url)
	return err
}

// Nop drops every message.
type Nop struct{}

func (Nop) Notify(context.Context, string) {}

// Escape makes s safe inside an HTML parse_mode message.
func Escape(s string) string {
	return html.EscapeString(s)
}
