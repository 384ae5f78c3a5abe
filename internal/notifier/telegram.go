package notifier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// DefaultAPIBase is the Telegram Bot API endpoint.
const DefaultAPIBase = "https://api.telegram.org"

// TelegramNotifier sends messages via the Telegram Bot API.
type TelegramNotifier struct {
	BotToken string
	ChatID   string
	Retries  int

	client *resty.Client
	log    *zap.Logger
}

// NewTelegramNotifier creates a notifier with optional proxy support. An empty
// apiBase selects DefaultAPIBase.
func NewTelegramNotifier(botToken, chatID, proxyURL, apiBase string, log *zap.Logger) *TelegramNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(apiBase, "/")).
		SetTimeout(35 * time.Second)
	if proxyURL != "" {
		client.SetProxy(proxyURL)
	}
	return &TelegramNotifier{
		BotToken: botToken,
		ChatID:   chatID,
		Retries:  3,
		client:   client,
		log:      log,
	}
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Send sends a message to the configured chat.
func (t *TelegramNotifier) Send(ctx context.Context, text string) error {
	var out apiResponse
	resp, err := t.client.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"chat_id":    t.ChatID,
			"text":       text,
			"parse_mode": "HTML",
		}).
		SetResult(&out).
		SetError(&out).
		Post("/bot" + t.BotToken + "/sendMessage")
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	if !resp.IsSuccess() || !out.OK {
		return fmt.Errorf("telegram API error: status %d, %s", resp.StatusCode(), out.Description)
	}
	return nil
}

// SendWithRetry sends a message with exponential backoff retry.
func (t *TelegramNotifier) SendWithRetry(ctx context.Context, text string, maxRetries int) error {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		if err := t.Send(ctx, text); err != nil {
			lastErr = err
			backoff := time.Duration(1<<uint(i)) * time.Second
			t.log.Warn("telegram send failed",
				zap.Int("attempt", i+1), zap.Int("max_attempts", maxRetries+1),
				zap.Duration("backoff", backoff), zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				continue
			}
		}
		return nil
	}
	return fmt.Errorf("all %d retries exhausted: %w", maxRetries+1, lastErr)
}

// Notify delivers text with the configured retries. Failures are logged only.
func (t *TelegramNotifier) Notify(ctx context.Context, text string) {
	if err := t.SendWithRetry(ctx, text, t.Retries); err != nil {
		t.log.Error("telegram notification dropped", zap.Error(err))
	}
}
