package notifier

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// CommandHandler is called when a user command is received.
type CommandHandler func(command string) string

// telegramUpdate represents a Telegram update from long polling.
type telegramUpdate struct {
	UpdateID int `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"message"`
}

// pollRetryDelay is how long polling backs off after a failed request.
var pollRetryDelay = 5 * time.Second

// StartPolling long-polls for commands from the configured chat and answers
// them. Blocks until ctx is cancelled.
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler) {
	offset := 0
	for {
		if ctx.Err() != nil {
			t.log.Info("telegram polling stopped")
			return
		}

		var result struct {
			OK     bool             `json:"ok"`
			Result []telegramUpdate `json:"result"`
		}
		resp, err := t.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"offset":  strconv.Itoa(offset),
				"timeout": "30",
			}).
			SetResult(&result).
			Get("/bot" + t.BotToken + "/getUpdates")
		if err != nil || !resp.IsSuccess() {
			if ctx.Err() != nil {
				t.log.Info("telegram polling stopped")
				return
			}
			status := 0
			if resp != nil {
				status = resp.StatusCode()
			}
			t.log.Warn("polling request failed", zap.Error(err), zap.Int("status", status))
			select {
			case <-ctx.Done():
			case <-time.After(pollRetryDelay):
			}
			continue
		}

		for _, update := range result.Result {
			offset = update.UpdateID + 1
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			if t.ChatID != "" && strconv.FormatInt(update.Message.Chat.ID, 10) != t.ChatID {
				t.log.Warn("ignoring command from foreign chat", zap.Int64("chat_id", update.Message.Chat.ID))
				continue
			}
			text := strings.TrimSpace(update.Message.Text)
			t.log.Info("received command", zap.String("command", text))
			if reply := handler(text); reply != "" {
				if err := t.Send(ctx, reply); err != nil {
					t.log.Error("send reply", zap.Error(err))
				}
			}
		}
	}
}

// Run adapts StartPolling to the process run group.
func (t *TelegramNotifier) Run(ctx context.Context, handler CommandHandler) error {
	t.StartPolling(ctx, handler)
	return ctx.Err()
}
