package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const telegramAPIBase = "https://api.telegram.org"

// TelegramNotifier delivers strategy alerts to a Telegram chat through the
// Bot API. Messages are sent as MarkdownV2 with a severity badge, so the
// stop-outs the runner raises to WARNING stand out against routine exits.
type TelegramNotifier struct {
	apiBase string
	token   string
	chatID  string
	client  *http.Client
}

// NewTelegramNotifier creates a notifier for the given bot token and target
// chat ID. Both come from config; the runner falls back to log-only
// delivery when they are unset.
func NewTelegramNotifier(token, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		apiBase: telegramAPIBase,
		token:   token,
		chatID:  chatID,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

var levelBadge = map[AlertLevel]string{
	AlertInfo:     "ℹ️",
	AlertWarning:  "⚠️",
	AlertCritical: "🚨",
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

func (t *TelegramNotifier) Send(ctx context.Context, alert Alert) error {
	badge, ok := levelBadge[alert.Level]
	if !ok {
		badge = levelBadge[AlertInfo]
	}
	text := fmt.Sprintf("%s *%s*\n\n%s",
		badge, escapeMarkdownV2(alert.Title), escapeMarkdownV2(alert.Message))

	body, err := json.Marshal(telegramMessage{
		ChatID:    t.chatID,
		Text:      text,
		ParseMode: "MarkdownV2",
	})
	if err != nil {
		return fmt.Errorf("telegram encode: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Surface the Bot API's own description when it gives one; a bare
		// status code hides misconfigured chat IDs.
		var apiErr struct {
			Description string `json:"description"`
		}
		json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Description != "" {
			return fmt.Errorf("telegram: %s (status %d)", apiErr.Description, resp.StatusCode)
		}
		return fmt.Errorf("telegram: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// escapeMarkdownV2 backslash-escapes every character Telegram's MarkdownV2
// parser treats as syntax. Trade alerts are full of them: exit reasons carry
// underscores, prices carry dots and minus signs.
func escapeMarkdownV2(s string) string {
	const specials = "_*[]()~`>#+-=|{}.!"
	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(specials, s[i]) >= 0 {
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
