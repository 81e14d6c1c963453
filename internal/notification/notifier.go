// Package notification provides alert delivery to external channels
// (Telegram, webhooks, etc.) for strategy events such as entries and exits.
package notification

import (
	"context"
	"fmt"
	"log"

	"mountain-systemv1/internal/mountain"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Alert represents a notification to be sent.
type Alert struct {
	Level   AlertLevel `json:"level"`
	Title   string     `json:"title"`
	Message string     `json:"message"`
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier is a simple notifier that logs alerts (useful for development).
type LogNotifier struct{}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	log.Printf("[notify] [%s] %s: %s", alert.Level, alert.Title, alert.Message)
	return nil
}

// TradeAlert formats a closed trade as an alert. Losing trades and stop-outs
// are raised to WARNING so they stand out in the channel.
func TradeAlert(symbol string, tr mountain.Trade) Alert {
	level := AlertInfo
	if tr.PnL < 0 || tr.ExitReason == mountain.ExitIndexStop {
		level = AlertWarning
	}
	entryKind := "re-entry"
	if tr.FirstEntry {
		entryKind = "first entry"
	}
	return Alert{
		Level: level,
		Title: fmt.Sprintf("%s short closed: %s", symbol, tr.ExitReason),
		Message: fmt.Sprintf(
			"%s at %.2f, exit %.2f (%s)\nPnL %.2f pts (%.2f%%) over %d candles",
			entryKind, tr.EntryPrice, tr.ExitPrice, tr.ExitTS.Format("15:04"),
			tr.PnL, tr.PnLPct, tr.DurationCandles,
		),
	}
}

// MultiNotifier fans an alert out to several backends. Delivery failures are
// logged but do not stop the remaining backends; the first error is returned.
type MultiNotifier struct {
	backends []Notifier
}

// NewMultiNotifier creates a notifier that delivers to all given backends.
func NewMultiNotifier(backends ...Notifier) *MultiNotifier {
	return &MultiNotifier{backends: backends}
}

func (m *MultiNotifier) Send(ctx context.Context, alert Alert) error {
	var first error
	for _, b := range m.backends {
		if err := b.Send(ctx, alert); err != nil {
			log.Printf("[notify] backend delivery failed: %v", err)
			if first == nil {
				first = err
			}
		}
	}
	return first
}
