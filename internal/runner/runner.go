// Package runner drives the live strategy loop: it consumes candles from the
// stream, re-runs the engine over the full accumulated history on every new
// candle, and publishes the completed result downstream. A full re-run per
// candle keeps the engine itself free of incremental state and makes live
// output bit-identical to a backtest over the same candles.
package runner

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"mountain-systemv1/internal/logger"
	"mountain-systemv1/internal/metrics"
	"mountain-systemv1/internal/model"
	"mountain-systemv1/internal/mountain"
	"mountain-systemv1/internal/notification"
)

// Publisher receives each completed run result as JSON. Implemented by the
// gateway hub.
type Publisher interface {
	Broadcast(channel string, data []byte)
}

// Journal persists completed runs. Implemented by the sqlite journal.
type Journal interface {
	RecordRun(symbol string, cfg mountain.Config, candles int, res mountain.Result) (int64, error)
}

// ResultPayload is the JSON shape published after every run.
type ResultPayload struct {
	Symbol  string          `json:"symbol"`
	Candles int             `json:"candles"`
	Result  mountain.Result `json:"result"`
}

// Runner accumulates candle history and re-runs the engine per candle.
type Runner struct {
	symbol string
	cfg    mountain.Config

	pub      Publisher
	journal  Journal
	notifier notification.Notifier
	met      *metrics.Metrics
	log      *slog.Logger

	mu      sync.RWMutex
	history []model.Candle
	latest  *mountain.Result

	// trades/events already counted, so re-runs do not double-report
	notified   int
	seenEvents int
}

// Option configures a Runner.
type Option func(*Runner)

// WithJournal enables run journaling.
func WithJournal(j Journal) Option {
	return func(r *Runner) { r.journal = j }
}

// WithNotifier enables trade alerts.
func WithNotifier(n notification.Notifier) Option {
	return func(r *Runner) { r.notifier = n }
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) { r.met = m }
}

// New creates a Runner publishing to pub.
func New(symbol string, cfg mountain.Config, pub Publisher, logger *slog.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{
		symbol: symbol,
		cfg:    cfg,
		pub:    pub,
		log:    logger.With(slog.String("symbol", symbol)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Seed preloads historical candles without running the engine. Call once
// before Run; the first live candle triggers the first full run.
func (r *Runner) Seed(candles []model.Candle) {
	r.mu.Lock()
	r.history = append(r.history, candles...)
	n := len(r.history)
	r.mu.Unlock()
	r.log.Info("history seeded", slog.Int("candles", n))
}

// History returns the number of accumulated candles.
func (r *Runner) History() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.history)
}

// Latest returns the most recent run result, or nil before the first run.
func (r *Runner) Latest() *mountain.Result {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latest
}

// Run consumes candles from in until the channel closes or ctx is cancelled.
func (r *Runner) Run(ctx context.Context, in <-chan model.Candle) {
	for {
		select {
		case <-ctx.Done():
			r.log.Info("runner stopped", slog.String("reason", "context cancelled"))
			return
		case c, ok := <-in:
			if !ok {
				r.log.Info("runner stopped", slog.String("reason", "candle channel closed"))
				return
			}
			r.OnCandle(ctx, c)
		}
	}
}

// OnCandle appends one candle and performs a full engine run. The run is
// tagged with a run ID derived from the triggering candle, carried through
// ctx so every log line and alert from this run can be correlated.
func (r *Runner) OnCandle(ctx context.Context, c model.Candle) {
	ctx = logger.WithRunID(ctx, logger.GenerateRunID(r.symbol, c.TS))

	if r.met != nil {
		r.met.CandlesTotal.Inc()
	}

	r.mu.Lock()
	r.history = append(r.history, c)
	// Run works on its own copy so history can keep growing while the
	// result is consumed.
	candles := make([]model.Candle, len(r.history))
	copy(candles, r.history)
	r.mu.Unlock()

	start := time.Now()
	res := mountain.Run(candles, r.cfg)
	elapsed := time.Since(start)

	// The engine force-closes a still-open trade on the last candle, and a
	// later run may replay past that point differently once more candles
	// arrive. Only trades and events confirmed before the final candle are
	// treated as new for alerting and counters.
	confirmed := res.Trades
	for len(confirmed) > 0 && confirmed[len(confirmed)-1].ExitCandleIndex >= len(candles)-1 {
		confirmed = confirmed[:len(confirmed)-1]
	}
	settled := res.Events
	for len(settled) > 0 && settled[len(settled)-1].CandleIndex >= len(candles)-1 {
		settled = settled[:len(settled)-1]
	}

	r.mu.Lock()
	r.latest = &res
	if r.notified > len(confirmed) {
		r.notified = len(confirmed)
	}
	if r.seenEvents > len(settled) {
		r.seenEvents = len(settled)
	}
	newTrades := confirmed[r.notified:]
	newEvents := settled[r.seenEvents:]
	r.notified = len(confirmed)
	r.seenEvents = len(settled)
	r.mu.Unlock()

	if r.met != nil {
		r.met.RunsTotal.Inc()
		r.met.RunDuration.Observe(elapsed.Seconds())
		r.met.RealizedPnL.Set(res.Summary.TotalPnL)
		for _, tr := range newTrades {
			r.met.TradesTotal.WithLabelValues(string(tr.ExitReason)).Inc()
		}
		for _, ev := range newEvents {
			r.met.EventsTotal.WithLabelValues(string(ev.Type)).Inc()
		}
	}

	r.log.Debug("run completed", append(logger.LogWithRun(ctx),
		slog.Int("candles", len(candles)),
		slog.Int("trades", len(res.Trades)),
		slog.Float64("pnl", res.Summary.TotalPnL),
		slog.Duration("elapsed", elapsed),
	)...)

	r.publish(ctx, len(candles), res)
	r.record(ctx, len(candles), res)
	r.alert(ctx, newTrades)
}

func (r *Runner) publish(ctx context.Context, candles int, res mountain.Result) {
	if r.pub == nil {
		return
	}
	payload, err := json.Marshal(ResultPayload{
		Symbol:  r.symbol,
		Candles: candles,
		Result:  res,
	})
	if err != nil {
		r.log.Error("result marshal failed", append(logger.LogWithRun(ctx), slog.Any("err", err))...)
		return
	}
	r.pub.Broadcast("run", payload)
}

func (r *Runner) record(ctx context.Context, candles int, res mountain.Result) {
	if r.journal == nil {
		return
	}
	start := time.Now()
	if _, err := r.journal.RecordRun(r.symbol, r.cfg, candles, res); err != nil {
		r.log.Error("journal write failed", append(logger.LogWithRun(ctx), slog.Any("err", err))...)
		return
	}
	if r.met != nil {
		r.met.JournalWriteDur.Observe(time.Since(start).Seconds())
	}
}

func (r *Runner) alert(ctx context.Context, trades []mountain.Trade) {
	if r.notifier == nil {
		return
	}
	for _, tr := range trades {
		if err := r.notifier.Send(ctx, notification.TradeAlert(r.symbol, tr)); err != nil {
			r.log.Warn("trade alert failed", append(logger.LogWithRun(ctx), slog.Any("err", err))...)
		}
	}
}
