// Package mountain implements the Mountain Signal strategy engine: a
// deterministic, replayable simulation over an ordered candle series that
// detects short setups, manages entries and exits under strict priority
// rules, and produces a trade ledger, an event log and an equity curve.
//
// The engine is a pure function of its inputs. It performs no I/O, reads no
// clocks, and retains nothing between invocations: identical inputs yield
// byte-identical results, whether driven from a historical backtest or a
// per-candle live re-run.
package mountain

import (
	"time"

	"mountain-systemv1/internal/indicator"
)

// Signal is the price band established by a qualifying candle
// (low above EMA, RSI overbought). At most one signal is live at any
// instant; it is replaced wholesale on reset and copied by value into a
// trade at entry.
type Signal struct {
	High        float64   `json:"high"`
	Low         float64   `json:"low"`
	TS          time.Time `json:"ts"`
	CandleIndex int       `json:"candle_index"`
}

// ExitReason identifies which exit rule closed a trade.
type ExitReason string

const (
	ExitIndexStop   ExitReason = "INDEX_STOP"   // close above the signal high
	ExitIndexTarget ExitReason = "INDEX_TARGET" // EMA pullback detector fired
	ExitMarketClose ExitReason = "MARKET_CLOSE" // 15:15 square-off or end of data
)

// Trade is one finalized short round trip. Immutable once appended to the
// ledger; the ledger only grows.
type Trade struct {
	EntryTS          time.Time  `json:"entry_ts"`
	ExitTS           time.Time  `json:"exit_ts"`
	EntryPrice       float64    `json:"entry_price"`
	ExitPrice        float64    `json:"exit_price"`
	EntryCandleIndex int        `json:"entry_candle_index"`
	ExitCandleIndex  int        `json:"exit_candle_index"`
	ExitReason       ExitReason `json:"exit_reason"`
	PnL              float64    `json:"pnl"`
	PnLPct           float64    `json:"pnl_pct"`
	DurationCandles  int        `json:"duration_candles"`

	// Signal is a frozen value copy of the live signal at entry time, so a
	// later signal replacement cannot retroactively move this trade's stop.
	Signal     Signal `json:"signal"`
	FirstEntry bool   `json:"first_entry"`
}

// EquityPoint samples cumulative realized P&L, once per processed candle
// (warm-up candles included, value unchanged).
type EquityPoint struct {
	TS  time.Time `json:"ts"`
	PnL float64   `json:"pnl"`
}

// IndicatorSeries carries the indicator values the run was decided on,
// aligned index-for-index with the input candles.
type IndicatorSeries struct {
	EMA []indicator.Value `json:"ema"`
	RSI []indicator.Value `json:"rsi"`
}

// Result is everything a single engine run produces.
type Result struct {
	Trades      []Trade         `json:"trades"`
	Events      []Event         `json:"events"`
	Summary     Summary         `json:"summary"`
	EquityCurve []EquityPoint   `json:"equity_curve"`
	Indicators  IndicatorSeries `json:"indicators"`
}

// Engine defaults.
const (
	DefaultSignalRSIThreshold = 70
	DefaultEMAPeriod          = 5
	DefaultRSIPeriod          = 14
)

// Config carries the engine's numeric knobs. The zero value selects the
// defaults above.
type Config struct {
	// SignalRSIThreshold is the overbought bound a candle's RSI must exceed
	// to qualify as a signal candle.
	SignalRSIThreshold float64 `json:"signal_rsi_threshold"`
	EMAPeriod          int     `json:"ema_period"`
	RSIPeriod          int     `json:"rsi_period"`
}

func (c Config) withDefaults() Config {
	if c.SignalRSIThreshold <= 0 {
		c.SignalRSIThreshold = DefaultSignalRSIThreshold
	}
	if c.EMAPeriod <= 0 {
		c.EMAPeriod = DefaultEMAPeriod
	}
	if c.RSIPeriod <= 0 {
		c.RSIPeriod = DefaultRSIPeriod
	}
	return c
}
