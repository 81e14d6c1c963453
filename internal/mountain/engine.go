package mountain

import (
	"time"

	"mountain-systemv1/internal/indicator"
	"mountain-systemv1/internal/markethours"
	"mountain-systemv1/internal/model"
)

// activeTrade is the open short position. At most one exists at any instant
// and it is owned exclusively by the running scan for its lifetime.
type activeTrade struct {
	entryPrice float64
	entryTS    time.Time
	entryIndex int
	firstEntry bool

	// signal is a frozen value copy taken at entry; later signal resets
	// must not move this trade's stop level.
	signal Signal

	// EMA pullback target detector: armed once any candle's high prints
	// under the EMA, then fires on the second consecutive close above it.
	armedBelowEMA  bool
	closesAboveEMA int
}

// runState is the single mutable record threaded through the per-candle
// scan. Nothing in it survives a call to Run.
type runState struct {
	cfg Config

	signal *Signal
	trade  *activeTrade

	// Candle indexes of signal candles that have already produced an entry.
	// An entry against an indexed signal is a re-entry and is gated on the
	// round-trip rule.
	enteredSignals map[int]struct{}

	// Candles seen since the last exit, consulted by the re-entry gate.
	sinceExit   []model.Candle
	lastExitSet bool
	lastExitTS  time.Time

	prevDayKey string

	realized float64

	trades []Trade
	events []Event
	equity []EquityPoint
}

func newRunState(cfg Config) *runState {
	return &runState{
		cfg:            cfg,
		enteredSignals: make(map[int]struct{}),
		trades:         []Trade{},
		events:         []Event{},
		equity:         []EquityPoint{},
	}
}

// Run executes one complete pass over candles and returns the finalized
// trade ledger, event log, summary, equity curve and the indicator series
// the decisions were made on.
//
// Candles must be in non-decreasing time order with timestamps precise
// enough to resolve IST clock time and calendar day. An empty input yields
// an empty, zero-valued result.
func Run(candles []model.Candle, cfg Config) Result {
	cfg = cfg.withDefaults()
	st := newRunState(cfg)
	n := len(candles)
	if n == 0 {
		return Result{
			Trades:      st.trades,
			Events:      st.events,
			EquityCurve: st.equity,
			Indicators:  IndicatorSeries{EMA: []indicator.Value{}, RSI: []indicator.Value{}},
		}
	}

	closes := make([]float64, n)
	for i, c := range candles {
		closes[i] = c.Close
	}
	ema := indicator.EMA(closes, cfg.EMAPeriod)
	rsi := indicator.RSI(closes, cfg.RSIPeriod)

	for i, c := range candles {
		st.step(i, c, ema[i], rsi[i])
	}

	// A position cannot outlive the dataset: force-close at the final
	// candle's close and correct the last equity sample.
	if st.trade != nil {
		last := n - 1
		st.closeTrade(last, candles[last], ExitMarketClose)
		st.equity[last] = EquityPoint{TS: candles[last].TS, PnL: st.realized}
	}

	return Result{
		Trades:      st.trades,
		Events:      st.events,
		Summary:     Summarize(st.trades),
		EquityCurve: st.equity,
		Indicators:  IndicatorSeries{EMA: ema, RSI: rsi},
	}
}

// step advances the state machine by one candle. Exactly one equity point
// is appended per call, on every path.
func (s *runState) step(i int, c model.Candle, ema, rsi indicator.Value) {
	// 1. Day boundary: a pending signal never survives into a new session.
	day := markethours.DayKey(c.TS)
	if s.prevDayKey != "" && day != s.prevDayKey && s.signal != nil && s.trade == nil {
		old := *s.signal
		s.signal = nil
		s.enteredSignals = make(map[int]struct{})
		s.emit(i, c, EventNewDayReset, "pending signal cleared at day boundary", map[string]float64{
			"signal_high": old.High,
			"signal_low":  old.Low,
		})
	}
	s.prevDayKey = day

	// 2. Square-off window: no pending signal past the 15:15 cutoff.
	if s.signal != nil && s.trade == nil && markethours.PastSquareOff(c.TS) {
		old := *s.signal
		s.signal = nil
		s.emit(i, c, EventMarketCloseSignalClear, "pending signal cleared at square-off", map[string]float64{
			"signal_high": old.High,
			"signal_low":  old.Low,
		})
	}

	// 3. Warm-up: nothing to decide until both series are defined.
	if !ema.OK || !rsi.OK {
		s.pushEquity(c)
		return
	}

	// 4. Exit evaluation, strict priority; the first hit wins.
	if s.trade != nil {
		if reason, hit := s.evalExit(c, ema.V); hit {
			s.closeTrade(i, c, reason)
			s.pushEquity(c)
			return
		}
	}

	// 5/6. Signal management and entry evaluation.
	if s.trade == nil {
		s.manageSignal(i, c, ema.V, rsi.V)
	}

	// 7. Since-exit tracking for the re-entry round-trip rule.
	if s.lastExitSet {
		s.sinceExit = append(s.sinceExit, c)
	}

	// 8.
	s.pushEquity(c)
}

// evalExit tests the exit rules in strict priority order: stop above the
// signal high, then the EMA pullback target, then the square-off cutoff.
func (s *runState) evalExit(c model.Candle, ema float64) (ExitReason, bool) {
	t := s.trade

	if c.Close > t.signal.High {
		return ExitIndexStop, true
	}

	if !t.armedBelowEMA {
		if c.High < ema {
			t.armedBelowEMA = true
			t.closesAboveEMA = 0
		}
	} else if c.Close > ema {
		t.closesAboveEMA++
		if t.closesAboveEMA >= 2 {
			return ExitIndexTarget, true
		}
	} else {
		t.closesAboveEMA = 0
	}

	if markethours.PastSquareOff(c.TS) {
		return ExitMarketClose, true
	}
	return "", false
}

// manageSignal runs the no-active-trade half of the step: identify, replace
// or clear the signal, and evaluate entries.
func (s *runState) manageSignal(i int, c model.Candle, ema, rsi float64) {
	lowAboveEMA := c.Low > ema
	overbought := rsi > s.cfg.SignalRSIThreshold

	switch {
	case s.signal == nil && lowAboveEMA && overbought:
		s.signal = &Signal{High: c.High, Low: c.Low, TS: c.TS, CandleIndex: i}
		s.emit(i, c, EventSignalIdentified, "signal candle identified", map[string]float64{
			"high": c.High,
			"low":  c.Low,
			"ema":  ema,
			"rsi":  rsi,
		})

	case s.signal != nil && lowAboveEMA && overbought:
		old := *s.signal
		s.signal = &Signal{High: c.High, Low: c.Low, TS: c.TS, CandleIndex: i}
		s.emit(i, c, EventSignalReset, "signal replaced by fresh qualifying candle", map[string]float64{
			"old_high": old.High,
			"old_low":  old.Low,
			"new_high": c.High,
			"new_low":  c.Low,
		})

	case s.signal != nil && !lowAboveEMA && !overbought:
		// Entry gets first claim on the candle; only a non-entry clears.
		if !s.tryEntry(i, c) {
			old := *s.signal
			s.signal = nil
			s.emit(i, c, EventSignalCleared, "setup conditions lost", map[string]float64{
				"signal_high": old.High,
				"signal_low":  old.Low,
				"ema":         ema,
				"rsi":         rsi,
			})
		}

	case s.signal != nil:
		// Mixed condition values keep the signal as-is; entries still fire.
		s.tryEntry(i, c)
	}
}

// tryEntry opens a short when the candle closes under the signal low.
// First entries fire unconditionally; re-entries against the same signal
// candle require that some candle since the last exit printed a high above
// the signal low. Returns true iff a trade was opened.
func (s *runState) tryEntry(i int, c model.Candle) bool {
	sig := s.signal
	if sig == nil || c.Close >= sig.Low {
		return false
	}
	if s.trade != nil {
		panic("mountain: entry attempted with a trade already open")
	}

	_, entered := s.enteredSignals[sig.CandleIndex]
	if entered && !s.roundTripped(sig.Low) {
		s.emit(i, c, EventEntrySkippedReentry, "re-entry blocked: no round trip above signal low since exit", map[string]float64{
			"close":      c.Close,
			"signal_low": sig.Low,
		})
		return false
	}

	label := "FIRST ENTRY"
	if entered {
		label = "RE-ENTRY"
	}
	s.enteredSignals[sig.CandleIndex] = struct{}{}
	s.trade = &activeTrade{
		entryPrice: c.Close,
		entryTS:    c.TS,
		entryIndex: i,
		firstEntry: !entered,
		signal:     *sig,
	}
	s.emit(i, c, EventEntryTriggered, label, map[string]float64{
		"entry":       c.Close,
		"signal_high": sig.High,
		"signal_low":  sig.Low,
	})
	return true
}

// roundTripped reports whether any candle since the last exit printed a
// high above the signal low.
func (s *runState) roundTripped(signalLow float64) bool {
	for _, pc := range s.sinceExit {
		if pc.High > signalLow {
			return true
		}
	}
	return false
}

// closeTrade finalizes the open trade at the candle's close. The signal
// stays live: re-entries against the same still-valid signal are permitted
// once the round-trip gate is satisfied, and the session-boundary rules
// clear it otherwise.
func (s *runState) closeTrade(i int, c model.Candle, reason ExitReason) {
	t := s.trade
	if t == nil {
		panic("mountain: exit evaluated with no active trade")
	}

	pnl := t.entryPrice - c.Close // short-only economics
	pct := 0.0
	if t.entryPrice != 0 {
		pct = pnl / t.entryPrice * 100
	}
	s.realized += pnl

	s.trades = append(s.trades, Trade{
		EntryTS:          t.entryTS,
		ExitTS:           c.TS,
		EntryPrice:       t.entryPrice,
		ExitPrice:        c.Close,
		EntryCandleIndex: t.entryIndex,
		ExitCandleIndex:  i,
		ExitReason:       reason,
		PnL:              pnl,
		PnLPct:           pct,
		DurationCandles:  i - t.entryIndex,
		Signal:           t.signal,
		FirstEntry:       t.firstEntry,
	})
	s.emit(i, c, exitEventType(reason), string(reason), map[string]float64{
		"entry": t.entryPrice,
		"exit":  c.Close,
		"pnl":   pnl,
	})

	s.trade = nil
	s.lastExitSet = true
	s.lastExitTS = c.TS
	s.sinceExit = s.sinceExit[:0]
}

func (s *runState) pushEquity(c model.Candle) {
	s.equity = append(s.equity, EquityPoint{TS: c.TS, PnL: s.realized})
}

func (s *runState) emit(i int, c model.Candle, typ EventType, msg string, details map[string]float64) {
	s.events = append(s.events, Event{
		TS:          c.TS,
		CandleIndex: i,
		Type:        typ,
		Message:     msg,
		Details:     details,
	})
}
