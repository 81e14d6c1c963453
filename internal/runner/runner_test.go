package runner

import (
	"context"
	"encoding/json"
	"reflect"
	"strings"
	"testing"
	"time"

	"mountain-systemv1/internal/logger"
	"mountain-systemv1/internal/markethours"
	"mountain-systemv1/internal/model"
	"mountain-systemv1/internal/mountain"
	"mountain-systemv1/internal/notification"
)

// ────────────────────────────────────────────────────────────
// Stubs
// ────────────────────────────────────────────────────────────

type capturePublisher struct {
	payloads [][]byte
}

func (p *capturePublisher) Broadcast(channel string, data []byte) {
	p.payloads = append(p.payloads, data)
}

type captureNotifier struct {
	alerts []notification.Alert
	runIDs []string
}

func (n *captureNotifier) Send(ctx context.Context, a notification.Alert) error {
	n.alerts = append(n.alerts, a)
	n.runIDs = append(n.runIDs, logger.RunID(ctx))
	return nil
}

type captureJournal struct {
	calls   int
	candles int
}

func (j *captureJournal) RecordRun(symbol string, cfg mountain.Config, candles int, res mountain.Result) (int64, error) {
	j.calls++
	j.candles = candles
	return int64(j.calls), nil
}

// ────────────────────────────────────────────────────────────
// Fixture: a session with one stopped-out short
// ────────────────────────────────────────────────────────────

func bar(i int, high, low, close float64) model.Candle {
	base := time.Date(2026, 1, 5, 10, 0, 0, 0, markethours.IST)
	return model.Candle{TS: base.Add(time.Duration(i) * 5 * time.Minute), Open: close, High: high, Low: low, Close: close, Volume: 1000}
}

// sessionCandles forms a signal band at 105..107, a short entry at 104 and a
// stop-out at 107.50, followed by one quiet candle that confirms the trade.
func sessionCandles() []model.Candle {
	return []model.Candle{
		bar(0, 100.5, 99.5, 100),
		bar(1, 101.5, 100.5, 101),
		bar(2, 102.5, 101.5, 102),
		bar(3, 103.5, 102.5, 103),
		bar(4, 104.5, 103.5, 104),
		bar(5, 107.0, 105.0, 106),
		bar(6, 106.0, 104.0, 105.5),
		bar(7, 104.8, 103.8, 104),
		bar(8, 104.6, 104.0, 104.5),
		bar(9, 105.0, 104.3, 104.8),
		bar(10, 107.8, 104.9, 107.5),
		bar(11, 107.6, 106.0, 106.5),
	}
}

func testConfig() mountain.Config {
	return mountain.Config{SignalRSIThreshold: 70, EMAPeriod: 5, RSIPeriod: 3}
}

// ────────────────────────────────────────────────────────────
// Tests
// ────────────────────────────────────────────────────────────

func TestRunner_LiveMatchesBacktest(t *testing.T) {
	candles := sessionCandles()
	pub := &capturePublisher{}
	r := New("NIFTY", testConfig(), pub, nil)

	ctx := context.Background()
	for _, c := range candles {
		r.OnCandle(ctx, c)
	}

	latest := r.Latest()
	if latest == nil {
		t.Fatal("no result after candles")
	}
	direct := mountain.Run(candles, testConfig())
	if !reflect.DeepEqual(*latest, direct) {
		t.Fatal("per-candle live result differs from one-shot run over the same candles")
	}

	if len(pub.payloads) != len(candles) {
		t.Fatalf("broadcasts: got %d, want %d", len(pub.payloads), len(candles))
	}
	var payload ResultPayload
	if err := json.Unmarshal(pub.payloads[len(pub.payloads)-1], &payload); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if payload.Symbol != "NIFTY" || payload.Candles != len(candles) {
		t.Errorf("payload header: %s/%d, want NIFTY/%d", payload.Symbol, payload.Candles, len(candles))
	}
	if payload.Result.Summary.TotalTrades != 1 {
		t.Errorf("payload trades: got %d, want 1", payload.Result.Summary.TotalTrades)
	}
}

func TestRunner_SeedThenLive(t *testing.T) {
	candles := sessionCandles()
	pub := &capturePublisher{}
	r := New("NIFTY", testConfig(), pub, nil)

	r.Seed(candles[:5])
	if r.History() != 5 {
		t.Fatalf("history after seed: got %d, want 5", r.History())
	}

	ctx := context.Background()
	for _, c := range candles[5:] {
		r.OnCandle(ctx, c)
	}

	// Seeding publishes nothing; only live candles do.
	if len(pub.payloads) != len(candles)-5 {
		t.Fatalf("broadcasts: got %d, want %d", len(pub.payloads), len(candles)-5)
	}
	direct := mountain.Run(candles, testConfig())
	if !reflect.DeepEqual(*r.Latest(), direct) {
		t.Fatal("seeded live result differs from one-shot run")
	}
}

func TestRunner_AlertsOnceTradeConfirms(t *testing.T) {
	candles := sessionCandles()
	not := &captureNotifier{}
	r := New("NIFTY", testConfig(), &capturePublisher{}, nil, WithNotifier(not))

	ctx := context.Background()
	for i, c := range candles[:11] {
		r.OnCandle(ctx, c)
		// The stop lands on the latest candle of its run, which a later
		// run could still replay differently. No alert yet.
		if len(not.alerts) != 0 {
			t.Fatalf("alert after candle %d, before confirmation", i)
		}
	}

	r.OnCandle(ctx, candles[11])
	if len(not.alerts) != 1 {
		t.Fatalf("alerts: got %d, want 1", len(not.alerts))
	}
	a := not.alerts[0]
	if !strings.Contains(a.Title, "INDEX_STOP") {
		t.Errorf("alert title: %q, want contains INDEX_STOP", a.Title)
	}
	if a.Level != notification.AlertWarning {
		t.Errorf("alert level: got %s, want %s (losing stop-out)", a.Level, notification.AlertWarning)
	}
}

func TestRunner_TagsAlertsWithRunID(t *testing.T) {
	candles := sessionCandles()
	not := &captureNotifier{}
	r := New("NIFTY", testConfig(), &capturePublisher{}, nil, WithNotifier(not))

	ctx := context.Background()
	for _, c := range candles {
		r.OnCandle(ctx, c)
	}

	if len(not.runIDs) != 1 {
		t.Fatalf("run IDs captured: got %d, want 1", len(not.runIDs))
	}
	// The stop confirms on candle 11, so its alert carries that run's ID.
	want := logger.GenerateRunID("NIFTY", candles[11].TS)
	if not.runIDs[0] != want {
		t.Errorf("alert run ID: got %q, want %q", not.runIDs[0], want)
	}
}

func TestRunner_JournalsEveryRun(t *testing.T) {
	candles := sessionCandles()
	j := &captureJournal{}
	r := New("NIFTY", testConfig(), &capturePublisher{}, nil, WithJournal(j))

	ctx := context.Background()
	for _, c := range candles {
		r.OnCandle(ctx, c)
	}

	if j.calls != len(candles) {
		t.Errorf("journal calls: got %d, want %d", j.calls, len(candles))
	}
	if j.candles != len(candles) {
		t.Errorf("journal candle count: got %d, want %d", j.candles, len(candles))
	}
}

func TestRunner_ChannelLoopStopsOnClose(t *testing.T) {
	r := New("NIFTY", testConfig(), &capturePublisher{}, nil)
	in := make(chan model.Candle)

	done := make(chan struct{})
	go func() {
		r.Run(context.Background(), in)
		close(done)
	}()

	in <- bar(0, 101, 99, 100)
	close(in)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop on channel close")
	}
	if r.History() != 1 {
		t.Errorf("history: got %d, want 1", r.History())
	}
}
