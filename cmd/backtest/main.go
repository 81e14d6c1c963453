// cmd/backtest replays historical candle data from SQLite through the
// strategy engine and prints the trade ledger, event log and summary.
//
// Usage:
//
//	go run ./cmd/backtest --db=data/candles.db --symbol=NIFTY --from=0
package main

import (
	"flag"
	"fmt"
	"log"

	"mountain-systemv1/internal/mountain"
	sqlitestore "mountain-systemv1/internal/store/sqlite"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	// Flags
	dbPath := flag.String("db", "data/candles.db", "Path to SQLite candle database")
	symbol := flag.String("symbol", "NIFTY", "Instrument symbol to load")
	fromTS := flag.Int64("from", 0, "Unix timestamp to start from (0=all)")
	toTS := flag.Int64("to", 0, "Unix timestamp to end at (0=all)")
	rsiThreshold := flag.Float64("rsi-threshold", mountain.DefaultSignalRSIThreshold, "RSI overbought bound for signal candles")
	emaPeriod := flag.Int("ema", mountain.DefaultEMAPeriod, "EMA period")
	rsiPeriod := flag.Int("rsi", mountain.DefaultRSIPeriod, "RSI period")
	journalPath := flag.String("journal", "", "Optional SQLite journal to record the run into")
	showEvents := flag.Bool("events", false, "Print the full event log")
	flag.Parse()

	store, err := sqlitestore.NewCandleStore(*dbPath)
	if err != nil {
		log.Fatalf("[backtest] sqlite open failed: %v", err)
	}
	defer store.Close()

	candles, err := store.ReadRange(*symbol, *fromTS, *toTS)
	if err != nil {
		log.Fatalf("[backtest] candle read failed: %v", err)
	}
	if len(candles) == 0 {
		log.Fatalf("[backtest] no candles for %s in range", *symbol)
	}
	log.Printf("[backtest] loaded %d candles for %s", len(candles), *symbol)

	cfg := mountain.Config{
		SignalRSIThreshold: *rsiThreshold,
		EMAPeriod:          *emaPeriod,
		RSIPeriod:          *rsiPeriod,
	}
	res := mountain.Run(candles, cfg)

	if *showEvents {
		fmt.Println()
		for _, ev := range res.Events {
			fmt.Printf("  [%s] #%-5d %-26s %s\n",
				ev.TS.Format("2006-01-02 15:04"), ev.CandleIndex, ev.Type, ev.Message)
		}
	}

	fmt.Println()
	for i, tr := range res.Trades {
		kind := "RE-ENTRY"
		if tr.FirstEntry {
			kind = "FIRST"
		}
		fmt.Printf("  trade %-3d %s  entry %.2f @ %s  exit %.2f @ %s  %-12s pnl %+.2f (%+.2f%%)\n",
			i+1, kind,
			tr.EntryPrice, tr.EntryTS.Format("01-02 15:04"),
			tr.ExitPrice, tr.ExitTS.Format("01-02 15:04"),
			tr.ExitReason, tr.PnL, tr.PnLPct)
	}

	s := res.Summary
	fmt.Println()
	fmt.Println("╔══════════════════════════════════════╗")
	fmt.Println("║        BACKTEST COMPLETE             ║")
	fmt.Println("╠══════════════════════════════════════╣")
	fmt.Printf("║  Candles processed: %-16d ║\n", len(candles))
	fmt.Printf("║  Trades:            %-16d ║\n", s.TotalTrades)
	fmt.Printf("║  Win rate:          %-15.2f%% ║\n", s.WinRate)
	fmt.Printf("║  Total PnL:         %-16.2f ║\n", s.TotalPnL)
	fmt.Printf("║  Avg PnL:           %-16.2f ║\n", s.AvgPnL)
	fmt.Printf("║  Max win:           %-16.2f ║\n", s.MaxWin)
	fmt.Printf("║  Max loss:          %-16.2f ║\n", s.MaxLoss)
	fmt.Printf("║  Profit factor:     %-16.2f ║\n", s.ProfitFactor)
	fmt.Println("╚══════════════════════════════════════╝")

	if *journalPath != "" {
		journal, err := sqlitestore.NewJournal(*journalPath)
		if err != nil {
			log.Fatalf("[backtest] journal open failed: %v", err)
		}
		defer journal.Close()
		id, err := journal.RecordRun(*symbol, cfg, len(candles), res)
		if err != nil {
			log.Fatalf("[backtest] journal write failed: %v", err)
		}
		log.Printf("[backtest] run recorded as id=%d", id)
	}
}
