package sqlite

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"mountain-systemv1/internal/mountain"

	_ "github.com/mattn/go-sqlite3"
)

// Journal persists finished engine runs (summary, trade ledger and event
// log) for analysis and the dashboard's run-history view.
type Journal struct {
	mu sync.Mutex
	db *sql.DB
}

// NewJournal opens (or creates) the run journal database.
func NewJournal(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("journal open: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol         TEXT NOT NULL,
		candles        INTEGER NOT NULL,
		rsi_threshold  REAL NOT NULL,
		total_trades   INTEGER NOT NULL,
		winning_trades INTEGER NOT NULL,
		losing_trades  INTEGER NOT NULL,
		win_rate       REAL NOT NULL,
		total_pnl      REAL NOT NULL,
		avg_pnl        REAL NOT NULL,
		max_win        REAL NOT NULL,
		max_loss       REAL NOT NULL,
		profit_factor  REAL NOT NULL,
		created_at     DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS run_trades (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id       INTEGER NOT NULL,
		entry_ts     DATETIME NOT NULL,
		exit_ts      DATETIME NOT NULL,
		entry_price  REAL NOT NULL,
		exit_price   REAL NOT NULL,
		entry_index  INTEGER NOT NULL,
		exit_index   INTEGER NOT NULL,
		exit_reason  TEXT NOT NULL,
		pnl          REAL NOT NULL,
		pnl_pct      REAL NOT NULL,
		first_entry  INTEGER NOT NULL,
		signal_high  REAL NOT NULL,
		signal_low   REAL NOT NULL
	);
	CREATE TABLE IF NOT EXISTS run_events (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id       INTEGER NOT NULL,
		ts           DATETIME NOT NULL,
		candle_index INTEGER NOT NULL,
		type         TEXT NOT NULL,
		message      TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_run_trades_run ON run_trades(run_id);
	CREATE INDEX IF NOT EXISTS idx_run_events_run ON run_events(run_id);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal schema: %w", err)
	}

	log.Printf("[journal] opened run journal at %s", dbPath)
	return &Journal{db: db}, nil
}

// RecordRun persists one finished run in a single transaction and returns
// the run id.
func (j *Journal) RecordRun(symbol string, cfg mountain.Config, candles int, res mountain.Result) (int64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	tx, err := j.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("journal begin: %w", err)
	}

	sum := res.Summary
	out, err := tx.Exec(`
		INSERT INTO runs (symbol, candles, rsi_threshold, total_trades, winning_trades,
			losing_trades, win_rate, total_pnl, avg_pnl, max_win, max_loss, profit_factor)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		symbol, candles, cfg.SignalRSIThreshold, sum.TotalTrades, sum.WinningTrades,
		sum.LosingTrades, sum.WinRate, sum.TotalPnL, sum.AvgPnL, sum.MaxWin, sum.MaxLoss,
		sum.ProfitFactor,
	)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("journal insert run: %w", err)
	}
	runID, err := out.LastInsertId()
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("journal run id: %w", err)
	}

	for _, t := range res.Trades {
		if _, err := tx.Exec(`
			INSERT INTO run_trades (run_id, entry_ts, exit_ts, entry_price, exit_price,
				entry_index, exit_index, exit_reason, pnl, pnl_pct, first_entry,
				signal_high, signal_low)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, t.EntryTS.Format(time.RFC3339), t.ExitTS.Format(time.RFC3339),
			t.EntryPrice, t.ExitPrice, t.EntryCandleIndex, t.ExitCandleIndex,
			string(t.ExitReason), t.PnL, t.PnLPct, boolToInt(t.FirstEntry),
			t.Signal.High, t.Signal.Low,
		); err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("journal insert trade: %w", err)
		}
	}

	for _, e := range res.Events {
		if _, err := tx.Exec(`
			INSERT INTO run_events (run_id, ts, candle_index, type, message)
			VALUES (?, ?, ?, ?, ?)`,
			runID, e.TS.Format(time.RFC3339), e.CandleIndex, string(e.Type), e.Message,
		); err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("journal insert event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("journal commit: %w", err)
	}
	return runID, nil
}

// RunRecord is one row of the runs table.
type RunRecord struct {
	ID           int64   `json:"id"`
	Symbol       string  `json:"symbol"`
	Candles      int     `json:"candles"`
	RSIThreshold float64 `json:"rsi_threshold"`
	TotalTrades  int     `json:"total_trades"`
	WinRate      float64 `json:"win_rate"`
	TotalPnL     float64 `json:"total_pnl"`
	ProfitFactor float64 `json:"profit_factor"`
	CreatedAt    string  `json:"created_at"`
}

// ListRuns returns the last N runs, newest first.
func (j *Journal) ListRuns(limit int) ([]RunRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.Query(`
		SELECT id, symbol, candles, rsi_threshold, total_trades, win_rate,
			total_pnl, profit_factor, created_at
		FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.ID, &r.Symbol, &r.Candles, &r.RSIThreshold,
			&r.TotalTrades, &r.WinRate, &r.TotalPnL, &r.ProfitFactor, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("journal scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Close closes the journal database.
func (j *Journal) Close() error {
	return j.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
