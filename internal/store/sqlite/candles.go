// Package sqlite provides the system's durable storage: historical candles
// for backtests and a journal of finished engine runs for the dashboard's
// history view. The strategy engine itself never touches this package: it
// operates purely on candles handed to it and returns its result to the
// caller, which decides what to keep.
package sqlite

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"mountain-systemv1/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// CandleStore reads and archives OHLC candles keyed by symbol.
type CandleStore struct {
	db *sql.DB
}

// NewCandleStore opens (or creates) the candle database with WAL mode.
func NewCandleStore(dbPath string) (*CandleStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS candles (
			symbol  TEXT    NOT NULL,
			ts      INTEGER NOT NULL,
			open    REAL    NOT NULL,
			high    REAL    NOT NULL,
			low     REAL    NOT NULL,
			close   REAL    NOT NULL,
			volume  REAL,
			PRIMARY KEY (symbol, ts)
		);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened candle store at %s", dbPath)
	return &CandleStore{db: db}, nil
}

// DB returns the underlying sql.DB for health checks.
func (s *CandleStore) DB() *sql.DB { return s.db }

// ReadRange returns candles for symbol with ts in [from, to], ordered by
// timestamp ascending; the engine requires non-decreasing time order.
// to == 0 means no upper bound.
func (s *CandleStore) ReadRange(symbol string, from, to int64) ([]model.Candle, error) {
	rows, err := s.db.Query(`
		SELECT ts, open, high, low, close, COALESCE(volume, 0)
		FROM candles
		WHERE symbol = ? AND ts >= ? AND (? = 0 OR ts <= ?)
		ORDER BY ts ASC
	`, symbol, from, to, to)
	if err != nil {
		return nil, fmt.Errorf("sqlite query candles: %w", err)
	}
	defer rows.Close()

	var candles []model.Candle
	for rows.Next() {
		var c model.Candle
		var tsUnix int64
		if err := rows.Scan(&tsUnix, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("sqlite scan candle: %w", err)
		}
		c.TS = time.Unix(tsUnix, 0).UTC()
		candles = append(candles, c)
	}
	return candles, rows.Err()
}

// InsertBatch upserts candles for symbol in one transaction. Re-delivered
// candles overwrite their earlier row, so the archive stays idempotent
// under stream replays.
func (s *CandleStore) InsertBatch(symbol string, candles []model.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("sqlite begin: %w", err)
	}
	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO candles (symbol, ts, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("sqlite prepare: %w", err)
	}
	defer stmt.Close()

	for _, c := range candles {
		if _, err := stmt.Exec(symbol, c.TS.Unix(), c.Open, c.High, c.Low, c.Close, c.Volume); err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlite insert candle: %w", err)
		}
	}
	return tx.Commit()
}

// Close closes the store.
func (s *CandleStore) Close() error {
	return s.db.Close()
}
