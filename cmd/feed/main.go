// cmd/feed replays archived candles from SQLite into the Redis stream,
// simulating a live session for mountaind during development.
//
// Usage:
//
//	go run ./cmd/feed --db=data/candles.db --symbol=NIFTY --speed=100
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	redisstore "mountain-systemv1/internal/store/redis"
	sqlitestore "mountain-systemv1/internal/store/sqlite"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	dbPath := flag.String("db", "data/candles.db", "Path to SQLite candle database")
	symbol := flag.String("symbol", "NIFTY", "Instrument symbol to replay")
	redisAddr := flag.String("redis", "localhost:6379", "Redis address")
	fromTS := flag.Int64("from", 0, "Unix timestamp to start from (0=all)")
	toTS := flag.Int64("to", 0, "Unix timestamp to end at (0=all)")
	speed := flag.Float64("speed", 0, "Playback speed multiplier (0=max, 1=realtime, 100=100x)")
	flag.Parse()

	store, err := sqlitestore.NewCandleStore(*dbPath)
	if err != nil {
		log.Fatalf("[feed] sqlite open failed: %v", err)
	}
	defer store.Close()

	candles, err := store.ReadRange(*symbol, *fromTS, *toTS)
	if err != nil {
		log.Fatalf("[feed] candle read failed: %v", err)
	}
	if len(candles) == 0 {
		log.Fatalf("[feed] no candles for %s in range", *symbol)
	}

	source, err := redisstore.NewSource(redisstore.SourceConfig{
		Addr:   *redisAddr,
		Symbol: *symbol,
	})
	if err != nil {
		log.Fatalf("[feed] redis connect failed: %v", err)
	}
	defer source.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	log.Printf("[feed] replaying %d candles for %s at speed=%g", len(candles), *symbol, *speed)

	published := 0
	for i, c := range candles {
		if ctx.Err() != nil {
			break
		}
		if *speed > 0 && i > 0 {
			gap := c.TS.Sub(candles[i-1].TS)
			if gap > 0 {
				scaled := time.Duration(float64(gap) / *speed)
				select {
				case <-ctx.Done():
				case <-time.After(scaled):
				}
			}
		}
		if err := source.Publish(ctx, c); err != nil {
			log.Printf("[feed] publish failed at %d: %v", i, err)
			continue
		}
		published++
		if published%500 == 0 {
			log.Printf("[feed] published %d/%d", published, len(candles))
		}
	}

	log.Printf("[feed] done, published %d candles", published)
}
