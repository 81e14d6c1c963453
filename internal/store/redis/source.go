// Package redis connects the live service to the candle feed: finalized
// candles arrive on a Redis Stream, one stream per symbol. The reading side
// feeds the runner's full-history re-runs; the writing side exists for the
// feed/replay tooling.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"mountain-systemv1/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

// SourceConfig configures the candle stream source.
type SourceConfig struct {
	Addr     string
	Password string
	DB       int
	Symbol   string
}

// Source consumes finalized candles for one symbol from a Redis Stream.
type Source struct {
	client *goredis.Client
	stream string
}

// StreamKey returns the stream name for a symbol, e.g. "candles:NIFTY".
func StreamKey(symbol string) string {
	return "candles:" + symbol
}

// NewSource creates a Source and pings the server.
func NewSource(cfg SourceConfig) (*Source, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	stream := StreamKey(cfg.Symbol)
	log.Printf("[redis] connected to %s (stream=%s)", cfg.Addr, stream)
	return &Source{client: client, stream: stream}, nil
}

// Run blocks reading candles from the stream and forwarding them to outCh
// in arrival order, until ctx is cancelled. Transient read errors are
// logged and retried.
func (s *Source) Run(ctx context.Context, outCh chan<- model.Candle) error {
	lastID := "$"
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		res, err := s.client.XRead(ctx, &goredis.XReadArgs{
			Streams: []string{s.stream, lastID},
			Count:   100,
			Block:   5 * time.Second,
		}).Result()
		if err == goredis.Nil {
			continue // block timeout, nothing new
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("[redis] xread failed: %v", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				lastID = msg.ID
				raw, ok := msg.Values["data"].(string)
				if !ok {
					log.Printf("[redis] stream entry %s missing data field", msg.ID)
					continue
				}
				var c model.Candle
				if err := json.Unmarshal([]byte(raw), &c); err != nil {
					log.Printf("[redis] bad candle payload at %s: %v", msg.ID, err)
					continue
				}
				select {
				case outCh <- c:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
}

// Publish appends one candle to the stream, trimming it to a bounded
// length. Used by the feed/replay tooling.
func (s *Source) Publish(ctx context.Context, c model.Candle) error {
	return s.client.XAdd(ctx, &goredis.XAddArgs{
		Stream: s.stream,
		MaxLen: 100000,
		Approx: true,
		Values: map[string]interface{}{"data": string(c.JSON())},
	}).Err()
}

// Client exposes the underlying redis client for liveness probing.
func (s *Source) Client() *goredis.Client {
	return s.client
}

// Ping checks connectivity for health reporting.
func (s *Source) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (s *Source) Close() error {
	return s.client.Close()
}
