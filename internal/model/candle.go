package model

import (
	"encoding/json"
	"time"
)

// Candle represents one OHLC bar for a single instrument.
// Prices are plain float64; the strategy engine's arithmetic is floating
// point end to end and candles are never mutated after construction.
type Candle struct {
	TS     time.Time `json:"ts"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume,omitempty"`
}

// JSON returns the JSON-encoded candle (ignoring errors for hot-path usage).
func (c *Candle) JSON() []byte {
	b, _ := json.Marshal(c)
	return b
}
