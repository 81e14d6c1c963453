// Package indicator provides technical indicator calculations over candle
// series.
//
// Unlike streaming indicators, these functions compute a whole series in one
// batch: given N closes they return N optional values, invalid while the
// indicator's warm-up window is unsatisfied. Batch evaluation keeps repeated
// runs bit-reproducible: there is no hidden accumulator state to drift
// between invocations.
package indicator

// Value is one point of an indicator series. OK is false while the warm-up
// window is unsatisfied. A separate validity flag avoids sentinel numbers
// (NaN, -1) leaking into strategy comparisons.
type Value struct {
	V  float64 `json:"v"`
	OK bool    `json:"ok"`
}
