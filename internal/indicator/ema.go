package indicator

// EMA computes an exponential moving average over closes with the given
// period, seeded at closes[0]. Seeding at the first close instead of an SMA
// warm-up means every index carries a valid value; the textbook warm-up gap
// is traded away so downstream consumers never see a hole.
func EMA(closes []float64, period int) []Value {
	out := make([]Value, len(closes))
	if len(closes) == 0 || period <= 0 {
		return out
	}
	k := 2.0 / float64(period+1)
	ema := closes[0]
	out[0] = Value{V: ema, OK: true}
	for i := 1; i < len(closes); i++ {
		ema = (closes[i]-ema)*k + ema
		out[i] = Value{V: ema, OK: true}
	}
	return out
}
