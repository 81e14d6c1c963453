package indicator

// RSI computes the Relative Strength Index using Wilder's smoothing method.
//
// The seed averages are the simple mean of gains/losses over the first
// `period` deltas, so the first valid value lands at index `period`.
// Subsequent values use Wilder smoothing:
//
//	avgGain = (avgGain*(period-1) + gain) / period
//
// Fewer than period+1 closes yields an all-invalid series of the same length.
func RSI(closes []float64, period int) []Value {
	out := make([]Value, len(closes))
	if period <= 0 || len(closes) < period+1 {
		return out
	}

	var gain, loss float64
	for i := 1; i <= period; i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	p := float64(period)
	avgGain := gain / p
	avgLoss := loss / p
	out[period] = Value{V: rsiFrom(avgGain, avgLoss), OK: true}

	for i := period + 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		g, l := 0.0, 0.0
		if d > 0 {
			g = d
		} else {
			l = -d
		}
		avgGain = (avgGain*(p-1) + g) / p
		avgLoss = (avgLoss*(p-1) + l) / p
		out[i] = Value{V: rsiFrom(avgGain, avgLoss), OK: true}
	}
	return out
}

func rsiFrom(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}
