package indicator

import "math"

// ADX computes the Average Directional Index via the classic Wilder
// true-range / directional-movement pipeline.
//
// Per bar: TR, +DM and -DM (the greater of the up/down move, only when
// positive and larger than the opposite direction). The running sums use
// Wilder smoothing: seed = sum of the first `period` raw values, then
// s[i] = s[i-1] - s[i-1]/period + raw[i]. +DI/-DI are 100*smDM/smTR, DX is
// 100*|+DI - -DI| / (+DI + -DI) (0 on a zero denominator) and ADX itself is
// the Wilder-smoothed mean of DX, first valid at index 2*period-1.
func ADX(highs, lows, closes []float64, period int) []Value {
	n := len(closes)
	out := make([]Value, n)
	if period <= 0 || n < 2*period || len(highs) != n || len(lows) != n {
		return out
	}

	tr := make([]float64, n)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	for i := 1; i < n; i++ {
		up := highs[i] - highs[i-1]
		down := lows[i-1] - lows[i]
		if up > down && up > 0 {
			plusDM[i] = up
		}
		if down > up && down > 0 {
			minusDM[i] = down
		}
		hl := highs[i] - lows[i]
		hc := math.Abs(highs[i] - closes[i-1])
		lc := math.Abs(lows[i] - closes[i-1])
		tr[i] = math.Max(hl, math.Max(hc, lc))
	}

	var smTR, smPlus, smMinus float64
	for i := 1; i <= period; i++ {
		smTR += tr[i]
		smPlus += plusDM[i]
		smMinus += minusDM[i]
	}

	p := float64(period)
	dx := make([]float64, n)
	dxFrom := func() float64 {
		if smTR == 0 {
			return 0
		}
		plusDI := 100 * smPlus / smTR
		minusDI := 100 * smMinus / smTR
		sum := plusDI + minusDI
		if sum == 0 {
			return 0
		}
		return 100 * math.Abs(plusDI-minusDI) / sum
	}
	dx[period] = dxFrom()
	for i := period + 1; i < n; i++ {
		smTR = smTR - smTR/p + tr[i]
		smPlus = smPlus - smPlus/p + plusDM[i]
		smMinus = smMinus - smMinus/p + minusDM[i]
		dx[i] = dxFrom()
	}

	// ADX seed: simple mean of the first period DX values.
	first := 2*period - 1
	var adx float64
	for i := period; i <= first; i++ {
		adx += dx[i]
	}
	adx /= p
	out[first] = Value{V: adx, OK: true}
	for i := first + 1; i < n; i++ {
		adx = (adx*(p-1) + dx[i]) / p
		out[i] = Value{V: adx, OK: true}
	}
	return out
}
