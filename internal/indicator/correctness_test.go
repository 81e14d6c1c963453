package indicator

import (
	"math"
	"testing"
)

// ────────────────────────────────────────────────────────────
// Helper
// ────────────────────────────────────────────────────────────

func assertClose(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %.6f, want %.6f (tol=%.6f, diff=%.6f)", label, got, want, tol, math.Abs(got-want))
	}
}

// ────────────────────────────────────────────────────────────
// EMA Correctness
// ────────────────────────────────────────────────────────────

func TestEMA_Correctness_Period5(t *testing.T) {
	// EMA(5): multiplier = 2/(5+1) = 1/3, seeded at the first close.
	// Prices: 100, 102, 104, 103, 105
	//
	// Candle 1: EMA = 100 (seed)
	// Candle 2: EMA = (102-100)/3 + 100       = 100.666667
	// Candle 3: EMA = (104-100.666667)/3 + ...= 101.777778
	// Candle 4: EMA = (103-101.777778)/3 + ...= 102.185185
	// Candle 5: EMA = (105-102.185185)/3 + ...= 103.123457

	out := EMA([]float64{100, 102, 104, 103, 105}, 5)
	expected := []float64{100, 100.666667, 101.777778, 102.185185, 103.123457}

	if len(out) != len(expected) {
		t.Fatalf("len=%d, want %d", len(out), len(expected))
	}
	for i, want := range expected {
		if !out[i].OK {
			t.Errorf("candle %d: OK=false, want true (seeded EMA has no warm-up gap)", i)
		}
		assertClose(t, "EMA(5)", out[i].V, want, 0.000001)
	}
}

func TestEMA_EmptyAndSingle(t *testing.T) {
	if out := EMA(nil, 5); len(out) != 0 {
		t.Errorf("nil input: len=%d, want 0", len(out))
	}
	out := EMA([]float64{42.5}, 5)
	if len(out) != 1 || !out[0].OK {
		t.Fatalf("single input: got %+v", out)
	}
	assertClose(t, "EMA single", out[0].V, 42.5, 0.000001)
}

// ────────────────────────────────────────────────────────────
// RSI Correctness
// ────────────────────────────────────────────────────────────

func TestRSI_Correctness_Period3(t *testing.T) {
	// Prices: 100, 101, 102, 101, 103, 104
	// Deltas: +1, +1, -1, +2, +1
	//
	// Seed over first 3 deltas: avgGain = 2/3, avgLoss = 1/3
	//   RSI[3] = 100 - 100/(1+2)       = 66.666667
	// Candle 5 (+2): avgGain = 10/9, avgLoss = 2/9 → RS = 5
	//   RSI[4] = 100 - 100/6           = 83.333333
	// Candle 6 (+1): avgGain = 29/27, avgLoss = 4/27 → RS = 7.25
	//   RSI[5] = 100 - 100/8.25        = 87.878788

	out := RSI([]float64{100, 101, 102, 101, 103, 104}, 3)

	for i := 0; i < 3; i++ {
		if out[i].OK {
			t.Errorf("candle %d: OK=true during warm-up, want false", i)
		}
	}
	expected := []float64{66.666667, 83.333333, 87.878788}
	for i, want := range expected {
		idx := i + 3
		if !out[idx].OK {
			t.Fatalf("candle %d: OK=false, want true", idx)
		}
		assertClose(t, "RSI(3)", out[idx].V, want, 0.0001)
	}
}

func TestRSI_AllGains_Saturates(t *testing.T) {
	// Monotonic rise: avgLoss stays 0, RSI pins at 100.
	out := RSI([]float64{1, 2, 3, 4, 5, 6}, 3)
	for i := 3; i < len(out); i++ {
		if !out[i].OK {
			t.Fatalf("candle %d: OK=false, want true", i)
		}
		assertClose(t, "RSI all-gains", out[i].V, 100, 0.000001)
	}
}

func TestRSI_ShortInput_AllInvalid(t *testing.T) {
	// period+1 closes are required for the first value.
	out := RSI([]float64{100, 101, 102}, 14)
	if len(out) != 3 {
		t.Fatalf("len=%d, want 3", len(out))
	}
	for i, v := range out {
		if v.OK {
			t.Errorf("candle %d: OK=true, want false", i)
		}
	}
}

// ────────────────────────────────────────────────────────────
// ADX Correctness
// ────────────────────────────────────────────────────────────

func TestADX_StrongTrend_Saturates(t *testing.T) {
	// A steady one-point-per-bar uptrend: -DM is always 0, so every DX is
	// 100 and the smoothed ADX is exactly 100 from the first valid index.
	n := 12
	period := 3
	highs := make([]float64, n)
	lows := make([]float64, n)
	closes := make([]float64, n)
	for i := 0; i < n; i++ {
		highs[i] = float64(i) + 1
		lows[i] = float64(i) + 0.5
		closes[i] = float64(i) + 0.75
	}

	out := ADX(highs, lows, closes, period)

	firstValid := 2*period - 1
	for i := 0; i < firstValid; i++ {
		if out[i].OK {
			t.Errorf("candle %d: OK=true during warm-up, want false", i)
		}
	}
	for i := firstValid; i < n; i++ {
		if !out[i].OK {
			t.Fatalf("candle %d: OK=false, want true", i)
		}
		assertClose(t, "ADX uptrend", out[i].V, 100, 0.000001)
	}
}

func TestADX_FlatSeries_Zero(t *testing.T) {
	// Zero range and zero movement: DX is defined as 0, ADX stays 0.
	n := 10
	period := 3
	flat := make([]float64, n)
	for i := range flat {
		flat[i] = 100
	}

	out := ADX(flat, flat, flat, period)
	for i := 2*period - 1; i < n; i++ {
		if !out[i].OK {
			t.Fatalf("candle %d: OK=false, want true", i)
		}
		assertClose(t, "ADX flat", out[i].V, 0, 0.000001)
	}
}

func TestADX_ShortOrMismatchedInput(t *testing.T) {
	out := ADX([]float64{1, 2, 3}, []float64{1, 2, 3}, []float64{1, 2, 3}, 3)
	for i, v := range out {
		if v.OK {
			t.Errorf("short input candle %d: OK=true, want false", i)
		}
	}

	out = ADX([]float64{1, 2}, []float64{1, 2, 3}, []float64{1, 2, 3}, 1)
	for i, v := range out {
		if v.OK {
			t.Errorf("mismatched input candle %d: OK=true, want false", i)
		}
	}
}
