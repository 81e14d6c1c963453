package mountain

import "testing"

func tradeWithPnL(pnl float64) Trade {
	return Trade{PnL: pnl}
}

func TestSummarize_MixedLedger(t *testing.T) {
	// PnLs: +10, -5, +3, -8
	// winRate      = 2/4            = 50.00
	// totalPnL     = 0.00, avg 0.00
	// profitFactor = 13 / 13        = 1.00
	s := Summarize([]Trade{
		tradeWithPnL(10), tradeWithPnL(-5), tradeWithPnL(3), tradeWithPnL(-8),
	})

	if s.TotalTrades != 4 || s.WinningTrades != 2 || s.LosingTrades != 2 {
		t.Fatalf("counts: %+v", s)
	}
	if s.WinRate != 50.00 {
		t.Errorf("win rate: got %v, want 50.00", s.WinRate)
	}
	if s.TotalPnL != 0 || s.AvgPnL != 0 {
		t.Errorf("pnl: total=%v avg=%v, want 0/0", s.TotalPnL, s.AvgPnL)
	}
	if s.MaxWin != 10.00 {
		t.Errorf("max win: got %v, want 10.00", s.MaxWin)
	}
	if s.MaxLoss != -8.00 {
		t.Errorf("max loss: got %v, want -8.00", s.MaxLoss)
	}
	if s.ProfitFactor != 1.00 {
		t.Errorf("profit factor: got %v, want 1.00", s.ProfitFactor)
	}
}

func TestSummarize_NoLosses(t *testing.T) {
	// With no losing trades the profit factor is reported as 0, not +Inf,
	// and maxLoss stays 0.
	s := Summarize([]Trade{tradeWithPnL(10), tradeWithPnL(5)})

	if s.ProfitFactor != 0 {
		t.Errorf("profit factor: got %v, want 0", s.ProfitFactor)
	}
	if s.MaxLoss != 0 {
		t.Errorf("max loss: got %v, want 0", s.MaxLoss)
	}
	if s.WinRate != 100.00 {
		t.Errorf("win rate: got %v, want 100.00", s.WinRate)
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	if s.TotalTrades != 0 || s.WinRate != 0 || s.TotalPnL != 0 || s.ProfitFactor != 0 {
		t.Fatalf("empty ledger summary: %+v", s)
	}
}

func TestSummarize_Rounding(t *testing.T) {
	// Two-decimal rounding on every reported figure.
	s := Summarize([]Trade{tradeWithPnL(1.006), tradeWithPnL(-1), tradeWithPnL(-1)})

	if s.WinRate != 33.33 {
		t.Errorf("win rate: got %v, want 33.33", s.WinRate)
	}
	if s.MaxWin != 1.01 {
		t.Errorf("max win: got %v, want 1.01", s.MaxWin)
	}
	if s.TotalPnL != -0.99 {
		t.Errorf("total pnl: got %v, want -0.99", s.TotalPnL)
	}
}
