package mountain

import "math"

// Summary aggregates the finalized trade ledger. Monetary fields are
// rounded half-away-from-zero to two decimals to match currency display.
type Summary struct {
	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	WinRate       float64 `json:"win_rate"` // percentage
	TotalPnL      float64 `json:"total_pnl"`
	AvgPnL        float64 `json:"avg_pnl"`
	MaxWin        float64 `json:"max_win"`  // 0 with no winning trades
	MaxLoss       float64 `json:"max_loss"` // 0 with no losing trades
	ProfitFactor  float64 `json:"profit_factor"`
}

// Summarize reduces a trade ledger to its summary statistics. Profit factor
// is the winning P&L sum over the absolute losing P&L sum, 0 when there are
// no losses.
func Summarize(trades []Trade) Summary {
	var s Summary
	s.TotalTrades = len(trades)
	if s.TotalTrades == 0 {
		return s
	}

	var total, winSum, lossSum, maxWin, maxLoss float64
	for _, t := range trades {
		total += t.PnL
		switch {
		case t.PnL > 0:
			s.WinningTrades++
			winSum += t.PnL
			if t.PnL > maxWin {
				maxWin = t.PnL
			}
		case t.PnL < 0:
			s.LosingTrades++
			lossSum += -t.PnL
			if t.PnL < maxLoss {
				maxLoss = t.PnL
			}
		}
	}

	s.WinRate = round2(float64(s.WinningTrades) / float64(s.TotalTrades) * 100)
	s.TotalPnL = round2(total)
	s.AvgPnL = round2(total / float64(s.TotalTrades))
	s.MaxWin = round2(maxWin)
	s.MaxLoss = round2(maxLoss)
	if lossSum > 0 {
		s.ProfitFactor = round2(winSum / lossSum)
	}
	return s
}

// round2 rounds half away from zero at two decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
