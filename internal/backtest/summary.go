package backtest

import (
	"math"

	"SignalLab/internal/model"
)

// Summarize aggregates a trade log. Percentages and PnL are rounded to two
// decimals. Cumulative return is the flat PnL sum over initialCapital; it
// does not compound per-trade returns.
func Summarize(trades []model.Trade, initialCapital float64) model.BacktestSummary {
	if len(trades) == 0 {
		return model.BacktestSummary{}
	}

	var totalPnL float64
	var wins int
	for _, t := range trades {
		totalPnL += t.PnL
		if t.Won() {
			wins++
		}
	}

	s := model.BacktestSummary{
		TotalTrades:   len(trades),
		WinningTrades: wins,
		WinRatioPct:   round2(float64(wins) / float64(len(trades)) * 100),
		TotalPnL:      round2(totalPnL),
	}
	if initialCapital > 0 {
		s.CumulativeReturnPct = round2(totalPnL / initialCapital * 100)
	}
	return s
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
