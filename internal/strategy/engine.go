package strategy

import (
	"SignalLab/internal/calculator"
	"SignalLab/internal/model"
)

// Evaluate flags each indicator row with its buy and sell signals.
// Each row is judged on its own values only.
func Evaluate(rows []model.IndicatorRow, rules Rules) []model.SignalRow {
	out := make([]model.SignalRow, len(rows))
	for i, row := range rows {
		out[i] = model.SignalRow{
			IndicatorRow: row,
			Buy:          rules.buy(row),
			Sell:         rules.sell(row),
		}
	}
	return out
}

// GenerateSignals computes the strategy indicator frame for bars and
// evaluates the default rules over it.
func GenerateSignals(bars []model.Bar) []model.SignalRow {
	return Evaluate(calculator.Compute(bars, calculator.SignalFrameConfig()), DefaultRules())
}
