package strategy

import "SignalLab/internal/model"

// Rules holds the thresholds for the RSI + moving-average strategy.
type Rules struct {
	BuyRSIBelow  float64 // oversold level
	SellRSIAbove float64 // overbought level
}

// DefaultRules returns the classic 30/70 RSI bands.
func DefaultRules() Rules {
	return Rules{BuyRSIBelow: 30, SellRSIAbove: 70}
}

// buy requires an oversold RSI while the short MA sits above the long MA.
func (r Rules) buy(row model.IndicatorRow) bool {
	if !model.Defined(row.RSI) || !model.Defined(row.MAShort) || !model.Defined(row.MALong) {
		return false
	}
	return row.RSI < r.BuyRSIBelow && row.MAShort > row.MALong
}

func (r Rules) sell(row model.IndicatorRow) bool {
	if !model.Defined(row.RSI) {
		return false
	}
	return row.RSI > r.SellRSIAbove
}
