package model

// IndicatorRow is a bar extended with derived indicator values.
// Any field may be Undefined until its window has warmed up.
type IndicatorRow struct {
	Bar
	RSI        float64
	MAShort    float64
	MALong     float64
	MACD       float64
	MACDSignal float64
}

// SignalRow is an IndicatorRow with the row-local trading flags.
type SignalRow struct {
	IndicatorRow
	Buy  bool
	Sell bool
}
