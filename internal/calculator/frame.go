// Package calculator computes technical indicators over close-price history.
//
// Every function is pure: the same bars always produce bit-identical output.
// Values that have not warmed up are model.Undefined (NaN), never zero.
package calculator

import "SignalLab/internal/model"

// FrameConfig parameterises Compute. The two call sites in the system pick
// different warm-up policies, so the policy is part of the config.
type FrameConfig struct {
	RSIPeriod  int
	RSIWarmUp  WarmUp
	MAShort    int
	MALong     int
	MAWarmUp   WarmUp
	MACDFast   int
	MACDSlow   int
	MACDSignal int
}

// SignalFrameConfig is used by the signal generator: strict RSI(14) and
// expanding MA20/MA50.
func SignalFrameConfig() FrameConfig {
	return FrameConfig{
		RSIPeriod:  14,
		RSIWarmUp:  WarmUpStrict,
		MAShort:    20,
		MALong:     50,
		MAWarmUp:   WarmUpExpanding,
		MACDFast:   12,
		MACDSlow:   26,
		MACDSignal: 9,
	}
}

// ClassifierFrameConfig is used for classifier features: expanding RSI(14)
// and strict MA5/MA20.
func ClassifierFrameConfig() FrameConfig {
	return FrameConfig{
		RSIPeriod:  14,
		RSIWarmUp:  WarmUpExpanding,
		MAShort:    5,
		MALong:     20,
		MAWarmUp:   WarmUpStrict,
		MACDFast:   12,
		MACDSlow:   26,
		MACDSignal: 9,
	}
}

// Compute extends bars with indicator columns.
func Compute(bars []model.Bar, cfg FrameConfig) []model.IndicatorRow {
	closes := model.Closes(bars)
	rsi := RSI(closes, cfg.RSIPeriod, cfg.RSIWarmUp)
	maShort := SMA(closes, cfg.MAShort, cfg.MAWarmUp)
	maLong := SMA(closes, cfg.MALong, cfg.MAWarmUp)
	macd, macdSignal := MACD(closes, cfg.MACDFast, cfg.MACDSlow, cfg.MACDSignal)

	rows := make([]model.IndicatorRow, len(bars))
	for i, b := range bars {
		rows[i] = model.IndicatorRow{
			Bar:        b,
			RSI:        rsi[i],
			MAShort:    maShort[i],
			MALong:     maLong[i],
			MACD:       macd[i],
			MACDSignal: macdSignal[i],
		}
	}
	return rows
}
