package model

import (
	"math"
	"time"
)

// Bar represents a single OHLCV candle for one symbol.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
	Symbol string
}

// Undefined is the marker stored in derived fields that have not warmed up yet.
var Undefined = math.NaN()

// Defined reports whether a derived value carries a number.
func Defined(v float64) bool {
	return !math.IsNaN(v)
}

// Closes extracts the close prices of bars in order.
func Closes(bars []Bar) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}
