package calculator

import (
	"SignalLab/internal/model"
)

// WarmUp selects how a rolling window behaves before it is full.
type WarmUp int

const (
	// WarmUpStrict leaves a value undefined until the full window is available.
	WarmUpStrict WarmUp = iota
	// WarmUpExpanding averages over whatever history exists (min_periods=1).
	WarmUpExpanding
)

func (w WarmUp) String() string {
	switch w {
	case WarmUpStrict:
		return "strict"
	case WarmUpExpanding:
		return "expanding"
	default:
		return "unknown"
	}
}

// SMA computes the simple moving average of values over window rows.
// The result has one entry per input value.
func SMA(values []float64, window int, policy WarmUp) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		out[i] = rollingMean(values, 0, i, window, policy)
	}
	return out
}

// rollingMean averages the window ending at i. Indexes before start hold no
// observation; the strict policy needs the whole window at or after start.
func rollingMean(values []float64, start, i, window int, policy WarmUp) float64 {
	if window <= 0 || i < start {
		return model.Undefined
	}
	lo := i - window + 1
	if lo < start {
		if policy == WarmUpStrict {
			return model.Undefined
		}
		lo = start
	}
	sum := 0.0
	for j := lo; j <= i; j++ {
		sum += values[j]
	}
	return sum / float64(i-lo+1)
}
