package calculator

import (
	"math"

	"SignalLab/internal/model"
)

// RSI computes the Relative Strength Index of closes using simple rolling
// means of gains and losses over period deltas.
//
// Row 0 has no delta and is always undefined. With WarmUpStrict the first
// defined row is index period; with WarmUpExpanding it is index 1.
// A window with no losses yields 100.
func RSI(closes []float64, period int, policy WarmUp) []float64 {
	n := len(closes)
	gains := make([]float64, n)
	losses := make([]float64, n)
	for i := 1; i < n; i++ {
		change := closes[i] - closes[i-1]
		gains[i] = math.Max(change, 0)
		losses[i] = math.Max(-change, 0)
	}

	out := make([]float64, n)
	for i := range closes {
		avgGain := rollingMean(gains, 1, i, period, policy)
		avgLoss := rollingMean(losses, 1, i, period, policy)
		out[i] = rsiFromAverages(avgGain, avgLoss)
	}
	return out
}

func rsiFromAverages(avgGain, avgLoss float64) float64 {
	if !model.Defined(avgGain) || !model.Defined(avgLoss) {
		return model.Undefined
	}
	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}
