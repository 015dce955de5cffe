// Package classifier predicts the direction of the next bar from technical
// indicators with a logistic regression trained on a chronological split.
package classifier

import (
	"errors"
	"fmt"
	"time"

	"SignalLab/internal/calculator"
	"SignalLab/internal/model"
)

// MinRows is the smallest labelled dataset that can be split and fitted.
const MinRows = 2

// ErrInsufficientHistory is returned when too few rows survive warm-up and labelling.
var ErrInsufficientHistory = errors.New("insufficient history")

// Direction is the class predicted for the next bar.
type Direction int

const (
	Down Direction = iota
	Up
)

func (d Direction) String() string {
	if d == Up {
		return "UP"
	}
	return "DOWN"
}

// FeatureNames lists the model inputs in column order.
var FeatureNames = []string{"RSI", "MACD", "MACD_Signal", "MA_5", "MA_20", "Volume"}

// Sample is one labelled feature row.
type Sample struct {
	Time     time.Time
	Features []float64
	Target   Direction
}

// BuildDataset derives the feature frame from bars, labels each row with the
// direction of the following close and drops unlabelled or incomplete rows.
// latest holds the features of the most recent bar with every feature defined,
// including the final bar which has no label.
func BuildDataset(bars []model.Bar) (samples []Sample, latest []float64, err error) {
	rows := calculator.Compute(bars, calculator.ClassifierFrameConfig())

	for i := len(rows) - 1; i >= 0; i-- {
		if f, ok := features(rows[i]); ok {
			latest = f
			break
		}
	}

	for i := 0; i+1 < len(rows); i++ {
		f, ok := features(rows[i])
		if !ok {
			continue
		}
		target := Down
		if rows[i+1].Close > rows[i].Close {
			target = Up
		}
		samples = append(samples, Sample{Time: rows[i].Time, Features: f, Target: target})
	}

	if len(samples) < MinRows {
		return nil, nil, fmt.Errorf("%w: %d labelled rows from %d bars, need at least %d",
			ErrInsufficientHistory, len(samples), len(bars), MinRows)
	}
	return samples, latest, nil
}

func features(row model.IndicatorRow) ([]float64, bool) {
	f := []float64{row.RSI, row.MACD, row.MACDSignal, row.MAShort, row.MALong, row.Volume}
	for _, v := range f {
		if !model.Defined(v) {
			return nil, false
		}
	}
	return f, true
}

// Split divides samples chronologically: the last testPct percent (rounded
// up) is held out and the rest is used for training.
func Split(samples []Sample, testPct int) (train, test []Sample) {
	n := len(samples)
	nTest := (n*testPct + 99) / 100
	if nTest >= n {
		nTest = n - 1
	}
	if nTest < 1 {
		nTest = 1
	}
	return samples[:n-nTest], samples[n-nTest:]
}
