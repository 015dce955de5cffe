package classifier

import (
	"fmt"

	"SignalLab/internal/model"
)

// Options configures Train.
type Options struct {
	TestPct int // share of rows held out, in percent
	Fit     FitOptions
}

// DefaultOptions holds out the last 20% of rows.
func DefaultOptions() Options {
	return Options{TestPct: 20, Fit: DefaultFitOptions()}
}

// Result is the outcome of training and evaluating the direction model.
type Result struct {
	Model     *LogisticModel
	Accuracy  float64 // percent, two decimals
	NextBar   Direction
	Report    Report
	Confusion ConfusionMatrix
	Actual    []Direction
	Predicted []Direction
	Dataset   []Sample
	TrainSize int
	TestSize  int
}

// Train fits the direction model on bars with DefaultOptions.
func Train(bars []model.Bar) (*Result, error) {
	return TrainWithOptions(bars, DefaultOptions())
}

// TrainWithOptions builds the dataset, fits on the chronological train split,
// evaluates on the held-out tail and predicts the bar after the last one.
func TrainWithOptions(bars []model.Bar, opts Options) (*Result, error) {
	samples, latest, err := BuildDataset(bars)
	if err != nil {
		return nil, err
	}
	train, test := Split(samples, opts.TestPct)

	x := make([][]float64, len(train))
	y := make([]Direction, len(train))
	for i, s := range train {
		x[i], y[i] = s.Features, s.Target
	}
	m, err := Fit(x, y, opts.Fit)
	if err != nil {
		return nil, fmt.Errorf("train: %w", err)
	}

	actual := make([]Direction, len(test))
	predicted := make([]Direction, len(test))
	for i, s := range test {
		actual[i] = s.Target
		predicted[i] = m.Predict(s.Features)
	}
	cm := Confusion(actual, predicted)

	return &Result{
		Model:     m,
		Accuracy:  cm.AccuracyPct(),
		NextBar:   m.Predict(latest),
		Report:    Evaluate(cm),
		Confusion: cm,
		Actual:    actual,
		Predicted: predicted,
		Dataset:   samples,
		TrainSize: len(train),
		TestSize:  len(test),
	}, nil
}
