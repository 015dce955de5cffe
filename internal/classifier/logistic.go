package classifier

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// FitOptions controls logistic regression fitting.
type FitOptions struct {
	C         float64 // inverse L2 regularisation strength
	MaxIter   int
	Tolerance float64
}

// DefaultFitOptions matches a plain L2 logistic regression with C=1.
func DefaultFitOptions() FitOptions {
	return FitOptions{C: 1.0, MaxIter: 100, Tolerance: 1e-8}
}

// LogisticModel is a fitted binary logistic regression over standardised features.
type LogisticModel struct {
	Mean       []float64
	Scale      []float64
	Weights    []float64
	Intercept  float64
	Iterations int
}

// Fit trains a model with Newton's method (IRLS). Features are standardised
// with the training mean and standard deviation; the intercept is not
// penalised. The procedure has no randomness.
func Fit(x [][]float64, y []Direction, opts FitOptions) (*LogisticModel, error) {
	if len(x) == 0 {
		return nil, errors.New("fit: no training rows")
	}
	if len(x) != len(y) {
		return nil, fmt.Errorf("fit: %d rows but %d labels", len(x), len(y))
	}
	if opts.C <= 0 {
		return nil, errors.New("fit: C must be positive")
	}
	d := len(x[0])
	m := &LogisticModel{Mean: make([]float64, d), Scale: make([]float64, d)}

	col := make([]float64, len(x))
	for j := 0; j < d; j++ {
		for i := range x {
			col[i] = x[i][j]
		}
		mean, std := stat.MeanStdDev(col, nil)
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		m.Mean[j], m.Scale[j] = mean, std
	}

	// Design matrix with a leading intercept column.
	k := d + 1
	z := make([][]float64, len(x))
	for i := range x {
		z[i] = m.design(x[i])
	}

	beta := make([]float64, k)
	lambda := 1 / opts.C
	p := make([]float64, len(z))
	for iter := 1; iter <= opts.MaxIter; iter++ {
		for i := range z {
			p[i] = sigmoid(dot(beta, z[i]))
		}

		grad := mat.NewVecDense(k, nil)
		hess := mat.NewSymDense(k, nil)
		for i := range z {
			r := p[i] - float64(y[i])
			w := p[i] * (1 - p[i])
			for a := 0; a < k; a++ {
				grad.SetVec(a, grad.AtVec(a)+r*z[i][a])
				for b := a; b < k; b++ {
					hess.SetSym(a, b, hess.At(a, b)+w*z[i][a]*z[i][b])
				}
			}
		}
		for a := 1; a < k; a++ {
			grad.SetVec(a, grad.AtVec(a)+lambda*beta[a])
			hess.SetSym(a, a, hess.At(a, a)+lambda)
		}
		// Keeps the system solvable when every prediction saturates.
		hess.SetSym(0, 0, hess.At(0, 0)+1e-10)

		var chol mat.Cholesky
		if ok := chol.Factorize(hess); !ok {
			return nil, fmt.Errorf("fit: hessian not positive definite at iteration %d", iter)
		}
		var step mat.VecDense
		if err := chol.SolveVecTo(&step, grad); err != nil {
			return nil, fmt.Errorf("fit: solve newton step: %w", err)
		}

		maxStep := 0.0
		for a := 0; a < k; a++ {
			beta[a] -= step.AtVec(a)
			maxStep = math.Max(maxStep, math.Abs(step.AtVec(a)))
		}
		m.Iterations = iter
		if maxStep < opts.Tolerance {
			break
		}
	}

	m.Intercept = beta[0]
	m.Weights = append([]float64(nil), beta[1:]...)
	return m, nil
}

// Probability returns P(Up) for a raw feature row.
func (m *LogisticModel) Probability(features []float64) float64 {
	z := m.design(features)
	return sigmoid(m.Intercept*z[0] + dot(m.Weights, z[1:]))
}

// Predict returns Up when P(Up) exceeds one half.
func (m *LogisticModel) Predict(features []float64) Direction {
	if m.Probability(features) > 0.5 {
		return Up
	}
	return Down
}

func (m *LogisticModel) design(features []float64) []float64 {
	z := make([]float64, len(features)+1)
	z[0] = 1
	for j, v := range features {
		z[j+1] = (v - m.Mean[j]) / m.Scale[j]
	}
	return z
}

func sigmoid(v float64) float64 {
	return 1.0 / (1.0 + math.Exp(-v))
}

func dot(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
