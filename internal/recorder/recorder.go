// Package recorder keeps a local history of pipeline runs and their trades.
package recorder

import (
	"context"
	"time"

	"SignalLab/internal/model"
)

// Run status values.
const (
	StatusOK    = "OK"
	StatusError = "ERROR"
)

// Run is one pipeline execution for one symbol.
type Run struct {
	ID         string
	Symbol     string
	Interval   string
	Lookback   string
	Provider   string
	Status     string
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
	Bars       int
	Summary    model.BacktestSummary
	Accuracy   float64 // classifier accuracy in percent, 0 when not run
	NextBar    string  // UP, DOWN or empty when the classifier did not run
}

// Duration returns how long the run took.
func (r Run) Duration() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }

// Recorder persists run history for later inspection.
type Recorder interface {
	RecordRun(ctx context.Context, run *Run, trades []model.Trade) error
	RecentRuns(ctx context.Context, limit int) ([]Run, error)
	TradesForRun(ctx context.Context, runID string) ([]model.Trade, error)
	Close() error
}
