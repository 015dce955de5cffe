package recorder

import (
	"context"

	"SignalLab/internal/model"
)

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordRun(context.Context, *Run, []model.Trade) error        { return nil }
func (n *NoopRecorder) RecentRuns(context.Context, int) ([]Run, error)              { return nil, nil }
func (n *NoopRecorder) TradesForRun(context.Context, string) ([]model.Trade, error) { return nil, nil }
func (n *NoopRecorder) Close() error                                                { return nil }
