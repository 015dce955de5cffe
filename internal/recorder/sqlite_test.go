package recorder

import (
	"context"
	"testing"
	"time"

	"SignalLab/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *SQLiteRecorder {
	t.Helper()
	r, err := NewSQLiteRecorder(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestSQLite_RecordAndReadBack(t *testing.T) {
	r := openMemory(t)
	ctx := context.Background()
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	run := &Run{
		ID:         "run-1",
		Symbol:     "TCS.NS",
		Interval:   "1d",
		Lookback:   "2y",
		Provider:   "dummy",
		Status:     StatusOK,
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Millisecond),
		Bars:       504,
		Summary: model.BacktestSummary{
			TotalTrades: 2, WinningTrades: 1, WinRatioPct: 50, TotalPnL: 12.5, CumulativeReturnPct: 0.01,
		},
		Accuracy: 54.17,
		NextBar:  "UP",
	}
	trades := []model.Trade{
		{EntryTime: start, EntryPrice: 100, EntryIndex: 3, ExitTime: start.AddDate(0, 0, 5), ExitPrice: 120, ExitIndex: 8, PnL: 20, ReturnPct: 20},
		{EntryTime: start.AddDate(0, 0, 9), EntryPrice: 115, EntryIndex: 12, ExitTime: start.AddDate(0, 0, 14), ExitPrice: 107.5, ExitIndex: 17, PnL: -7.5, ReturnPct: -6.52},
	}
	require.NoError(t, r.RecordRun(ctx, run, trades))

	runs, err := r.RecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	got := runs[0]
	assert.Equal(t, "run-1", got.ID)
	assert.Equal(t, StatusOK, got.Status)
	assert.Equal(t, run.Summary, got.Summary)
	assert.Equal(t, 504, got.Bars)
	assert.Equal(t, "UP", got.NextBar)
	assert.Equal(t, 1500*time.Millisecond, got.Duration())
	assert.True(t, start.Equal(got.StartedAt))

	stored, err := r.TradesForRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, trades[1].PnL, stored[1].PnL)
	assert.Equal(t, 17, stored[1].ExitIndex)
	assert.True(t, trades[0].ExitTime.Equal(stored[0].ExitTime))
}

func TestSQLite_RecentRunsNewestFirst(t *testing.T) {
	r := openMemory(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		status := StatusOK
		if id == "b" {
			status = StatusError
		}
		require.NoError(t, r.RecordRun(ctx, &Run{
			ID: id, Symbol: "INFY.NS", Status: status,
			StartedAt: base.Add(time.Duration(i) * time.Hour), FinishedAt: base.Add(time.Duration(i) * time.Hour),
		}, nil))
	}

	runs, err := r.RecentRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].ID)
	assert.Equal(t, "b", runs[1].ID)
	assert.Equal(t, StatusError, runs[1].Status)
}

func TestSQLite_DuplicateRunIDFails(t *testing.T) {
	r := openMemory(t)
	ctx := context.Background()
	run := &Run{ID: "dup", Symbol: "X", Status: StatusOK}
	require.NoError(t, r.RecordRun(ctx, run, nil))
	assert.Error(t, r.RecordRun(ctx, run, []model.Trade{{PnL: 1}}))

	stored, err := r.TradesForRun(ctx, "dup")
	require.NoError(t, err)
	assert.Empty(t, stored, "failed insert is rolled back")
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NewNoopRecorder()
	require.NoError(t, r.RecordRun(context.Background(), &Run{}, nil))
	runs, err := r.RecentRuns(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, runs)
	trades, err := r.TradesForRun(context.Background(), "any")
	require.NoError(t, err)
	assert.Empty(t, trades)
	assert.NoError(t, r.Close())
}
