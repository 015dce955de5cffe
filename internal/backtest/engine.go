// Package backtest replays a signal frame through a single-position,
// long-only state machine and summarises the resulting trade log.
package backtest

import (
	"errors"
	"math"

	"SignalLab/internal/model"
)

// DefaultInitialCapital is the capital that cumulative return is measured against.
const DefaultInitialCapital = 100000.0

// State is the position state of the engine after a row.
type State int

const (
	Flat State = iota
	Long
)

func (s State) String() string {
	if s == Long {
		return "LONG"
	}
	return "FLAT"
}

// Result is the outcome of one backtest walk.
type Result struct {
	Trades  []model.Trade
	Summary model.BacktestSummary
	// States holds the engine state after each row, one entry per row.
	States []State
}

// Engine walks signal rows once. It holds at most one open position.
type Engine struct {
	initialCapital float64
	position       *model.Position
	trades         []model.Trade
	states         []State
}

// NewEngine creates an engine measuring returns against initialCapital.
func NewEngine(initialCapital float64) (*Engine, error) {
	if initialCapital <= 0 || math.IsNaN(initialCapital) || math.IsInf(initialCapital, 0) {
		return nil, errors.New("initial capital must be a positive number")
	}
	return &Engine{initialCapital: initialCapital}, nil
}

// Run executes the strategy over rows and returns the trade log and summary.
// An empty frame yields no trades and a zeroed summary.
func Run(rows []model.SignalRow, initialCapital float64) (*Result, error) {
	e, err := NewEngine(initialCapital)
	if err != nil {
		return nil, err
	}
	return e.Run(rows), nil
}

// Run resets the engine and walks rows in order.
func (e *Engine) Run(rows []model.SignalRow) *Result {
	e.position = nil
	e.trades = nil
	e.states = make([]State, 0, len(rows))

	last := len(rows) - 1
	for i, row := range rows {
		e.step(i, row, i == last)
	}

	return &Result{
		Trades:  e.trades,
		Summary: Summarize(e.trades, e.initialCapital),
		States:  e.states,
	}
}

// step applies one row. Entry and exit are exclusive per row, so a position
// is never opened and closed on the same bar.
func (e *Engine) step(i int, row model.SignalRow, final bool) {
	switch {
	case e.position == nil && row.Buy && !final:
		e.position = &model.Position{
			EntryTime:  row.Time,
			EntryPrice: row.Close,
			EntryIndex: i,
		}
	case e.position != nil && (row.Sell || final):
		e.trades = append(e.trades, closePosition(e.position, i, row))
		e.position = nil
	}
	e.states = append(e.states, e.state())
}

func (e *Engine) state() State {
	if e.position != nil {
		return Long
	}
	return Flat
}

func closePosition(p *model.Position, i int, row model.SignalRow) model.Trade {
	pnl := row.Close - p.EntryPrice
	return model.Trade{
		EntryTime:  p.EntryTime,
		EntryPrice: p.EntryPrice,
		EntryIndex: p.EntryIndex,
		ExitTime:   row.Time,
		ExitPrice:  row.Close,
		ExitIndex:  i,
		PnL:        pnl,
		ReturnPct:  pnl / p.EntryPrice * 100,
	}
}
