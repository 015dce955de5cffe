package model

import "time"

// Position is the single open trade held by the backtest engine.
type Position struct {
	EntryTime  time.Time
	EntryPrice float64
	EntryIndex int
}

// Trade is a closed position.
type Trade struct {
	EntryTime  time.Time
	EntryPrice float64
	EntryIndex int
	ExitTime   time.Time
	ExitPrice  float64
	ExitIndex  int
	PnL        float64
	ReturnPct  float64
}

// Won reports whether the trade closed with a profit.
func (t Trade) Won() bool { return t.PnL > 0 }

// BacktestSummary aggregates a trade log.
type BacktestSummary struct {
	TotalTrades         int
	WinningTrades       int
	WinRatioPct         float64
	TotalPnL            float64
	CumulativeReturnPct float64
}

// Action is the side of a trade alert.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
)
