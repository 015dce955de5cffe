package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"SignalLab/internal/model"

	_ "modernc.org/sqlite"
)

var _ Recorder = (*SQLiteRecorder)(nil)

// SQLiteRecorder persists run history to a SQLite database.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *slog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
// dbPath may be ":memory:".
func NewSQLiteRecorder(dbPath string, logger *slog.Logger) (*SQLiteRecorder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, logger: logger}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("sqlite recorder opened", "path", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id             TEXT PRIMARY KEY,
			symbol         TEXT NOT NULL,
			interval       TEXT,
			lookback       TEXT,
			provider       TEXT,
			status         TEXT NOT NULL,
			error          TEXT,
			started_at     INTEGER NOT NULL,
			finished_at    INTEGER NOT NULL,
			bars           INTEGER,
			total_trades   INTEGER,
			winning_trades INTEGER,
			win_ratio_pct  REAL,
			total_pnl      REAL,
			cum_return_pct REAL,
			accuracy       REAL,
			next_bar       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_symbol ON runs(symbol)`,

		`CREATE TABLE IF NOT EXISTS trades (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id      TEXT NOT NULL REFERENCES runs(id),
			seq         INTEGER NOT NULL,
			entry_time  INTEGER NOT NULL,
			entry_price REAL,
			entry_index INTEGER,
			exit_time   INTEGER NOT NULL,
			exit_price  REAL,
			exit_index  INTEGER,
			pnl         REAL,
			return_pct  REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_run ON trades(run_id)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordRun stores the run and its trades in one transaction.
func (r *SQLiteRecorder) RecordRun(ctx context.Context, run *Run, trades []model.Trade) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	s := run.Summary
	_, err = tx.ExecContext(ctx, `INSERT INTO runs
		(id, symbol, interval, lookback, provider, status, error, started_at, finished_at, bars,
		 total_trades, winning_trades, win_ratio_pct, total_pnl, cum_return_pct, accuracy, next_bar)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		run.ID, run.Symbol, run.Interval, run.Lookback, run.Provider, run.Status, run.Error,
		run.StartedAt.UnixMilli(), run.FinishedAt.UnixMilli(), run.Bars,
		s.TotalTrades, s.WinningTrades, s.WinRatioPct, s.TotalPnL, s.CumulativeReturnPct,
		run.Accuracy, run.NextBar,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, t := range trades {
		_, err := tx.ExecContext(ctx, `INSERT INTO trades
			(run_id, seq, entry_time, entry_price, entry_index, exit_time, exit_price, exit_index, pnl, return_pct)
			VALUES (?,?,?,?,?,?,?,?,?,?)`,
			run.ID, i, t.EntryTime.Unix(), t.EntryPrice, t.EntryIndex,
			t.ExitTime.Unix(), t.ExitPrice, t.ExitIndex, t.PnL, t.ReturnPct,
		)
		if err != nil {
			return fmt.Errorf("insert trade %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// RecentRuns returns up to limit runs, newest first.
func (r *SQLiteRecorder) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.QueryContext(ctx, `SELECT
		id, symbol, interval, lookback, provider, status, error, started_at, finished_at, bars,
		total_trades, winning_trades, win_ratio_pct, total_pnl, cum_return_pct, accuracy, next_bar
		FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run             Run
			started, finish int64
		)
		s := &run.Summary
		if err := rows.Scan(&run.ID, &run.Symbol, &run.Interval, &run.Lookback, &run.Provider,
			&run.Status, &run.Error, &started, &finish, &run.Bars,
			&s.TotalTrades, &s.WinningTrades, &s.WinRatioPct, &s.TotalPnL, &s.CumulativeReturnPct,
			&run.Accuracy, &run.NextBar); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.StartedAt = time.UnixMilli(started).UTC()
		run.FinishedAt = time.UnixMilli(finish).UTC()
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// TradesForRun returns the trades recorded for a run in exit order.
func (r *SQLiteRecorder) TradesForRun(ctx context.Context, runID string) ([]model.Trade, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.QueryContext(ctx, `SELECT
		entry_time, entry_price, entry_index, exit_time, exit_price, exit_index, pnl, return_pct
		FROM trades WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	var trades []model.Trade
	for rows.Next() {
		var (
			t           model.Trade
			entry, exit int64
		)
		if err := rows.Scan(&entry, &t.EntryPrice, &t.EntryIndex, &exit, &t.ExitPrice, &t.ExitIndex,
			&t.PnL, &t.ReturnPct); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		t.EntryTime = time.Unix(entry, 0).UTC()
		t.ExitTime = time.Unix(exit, 0).UTC()
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.logger.Info("closing sqlite recorder")
	return r.db.Close()
}
