// Package scheduler triggers pipeline runs from cron and chat commands.
package scheduler

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"sync"

	"SignalLab/internal/model"
	"SignalLab/internal/notifier"
	"SignalLab/internal/pipeline"
	"SignalLab/internal/recorder"

	"github.com/robfig/cron/v3"
)

// Runner runs the pipeline over symbols.
type Runner interface {
	RunAll(ctx context.Context, symbols []string) ([]*pipeline.Result, error)
}

// Scheduler manages the cron job and chat commands. Runs are serialised so
// a cron tick and a chat command never overlap.
type Scheduler struct {
	Cron     *cron.Cron
	Runner   Runner
	Recorder recorder.Recorder
	Symbols  []string
	Logger   *slog.Logger
	Ctx      context.Context

	runMu    sync.Mutex
	inflight sync.WaitGroup // runs started by RunAsync
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, runner Runner, rec recorder.Recorder, symbols []string, logger *slog.Logger) *Scheduler {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Runner:   runner,
		Recorder: rec,
		Symbols:  symbols,
		Logger:   logger,
		Ctx:      ctx,
	}
}

// Register adds the pipeline job on a cron expression (six fields, seconds first).
func (s *Scheduler) Register(expr string) error {
	if _, err := s.Cron.AddFunc(expr, s.pipelineTask); err != nil {
		return fmt.Errorf("register pipeline task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.Logger.Info("scheduler started", "jobs", len(s.Cron.Entries()))
}

// Stop stops the cron scheduler and waits for running jobs, including runs
// started by chat commands, to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.inflight.Wait()
	s.Logger.Info("scheduler stopped")
}

// RunNow runs the pipeline over symbols, or the default symbols when none
// are given.
func (s *Scheduler) RunNow(symbols ...string) error {
	if len(symbols) == 0 {
		symbols = s.Symbols
	}
	s.runMu.Lock()
	defer s.runMu.Unlock()

	s.Logger.Info("running pipeline", "symbols", symbols)
	_, err := s.Runner.RunAll(s.Ctx, symbols)
	return err
}

// RunAsync starts RunNow in the background. Stop waits for it.
func (s *Scheduler) RunAsync(symbols ...string) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		if err := s.RunNow(symbols...); err != nil {
			s.Logger.Error("background run failed", "error", err)
		}
	}()
}

func (s *Scheduler) pipelineTask() {
	if err := s.RunNow(); err != nil {
		s.Logger.Error("scheduled run failed", "error", err)
	}
}

// HandleCommand processes a chat command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return notifier.HelpText
	}
	switch strings.ToLower(fields[0]) {
	case "/run":
		symbols := s.Symbols
		if len(fields) > 1 {
			symbols = []string{strings.ToUpper(fields[1])}
		}
		s.RunAsync(symbols...)
		return fmt.Sprintf("▶️ Running pipeline for %s", html.EscapeString(strings.Join(symbols, ", ")))
	case "/status":
		runs, err := s.Recorder.RecentRuns(ctx, 5)
		if err != nil {
			s.Logger.Error("read recent runs", "error", err)
			return notifier.FormatErrorAlert(err.Error())
		}
		return FormatRecentRuns(runs)
	case "/trades":
		if len(fields) < 2 {
			return "Usage: /trades RUN_ID"
		}
		trades, err := s.Recorder.TradesForRun(ctx, fields[1])
		if err != nil {
			s.Logger.Error("read run trades", "run_id", fields[1], "error", err)
			return notifier.FormatErrorAlert(err.Error())
		}
		return FormatTrades(fields[1], trades)
	default:
		return notifier.HelpText
	}
}

// FormatRecentRuns renders recorded runs for a chat reply.
func FormatRecentRuns(runs []recorder.Run) string {
	if len(runs) == 0 {
		return "📭 No runs recorded yet"
	}
	var b strings.Builder
	b.WriteString("📊 <b>Recent runs</b>\n")
	for _, r := range runs {
		icon := "✅"
		if r.Status != recorder.StatusOK {
			icon = "❌"
		}
		b.WriteString(fmt.Sprintf("\n%s <code>%s</code> %s", icon, html.EscapeString(r.Symbol), r.StartedAt.Format("2006-01-02 15:04")))
		if r.ID != "" {
			b.WriteString(fmt.Sprintf(" [<code>%s</code>]", html.EscapeString(r.ID)))
		}
		if r.Status == recorder.StatusOK {
			b.WriteString(fmt.Sprintf(" | trades %d, win %.2f%%, PnL %.2f",
				r.Summary.TotalTrades, r.Summary.WinRatioPct, r.Summary.TotalPnL))
			if r.NextBar != "" {
				b.WriteString(fmt.Sprintf(" | next %s (acc %.2f%%)", r.NextBar, r.Accuracy))
			}
		} else if r.Error != "" {
			b.WriteString(" | " + html.EscapeString(r.Error))
		}
	}
	return b.String()
}

// FormatTrades renders the trade log of one recorded run.
func FormatTrades(runID string, trades []model.Trade) string {
	if len(trades) == 0 {
		return fmt.Sprintf("📭 No trades recorded for <code>%s</code>", html.EscapeString(runID))
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📒 <b>Trades</b> <code>%s</code>\n", html.EscapeString(runID)))
	for i, t := range trades {
		b.WriteString(fmt.Sprintf("\n%d. %s %.2f -> %s %.2f | PnL %+.2f (%+.2f%%)",
			i+1, t.EntryTime.Format("2006-01-02"), t.EntryPrice,
			t.ExitTime.Format("2006-01-02"), t.ExitPrice, t.PnL, t.ReturnPct))
	}
	return b.String()
}
