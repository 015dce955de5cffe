// Package pipeline runs the fetch, signal, backtest, classify and report
// sequence for one symbol at a time.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"SignalLab/internal/backtest"
	"SignalLab/internal/calculator"
	"SignalLab/internal/classifier"
	"SignalLab/internal/collector"
	"SignalLab/internal/metrics"
	"SignalLab/internal/model"
	"SignalLab/internal/notifier"
	"SignalLab/internal/recorder"
	"SignalLab/internal/sheets"
	"SignalLab/internal/strategy"
)

// Options selects the run window and which optional steps execute.
type Options struct {
	Interval       string
	Lookback       string
	InitialCapital float64
	Rules          strategy.Rules
	LogToSheets    bool
	UseML          bool
	TradeAlerts    bool
}

// DefaultOptions returns the daily two-year window with sheets logging on.
func DefaultOptions() Options {
	return Options{
		Interval:       "1d",
		Lookback:       "2y",
		InitialCapital: backtest.DefaultInitialCapital,
		Rules:          strategy.DefaultRules(),
		LogToSheets:    true,
	}
}

// Deps are the collaborators a Pipeline uses. Provider is required; nil
// sinks are replaced with no-op implementations.
type Deps struct {
	Provider collector.Provider
	Sheets   sheets.Logger
	Alerts   *notifier.Alerts
	Recorder recorder.Recorder
	Metrics  *metrics.Metrics
	Health   *metrics.HealthStatus
	Logger   *slog.Logger

	Now   func() time.Time
	NewID func() string
}

// Result holds everything one run produced.
type Result struct {
	RunID      string
	Symbol     string
	Bars       []model.Bar
	Signals    []model.SignalRow
	Backtest   *backtest.Result
	Classifier *classifier.Result
	StartedAt  time.Time
	FinishedAt time.Time
}

// Pipeline sequences a single-symbol run.
type Pipeline struct {
	opts Options
	deps Deps
}

// New validates opts and fills defaults for missing collaborators.
func New(opts Options, deps Deps) (*Pipeline, error) {
	if deps.Provider == nil {
		return nil, errors.New("pipeline: provider is required")
	}
	if opts.InitialCapital == 0 {
		opts.InitialCapital = backtest.DefaultInitialCapital
	}
	if _, err := backtest.NewEngine(opts.InitialCapital); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	if opts.Rules == (strategy.Rules{}) {
		opts.Rules = strategy.DefaultRules()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Sheets == nil {
		deps.Sheets = sheets.Noop{}
	}
	if deps.Alerts == nil {
		deps.Alerts = notifier.NewAlerts(nil, deps.Logger)
	}
	if deps.Recorder == nil {
		deps.Recorder = recorder.NewNoopRecorder()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewID == nil {
		deps.NewID = func() string { return uuid.NewString() }
	}
	if deps.Metrics != nil && deps.Alerts.OnFailure == nil {
		m := deps.Metrics
		deps.Alerts.OnFailure = func(string, error) { m.SinkFailures.WithLabelValues("telegram").Inc() }
	}
	return &Pipeline{opts: opts, deps: deps}, nil
}

// Options returns the effective run options.
func (p *Pipeline) Options() Options { return p.opts }

// Run executes the pipeline for symbol. Data and classifier failures end the
// run with an error alert; sink failures are logged and the run continues.
func (p *Pipeline) Run(ctx context.Context, symbol string) (*Result, error) {
	res := &Result{RunID: p.deps.NewID(), Symbol: symbol, StartedAt: p.deps.Now()}
	log := p.deps.Logger.With("run_id", res.RunID, "symbol", symbol)
	log.Info("pipeline started", "interval", p.opts.Interval, "lookback", p.opts.Lookback)

	p.deps.Alerts.PipelineStatus(ctx, notifier.StatusStarted, symbol)

	fetchStart := time.Now()
	bars, err := p.deps.Provider.FetchBars(ctx, symbol, p.opts.Interval, p.opts.Lookback)
	p.observe(func(m *metrics.Metrics) { m.FetchDuration.Observe(time.Since(fetchStart).Seconds()) })
	if err != nil {
		return res, p.fail(ctx, log, res, fmt.Errorf("fetch %s: %w", symbol, err))
	}
	if len(bars) == 0 {
		return res, p.fail(ctx, log, res, fmt.Errorf("fetch %s: %w", symbol, collector.ErrNoData))
	}
	res.Bars = bars
	p.observe(func(m *metrics.Metrics) { m.BarsFetched.WithLabelValues(symbol).Set(float64(len(bars))) })

	rows := calculator.Compute(bars, calculator.SignalFrameConfig())
	res.Signals = strategy.Evaluate(rows, p.opts.Rules)

	bt, err := backtest.Run(res.Signals, p.opts.InitialCapital)
	if err != nil {
		return res, p.fail(ctx, log, res, fmt.Errorf("backtest %s: %w", symbol, err))
	}
	res.Backtest = bt
	log.Info("backtest complete",
		"trades", bt.Summary.TotalTrades,
		"win_ratio_pct", bt.Summary.WinRatioPct,
		"total_pnl", bt.Summary.TotalPnL,
	)
	p.observe(func(m *metrics.Metrics) { m.TradesTotal.WithLabelValues(symbol).Add(float64(len(bt.Trades))) })

	if p.opts.LogToSheets {
		if err := p.deps.Sheets.LogTrades(ctx, sheets.TradesTab(symbol), bt.Trades); err != nil {
			p.sinkFailed(log, "sheets", err)
		}
		if err := p.deps.Sheets.LogSummary(ctx, sheets.SummaryTab(symbol), bt.Summary); err != nil {
			p.sinkFailed(log, "sheets", err)
		}
	}

	if p.opts.UseML {
		cr, err := classifier.Train(bars)
		if err != nil {
			return res, p.fail(ctx, log, res, fmt.Errorf("classify %s: %w", symbol, err))
		}
		res.Classifier = cr
		log.Info("classifier complete", "accuracy_pct", cr.Accuracy, "next_bar", cr.NextBar.String())
		p.observe(func(m *metrics.Metrics) { m.ClassifierAccuracy.WithLabelValues(symbol).Set(cr.Accuracy) })
	}

	if p.opts.TradeAlerts {
		for _, t := range bt.Trades {
			p.deps.Alerts.Trade(ctx, symbol, model.ActionBuy, t.EntryPrice, t.EntryTime.Format(sheets.DateLayout))
			p.deps.Alerts.Trade(ctx, symbol, model.ActionSell, t.ExitPrice, t.ExitTime.Format(sheets.DateLayout))
		}
	}

	p.deps.Alerts.PipelineStatus(ctx, notifier.StatusCompleted, symbol)
	res.FinishedAt = p.deps.Now()
	p.record(ctx, log, res, recorder.StatusOK, nil)
	log.Info("pipeline completed", "elapsed", res.FinishedAt.Sub(res.StartedAt).Round(time.Millisecond))
	return res, nil
}

// RunAll runs each symbol in turn. A failing symbol does not stop the rest;
// all failures are joined into the returned error.
func (p *Pipeline) RunAll(ctx context.Context, symbols []string) ([]*Result, error) {
	var (
		results []*Result
		errs    []error
	)
	for _, s := range symbols {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res, err := p.Run(ctx, s)
		results = append(results, res)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return results, errors.Join(errs...)
}

func (p *Pipeline) fail(ctx context.Context, log *slog.Logger, res *Result, err error) error {
	log.Error("pipeline failed", "error", err)
	p.deps.Alerts.PipelineStatus(ctx, notifier.StatusError, res.Symbol)
	p.deps.Alerts.Error(ctx, err.Error())
	res.FinishedAt = p.deps.Now()
	p.record(ctx, log, res, recorder.StatusError, err)
	return err
}

func (p *Pipeline) record(ctx context.Context, log *slog.Logger, res *Result, status string, runErr error) {
	run := &recorder.Run{
		ID:         res.RunID,
		Symbol:     res.Symbol,
		Interval:   p.opts.Interval,
		Lookback:   p.opts.Lookback,
		Provider:   p.deps.Provider.Name(),
		Status:     status,
		StartedAt:  res.StartedAt,
		FinishedAt: res.FinishedAt,
		Bars:       len(res.Bars),
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	var trades []model.Trade
	if res.Backtest != nil {
		run.Summary = res.Backtest.Summary
		trades = res.Backtest.Trades
	}
	if res.Classifier != nil {
		run.Accuracy = res.Classifier.Accuracy
		run.NextBar = res.Classifier.NextBar.String()
	}
	if err := p.deps.Recorder.RecordRun(ctx, run, trades); err != nil {
		p.sinkFailed(log, "recorder", err)
	}

	p.observe(func(m *metrics.Metrics) {
		m.RunsTotal.WithLabelValues(res.Symbol, status).Inc()
		m.RunDuration.Observe(res.FinishedAt.Sub(res.StartedAt).Seconds())
		m.LastRunTimestamp.Set(float64(res.FinishedAt.Unix()))
	})
	if p.deps.Health != nil {
		p.deps.Health.SetLastRun(res.Symbol, status, runErr)
	}
}

func (p *Pipeline) sinkFailed(log *slog.Logger, sink string, err error) {
	log.Warn("sink failed", "sink", sink, "error", err)
	p.observe(func(m *metrics.Metrics) { m.SinkFailures.WithLabelValues(sink).Inc() })
}

func (p *Pipeline) observe(fn func(m *metrics.Metrics)) {
	if p.deps.Metrics != nil {
		fn(p.deps.Metrics)
	}
}
