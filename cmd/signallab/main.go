package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"SignalLab/internal/collector"
	"SignalLab/internal/config"
	"SignalLab/internal/logger"
	"SignalLab/internal/metrics"
	"SignalLab/internal/report"
	"SignalLab/internal/scheduler"
)

var version = "dev"

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "signallab",
		Short: "Indicator, backtest and direction-model research for equities",
		Long: `SignalLab fetches OHLCV history, computes RSI, moving averages and MACD,
backtests an RSI plus moving-average crossover strategy and optionally trains a
next-bar direction classifier. Trades and summaries can be logged to Google
Sheets and announced on Telegram.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default $CONFIG_PATH or "+config.DefaultPath+")")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(scheduleCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("signallab %s\n", version)
		},
	}
}

// loadConfig resolves the config path, loads and validates it, and sets up
// the process logger.
func loadConfig(override func(cfg *config.Config)) (*config.Config, *slog.Logger, error) {
	path := configPath
	if path == "" {
		path = config.DefaultPath
		if v := os.Getenv("CONFIG_PATH"); v != "" {
			path = v
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if override != nil {
		override(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, logger.Setup(cfg.Log.Level, cfg.Log.Format), nil
}

func runCmd() *cobra.Command {
	var (
		dashboard bool
		tail      int
		interval  string
		lookback  string
		dummy     bool
		ml        bool
	)
	cmd := &cobra.Command{
		Use:   "run [SYMBOL...]",
		Short: "Run the pipeline once for the configured or given symbols",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(func(cfg *config.Config) {
				if len(args) > 0 {
					cfg.Data.Symbols = config.SplitSymbols(strings.Join(args, ","))
				}
				if interval != "" {
					cfg.Data.Interval = interval
				}
				if lookback != "" {
					cfg.Data.Lookback = lookback
				}
				if cmd.Flags().Changed("dummy") {
					cfg.Data.UseDummy = dummy
				}
				if cmd.Flags().Changed("ml") {
					cfg.Classifier.Enabled = ml
				}
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			results, runErr := a.pipeline.RunAll(ctx, cfg.Data.Symbols)
			if dashboard {
				for _, res := range results {
					report.Render(cmd.OutOrStdout(), res, tail)
				}
			}
			if runErr != nil {
				if errors.Is(runErr, collector.ErrNoData) {
					log.Warn("some symbols returned no data")
				}
				return runErr
			}
			log.Info("run complete", "symbols", len(results))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&dashboard, "dashboard", "d", false, "print indicator, trade and model tables")
	cmd.Flags().IntVar(&tail, "tail", report.DefaultTail, "indicator rows shown on the dashboard")
	cmd.Flags().StringVarP(&interval, "interval", "i", "", "bar interval, e.g. 1d or 1h")
	cmd.Flags().StringVarP(&lookback, "lookback", "l", "", "history window, e.g. 2y or 6mo")
	cmd.Flags().BoolVar(&dummy, "dummy", false, "use the synthetic data provider")
	cmd.Flags().BoolVar(&ml, "ml", false, "train the direction classifier")
	return cmd
}

func scheduleCmd() *cobra.Command {
	var runOnStart bool
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the pipeline on a cron schedule and answer Telegram commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(func(cfg *config.Config) {
				if cmd.Flags().Changed("run-on-start") {
					cfg.Schedule.RunOnStart = runOnStart
				}
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			var srv *metrics.Server
			if cfg.Metrics.Addr != "" {
				srv = metrics.NewServer(cfg.Metrics.Addr, a.metrics, a.health, log)
				srv.Start()
			}

			sched := scheduler.NewScheduler(ctx, a.pipeline, a.recorder, cfg.Data.Symbols, log)
			if err := sched.Register(cfg.Schedule.Cron); err != nil {
				return err
			}
			sched.Start()

			if a.telegram != nil {
				go a.telegram.StartPolling(ctx, sched.HandleCommand)
				log.Info("telegram polling started")
			}

			if cfg.Schedule.RunOnStart {
				log.Info("run on start enabled, executing pipeline now")
				sched.RunAsync()
			}

			log.Info("signallab is running, press Ctrl+C to stop", "cron", cfg.Schedule.Cron)
			<-ctx.Done()

			log.Info("shutdown signal received, stopping")
			sched.Stop()
			if srv != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := srv.Stop(shutdownCtx); err != nil {
					log.Warn("metrics server shutdown", "error", err)
				}
			}
			log.Info("signallab stopped")
			return nil
		},
	}
	cmd.Flags().BoolVar(&runOnStart, "run-on-start", false, "run the pipeline once at startup (overrides schedule.run_on_start and $RUN_ON_START)")
	return cmd
}
