package main

import (
	"context"
	"fmt"
	"log/slog"

	"SignalLab/internal/collector"
	"SignalLab/internal/config"
	"SignalLab/internal/metrics"
	"SignalLab/internal/notifier"
	"SignalLab/internal/pipeline"
	"SignalLab/internal/recorder"
	"SignalLab/internal/sheets"
)

// app holds the long-lived collaborators built from configuration.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	pipeline *pipeline.Pipeline
	recorder recorder.Recorder
	metrics  *metrics.Metrics
	health   *metrics.HealthStatus
	telegram *notifier.TelegramNotifier // nil when alerts are disabled
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.NewMetrics(),
		health:  metrics.NewHealthStatus(),
	}

	// Data provider
	var provider collector.Provider
	if cfg.Data.UseDummy {
		provider = collector.NewDummyProvider()
	} else {
		provider = collector.NewYahooProvider(cfg.Proxy, collector.WithRateLimit(cfg.Data.RateLimit))
	}
	logger.Info("data source", "provider", provider.Name())

	// Spreadsheet
	var sheetLogger sheets.Logger = sheets.Noop{}
	if cfg.Sheets.Enabled {
		c, err := sheets.NewFromCredentialsFile(ctx, cfg.Sheets.CredentialsPath, cfg.Sheets.SheetID, cfg.Sheets.SheetName,
			sheets.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("init sheets: %w", err)
		}
		sheetLogger = c
	}

	// Telegram
	var chat notifier.Notifier = notifier.Noop{}
	if cfg.Telegram.Enabled {
		a.telegram = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		a.telegram.Logger = logger
		chat = a.telegram
	}

	// Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, logger)
		if err != nil {
			logger.Warn("init sqlite recorder failed, using noop", "error", err)
			a.recorder = recorder.NewNoopRecorder()
		} else {
			a.recorder = sr
		}
	} else {
		a.recorder = recorder.NewNoopRecorder()
	}

	p, err := pipeline.New(pipeline.Options{
		Interval:       cfg.Data.Interval,
		Lookback:       cfg.Data.Lookback,
		InitialCapital: cfg.Backtest.InitialCapital,
		LogToSheets:    cfg.Sheets.Enabled,
		UseML:          cfg.Classifier.Enabled,
		TradeAlerts:    cfg.Telegram.Enabled,
	}, pipeline.Deps{
		Provider: collector.NewCollector(provider, logger),
		Sheets:   sheetLogger,
		Alerts:   notifier.NewAlerts(chat, logger),
		Recorder: a.recorder,
		Metrics:  a.metrics,
		Health:   a.health,
		Logger:   logger,
	})
	if err != nil {
		a.recorder.Close()
		return nil, err
	}
	a.pipeline = p
	return a, nil
}

func (a *app) Close() {
	if err := a.recorder.Close(); err != nil {
		a.logger.Warn("close recorder", "error", err)
	}
}
