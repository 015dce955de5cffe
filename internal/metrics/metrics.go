// Package metrics exposes pipeline counters and a health endpoint over HTTP.
package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the pipeline.
type Metrics struct {
	Registry *prometheus.Registry

	RunsTotal          *prometheus.CounterVec // labels: symbol, status
	RunDuration        prometheus.Histogram
	FetchDuration      prometheus.Histogram
	BarsFetched        *prometheus.GaugeVec   // labels: symbol
	TradesTotal        *prometheus.CounterVec // labels: symbol
	SinkFailures       *prometheus.CounterVec // labels: sink
	ClassifierAccuracy *prometheus.GaugeVec   // labels: symbol
	LastRunTimestamp   prometheus.Gauge
}

// NewMetrics registers all metrics on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),

		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signallab_runs_total",
			Help: "Pipeline runs by symbol and outcome",
		}, []string{"symbol", "status"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "signallab_run_duration_seconds",
			Help:    "Wall time of one pipeline run",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "signallab_fetch_duration_seconds",
			Help:    "Market data fetch latency",
			Buckets: prometheus.DefBuckets,
		}),
		BarsFetched: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "signallab_bars_fetched",
			Help: "Bars returned by the last fetch",
		}, []string{"symbol"}),
		TradesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signallab_backtest_trades_total",
			Help: "Closed backtest trades",
		}, []string{"symbol"}),
		SinkFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signallab_sink_failures_total",
			Help: "Suppressed failures of reporting sinks (sheets, telegram, recorder)",
		}, []string{"sink"}),
		ClassifierAccuracy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "signallab_classifier_accuracy_pct",
			Help: "Held-out accuracy of the last direction model",
		}, []string{"symbol"}),
		LastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signallab_last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		}),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RunsTotal,
		m.RunDuration,
		m.FetchDuration,
		m.BarsFetched,
		m.TradesTotal,
		m.SinkFailures,
		m.ClassifierAccuracy,
		m.LastRunTimestamp,
	)
	return m
}

// HealthStatus tracks the outcome of the most recent run.
type HealthStatus struct {
	mu sync.RWMutex

	StartedAt  time.Time
	LastRunAt  time.Time
	LastSymbol string
	LastStatus string
	LastError  string
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{StartedAt: time.Now()}
}

// SetLastRun records the outcome of a run. err is nil on success.
func (h *HealthStatus) SetLastRun(symbol, status string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.LastRunAt = time.Now()
	h.LastSymbol = symbol
	h.LastStatus = status
	h.LastError = ""
	if err != nil {
		h.LastError = err.Error()
	}
}

// ServeHTTP handles the /healthz endpoint. The service reports degraded when
// the last run failed.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overall := "healthy"
	code := http.StatusOK
	if h.LastError != "" {
		overall = "degraded"
		code = http.StatusServiceUnavailable
	}
	lastRun := ""
	if !h.LastRunAt.IsZero() {
		lastRun = h.LastRunAt.Format(time.RFC3339)
	}

	status := struct {
		Status     string `json:"status"`
		Uptime     string `json:"uptime"`
		LastRunAt  string `json:"last_run_at"`
		LastSymbol string `json:"last_symbol"`
		LastStatus string `json:"last_status"`
		LastError  string `json:"last_error,omitempty"`
	}{
		Status:     overall,
		Uptime:     time.Since(h.StartedAt).Round(time.Second).String(),
		LastRunAt:  lastRun,
		LastSymbol: h.LastSymbol,
		LastStatus: h.LastStatus,
		LastError:  h.LastError,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	addr   string
	srv    *http.Server
	logger *slog.Logger
}

// NewServer creates a metrics and health server.
func NewServer(addr string, m *Metrics, health *HealthStatus, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	mux.Handle("/healthz", health)

	return &Server{
		addr:   addr,
		logger: logger,
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Handler returns the server's mux.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		s.logger.Info("metrics server listening", "addr", s.addr)
		if err := s.srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server error", "error", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
