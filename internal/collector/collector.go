// Package collector fetches historical price bars from market data providers.
package collector

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math"
	"time"

	"SignalLab/internal/model"
)

// DummyProvider returns deterministic synthetic bars for development and
// testing. The same symbol and window always produce the same prices.
type DummyProvider struct {
	Now func() time.Time
}

// NewDummyProvider creates a DummyProvider anchored at the current day.
func NewDummyProvider() *DummyProvider {
	return &DummyProvider{Now: time.Now}
}

func (d *DummyProvider) Name() string { return "dummy" }

// FetchBars generates a price path made of a slow cycle, a fast ripple and a
// small drift, seeded by the symbol.
func (d *DummyProvider) FetchBars(_ context.Context, symbol, interval, lookback string) ([]model.Bar, error) {
	if err := ValidateRequest(symbol, interval, lookback); err != nil {
		return nil, err
	}
	count := barCount(lookback)
	step := intervalStep(interval)

	h := fnv.New32a()
	h.Write([]byte(symbol))
	seed := h.Sum32()
	base := 100 + float64(seed%900)
	phase := float64(seed%60) / 60 * 2 * math.Pi

	now := time.Now
	if d.Now != nil {
		now = d.Now
	}
	end := now().UTC().Truncate(24 * time.Hour)

	bars := make([]model.Bar, count)
	for i := 0; i < count; i++ {
		x := float64(i)
		p := base * (1 + 0.15*math.Sin(2*math.Pi*x/60+phase) + 0.05*math.Sin(2*math.Pi*x/13) + 0.0003*x)
		bars[i] = model.Bar{
			Time:   end.Add(-time.Duration(count-1-i) * step),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: math.Round(1_000_000 * (1 + 0.3*math.Sin(x/5))),
			Symbol: symbol,
		}
	}
	return bars, nil
}

// barCount approximates the number of daily sessions in a lookback.
func barCount(lookback string) int {
	switch lookback {
	case "1d":
		return 1
	case "5d":
		return 5
	case "1mo":
		return 21
	case "3mo":
		return 63
	case "6mo", "ytd":
		return 126
	case "1y":
		return 252
	case "2y":
		return 504
	case "5y":
		return 1260
	default:
		return 2520
	}
}

func intervalStep(interval string) time.Duration {
	switch interval {
	case "1m":
		return time.Minute
	case "2m":
		return 2 * time.Minute
	case "5m":
		return 5 * time.Minute
	case "15m":
		return 15 * time.Minute
	case "30m":
		return 30 * time.Minute
	case "60m", "1h":
		return time.Hour
	case "90m":
		return 90 * time.Minute
	case "5d":
		return 5 * 24 * time.Hour
	case "1wk":
		return 7 * 24 * time.Hour
	case "1mo":
		return 30 * 24 * time.Hour
	case "3mo":
		return 90 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// Collector wraps a Provider with request logging and empty-result checks.
type Collector struct {
	Provider Provider
	Logger   *slog.Logger
}

// NewCollector creates a new Collector.
func NewCollector(p Provider, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{Provider: p, Logger: logger}
}

func (c *Collector) Name() string { return c.Provider.Name() }

// FetchBars fetches bars and guarantees a non-empty chronological result or
// an error.
func (c *Collector) FetchBars(ctx context.Context, symbol, interval, lookback string) ([]model.Bar, error) {
	start := time.Now()
	bars, err := c.Provider.FetchBars(ctx, symbol, interval, lookback)
	if err != nil {
		c.Logger.Warn("fetch failed", "provider", c.Provider.Name(), "symbol", symbol, "error", err)
		return nil, fmt.Errorf("fetch %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("fetch %s: %w: %s/%s", symbol, ErrNoData, interval, lookback)
	}
	bars = normalize(bars, symbol)
	c.Logger.Info("fetched bars",
		"provider", c.Provider.Name(),
		"symbol", symbol,
		"bars", len(bars),
		"from", bars[0].Time.Format(time.DateOnly),
		"to", bars[len(bars)-1].Time.Format(time.DateOnly),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return bars, nil
}
