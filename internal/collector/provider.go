package collector

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"SignalLab/internal/model"
)

var (
	// ErrNoData is returned when the provider has no bars for the request.
	ErrNoData = errors.New("no market data")
	// ErrInvalidRequest is returned for an unsupported interval or lookback.
	ErrInvalidRequest = errors.New("invalid data request")
)

// Provider fetches historical bars for one symbol.
type Provider interface {
	FetchBars(ctx context.Context, symbol, interval, lookback string) ([]model.Bar, error)
	Name() string
}

var validIntervals = map[string]bool{
	"1m": true, "2m": true, "5m": true, "15m": true, "30m": true, "60m": true,
	"90m": true, "1h": true, "1d": true, "5d": true, "1wk": true, "1mo": true, "3mo": true,
}

var validLookbacks = map[string]bool{
	"1d": true, "5d": true, "1mo": true, "3mo": true, "6mo": true, "1y": true,
	"2y": true, "5y": true, "10y": true, "ytd": true, "max": true,
}

// ValidateRequest checks the symbol, interval and lookback of a fetch.
func ValidateRequest(symbol, interval, lookback string) error {
	if symbol == "" {
		return fmt.Errorf("%w: empty symbol", ErrInvalidRequest)
	}
	if !validIntervals[interval] {
		return fmt.Errorf("%w: interval %q", ErrInvalidRequest, interval)
	}
	if !validLookbacks[lookback] {
		return fmt.Errorf("%w: lookback %q", ErrInvalidRequest, lookback)
	}
	return nil
}

// normalize stamps the symbol, sorts by time and keeps the last bar for
// each timestamp.
func normalize(bars []model.Bar, symbol string) []model.Bar {
	sorted := append([]model.Bar(nil), bars...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })
	out := make([]model.Bar, 0, len(sorted))
	for _, b := range sorted {
		b.Symbol = symbol
		if n := len(out); n > 0 && out[n-1].Time.Equal(b.Time) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}
