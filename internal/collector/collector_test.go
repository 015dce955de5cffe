package collector_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"SignalLab/internal/collector"
	"SignalLab/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chartOK = `{"chart":{"result":[{"timestamp":[1700092800,1700006400,1700179200,1700179200],
"indicators":{"quote":[{"open":[101,100,102,103],"high":[102,101,103,104],"low":[99,98,101,102],
"close":[101.5,100.5,102.5,103.5],"volume":[2000,1000,2500,3000]}]}}],"error":null}}`

func yahooServer(t *testing.T, status int, body string, seen *url.URL) *collector.YahooProvider {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if seen != nil {
			*seen = *r.URL
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return collector.NewYahooProvider("", collector.WithBaseURL(srv.URL), collector.WithRateLimit(1000))
}

func TestYahoo_FetchBars(t *testing.T) {
	var reqURL url.URL
	p := yahooServer(t, http.StatusOK, chartOK, &reqURL)

	bars, err := p.FetchBars(context.Background(), "TCS.NS", "1d", "2y")
	require.NoError(t, err)

	assert.Equal(t, "/v8/finance/chart/TCS.NS", reqURL.Path)
	assert.Equal(t, "1d", reqURL.Query().Get("interval"))
	assert.Equal(t, "2y", reqURL.Query().Get("range"))

	// Duplicate timestamp keeps the later row; output sorted ascending.
	require.Len(t, bars, 3)
	assert.Equal(t, 100.5, bars[0].Close)
	assert.Equal(t, 101.5, bars[1].Close)
	assert.Equal(t, 103.5, bars[2].Close)
	for i, b := range bars {
		assert.Equal(t, "TCS.NS", b.Symbol)
		if i > 0 {
			assert.True(t, bars[i-1].Time.Before(b.Time))
		}
	}
}

func TestYahoo_NoData(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"api error", http.StatusOK, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`},
		{"empty result", http.StatusOK, `{"chart":{"result":[],"error":null}}`},
		{"not found", http.StatusNotFound, `{}`},
		{"all null", http.StatusOK, `{"chart":{"result":[{"timestamp":[1700006400],"indicators":{"quote":[{"open":[null],"high":[null],"low":[null],"close":[null],"volume":[null]}]}}],"error":null}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := yahooServer(t, tt.status, tt.body, nil)
			_, err := p.FetchBars(context.Background(), "NOPE", "1d", "1y")
			assert.ErrorIs(t, err, collector.ErrNoData)
		})
	}
}

func TestYahoo_ServerError(t *testing.T) {
	p := yahooServer(t, http.StatusInternalServerError, "boom", nil)
	_, err := p.FetchBars(context.Background(), "TCS.NS", "1d", "1y")
	require.Error(t, err)
	assert.NotErrorIs(t, err, collector.ErrNoData)
}

func TestValidateRequest(t *testing.T) {
	assert.NoError(t, collector.ValidateRequest("INFY.NS", "1d", "2y"))
	assert.NoError(t, collector.ValidateRequest("INFY.NS", "15m", "5d"))
	assert.ErrorIs(t, collector.ValidateRequest("", "1d", "2y"), collector.ErrInvalidRequest)
	assert.ErrorIs(t, collector.ValidateRequest("INFY.NS", "7d", "2y"), collector.ErrInvalidRequest)
	assert.ErrorIs(t, collector.ValidateRequest("INFY.NS", "1d", "3w"), collector.ErrInvalidRequest)

	p := collector.NewYahooProvider("")
	_, err := p.FetchBars(context.Background(), "INFY.NS", "1d", "forever")
	assert.ErrorIs(t, err, collector.ErrInvalidRequest)
}

func fixedNow() time.Time { return time.Date(2024, 6, 28, 15, 30, 0, 0, time.UTC) }

func TestDummy_Deterministic(t *testing.T) {
	d := &collector.DummyProvider{Now: fixedNow}
	a, err := d.FetchBars(context.Background(), "RELIANCE.NS", "1d", "2y")
	require.NoError(t, err)
	b, err := d.FetchBars(context.Background(), "RELIANCE.NS", "1d", "2y")
	require.NoError(t, err)

	require.Len(t, a, 504)
	assert.Equal(t, a, b)
	assert.Equal(t, time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC), a[len(a)-1].Time)
	for i := 1; i < len(a); i++ {
		assert.True(t, a[i-1].Time.Before(a[i].Time))
		assert.Greater(t, a[i].Close, 0.0)
	}

	other, err := d.FetchBars(context.Background(), "TCS.NS", "1d", "2y")
	require.NoError(t, err)
	assert.NotEqual(t, a[0].Close, other[0].Close)
}

type fakeProvider struct {
	bars []model.Bar
	err  error
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) FetchBars(context.Context, string, string, string) ([]model.Bar, error) {
	return f.bars, f.err
}

func TestCollector_EmptyIsNoData(t *testing.T) {
	c := collector.NewCollector(&fakeProvider{}, nil)
	_, err := c.FetchBars(context.Background(), "X", "1d", "1y")
	assert.ErrorIs(t, err, collector.ErrNoData)
}

func TestCollector_WrapsProviderError(t *testing.T) {
	c := collector.NewCollector(&fakeProvider{err: collector.ErrNoData}, nil)
	_, err := c.FetchBars(context.Background(), "X", "1d", "1y")
	assert.ErrorIs(t, err, collector.ErrNoData)
	assert.Contains(t, err.Error(), "fetch X")
}

func TestCollector_NormalizesWithoutMutatingInput(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	in := []model.Bar{
		{Time: t0.AddDate(0, 0, 1), Close: 2},
		{Time: t0, Close: 1},
	}
	c := collector.NewCollector(&fakeProvider{bars: in}, nil)
	bars, err := c.FetchBars(context.Background(), "X", "1d", "1y")
	require.NoError(t, err)

	require.Len(t, bars, 2)
	assert.Equal(t, 1.0, bars[0].Close)
	assert.Equal(t, "X", bars[0].Symbol)
	assert.Equal(t, 2.0, in[0].Close, "input slice untouched")
	assert.Equal(t, "", in[0].Symbol)
}
