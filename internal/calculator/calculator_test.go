package calculator

import (
	"math"
	"testing"
	"time"

	"SignalLab/internal/model"
)

func assertClose(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %.6f, want %.6f (diff=%.6f)", label, got, want, math.Abs(got-want))
	}
}

func barsFromCloses(closes []float64) []model.Bar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.Bar, len(closes))
	for i, c := range closes {
		bars[i] = model.Bar{
			Time:   start.AddDate(0, 0, i),
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1000,
			Symbol: "TEST",
		}
	}
	return bars
}

func TestSMA_StrictWarmUp(t *testing.T) {
	got := SMA([]float64{100, 102, 104, 103, 105}, 3, WarmUpStrict)
	want := []float64{math.NaN(), math.NaN(), 102, 103, 104}
	for i := range want {
		if math.IsNaN(want[i]) {
			if model.Defined(got[i]) {
				t.Errorf("row %d: expected undefined, got %.4f", i, got[i])
			}
			continue
		}
		assertClose(t, "SMA(3)", got[i], want[i], 1e-9)
	}
}

func TestSMA_ExpandingWarmUp(t *testing.T) {
	got := SMA([]float64{10, 20, 30, 40}, 3, WarmUpExpanding)
	want := []float64{10, 15, 20, 30}
	for i := range want {
		assertClose(t, "expanding SMA(3)", got[i], want[i], 1e-9)
	}
}

func TestSMA_ConstantSeriesEqualsConstant(t *testing.T) {
	closes := make([]float64, 80)
	for i := range closes {
		closes[i] = 42.5
	}
	for _, policy := range []WarmUp{WarmUpStrict, WarmUpExpanding} {
		for _, window := range []int{20, 50} {
			for i, v := range SMA(closes, window, policy) {
				if !model.Defined(v) {
					continue
				}
				if v != 42.5 {
					t.Fatalf("%s SMA(%d) row %d: got %v, want 42.5", policy, window, i, v)
				}
			}
		}
	}
}

func TestRSI_WarmUpPolicies(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + float64(i%3)
	}

	strict := RSI(closes, 14, WarmUpStrict)
	for i := 0; i < 14; i++ {
		if model.Defined(strict[i]) {
			t.Errorf("strict RSI row %d should be undefined, got %.4f", i, strict[i])
		}
	}
	if !model.Defined(strict[14]) {
		t.Error("strict RSI row 14 should be defined")
	}

	expanding := RSI(closes, 14, WarmUpExpanding)
	if model.Defined(expanding[0]) {
		t.Error("expanding RSI row 0 has no delta and should be undefined")
	}
	for i := 1; i < len(closes); i++ {
		if !model.Defined(expanding[i]) {
			t.Errorf("expanding RSI row %d should be defined", i)
		}
	}
}

func TestRSI_KnownValues(t *testing.T) {
	// 4 rising deltas of 1 followed by 10 falling deltas of 1:
	// avg_gain = 4/14, avg_loss = 10/14, RS = 0.4, RSI = 100 - 100/1.4.
	closes := []float64{100}
	for i := 0; i < 4; i++ {
		closes = append(closes, closes[len(closes)-1]+1)
	}
	for i := 0; i < 10; i++ {
		closes = append(closes, closes[len(closes)-1]-1)
	}
	rsi := RSI(closes, 14, WarmUpStrict)
	assertClose(t, "RSI", rsi[14], 100-100/1.4, 1e-9)
}

func TestRSI_NoLossesIsHundred(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = float64(i + 1)
	}
	rsi := RSI(closes, 14, WarmUpStrict)
	if rsi[19] != 100 {
		t.Errorf("expected RSI 100 for monotonic rise, got %.4f", rsi[19])
	}
}

func TestRSI_AlwaysWithinBounds(t *testing.T) {
	closes := make([]float64, 300)
	for i := range closes {
		closes[i] = 100 + 15*math.Sin(float64(i)/7) + 4*math.Cos(float64(i)*1.3)
	}
	for _, policy := range []WarmUp{WarmUpStrict, WarmUpExpanding} {
		for i, v := range RSI(closes, 14, policy) {
			if !model.Defined(v) {
				continue
			}
			if v < 0 || v > 100 {
				t.Fatalf("%s RSI row %d out of bounds: %.4f", policy, i, v)
			}
		}
	}
}

func TestEMA_SeededWithFirstValue(t *testing.T) {
	ema := EMA([]float64{10, 20}, 3)
	assertClose(t, "EMA[0]", ema[0], 10, 0)
	// alpha = 0.5
	assertClose(t, "EMA[1]", ema[1], 15, 1e-12)

	if got := EMA(nil, 3); len(got) != 0 {
		t.Errorf("EMA of empty input should be empty, got %v", got)
	}
}

func TestMACD_ConstantSeriesIsZero(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 250
	}
	line, sig := MACD(closes, 12, 26, 9)
	for i := range closes {
		assertClose(t, "MACD", line[i], 0, 1e-9)
		assertClose(t, "MACD signal", sig[i], 0, 1e-9)
	}
}

func TestCompute_Deterministic(t *testing.T) {
	closes := make([]float64, 120)
	for i := range closes {
		closes[i] = 100 + 10*math.Sin(float64(i)/5) + 0.05*float64(i)
	}
	bars := barsFromCloses(closes)

	a := Compute(bars, SignalFrameConfig())
	b := Compute(bars, SignalFrameConfig())
	for i := range a {
		for _, pair := range [][2]float64{
			{a[i].RSI, b[i].RSI},
			{a[i].MAShort, b[i].MAShort},
			{a[i].MALong, b[i].MALong},
			{a[i].MACD, b[i].MACD},
			{a[i].MACDSignal, b[i].MACDSignal},
		} {
			if math.Float64bits(pair[0]) != math.Float64bits(pair[1]) {
				t.Fatalf("row %d: non-deterministic output %v vs %v", i, pair[0], pair[1])
			}
		}
	}
}

func TestCompute_FrameConfigsDiffer(t *testing.T) {
	bars := barsFromCloses([]float64{1, 2, 3, 4, 5, 6})

	sig := Compute(bars, SignalFrameConfig())
	if !model.Defined(sig[0].MAShort) || !model.Defined(sig[0].MALong) {
		t.Error("signal frame MAs should be defined from the first row")
	}
	if model.Defined(sig[5].RSI) {
		t.Error("signal frame RSI should still be warming up")
	}

	cls := Compute(bars, ClassifierFrameConfig())
	if model.Defined(cls[3].MAShort) {
		t.Error("classifier MA5 should be undefined before row 4")
	}
	if !model.Defined(cls[4].MAShort) {
		t.Error("classifier MA5 should be defined at row 4")
	}
	if !model.Defined(cls[1].RSI) {
		t.Error("classifier RSI should be defined from row 1")
	}
}

func TestCompute_Empty(t *testing.T) {
	if rows := Compute(nil, SignalFrameConfig()); len(rows) != 0 {
		t.Errorf("expected empty frame, got %d rows", len(rows))
	}
}

func TestPriceRange(t *testing.T) {
	bars := barsFromCloses([]float64{10, 30, 20})
	high, low, err := PriceRange(bars)
	if err != nil {
		t.Fatal(err)
	}
	if high != 31 || low != 9 {
		t.Errorf("expected 31/9, got %.1f/%.1f", high, low)
	}
	if _, _, err := PriceRange(nil); err == nil {
		t.Error("expected error for empty bars")
	}

	tests := []struct {
		price, high, low, want float64
	}{
		{15, 20, 10, 0.5},
		{25, 20, 10, 1},
		{5, 20, 10, 0},
		{10, 10, 10, 0.5},
	}
	for _, tt := range tests {
		got, err := RangePosition(tt.price, tt.high, tt.low)
		if err != nil {
			t.Fatal(err)
		}
		assertClose(t, "RangePosition", got, tt.want, 1e-12)
	}
}
