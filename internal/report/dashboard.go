// Package report renders pipeline results as terminal tables.
package report

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"SignalLab/internal/calculator"
	"SignalLab/internal/classifier"
	"SignalLab/internal/model"
	"SignalLab/internal/pipeline"
	"SignalLab/internal/sheets"
)

// DefaultTail is the number of indicator rows shown.
const DefaultTail = 10

// Render writes the indicator tail, trade log, summary and, when present,
// classifier metrics for one run.
func Render(w io.Writer, res *pipeline.Result, tail int) {
	if res == nil {
		return
	}
	if tail <= 0 {
		tail = DefaultTail
	}

	fmt.Fprintf(w, "\n==================== %s ====================\n", res.Symbol)
	fmt.Fprintf(w, "  Run: %s\n", res.RunID)
	if len(res.Bars) > 0 {
		first, last := res.Bars[0], res.Bars[len(res.Bars)-1]
		fmt.Fprintf(w, "  Bars: %d (%s -> %s)\n", len(res.Bars),
			first.Time.Format("2006-01-02"), last.Time.Format("2006-01-02"))
		if high, low, err := calculator.PriceRange(res.Bars); err == nil {
			pos, _ := calculator.RangePosition(last.Close, high, low)
			fmt.Fprintf(w, "  Last close: %.2f | Range: %.2f - %.2f (%.0f%% of range)\n", last.Close, low, high, pos*100)
		}
	}

	renderIndicators(w, res.Signals, tail)
	if res.Backtest != nil {
		renderTrades(w, res.Backtest.Trades)
		renderSummary(w, res.Backtest.Summary)
	}
	if res.Classifier != nil {
		renderClassifier(w, res.Classifier)
	}
}

func renderIndicators(w io.Writer, rows []model.SignalRow, tail int) {
	if len(rows) == 0 {
		return
	}
	if len(rows) > tail {
		rows = rows[len(rows)-tail:]
	}
	fmt.Fprintf(w, "\n  --- LAST %d BARS ---\n", len(rows))
	table := tablewriter.NewWriter(w)
	table.Header("Date", "Close", "RSI", "MA_20", "MA_50", "MACD", "Signal", "Action")
	for _, r := range rows {
		action := ""
		switch {
		case r.Buy:
			action = "BUY"
		case r.Sell:
			action = "SELL"
		}
		table.Append(
			r.Time.Format("2006-01-02"),
			fmt.Sprintf("%.2f", r.Close),
			num(r.RSI),
			num(r.MAShort),
			num(r.MALong),
			num(r.MACD),
			num(r.MACDSignal),
			action,
		)
	}
	table.Render()
}

func renderTrades(w io.Writer, trades []model.Trade) {
	fmt.Fprintf(w, "\n  --- TRADES ---\n")
	if len(trades) == 0 {
		fmt.Fprintln(w, "  No trades.")
		return
	}
	table := tablewriter.NewWriter(w)
	table.Header("#", "Buy date", "Buy", "Sell date", "Sell", "PnL", "Return %")
	for i, t := range trades {
		table.Append(
			fmt.Sprintf("%d", i+1),
			t.EntryTime.Format(sheets.DateLayout),
			fmt.Sprintf("%.2f", t.EntryPrice),
			t.ExitTime.Format(sheets.DateLayout),
			fmt.Sprintf("%.2f", t.ExitPrice),
			fmt.Sprintf("%+.2f", t.PnL),
			fmt.Sprintf("%+.2f", t.ReturnPct),
		)
	}
	table.Render()
}

func renderSummary(w io.Writer, s model.BacktestSummary) {
	fmt.Fprintf(w, "\n  --- SUMMARY ---\n")
	table := tablewriter.NewWriter(w)
	table.Header("Metric", "Value")
	for _, row := range sheets.SummaryRows(s)[1:] {
		table.Append(fmt.Sprint(row[0]), fmt.Sprint(row[1]))
	}
	table.Render()
}

func renderClassifier(w io.Writer, c *classifier.Result) {
	fmt.Fprintf(w, "\n  --- DIRECTION MODEL ---\n")
	fmt.Fprintf(w, "  Accuracy: %.2f%% | Next bar: %s | Train/Test: %d/%d\n",
		c.Accuracy, c.NextBar, c.TrainSize, c.TestSize)

	table := tablewriter.NewWriter(w)
	table.Header("Class", "Precision", "Recall", "F1", "Support")
	rows := append(append([]classifier.ClassReport{}, c.Report.Classes...), c.Report.MacroAvg, c.Report.WeightedAvg)
	for _, r := range rows {
		table.Append(r.Label,
			fmt.Sprintf("%.2f", r.Precision),
			fmt.Sprintf("%.2f", r.Recall),
			fmt.Sprintf("%.2f", r.F1),
			fmt.Sprintf("%d", r.Support),
		)
	}
	table.Render()

	cm := c.Confusion
	fmt.Fprintf(w, "  Confusion (rows actual, cols predicted):\n")
	fmt.Fprintf(w, "          DOWN    UP\n")
	fmt.Fprintf(w, "    DOWN  %4d  %4d\n", cm[0][0], cm[0][1])
	fmt.Fprintf(w, "    UP    %4d  %4d\n", cm[1][0], cm[1][1])
}

func num(v float64) string {
	if !model.Defined(v) {
		return "-"
	}
	return fmt.Sprintf("%.2f", v)
}
