// Package sheets writes backtest trades and summaries to Google Sheets tabs.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"

	"golang.org/x/oauth2/google"
	"golang.org/x/time/rate"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"SignalLab/internal/model"
)

const (
	// DateLayout is the cell format for trade timestamps.
	DateLayout = "2006-01-02 15:04:05"

	spreadsheetMimeType = "application/vnd.google-apps.spreadsheet"
)

// ErrSpreadsheetNotFound is returned when a spreadsheet name matches no file.
var ErrSpreadsheetNotFound = errors.New("spreadsheet not found")

// TradeHeader is the first row of a trades tab.
var TradeHeader = []any{"Buy_Date", "Buy_Price", "Buy_Index", "Sell_Date", "Sell_Price", "Sell_Index", "PnL", "Return_%"}

// Logger replaces spreadsheet tabs with trade logs and summaries.
type Logger interface {
	LogTrades(ctx context.Context, tab string, trades []model.Trade) error
	LogSummary(ctx context.Context, tab string, summary model.BacktestSummary) error
}

// TradesTab and SummaryTab name the per-symbol tabs.
func TradesTab(symbol string) string  { return symbol + "_Trades" }
func SummaryTab(symbol string) string { return symbol + "_Summary" }

// Client is a Logger backed by the Sheets v4 and Drive v3 APIs.
type Client struct {
	sheets  *sheetsapi.Service
	drive   *drive.Service
	limiter *rate.Limiter
	logger  *slog.Logger

	sheetsEndpoint string
	driveEndpoint  string

	sheetName string
	mu        sync.Mutex
	sheetID   string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURLs points the client at other Sheets and Drive hosts. The Drive
// URL is the host only; the API path is appended.
func WithBaseURLs(sheetsURL, driveURL string) Option {
	return func(c *Client) {
		c.sheetsEndpoint = strings.TrimRight(sheetsURL, "/") + "/"
		c.driveEndpoint = strings.TrimRight(driveURL, "/") + "/drive/v3/"
	}
}

// WithRateLimit sets the maximum API requests per second.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1) }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a Client using an already authorised HTTP client. The
// spreadsheet is addressed by sheetID when set, otherwise sheetName is
// resolved through Drive on first use.
func New(ctx context.Context, httpClient *http.Client, sheetID, sheetName string, opts ...Option) (*Client, error) {
	c := &Client{
		limiter:   rate.NewLimiter(1, 1), // Sheets quota is 60 writes per minute per user
		logger:    slog.Default(),
		sheetName: sheetName,
		sheetID:   sheetID,
	}
	for _, opt := range opts {
		opt(c)
	}

	sheetsOpts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if c.sheetsEndpoint != "" {
		sheetsOpts = append(sheetsOpts, option.WithEndpoint(c.sheetsEndpoint))
	}
	srv, err := sheetsapi.NewService(ctx, sheetsOpts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	c.sheets = srv

	driveOpts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if c.driveEndpoint != "" {
		driveOpts = append(driveOpts, option.WithEndpoint(c.driveEndpoint))
	}
	drv, err := drive.NewService(ctx, driveOpts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	c.drive = drv
	return c, nil
}

// NewFromCredentialsFile authorises with a service-account JSON key.
func NewFromCredentialsFile(ctx context.Context, path, sheetID, sheetName string, opts ...Option) (*Client, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	conf, err := google.JWTConfigFromJSON(data, sheetsapi.SpreadsheetsScope, drive.DriveReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	return New(ctx, conf.Client(ctx), sheetID, sheetName, opts...)
}

// LogTrades replaces the tab with a header and one row per trade. An empty
// trade log leaves the spreadsheet untouched.
func (c *Client) LogTrades(ctx context.Context, tab string, trades []model.Trade) error {
	if len(trades) == 0 {
		c.logger.Info("no trades to log", "tab", tab)
		return nil
	}
	values := make([][]any, 0, len(trades)+1)
	values = append(values, TradeHeader)
	for _, t := range trades {
		values = append(values, []any{
			t.EntryTime.Format(DateLayout), t.EntryPrice, t.EntryIndex,
			t.ExitTime.Format(DateLayout), t.ExitPrice, t.ExitIndex,
			t.PnL, t.ReturnPct,
		})
	}
	if err := c.replaceTab(ctx, tab, 100, 20, values); err != nil {
		return fmt.Errorf("log trades to %s: %w", tab, err)
	}
	c.logger.Info("trades logged to sheet", "tab", tab, "rows", len(trades))
	return nil
}

// SummaryRows renders a summary as Metric/Value rows including the header.
func SummaryRows(s model.BacktestSummary) [][]any {
	return [][]any{
		{"Metric", "Value"},
		{"Total Trades", s.TotalTrades},
		{"Winning Trades", s.WinningTrades},
		{"Win Ratio (%)", s.WinRatioPct},
		{"Total PnL", s.TotalPnL},
		{"Cumulative Return (%)", s.CumulativeReturnPct},
	}
}

// LogSummary replaces the tab with Metric/Value rows.
func (c *Client) LogSummary(ctx context.Context, tab string, summary model.BacktestSummary) error {
	if err := c.replaceTab(ctx, tab, 20, 2, SummaryRows(summary)); err != nil {
		return fmt.Errorf("log summary to %s: %w", tab, err)
	}
	c.logger.Info("summary logged to sheet", "tab", tab)
	return nil
}

func (c *Client) replaceTab(ctx context.Context, tab string, rows, cols int, values [][]any) error {
	id, err := c.spreadsheetID(ctx)
	if err != nil {
		return err
	}
	exists, err := c.tabExists(ctx, id, tab)
	if err != nil {
		return err
	}
	rng := "'" + tab + "'"
	if exists {
		if err := c.wait(ctx); err != nil {
			return err
		}
		if _, err := c.sheets.Spreadsheets.Values.Clear(id, rng, &sheetsapi.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
			return fmt.Errorf("clear: %w", err)
		}
	} else {
		if err := c.addTab(ctx, id, tab, rows, cols); err != nil {
			return err
		}
	}

	if err := c.wait(ctx); err != nil {
		return err
	}
	vr := &sheetsapi.ValueRange{Range: rng, MajorDimension: "ROWS", Values: values}
	if _, err := c.sheets.Spreadsheets.Values.Update(id, rng, vr).ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("update values: %w", err)
	}
	return nil
}

func (c *Client) addTab(ctx context.Context, id, tab string, rows, cols int) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	req := &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{{
			AddSheet: &sheetsapi.AddSheetRequest{
				Properties: &sheetsapi.SheetProperties{
					Title: tab,
					GridProperties: &sheetsapi.GridProperties{
						RowCount:    int64(rows),
						ColumnCount: int64(cols),
					},
				},
			},
		}},
	}
	if _, err := c.sheets.Spreadsheets.BatchUpdate(id, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add tab %s: %w", tab, err)
	}
	c.logger.Info("created sheet tab", "tab", tab, "rows", rows, "cols", cols)
	return nil
}

func (c *Client) tabExists(ctx context.Context, id, tab string) (bool, error) {
	if err := c.wait(ctx); err != nil {
		return false, err
	}
	meta, err := c.sheets.Spreadsheets.Get(id).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("read spreadsheet: %w", err)
	}
	for _, s := range meta.Sheets {
		if s.Properties != nil && s.Properties.Title == tab {
			return true, nil
		}
	}
	return false, nil
}

func (c *Client) spreadsheetID(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sheetID != "" {
		return c.sheetID, nil
	}
	if c.sheetName == "" {
		return "", fmt.Errorf("%w: neither id nor name configured", ErrSpreadsheetNotFound)
	}

	if err := c.wait(ctx); err != nil {
		return "", err
	}
	q := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false",
		strings.ReplaceAll(c.sheetName, "'", `\'`), spreadsheetMimeType)
	list, err := c.drive.Files.List().
		Q(q).
		Fields("files(id,name)").
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("resolve spreadsheet %q: %w", c.sheetName, err)
	}
	if len(list.Files) == 0 {
		return "", fmt.Errorf("%w: %q", ErrSpreadsheetNotFound, c.sheetName)
	}
	c.sheetID = list.Files[0].Id
	c.logger.Debug("resolved spreadsheet", "name", c.sheetName, "id", c.sheetID)
	return c.sheetID, nil
}

func (c *Client) wait(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}
	return nil
}

// Noop discards all writes.
type Noop struct{}

func (Noop) LogTrades(context.Context, string, []model.Trade) error          { return nil }
func (Noop) LogSummary(context.Context, string, model.BacktestSummary) error { return nil }
