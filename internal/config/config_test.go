package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"USE_DUMMY_DATA", "USE_ML_PREDICTIONS", "LOG_TO_SHEETS", "ENABLE_TELEGRAM_ALERTS",
	"GOOGLE_SHEETS_CREDENTIALS_PATH", "GOOGLE_SHEET_NAME", "GOOGLE_SHEET_ID",
	"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "SQLITE_PATH", "HTTPS_PROXY",
	"LOG_LEVEL", "LOG_FORMAT", "CRON_SCHEDULE", "METRICS_ADDR",
	"DATA_INTERVAL", "DATA_LOOKBACK", "SYMBOLS", "INITIAL_CAPITAL", "RUN_ON_START",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, []string{"RELIANCE.NS", "TCS.NS", "INFY.NS"}, cfg.Data.Symbols)
	assert.Equal(t, "1d", cfg.Data.Interval)
	assert.Equal(t, "2y", cfg.Data.Lookback)
	assert.Equal(t, 100000.0, cfg.Backtest.InitialCapital)
	assert.True(t, cfg.Sheets.Enabled, "sheets logging defaults on")
	assert.False(t, cfg.Data.UseDummy)
	assert.False(t, cfg.Classifier.Enabled)
	assert.False(t, cfg.Telegram.Enabled)
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, t.TempDir(), "config.yaml", `
data:
  symbols: [AAPL, MSFT]
  interval: 1wk
  lookback: 5y
sheets:
  enabled: false
  sheet_name: FromYAML
telegram:
  chat_id: "111"
log:
  level: debug
`)
	t.Setenv("TELEGRAM_CHAT_ID", "222")
	t.Setenv("USE_ML_PREDICTIONS", "True")
	t.Setenv("LOG_TO_SHEETS", "true")
	t.Setenv("INITIAL_CAPITAL", "50000")
	t.Setenv("RUN_ON_START", "1")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"AAPL", "MSFT"}, cfg.Data.Symbols)
	assert.Equal(t, "1wk", cfg.Data.Interval)
	assert.Equal(t, "5y", cfg.Data.Lookback)
	assert.Equal(t, "FromYAML", cfg.Sheets.SheetName)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format, "unset yaml keys keep defaults")

	assert.Equal(t, "222", cfg.Telegram.ChatID, "env beats yaml")
	assert.True(t, cfg.Sheets.Enabled, "env beats yaml")
	assert.True(t, cfg.Classifier.Enabled)
	assert.Equal(t, 50000.0, cfg.Backtest.InitialCapital)
	assert.True(t, cfg.Schedule.RunOnStart, "RUN_ON_START parses like the other toggles")
}

func TestLoad_InvalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("USE_DUMMY_DATA", "maybe")
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "USE_DUMMY_DATA")

	clearEnv(t)
	t.Setenv("RUN_ON_START", "yes please")
	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "RUN_ON_START")

	clearEnv(t)
	t.Setenv("INITIAL_CAPITAL", "lots")
	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "INITIAL_CAPITAL")

	clearEnv(t)
	path := writeFile(t, t.TempDir(), "bad.yaml", "data: [unclosed")
	_, err = Load(path)
	assert.ErrorContains(t, err, "parse config")
}

func TestLoad_DotEnv(t *testing.T) {
	for _, k := range envKeys {
		if k != "TELEGRAM_BOT_TOKEN" && k != "SYMBOLS" {
			t.Setenv(k, "")
		}
	}
	// Register the keys for restoration, then remove them so .env can set them.
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("SYMBOLS", "")
	require.NoError(t, os.Unsetenv("TELEGRAM_BOT_TOKEN"))
	require.NoError(t, os.Unsetenv("SYMBOLS"))

	dir := t.TempDir()
	writeFile(t, dir, ".env", "TELEGRAM_BOT_TOKEN=from-dotenv\nSYMBOLS=hdfcbank.ns, itc.ns ,\n")
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load(DefaultPath)
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Telegram.BotToken)
	assert.Equal(t, []string{"HDFCBANK.NS", "ITC.NS"}, cfg.Data.Symbols)
}

func validConfig() *Config {
	cfg := Default()
	cfg.Sheets.CredentialsPath = "creds.json"
	cfg.Sheets.SheetName = "Signals"
	return cfg
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"no symbols", func(c *Config) { c.Data.Symbols = nil }, "symbols"},
		{"bad interval", func(c *Config) { c.Data.Interval = "7d" }, "interval"},
		{"bad lookback", func(c *Config) { c.Data.Lookback = "3w" }, "lookback"},
		{"capital", func(c *Config) { c.Backtest.InitialCapital = 0 }, "initial_capital"},
		{"sheets without credentials", func(c *Config) { c.Sheets.CredentialsPath = "" }, "credentials_path"},
		{"sheets without target", func(c *Config) { c.Sheets.SheetName = "" }, "sheet_id or sheets.sheet_name"},
		{"alerts without token", func(c *Config) { c.Telegram.Enabled = true; c.Telegram.ChatID = "1" }, "bot_token"},
		{"alerts without chat", func(c *Config) { c.Telegram.Enabled = true; c.Telegram.BotToken = "t" }, "chat_id"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}

func TestValidate_SinksDisabledNeedNoCredentials(t *testing.T) {
	cfg := Default()
	cfg.Sheets.Enabled = false
	assert.NoError(t, cfg.Validate())
}

func TestSplitSymbols(t *testing.T) {
	assert.Equal(t, []string{"A", "B.NS"}, SplitSymbols(" a, ,b.ns,"))
	assert.Nil(t, SplitSymbols(" , "))
}
