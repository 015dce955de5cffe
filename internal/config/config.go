package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"SignalLab/internal/collector"
)

// DefaultPath is read when CONFIG_PATH is unset.
const DefaultPath = "configs/config.yaml"

// Config holds all application configuration.
type Config struct {
	Data struct {
		Symbols   []string `yaml:"symbols"`
		Interval  string   `yaml:"interval"`
		Lookback  string   `yaml:"lookback"`
		UseDummy  bool     `yaml:"use_dummy"`
		RateLimit float64  `yaml:"rate_limit"` // requests per second
	} `yaml:"data"`
	Backtest struct {
		InitialCapital float64 `yaml:"initial_capital"`
	} `yaml:"backtest"`
	Classifier struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"classifier"`
	Sheets struct {
		Enabled         bool   `yaml:"enabled"`
		CredentialsPath string `yaml:"credentials_path"`
		SheetName       string `yaml:"sheet_name"`
		SheetID         string `yaml:"sheet_id"`
	} `yaml:"sheets"`
	Telegram struct {
		Enabled  bool   `yaml:"enabled"`
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Schedule struct {
		Cron       string `yaml:"cron"`
		RunOnStart bool   `yaml:"run_on_start"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	cfg := &Config{}
	cfg.Data.Symbols = []string{"RELIANCE.NS", "TCS.NS", "INFY.NS"}
	cfg.Data.Interval = "1d"
	cfg.Data.Lookback = "2y"
	cfg.Data.RateLimit = 2
	cfg.Backtest.InitialCapital = 100000
	cfg.Sheets.Enabled = true
	cfg.Schedule.Cron = "0 30 16 * * 1-5"
	cfg.Database.SQLitePath = "data/signallab.db"
	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	return cfg
}

// Load reads .env (when present), the YAML file at path (when present) and
// then applies environment variable overrides on top of the defaults.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	var errs []error
	boolEnv := func(key string, dst *bool) {
		v := os.Getenv(key)
		if v == "" {
			return
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %q is not a boolean", key, v))
			return
		}
		*dst = b
	}
	strEnv := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	boolEnv("USE_DUMMY_DATA", &c.Data.UseDummy)
	boolEnv("USE_ML_PREDICTIONS", &c.Classifier.Enabled)
	boolEnv("LOG_TO_SHEETS", &c.Sheets.Enabled)
	boolEnv("ENABLE_TELEGRAM_ALERTS", &c.Telegram.Enabled)
	boolEnv("RUN_ON_START", &c.Schedule.RunOnStart)

	strEnv("GOOGLE_SHEETS_CREDENTIALS_PATH", &c.Sheets.CredentialsPath)
	strEnv("GOOGLE_SHEET_NAME", &c.Sheets.SheetName)
	strEnv("GOOGLE_SHEET_ID", &c.Sheets.SheetID)
	strEnv("TELEGRAM_BOT_TOKEN", &c.Telegram.BotToken)
	strEnv("TELEGRAM_CHAT_ID", &c.Telegram.ChatID)
	strEnv("SQLITE_PATH", &c.Database.SQLitePath)
	strEnv("HTTPS_PROXY", &c.Proxy)
	strEnv("LOG_LEVEL", &c.Log.Level)
	strEnv("LOG_FORMAT", &c.Log.Format)
	strEnv("CRON_SCHEDULE", &c.Schedule.Cron)
	strEnv("METRICS_ADDR", &c.Metrics.Addr)
	strEnv("DATA_INTERVAL", &c.Data.Interval)
	strEnv("DATA_LOOKBACK", &c.Data.Lookback)

	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Data.Symbols = SplitSymbols(v)
	}
	if v := os.Getenv("INITIAL_CAPITAL"); v != "" {
		capital, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("INITIAL_CAPITAL: %q is not a number", v))
		} else {
			c.Backtest.InitialCapital = capital
		}
	}
	return errors.Join(errs...)
}

// SplitSymbols parses a comma separated symbol list, trimming blanks and
// upper-casing each entry.
func SplitSymbols(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.ToUpper(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if len(c.Data.Symbols) == 0 {
		return fmt.Errorf("data.symbols must not be empty")
	}
	for _, s := range c.Data.Symbols {
		if err := collector.ValidateRequest(s, c.Data.Interval, c.Data.Lookback); err != nil {
			return fmt.Errorf("data: %w", err)
		}
	}
	if c.Data.RateLimit <= 0 {
		return fmt.Errorf("data.rate_limit must be positive")
	}
	if c.Backtest.InitialCapital <= 0 {
		return fmt.Errorf("backtest.initial_capital must be positive")
	}
	if c.Sheets.Enabled {
		if c.Sheets.CredentialsPath == "" {
			return fmt.Errorf("sheets.credentials_path is required when sheets logging is enabled")
		}
		if c.Sheets.SheetID == "" && c.Sheets.SheetName == "" {
			return fmt.Errorf("sheets.sheet_id or sheets.sheet_name is required when sheets logging is enabled")
		}
	}
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when alerts are enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when alerts are enabled")
		}
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}
