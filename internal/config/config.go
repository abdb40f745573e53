package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	DataSource struct {
		BaseURL           string  `yaml:"base_url"`
		APIKey            string  `yaml:"api_key"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		// HistoryDays and IntradayDays are minimum request depths; each pattern also
		// gets a year of history before its start.
		HistoryDays       int     `yaml:"history_days"`
		IntradayInterval  string  `yaml:"intraday_interval"`
		IntradayDays      int     `yaml:"intraday_days"`
	} `yaml:"data_source"`
	Schedule struct {
		RescoreCron string `yaml:"rescore_cron"`
	} `yaml:"schedule"`
	Strategy struct {
		RulesFile     string  `yaml:"rules_file"`
		SmallCapLimit float64 `yaml:"small_cap_limit"`
		LargeCapLimit float64 `yaml:"large_cap_limit"`
		// Quiet suppresses window adjustment warnings.
		Quiet bool `yaml:"quiet"`
	} `yaml:"strategy"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Proxy     string  `yaml:"proxy"`
	Watchlist []Watch `yaml:"watchlist"`
}

// Load reads .env and the YAML config file, then applies environment variable overrides and defaults.
// A missing config file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("VSTRADER_BASE_URL"); v != "" {
		cfg.DataSource.BaseURL = v
	}
	if v := os.Getenv("VSTRADER_API_KEY"); v != "" {
		cfg.DataSource.APIKey = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("CRON_RESCORE"); v != "" {
		cfg.Schedule.RescoreCron = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("RULES_FILE"); v != "" {
		cfg.Strategy.RulesFile = v
	}
	if v := os.Getenv("REQUESTS_PER_SECOND"); v != "" {
		if rps, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.DataSource.RequestsPerSecond = rps
		}
	}

	// Defaults
	if cfg.DataSource.RequestsPerSecond == 0 {
		cfg.DataSource.RequestsPerSecond = 2
	}
	if cfg.DataSource.HistoryDays == 0 {
		cfg.DataSource.HistoryDays = 750
	}
	if cfg.DataSource.IntradayInterval == "" {
		cfg.DataSource.IntradayInterval = "60m"
	}
	if cfg.DataSource.IntradayDays == 0 {
		cfg.DataSource.IntradayDays = 60
	}
	if cfg.Schedule.RescoreCron == "" {
		cfg.Schedule.RescoreCron = "0 30 22 * * 1-5"
	}
	if cfg.Strategy.SmallCapLimit == 0 {
		cfg.Strategy.SmallCapLimit = 1e9
	}
	if cfg.Strategy.LargeCapLimit == 0 {
		cfg.Strategy.LargeCapLimit = 10e9
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/pattern_grader.db"
	}

	return cfg, nil
}

// Validate checks the settings every command needs.
func (c *Config) Validate() error {
	if c.DataSource.RequestsPerSecond < 0 {
		return fmt.Errorf("data_source.requests_per_second must not be negative")
	}
	if c.DataSource.HistoryDays < 0 || c.DataSource.IntradayDays < 0 {
		return fmt.Errorf("data_source.history_days and intraday_days must not be negative")
	}
	if c.Strategy.SmallCapLimit >= c.Strategy.LargeCapLimit {
		return fmt.Errorf("strategy.small_cap_limit must be below strategy.large_cap_limit")
	}
	for i := range c.Watchlist {
		if err := c.Watchlist[i].Validate(); err != nil {
			return fmt.Errorf("watchlist[%d]: %w", i, err)
		}
	}
	return nil
}

// ValidateTelegram checks the settings the daemon needs on top of Validate.
func (c *Config) ValidateTelegram() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	if c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required")
	}
	return nil
}
