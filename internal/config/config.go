package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Webhook struct {
		URL string `yaml:"url"`
	} `yaml:"webhook"`
	DataSource struct {
		PolygonBaseURL string `yaml:"polygon_base_url"`
		PolygonAPIKey  string `yaml:"polygon_api_key"`
		Symbol         string `yaml:"symbol"`
		VolSymbol      string `yaml:"vol_symbol"`
	} `yaml:"data_source"`
	RateLimit struct {
		MaxRequests   int `yaml:"max_requests"`
		PeriodSeconds int `yaml:"period_seconds"`
	} `yaml:"rate_limit"`
	Schedule struct {
		TickCron        string `yaml:"tick_cron"`
		MaintenanceCron string `yaml:"maintenance_cron"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Retention struct {
		AlertLogDays  int `yaml:"alert_log_days"`
		IndexDataDays int `yaml:"index_data_days"`
	} `yaml:"retention"`
	Rules Rules  `yaml:"rules"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{Rules: DefaultRules()}

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
	if v := os.Getenv("WEBHOOK_URL"); v != "" {
		cfg.Webhook.URL = v
	}
	if v := os.Getenv("POLYGON_API_KEY"); v != "" {
		cfg.DataSource.PolygonAPIKey = v
	}
	if v := os.Getenv("POLYGON_BASE_URL"); v != "" {
		cfg.DataSource.PolygonBaseURL = v
	}
	if v := os.Getenv("SYMBOL"); v != "" {
		cfg.DataSource.Symbol = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}

	// Defaults
	if cfg.DataSource.PolygonBaseURL == "" {
		cfg.DataSource.PolygonBaseURL = "https://api.polygon.io"
	}
	if cfg.DataSource.Symbol == "" {
		cfg.DataSource.Symbol = "QQQ"
	}
	if cfg.DataSource.VolSymbol == "" {
		cfg.DataSource.VolSymbol = "^VIX"
	}
	if cfg.RateLimit.MaxRequests == 0 {
		cfg.RateLimit.MaxRequests = 5
	}
	if cfg.RateLimit.PeriodSeconds == 0 {
		cfg.RateLimit.PeriodSeconds = 60
	}
	if cfg.Schedule.TickCron == "" {
		cfg.Schedule.TickCron = "0 */5 * * * *"
	}
	if cfg.Schedule.MaintenanceCron == "" {
		cfg.Schedule.MaintenanceCron = "0 0 2 * * *"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/option_sentinel.db"
	}
	if cfg.Retention.AlertLogDays == 0 {
		cfg.Retention.AlertLogDays = 90
	}
	if cfg.Retention.IndexDataDays == 0 {
		cfg.Retention.IndexDataDays = 30
	}

	return cfg, nil
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Webhook.URL == "" {
		return fmt.Errorf("webhook.url is required")
	}
	if c.DataSource.PolygonAPIKey == "" {
		return fmt.Errorf("data_source.polygon_api_key is required")
	}
	if c.RateLimit.MaxRequests < 1 {
		return fmt.Errorf("rate_limit.max_requests must be positive")
	}
	return nil
}
