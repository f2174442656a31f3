package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds all configuration for the market data layer.
type Config struct {
	// Provider credentials and endpoints
	TushareToken        string `mapstructure:"tushare_token"`
	TushareBaseURL      string `mapstructure:"tushare_base_url"`
	NewsSource          string `mapstructure:"news_source"`
	AlphavantageAPIKey  string `mapstructure:"alphavantage_api_key"`
	AlphavantageBaseURL string `mapstructure:"alphavantage_base_url"`

	// Per-provider request budgets, in requests per minute
	TushareRateLimit      int `mapstructure:"tushare_rate_limit"`
	AlphavantageRateLimit int `mapstructure:"alphavantage_rate_limit"`

	// Result cache
	CacheTTLSeconds int `mapstructure:"cache_ttl_seconds"`
	CacheMaxEntries int `mapstructure:"cache_max_entries"`

	// Retry policy
	RetryMaxAttempts int `mapstructure:"retry_max_attempts"`
	RetryBaseDelayMS int `mapstructure:"retry_base_delay_ms"`

	// Demo binary inputs
	Symbols   []string `mapstructure:"symbols"`
	StartDate string   `mapstructure:"start_date"`
	EndDate   string   `mapstructure:"end_date"`
}

// AlphavantageEnabled reports whether US-symbol fetching is configured.
func (c *Config) AlphavantageEnabled() bool { return c.AlphavantageAPIKey != "" }

// Load reads configuration from environment variables and an optional config
// file. Environment variables take precedence over config file values.
//
// Expected environment variables:
//   - TUSHARE_TOKEN (required)
//   - TUSHARE_BASE_URL (optional, defaults to production)
//   - ALPHAVANTAGE_API_KEY (optional; US symbols are rejected without it)
//   - ALPHAVANTAGE_BASE_URL (optional, defaults to production)
func Load() (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix("")
	v.AutomaticEnv()

	v.SetDefault("tushare_base_url", "http://api.waditu.com")
	v.SetDefault("alphavantage_base_url", "https://www.alphavantage.co/query")
	v.SetDefault("news_source", "sina")

	// Budgets follow the providers' published tiers: tushare 200/min,
	// alphavantage free tier 5/min.
	v.SetDefault("tushare_rate_limit", 200)
	v.SetDefault("alphavantage_rate_limit", 5)

	v.SetDefault("cache_ttl_seconds", 3600)
	v.SetDefault("cache_max_entries", 1000)

	v.SetDefault("retry_max_attempts", 3)
	v.SetDefault("retry_base_delay_ms", 1000)

	// Optionally read from config file if it exists
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.marketdata")
	_ = v.ReadInConfig()

	v.BindEnv("tushare_token", "TUSHARE_TOKEN")
	v.BindEnv("tushare_base_url", "TUSHARE_BASE_URL")
	v.BindEnv("alphavantage_api_key", "ALPHAVANTAGE_API_KEY")
	v.BindEnv("alphavantage_base_url", "ALPHAVANTAGE_BASE_URL")
	v.BindEnv("news_source", "NEWS_SOURCE")

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if config.TushareToken == "" {
		return nil, fmt.Errorf("missing required configuration: TUSHARE_TOKEN")
	}

	return config, nil
}
