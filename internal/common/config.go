// Package common provides shared utilities for PerfLens
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for PerfLens
type Config struct {
	Environment string          `toml:"environment"`
	Server      ServerConfig    `toml:"server"`
	Analytics   AnalyticsConfig `toml:"analytics"`
	Clients     ClientsConfig   `toml:"clients"`
	Cache       CacheConfig     `toml:"cache"`
	Logging     LoggingConfig   `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// AnalyticsConfig holds the tunables of the analytics pipeline.
type AnalyticsConfig struct {
	Benchmark      string `toml:"benchmark"`       // benchmark index symbol appended to every comparison
	BenchmarkLabel string `toml:"benchmark_label"` // display label for the benchmark
	MaxAssets      int    `toml:"max_assets"`      // maximum free-text names accepted per request
	DefaultHorizon string `toml:"default_horizon"`
	NewsPerSymbol  int    `toml:"news_per_symbol"`

	// YieldSanityThreshold: a raw dividend yield at or above this value is
	// assumed to be a miscoded percentage and divided by 100 before use.
	YieldSanityThreshold float64 `toml:"yield_sanity_threshold"`

	// InsiderFlowFactor scales the market-cap heuristic used when the
	// provider's insider-transaction feed is empty or unavailable.
	InsiderFlowFactor float64 `toml:"insider_flow_factor"`
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	Yahoo YahooConfig `toml:"yahoo"`
}

// YahooConfig holds Yahoo Finance API configuration
type YahooConfig struct {
	BaseURL   string `toml:"base_url"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *YahooConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// CacheConfig holds per-data-kind TTLs as duration strings.
type CacheConfig struct {
	SearchTTL       string `toml:"search_ttl"`
	FundamentalsTTL string `toml:"fundamentals_ttl"`
	HistoryTTL      string `toml:"history_ttl"`
	DividendsTTL    string `toml:"dividends_ttl"`
	InsiderTTL      string `toml:"insider_ttl"`
	NewsTTL         string `toml:"news_ttl"`
}

func parseTTL(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// GetSearchTTL returns the symbol-resolution cache TTL.
func (c *CacheConfig) GetSearchTTL() time.Duration {
	return parseTTL(c.SearchTTL, FreshnessSearch)
}

// GetFundamentalsTTL returns the fundamentals cache TTL.
func (c *CacheConfig) GetFundamentalsTTL() time.Duration {
	return parseTTL(c.FundamentalsTTL, FreshnessFundamentals)
}

// GetHistoryTTL returns the historical-price batch cache TTL.
func (c *CacheConfig) GetHistoryTTL() time.Duration {
	return parseTTL(c.HistoryTTL, FreshnessHistory)
}

// GetDividendsTTL returns the dividend-history cache TTL.
func (c *CacheConfig) GetDividendsTTL() time.Duration {
	return parseTTL(c.DividendsTTL, FreshnessDividends)
}

// GetInsiderTTL returns the insider-transactions cache TTL.
func (c *CacheConfig) GetInsiderTTL() time.Duration {
	return parseTTL(c.InsiderTTL, FreshnessInsiders)
}

// GetNewsTTL returns the news cache TTL.
func (c *CacheConfig) GetNewsTTL() time.Duration {
	return parseTTL(c.NewsTTL, FreshnessNews)
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Analytics: AnalyticsConfig{
			Benchmark:            "^GSPC",
			BenchmarkLabel:       "S&P 500",
			MaxAssets:            5,
			DefaultHorizon:       "1y",
			NewsPerSymbol:        3,
			YieldSanityThreshold: 0.20,
			InsiderFlowFactor:    0.0001,
		},
		Clients: ClientsConfig{
			Yahoo: YahooConfig{
				BaseURL:   "https://query1.finance.yahoo.com",
				RateLimit: 5,
				Timeout:   "30s",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("PERFLENS_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("PERFLENS_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("PERFLENS_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("PERFLENS_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if bench := os.Getenv("PERFLENS_BENCHMARK"); bench != "" {
		config.Analytics.Benchmark = strings.ToUpper(bench)
	}

	if base := os.Getenv("PERFLENS_YAHOO_BASE_URL"); base != "" {
		config.Clients.Yahoo.BaseURL = base
	}
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Analytics.Benchmark == "" {
		return fmt.Errorf("analytics.benchmark is required")
	}
	if c.Analytics.MaxAssets <= 0 {
		return fmt.Errorf("analytics.max_assets must be positive")
	}
	if c.Analytics.YieldSanityThreshold <= 0 {
		return fmt.Errorf("analytics.yield_sanity_threshold must be positive")
	}
	if c.Clients.Yahoo.BaseURL == "" {
		return fmt.Errorf("clients.yahoo.base_url is required")
	}
	return nil
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
