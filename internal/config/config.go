// Package config handles configuration loading for stockscore.
// It supports YAML config files with environment variable overrides.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"

	"github.com/seenimoa/stockscore/internal/rating"
)

// Config represents the complete application configuration.
type Config struct {
	LLM        LLMConfig        `mapstructure:"llm"        yaml:"llm"`
	DataSource DataSourceConfig `mapstructure:"datasource" yaml:"datasource"`
	Scoring    ScoringConfig    `mapstructure:"scoring"    yaml:"scoring"`
	Analysis   AnalysisConfig   `mapstructure:"analysis"   yaml:"analysis"`
	API        APIConfig        `mapstructure:"api"        yaml:"api"`
	Report     ReportConfig     `mapstructure:"report"     yaml:"report"`
	Logging    LoggingConfig    `mapstructure:"logging"    yaml:"logging"`
}

// LLMConfig holds narrative provider configuration.
type LLMConfig struct {
	Primary        string   `mapstructure:"primary"         yaml:"primary"` // "anthropic", "gemini" or "none"
	Fallbacks      []string `mapstructure:"fallbacks"       yaml:"fallbacks"`
	AnthropicKey   string   `mapstructure:"anthropic_key"   yaml:"anthropic_key"`
	AnthropicModel string   `mapstructure:"anthropic_model" yaml:"anthropic_model"`
	GeminiKey      string   `mapstructure:"gemini_key"      yaml:"gemini_key"`
	GeminiModel    string   `mapstructure:"gemini_model"    yaml:"gemini_model"`
	Temperature    float64  `mapstructure:"temperature"     yaml:"temperature"`
	MaxTokens      int      `mapstructure:"max_tokens"      yaml:"max_tokens"`
	TimeoutSec     int      `mapstructure:"timeout_sec"     yaml:"timeout_sec"`
	MaxRetries     int      `mapstructure:"max_retries"     yaml:"max_retries"`
}

// Timeout returns the per-request narrative timeout.
func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// DataSourceConfig holds market-data fetch settings.
type DataSourceConfig struct {
	YahooBaseURL      string  `mapstructure:"yahoo_base_url"      yaml:"yahoo_base_url"`
	ScreenerBaseURL   string  `mapstructure:"screener_base_url"   yaml:"screener_base_url"`
	NewsFeedURL       string  `mapstructure:"news_feed_url"       yaml:"news_feed_url"` // %s is replaced by the ticker
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	CacheTTL          int     `mapstructure:"cache_ttl"           yaml:"cache_ttl"` // seconds
	TimeoutSec        int     `mapstructure:"timeout_sec"         yaml:"timeout_sec"`
	HistoryRange      string  `mapstructure:"history_range"       yaml:"history_range"` // e.g. "6mo"
	HeadlineLimit     int     `mapstructure:"headline_limit"      yaml:"headline_limit"`
	ScreenerFallback  bool    `mapstructure:"screener_fallback"   yaml:"screener_fallback"`
}

// CacheDuration returns the fetch cache TTL.
func (c DataSourceConfig) CacheDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// ScoringConfig selects the default profile and declares custom ones.
type ScoringConfig struct {
	DefaultProfile string           `mapstructure:"default_profile" yaml:"default_profile"`
	Profiles       []rating.Profile `mapstructure:"profiles"        yaml:"profiles"`
}

// AnalysisConfig holds analysis engine settings.
type AnalysisConfig struct {
	ConcurrentFetches int  `mapstructure:"concurrent_fetches" yaml:"concurrent_fetches"`
	Narrative         bool `mapstructure:"narrative"          yaml:"narrative"` // request LLM commentary by default
	TimeoutSec        int  `mapstructure:"timeout_sec"        yaml:"timeout_sec"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// ReportConfig holds rendering settings.
type ReportConfig struct {
	Format   string `mapstructure:"format"    yaml:"format"` // "table", "json", "yaml", "markdown"
	PageSize string `mapstructure:"page_size" yaml:"page_size"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "json" or "console"
}

const envPrefix = "STOCKSCORE"

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml
//  2. ~/.stockscore/config.yaml
//  3. /etc/stockscore/config.yaml
//
// Environment variables override config file values.
// Format: STOCKSCORE_<SECTION>_<KEY>, e.g. STOCKSCORE_LLM_ANTHROPIC_KEY
func Load() (*Config, error) {
	v := newViper()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".stockscore"))
	v.AddConfigPath("/etc/stockscore")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, eris.Wrap(err, "config: read config file")
		}
	}

	return decode(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, eris.Wrapf(err, "config: read config file %s", path)
	}

	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	overrideFromEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks custom scoring profiles and that the default profile
// resolves against builtins plus custom profiles.
func (c *Config) Validate() error {
	_, err := c.Engine()
	return err
}

// Engine builds a rating engine with the builtin profiles, the configured
// custom profiles and the configured default.
func (c *Config) Engine() (*rating.Engine, error) {
	e := rating.NewEngine()
	for _, p := range c.Scoring.Profiles {
		if err := e.Register(p); err != nil {
			return nil, eris.Wrap(err, "config: scoring profile")
		}
	}
	if c.Scoring.DefaultProfile != "" {
		if err := e.SetDefault(c.Scoring.DefaultProfile); err != nil {
			return nil, eris.Wrap(err, "config: default profile")
		}
	}
	return e, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// LLM defaults
	v.SetDefault("llm.primary", "anthropic")
	v.SetDefault("llm.fallbacks", []string{"gemini"})
	v.SetDefault("llm.anthropic_model", "claude-sonnet-4-20250514")
	v.SetDefault("llm.gemini_model", "gemini-2.5-flash")
	v.SetDefault("llm.temperature", 0.3)
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("llm.timeout_sec", 60)
	v.SetDefault("llm.max_retries", 1)

	// Data source defaults
	v.SetDefault("datasource.yahoo_base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("datasource.screener_base_url", "https://www.screener.in")
	v.SetDefault("datasource.news_feed_url", "https://feeds.finance.yahoo.com/rss/2.0/headline?s=%s&region=US&lang=en-US")
	v.SetDefault("datasource.requests_per_second", 5.0)
	v.SetDefault("datasource.cache_ttl", 300) // 5 minutes
	v.SetDefault("datasource.timeout_sec", 30)
	v.SetDefault("datasource.history_range", "6mo")
	v.SetDefault("datasource.headline_limit", 5)
	v.SetDefault("datasource.screener_fallback", true)

	// Scoring defaults
	v.SetDefault("scoring.default_profile", rating.DefaultProfileName)

	// Analysis defaults
	v.SetDefault("analysis.concurrent_fetches", 4)
	v.SetDefault("analysis.narrative", false)
	v.SetDefault("analysis.timeout_sec", 120)

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"http://localhost:3000"})

	// Report defaults
	v.SetDefault("report.format", "table")
	v.SetDefault("report.page_size", "A4")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// overrideFromEnv explicitly reads sensitive keys from environment variables.
func overrideFromEnv(cfg *Config) {
	if key := os.Getenv("STOCKSCORE_LLM_ANTHROPIC_KEY"); key != "" {
		cfg.LLM.AnthropicKey = key
	} else if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" && cfg.LLM.AnthropicKey == "" {
		cfg.LLM.AnthropicKey = key
	}
	if key := os.Getenv("STOCKSCORE_LLM_GEMINI_KEY"); key != "" {
		cfg.LLM.GeminiKey = key
	} else if key := os.Getenv("GEMINI_API_KEY"); key != "" && cfg.LLM.GeminiKey == "" {
		cfg.LLM.GeminiKey = key
	}
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
