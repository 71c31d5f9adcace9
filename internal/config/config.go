// Package config provides configuration loading and validation for the server and CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/jonathan/recipe-share/internal/crawling"
	"github.com/jonathan/recipe-share/internal/fetch"
	"github.com/jonathan/recipe-share/internal/ranking"
)

// Scoring policies.
const (
	ScoringCurrent = "current"
	ScoringLegacy  = "legacy"
)

// Config represents the service configuration, loadable from a JSON or YAML file.
// All fields are optional; missing values use defaults.
type Config struct {
	// Runtime
	Env      string `json:"env,omitempty" yaml:"env,omitempty" validate:"omitempty,oneof=prod production dev development local test"`
	LogLevel string `json:"log_level,omitempty" yaml:"log_level,omitempty" validate:"omitempty,oneof=debug info warn error"`
	Addr     string `json:"addr,omitempty" yaml:"addr,omitempty" validate:"omitempty,hostname_port"`

	// Persistence
	DatabaseURL string `json:"database_url,omitempty" yaml:"database_url,omitempty" validate:"omitempty,excluded_with=SQLitePath"` // PostgreSQL connection URL
	SQLitePath  string `json:"sqlite_path,omitempty" yaml:"sqlite_path,omitempty"`                                                  // SQLite file, used when no database_url is set

	// Result cache
	RedisAddr       string `json:"redis_addr,omitempty" yaml:"redis_addr,omitempty" validate:"omitempty,hostname_port"`
	CacheTTLSeconds int    `json:"cache_ttl_seconds,omitempty" yaml:"cache_ttl_seconds,omitempty" validate:"min=0"` // Zero keeps entries until replaced

	// Crawling
	CatalogBaseURL      string   `json:"catalog_base_url,omitempty" yaml:"catalog_base_url,omitempty" validate:"omitempty,url"`
	Categories          []string `json:"categories,omitempty" yaml:"categories,omitempty" validate:"omitempty,dive,required"`
	MaxConcurrency      int      `json:"max_concurrency,omitempty" yaml:"max_concurrency,omitempty" validate:"min=0,max=256"`
	FetchTimeoutSeconds int      `json:"fetch_timeout_seconds,omitempty" yaml:"fetch_timeout_seconds,omitempty" validate:"min=0,max=300"`
	UserAgent           string   `json:"user_agent,omitempty" yaml:"user_agent,omitempty"`
	UseBrowser          bool     `json:"use_browser,omitempty" yaml:"use_browser,omitempty"` // Use headless browser for client-rendered catalogs

	// Scoring
	ScoringPolicy     string `json:"scoring_policy,omitempty" yaml:"scoring_policy,omitempty" validate:"omitempty,oneof=current legacy"`
	FirstMatchWeight  int    `json:"first_match_weight,omitempty" yaml:"first_match_weight,omitempty" validate:"min=0"`
	RepeatMatchWeight int    `json:"repeat_match_weight,omitempty" yaml:"repeat_match_weight,omitempty" validate:"min=0"`

	// HTTP
	RateLimitRPS   float64 `json:"rate_limit_rps,omitempty" yaml:"rate_limit_rps,omitempty" validate:"min=0"`
	RateLimitBurst int     `json:"rate_limit_burst,omitempty" yaml:"rate_limit_burst,omitempty" validate:"min=0"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Env:                 "dev",
		LogLevel:            "info",
		Addr:                ":8080",
		CatalogBaseURL:      crawling.DefaultBaseURL,
		MaxConcurrency:      fetch.DefaultMaxConcurrency,
		FetchTimeoutSeconds: int(fetch.DefaultTimeout / time.Second),
		ScoringPolicy:       ScoringCurrent,
		RateLimitRPS:        2,
		RateLimitBurst:      5,
	}
}

var validate = validator.New()

// LoadConfig loads configuration from a JSON or YAML file, chosen by extension.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if c.ScoringPolicy == "" && c.FirstMatchWeight == 0 && c.RepeatMatchWeight > 0 {
		return fmt.Errorf("config error: 'first_match_weight' is required with 'repeat_match_weight'")
	}
	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.Env == "" {
		result.Env = defaults.Env
	}
	if result.LogLevel == "" {
		result.LogLevel = defaults.LogLevel
	}
	if result.Addr == "" {
		result.Addr = defaults.Addr
	}
	if result.DatabaseURL == "" && result.SQLitePath == "" {
		result.DatabaseURL = defaults.DatabaseURL
		result.SQLitePath = defaults.SQLitePath
	}
	if result.RedisAddr == "" {
		result.RedisAddr = defaults.RedisAddr
	}
	if result.CatalogBaseURL == "" {
		result.CatalogBaseURL = defaults.CatalogBaseURL
	}
	if result.UserAgent == "" {
		result.UserAgent = defaults.UserAgent
	}
	if result.ScoringPolicy == "" && result.FirstMatchWeight == 0 {
		result.ScoringPolicy = defaults.ScoringPolicy
	}
	if len(result.Categories) == 0 {
		result.Categories = defaults.Categories
	}

	// Numeric fields: use default if zero
	if result.MaxConcurrency == 0 {
		result.MaxConcurrency = defaults.MaxConcurrency
	}
	if result.FetchTimeoutSeconds == 0 {
		result.FetchTimeoutSeconds = defaults.FetchTimeoutSeconds
	}
	if result.CacheTTLSeconds == 0 {
		result.CacheTTLSeconds = defaults.CacheTTLSeconds
	}
	if result.RateLimitRPS == 0 {
		result.RateLimitRPS = defaults.RateLimitRPS
	}
	if result.RateLimitBurst == 0 {
		result.RateLimitBurst = defaults.RateLimitBurst
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge

	return result
}

// ApplyEnv overrides fields from environment variables read through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	setString := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	setString("APP_ENV", &c.Env)
	setString("LOG_LEVEL", &c.LogLevel)
	setString("ADDR", &c.Addr)
	setString("REDIS_ADDR", &c.RedisAddr)
	setString("CATALOG_BASE_URL", &c.CatalogBaseURL)

	// Explicit store selection replaces the other store
	if v := getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
		c.SQLitePath = ""
	} else if v := getenv("SQLITE_PATH"); v != "" {
		c.SQLitePath = v
		c.DatabaseURL = ""
	}

	if v := getenv("MAX_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid MAX_CONCURRENCY: %w", err)
		}
		c.MaxConcurrency = n
	}
	if v := getenv("USE_BROWSER"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid USE_BROWSER: %w", err)
		}
		c.UseBrowser = b
	}
	return nil
}

// Weights returns the scoring weights the configuration selects.
// Explicit weights take precedence over the named policy.
func (c *Config) Weights() ranking.Weights {
	if c.FirstMatchWeight > 0 {
		return ranking.Weights{FirstMatch: c.FirstMatchWeight, RepeatMatch: c.RepeatMatchWeight}
	}
	if c.ScoringPolicy == ScoringLegacy {
		return ranking.LegacyWeights()
	}
	return ranking.DefaultWeights()
}

// Catalog returns the crawl catalog.
func (c *Config) Catalog() crawling.Catalog {
	return crawling.Catalog{
		BaseURL:    c.CatalogBaseURL,
		Categories: c.Categories,
	}.WithDefaults()
}

// FetchOptions returns the fetcher options.
func (c *Config) FetchOptions() *fetch.Options {
	opts := fetch.DefaultOptions()
	if c.FetchTimeoutSeconds > 0 {
		opts.Timeout = time.Duration(c.FetchTimeoutSeconds) * time.Second
	}
	if c.UserAgent != "" {
		opts.UserAgent = c.UserAgent
	}
	return opts
}

// CacheTTL returns the result cache TTL; zero means no expiry.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}
