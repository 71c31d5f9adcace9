package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/recipe-share/internal/crawling"
	"github.com/jonathan/recipe-share/internal/ranking"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func envMap(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestLoadConfig_ValidJSON(t *testing.T) {
	path := writeConfig(t, "config.json", `{
		"addr": ":9090",
		"sqlite_path": "recipes.db",
		"categories": ["breakfast", "dinner"],
		"max_concurrency": 4,
		"use_browser": true
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "recipes.db", cfg.SQLitePath)
	assert.Equal(t, []string{"breakfast", "dinner"}, cfg.Categories)
	assert.Equal(t, 4, cfg.MaxConcurrency)
	assert.True(t, cfg.UseBrowser)
}

func TestLoadConfig_ValidYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
addr: ":9091"
redis_addr: "localhost:6379"
cache_ttl_seconds: 600
scoring_policy: legacy
categories:
  - lunch
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":9091", cfg.Addr)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL())
	assert.Equal(t, ScoringLegacy, cfg.ScoringPolicy)
	assert.Equal(t, []string{"lunch"}, cfg.Categories)
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	path := writeConfig(t, "config.json", `{ invalid json }`)

	cfg, err := LoadConfig(path)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config JSON")
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "config.yml", "addr: [unterminated")

	cfg, err := LoadConfig(path)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config YAML")
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.json")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "config path is empty")
}

func TestValidate_Default(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
}

func TestValidate_MutuallyExclusiveStores(t *testing.T) {
	cfg := &Config{
		DatabaseURL: "postgres://localhost/recipes",
		SQLitePath:  "recipes.db",
	}

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "DatabaseURL")
}

func TestValidate_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		cfg   Config
		field string
	}{
		{"negative concurrency", Config{MaxConcurrency: -1}, "MaxConcurrency"},
		{"unknown policy", Config{ScoringPolicy: "fancy"}, "ScoringPolicy"},
		{"bad log level", Config{LogLevel: "loud"}, "LogLevel"},
		{"bad base url", Config{CatalogBaseURL: "not a url"}, "CatalogBaseURL"},
		{"negative ttl", Config{CacheTTLSeconds: -5}, "CacheTTLSeconds"},
		{"empty category", Config{Categories: []string{"breakfast", ""}}, "Categories"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestValidate_RepeatWeightNeedsFirstWeight(t *testing.T) {
	cfg := &Config{RepeatMatchWeight: 3}

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "first_match_weight")
}

func TestMergeWithDefaults(t *testing.T) {
	cfg := &Config{
		Addr:           ":7000",
		MaxConcurrency: 2,
	}

	merged := cfg.MergeWithDefaults(Default())

	assert.Equal(t, ":7000", merged.Addr)
	assert.Equal(t, 2, merged.MaxConcurrency)
	assert.Equal(t, "info", merged.LogLevel)
	assert.Equal(t, crawling.DefaultBaseURL, merged.CatalogBaseURL)
	assert.Equal(t, ScoringCurrent, merged.ScoringPolicy)
	assert.Equal(t, 30, merged.FetchTimeoutSeconds)
	// original untouched
	assert.Empty(t, cfg.LogLevel)
}

func TestMergeWithDefaults_KeepsChosenStore(t *testing.T) {
	cfg := &Config{SQLitePath: "local.db"}
	defaults := Default()
	defaults.DatabaseURL = "postgres://localhost/recipes"

	merged := cfg.MergeWithDefaults(defaults)

	assert.Equal(t, "local.db", merged.SQLitePath)
	assert.Empty(t, merged.DatabaseURL)
	assert.NoError(t, merged.Validate())
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	cfg.SQLitePath = "local.db"

	err := cfg.ApplyEnv(envMap(map[string]string{
		"DATABASE_URL":    "postgres://db/recipes",
		"REDIS_ADDR":      "redis:6379",
		"LOG_LEVEL":       "debug",
		"MAX_CONCURRENCY": "8",
		"USE_BROWSER":     "true",
	}))
	require.NoError(t, err)

	assert.Equal(t, "postgres://db/recipes", cfg.DatabaseURL)
	assert.Empty(t, cfg.SQLitePath)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 8, cfg.MaxConcurrency)
	assert.True(t, cfg.UseBrowser)
	assert.NoError(t, cfg.Validate())
}

func TestApplyEnv_InvalidNumber(t *testing.T) {
	cfg := Default()

	err := cfg.ApplyEnv(envMap(map[string]string{"MAX_CONCURRENCY": "many"}))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "MAX_CONCURRENCY")
}

func TestWeights(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want ranking.Weights
	}{
		{"default", Config{}, ranking.DefaultWeights()},
		{"current", Config{ScoringPolicy: ScoringCurrent}, ranking.DefaultWeights()},
		{"legacy", Config{ScoringPolicy: ScoringLegacy}, ranking.LegacyWeights()},
		{"explicit", Config{ScoringPolicy: ScoringLegacy, FirstMatchWeight: 3, RepeatMatchWeight: 1}, ranking.Weights{FirstMatch: 3, RepeatMatch: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.Weights())
		})
	}
}

func TestCatalog(t *testing.T) {
	cfg := Config{CatalogBaseURL: "http://localhost:8081", Categories: []string{"dinner"}}

	catalog := cfg.Catalog()

	assert.Equal(t, "http://localhost:8081/recipes/collection/dinner-recipes", catalog.CategoryURL("dinner"))
	assert.Equal(t, []string{"dinner"}, catalog.Categories)

	var empty Config
	assert.Len(t, empty.Catalog().Categories, len(crawling.DefaultCategories))
}

func TestFetchOptions(t *testing.T) {
	cfg := Config{FetchTimeoutSeconds: 5, UserAgent: "test-agent"}

	opts := cfg.FetchOptions()

	assert.Equal(t, 5*time.Second, opts.Timeout)
	assert.Equal(t, "test-agent", opts.UserAgent)
}
