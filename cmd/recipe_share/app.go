package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/recipe-share/internal/cache"
	"github.com/jonathan/recipe-share/internal/config"
	"github.com/jonathan/recipe-share/internal/crawling"
	"github.com/jonathan/recipe-share/internal/db"
	"github.com/jonathan/recipe-share/internal/db/sqlite"
	"github.com/jonathan/recipe-share/internal/fetch"
	"github.com/jonathan/recipe-share/internal/logger"
	"github.com/jonathan/recipe-share/internal/reconcile"
)

// loadConfig layers defaults, the optional config file and the environment, then validates.
func loadConfig(getenv func(string) string) (*config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		fileCfg, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg.MergeWithDefaults(cfg)
	}
	if err := cfg.ApplyEnv(getenv); err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	l, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return l, nil
}

// newFetcher returns the configured fetcher and a function releasing it.
func newFetcher(ctx context.Context, cfg *config.Config, l *zap.Logger) (fetch.Fetcher, func(), error) {
	if cfg.UseBrowser {
		b, err := fetch.NewBrowserFetcher(ctx, cfg.FetchOptions(), cfg.MaxConcurrency, l)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to start browser: %w", err)
		}
		return b, b.Close, nil
	}
	f := fetch.NewHTTPFetcher(cfg.FetchOptions(), cfg.MaxConcurrency)
	return f, f.Close, nil
}

func newCrawler(f fetch.Fetcher, cfg *config.Config, l *zap.Logger) *crawling.Crawler {
	return crawling.NewCrawler(f, cfg.Catalog(),
		crawling.WithWeights(cfg.Weights()),
		crawling.WithLogger(l),
	)
}

// openStore opens PostgreSQL when a database URL is set, SQLite when a path is set,
// and falls back to a process-local memory store.
func openStore(ctx context.Context, cfg *config.Config, l *zap.Logger) (reconcile.Store, func(), error) {
	switch {
	case cfg.DatabaseURL != "":
		pg, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		l.Info("using postgres store")
		return pg, pg.Close, nil
	case cfg.SQLitePath != "":
		s, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		l.Info("using sqlite store", zap.String("path", cfg.SQLitePath))
		return s, func() { _ = s.Close() }, nil
	default:
		l.Warn("no database configured, saved recipes are kept in memory only")
		return reconcile.NewMemoryStore(), func() {}, nil
	}
}

// openCache connects to Redis when an address is set, otherwise keeps results in memory.
func openCache(ctx context.Context, cfg *config.Config, l *zap.Logger) (cache.Cache, func(), error) {
	if cfg.RedisAddr == "" {
		return cache.NewMemory(), func() {}, nil
	}
	r, err := cache.NewRedis(cache.RedisConfig{
		Addrs:    strings.Split(cfg.RedisAddr, ","),
		Password: os.Getenv("REDIS_PASSWORD"),
		TTL:      cfg.CacheTTL(),
	})
	if err != nil {
		return nil, nil, err
	}
	if err := r.Ping(ctx); err != nil {
		r.Close()
		return nil, nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.RedisAddr, err)
	}
	l.Info("using redis result cache", zap.String("addr", cfg.RedisAddr))
	return r, r.Close, nil
}
