package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/recipe-share/internal/config"
	"github.com/jonathan/recipe-share/internal/metrics"
	"github.com/jonathan/recipe-share/internal/reconcile"
	"github.com/jonathan/recipe-share/internal/search"
	"github.com/jonathan/recipe-share/internal/server"
	"github.com/jonathan/recipe-share/internal/server/ratelimit"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  `Start an HTTP server exposing ingredient search, result reads and save/unsave endpoints.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Address to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(os.Getenv)
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Addr = serveAddr
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(contextOrBackground(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.RegisterCrawlMetrics()

	fetcher, closeFetcher, err := newFetcher(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeFetcher()

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	resultCache, closeCache, err := openCache(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeCache()

	svc := search.NewService(
		newCrawler(fetcher, cfg, log),
		reconcile.New(store, log),
		resultCache,
		log,
	)

	var jwtService *server.JWTService
	if jwtCfg, err := config.NewJWTConfig(os.Getenv); err != nil {
		log.Warn("authentication disabled, save endpoints will reject requests", zap.Error(err))
	} else {
		jwtService = server.NewJWTService(jwtCfg)
	}

	srv := server.New(svc, server.Config{
		Addr:       cfg.Addr,
		JWTService: jwtService,
		RateLimit:  ratelimit.LoadConfig(cfg.RateLimitRPS, cfg.RateLimitBurst, os.Getenv),
		Logger:     log,
	})
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// contextOrBackground returns the command context, which is nil when a command runs outside Execute.
func contextOrBackground(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
