package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/aheadley/steam-omakase/internal/cache"
	"github.com/aheadley/steam-omakase/internal/config"
	"github.com/aheadley/steam-omakase/internal/handler"
	"github.com/aheadley/steam-omakase/internal/metrics"
	"github.com/aheadley/steam-omakase/internal/resolver"
	"github.com/aheadley/steam-omakase/internal/steam"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	// Load .env so ${STEAM_API_KEY} and friends expand in the config file
	_ = godotenv.Load()

	// Load configuration
	cfg, cfgErr := config.Load(*configPath)
	if cfgErr != nil {
		cfg = config.DefaultConfig()
	}

	// Setup structured logging
	logger := newLogger(&cfg.Log)
	slog.SetDefault(logger)
	if cfgErr != nil {
		logger.Warn("failed to load config file, using defaults", "error", cfgErr)
	}
	if cfg.Steam.APIKey == "" {
		logger.Warn("no Steam API key configured, Web API calls will fail")
	}

	// Initialize the cache store
	var store cache.Store
	switch cfg.Cache.Backend {
	case "memory":
		logger.Info("using in-memory cache store")
		store = cache.NewMemoryStore()
	default:
		logger.Info("connecting to Redis", "addr", cfg.Cache.Redis.Addr)
		redisStore, err := cache.NewRedisStore(&cfg.Cache.Redis, logger)
		if err != nil {
			logger.Error("failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		store = redisStore
		logger.Info("connected to Redis")
	}
	defer store.Close()

	// Initialize metrics
	m := metrics.New(prometheus.DefaultRegisterer)

	// Initialize upstream clients
	directory := steam.NewDirectoryClient(steam.DirectoryConfig{
		APIKey:  cfg.Steam.APIKey,
		BaseURL: cfg.Steam.APIBaseURL,
		Timeout: cfg.Steam.RequestTimeout,
	}, logger)
	storefront := steam.NewStorefrontClient(steam.StorefrontConfig{
		BaseURL: cfg.Steam.StoreBaseURL,
	}, logger)

	// Initialize the resolver and HTTP handler
	res := resolver.New(&cfg.Resolver, store, directory, storefront, logger, m)
	httpHandler := handler.NewHandler(res, store, logger, cfg.Debug)

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpHandler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting HTTP server", "port", cfg.Server.Port, "debug", cfg.Debug)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Shutdown HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server", "error", err)
	}

	logger.Info("server stopped")
}

// newLogger builds the process logger: JSON in production, a colorized tint
// handler for local development.
func newLogger(cfg *config.LogConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	if cfg.Format == "text" {
		return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.TimeOnly,
		}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
}
