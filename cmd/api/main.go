package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"style-shopper/internal/api"
	"style-shopper/internal/cache"
	"style-shopper/internal/config"
	"style-shopper/internal/logging"
	"style-shopper/internal/monitoring"
	"style-shopper/internal/pipeline"
	"style-shopper/storage"
	"style-shopper/vision"
)

func main() {
	if err := run(); err != nil {
		logging.New("", false).Errorf("Server failed: %v", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := logging.New(cfg.LogLevel, false)
	metrics := monitoring.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.OpenProductStore(ctx, cfg)
	if err != nil {
		logger.Warnf("Product store unavailable, serving JSON files only: %v", err)
		store = storage.NewJSONProductStore(storage.ProductsPath(cfg.DataDir))
	} else if storage.IsRelational(store) {
		logger.Info("Database initialized successfully.")
	}
	defer store.Close()

	var matchCache vision.MatchCache = cache.NewMemoryCache(cfg.CacheTTL)
	if cfg.RedisAddr != "" {
		redisCache, err := cache.NewRedisCache(ctx, cfg.RedisAddr, cfg.CacheTTL)
		if err != nil {
			logger.Warnf("Redis unavailable, using in-memory match cache: %v", err)
		} else {
			defer redisCache.Close()
			matchCache = redisCache
		}
	}

	p := pipeline.New(cfg, logger, metrics, pipeline.WithStore(store), pipeline.WithCache(matchCache))
	defer p.Close()

	server := api.NewServer(cfg, logger, metrics, p)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("Server shutdown failed: %v", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("Server stopped")
	return nil
}
