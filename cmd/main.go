package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"style-shopper/internal/cache"
	"style-shopper/internal/config"
	"style-shopper/internal/logging"
	"style-shopper/internal/monitoring"
	"style-shopper/internal/pipeline"
	"style-shopper/internal/types"
	"style-shopper/storage"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:           "shopper",
	Short:         "shopper scrapes new arrivals and ranks them against your personal style.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable verbose logging")
}

// app holds what every command needs
type app struct {
	config  *types.Config
	logger  *logrus.Logger
	metrics *monitoring.Metrics
	store   types.ProductStore
	cache   *cache.RedisCache
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return &app{
		config:  cfg,
		logger:  logging.New(cfg.LogLevel, verbose),
		metrics: monitoring.NewMetrics(),
	}, nil
}

// openStore connects the configured product store
func (a *app) openStore(ctx context.Context) error {
	store, err := storage.OpenProductStore(ctx, a.config)
	if err != nil {
		return err
	}
	a.store = store
	return nil
}

// pipeline builds the workflow, attaching the Redis match cache when configured
func (a *app) pipeline(ctx context.Context) *pipeline.Pipeline {
	opts := []pipeline.Option{}
	if a.store != nil {
		opts = append(opts, pipeline.WithStore(a.store))
	}
	if a.config.RedisAddr != "" && a.cache == nil {
		c, err := cache.NewRedisCache(ctx, a.config.RedisAddr, a.config.CacheTTL)
		if err != nil {
			a.logger.Warnf("Match cache disabled: %v", err)
		} else {
			a.cache = c
		}
	}
	if a.cache != nil {
		opts = append(opts, pipeline.WithCache(a.cache))
	}
	return pipeline.New(a.config, a.logger, a.metrics, opts...)
}

func (a *app) Close() {
	if a.store != nil {
		_ = a.store.Close()
	}
	if a.cache != nil {
		_ = a.cache.Close()
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
