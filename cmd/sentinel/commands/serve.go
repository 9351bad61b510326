package commands

import (
	"context"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/causalstack/causal-sentinel/internal/api"
	"github.com/causalstack/causal-sentinel/internal/cache"
	"github.com/causalstack/causal-sentinel/internal/config"
	"github.com/causalstack/causal-sentinel/internal/engine"
	"github.com/causalstack/causal-sentinel/internal/metrics"
	"github.com/causalstack/causal-sentinel/internal/reporter"
	"github.com/causalstack/causal-sentinel/internal/services"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the analysis HTTP service",
	Long: `Serve exposes the analysis pipeline as an HTTP JSON API, with
Prometheus metrics on a separate listener. Identical requests are answered
from the result cache.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return err
	}

	provider := buildCacheProvider(cfg, logger)
	defer provider.Close()

	advisor, err := reporter.NewAdvisor(cfg.Advice.Path, logger)
	if err != nil {
		return err
	}

	pipeline := engine.NewPipeline(logger, cfg.Detection.AnalysisConfig(),
		engine.WithWorkers(cfg.Detection.Workers),
		engine.WithRefutation(cfg.Detection.RefuteSimulations),
		engine.WithAdvisor(advisor))
	analyzer := services.NewAnalyzer(logger, pipeline, provider, cfg.Cache.ResultTTL)

	server := api.NewServer(cfg.Server.Address, analyzer, logger)
	metricsServer := &http.Server{
		Addr:              cfg.Server.MetricsAddress,
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		logger.Info("metrics server listening", "address", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown", "error", err)
		}
		return metricsServer.Shutdown(shutdownCtx)
	})

	logger.Info("sentinel started", "version", Version, "address", cfg.Server.Address)
	if err := g.Wait(); err != nil && err != context.Canceled {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}

// buildCacheProvider prefers Redis when configured, falling back to the
// in-process cache so memoization still works in local runs.
func buildCacheProvider(cfg *config.Config, logger *slog.Logger) cache.Provider {
	if !cfg.Cache.Enabled {
		return cache.NewMemoryProvider()
	}
	provider, err := cache.NewRedisProvider(cache.RedisConfig{
		Addr:         cfg.Cache.Addr,
		Username:     cfg.Cache.Username,
		Password:     cfg.Cache.Password,
		DB:           cfg.Cache.DB,
		DialTimeout:  cfg.Cache.DialTimeout,
		ReadTimeout:  cfg.Cache.ReadTimeout,
		WriteTimeout: cfg.Cache.WriteTimeout,
		MaxRetries:   cfg.Cache.MaxRetries,
	})
	if err != nil {
		logger.Warn("redis cache unavailable, using in-process cache", "error", err)
		return cache.NewMemoryProvider()
	}
	return provider
}
