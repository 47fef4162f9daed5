package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/nao1215/urlscan/internal/cache"
	"github.com/nao1215/urlscan/internal/config"
	"github.com/nao1215/urlscan/internal/metrics"
	"github.com/nao1215/urlscan/internal/scan"
	"github.com/nao1215/urlscan/internal/server"
)

// redisPingTimeout bounds the startup reachability check of the cache.
const redisPingTimeout = 2 * time.Second

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the URL scanning HTTP API",
		Long: `Serve runs the HTTP API used by the browser extension.

Endpoints:
  GET  /                  API information
  GET  /health            Liveness and classifier state
  GET  /test-connection   Connectivity check for the extension
  POST /scan-url          Scan {"url": "..."}
  GET  /scan-url?url=...  Scan a URL given as query parameter
  GET  /metrics           Prometheus metrics

The server starts even when no trained model exists; scores then come from
the rule table only. PORT, URLSCAN_ADDR, URLSCAN_REDIS_ADDR and URLSCAN_MODEL
override the configuration file.

Examples:
  # Listen on the default address (0.0.0.0:8000)
  urlscan serve

  # Listen on localhost only and cache results in redis
  urlscan serve --addr 127.0.0.1:8080 --redis localhost:6379

  # Only accept requests from one extension
  urlscan serve --allowed-origin chrome-extension://abcdefghijklmnop`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().StringP("addr", "a", config.DefaultServerAddr,
		"Listen address")
	cmd.Flags().StringSlice("allowed-origin", nil,
		"CORS origin to allow (repeatable, default: any origin)")
	cmd.Flags().Duration("timeout", config.DefaultRequestTimeout,
		"Upper bound for one request")

	cmd.Flags().String("redis", "",
		"Redis address of the result cache (cache disabled when empty)")
	cmd.Flags().Duration("cache-ttl", config.DefaultCacheTTL,
		"Lifetime of a cached result")

	cmd.Flags().Bool("no-ml", false,
		"Score with the rule table only")
	cmd.Flags().String("model", "",
		"Classifier snapshot path (default: $XDG_DATA_HOME/urlscan/model.json)")

	return cmd
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildServeConfig(cmd)
	if err != nil {
		return err
	}

	if err := cfg.ValidateServer(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := newLogger(cmd, cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runServe(ctx, cfg, logger)
}

// buildServeConfig creates a Config from the config file, the environment
// and serve flags.
func buildServeConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	if err := applyString(cmd, "addr", &cfg.ServerAddr); err != nil {
		return nil, err
	}
	if err := applyString(cmd, "redis", &cfg.RedisAddr); err != nil {
		return nil, err
	}
	if err := applyBool(cmd, "no-ml", &cfg.DisableClassifier); err != nil {
		return nil, err
	}
	if err := applyString(cmd, "model", &cfg.ModelPath); err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("allowed-origin") {
		cfg.AllowedOrigins, err = cmd.Flags().GetStringSlice("allowed-origin")
		if err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("timeout") {
		cfg.RequestTimeout, err = cmd.Flags().GetDuration("timeout")
		if err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("cache-ttl") {
		cfg.CacheTTL, err = cmd.Flags().GetDuration("cache-ttl")
		if err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// runServe wires the scanner, cache and metrics into the HTTP server and
// blocks until ctx is cancelled.
func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	scanner := scan.NewScanner(
		scan.WithCapability(loadCapability(cfg, logger)),
		scan.WithRecorder(m),
		scan.WithScannerLogger(logger),
	)

	opts := []server.Option{
		server.WithCacheRecorder(m),
		server.WithGatherer(reg),
		server.WithAllowedOrigins(cfg.AllowedOrigins),
		server.WithRequestTimeout(cfg.RequestTimeout),
		server.WithVersion(getVersion()),
		server.WithLogger(logger),
	}

	if cfg.CacheEnabled() {
		rc := newRedisCache(ctx, cfg, logger)
		defer rc.Close()
		opts = append(opts, server.WithCache(rc))
	}

	logger.Info("starting urlscan API",
		"addr", cfg.ServerAddr,
		"classifier", scanner.Capability().State().String(),
		"cache", cfg.CacheEnabled(),
	)

	return server.New(scanner, opts...).ListenAndServe(ctx, cfg.ServerAddr)
}

// newRedisCache connects the result cache. An unreachable redis is only a
// warning: lookups fail and every request is scanned until it comes back.
func newRedisCache(ctx context.Context, cfg *config.Config, logger *slog.Logger) *cache.Redis {
	rc := cache.NewRedis(cache.RedisOptions{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		TTL:      cfg.CacheTTL,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := rc.Ping(pingCtx); err != nil {
		logger.Warn("redis is not reachable, results will not be cached until it is",
			"addr", cfg.RedisAddr,
			"error", err,
		)
	} else {
		logger.Info("result cache connected", "addr", cfg.RedisAddr, "ttl", cfg.CacheTTL)
	}
	return rc
}
