package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/heygen-community/heygen-streaming/internal/api"
	"github.com/heygen-community/heygen-streaming/internal/cache"
	"github.com/heygen-community/heygen-streaming/internal/config"
	"github.com/heygen-community/heygen-streaming/internal/health"
	"github.com/heygen-community/heygen-streaming/internal/heygen"
	hgslog "github.com/heygen-community/heygen-streaming/internal/log"
	"github.com/heygen-community/heygen-streaming/internal/session"
	"github.com/heygen-community/heygen-streaming/internal/session/store"
	"github.com/heygen-community/heygen-streaming/internal/telemetry"
)

var (
	version   = "v0.1.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	hgslog.Configure(hgslog.Config{
		Level:   "info",
		Service: "heygen-streaming",
		Version: version,
	})
	logger := hgslog.WithComponent("gateway")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.NewLoader(*configPath, version).Load()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str(hgslog.FieldEvent, "config.load_failed").
			Str("config_path", *configPath).
			Msg("failed to load configuration")
	}

	hgslog.Configure(hgslog.Config{
		Level:   cfg.LogLevel,
		Service: "heygen-streaming",
		Version: cfg.Version,
	})

	logger.Info().
		Str(hgslog.FieldEvent, "gateway.starting").
		Str(hgslog.FieldBaseURL, cfg.HeyGen.BaseURL).
		Str("listen_addr", cfg.ListenAddr).
		Str("session_store", cfg.Session.Store).
		Msg("starting gateway")

	tracing, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "heygen-streaming",
		ServiceVersion: cfg.Version,
		ExporterType:   cfg.Telemetry.ExporterType,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize tracing")
	}

	sessionStore, err := store.New(cfg.Session)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open session store")
	}

	catalogCache, err := cache.New(cfg.Cache, hgslog.WithComponent("cache"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize cache")
	}

	var limiter *rate.Limiter
	if cfg.HeyGen.RatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.HeyGen.RatePerSec), cfg.HeyGen.RateBurst)
	}
	client := heygen.New(cfg.HeyGen.BaseURL, heygen.Options{
		APIKey:  cfg.HeyGen.APIKey,
		Timeout: cfg.HeyGen.Timeout,
		Limiter: limiter,
	})

	registry := session.NewRegistry(sessionStore, cfg.Session.IdleTimeout)
	sweeper := session.NewSweeper(registry, client, cfg.Session.SweepInterval)

	healthMgr := health.NewManager(cfg.Version)
	healthMgr.RegisterChecker(&health.UpstreamChecker{Client: client})
	healthMgr.RegisterChecker(&health.StoreChecker{Store: sessionStore})

	server := api.NewServer(cfg, client, registry, catalogCache, healthMgr)

	apiSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           metricsMux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("addr", apiSrv.Addr).Msg("api listener started")
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api listener: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		logger.Info().Str("addr", metricsSrv.Addr).Msg("metrics listener started")
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics listener: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		err := sweeper.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := apiSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("api shutdown failed")
		}
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics shutdown failed")
		}
		if err := tracing.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("tracing shutdown failed")
		}
		catalogCache.Close()
		if err := sessionStore.Close(); err != nil {
			logger.Error().Err(err).Msg("session store close failed")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Fatal().Err(err).Msg("gateway terminated with error")
	}
	logger.Info().Msg("gateway stopped")
}
