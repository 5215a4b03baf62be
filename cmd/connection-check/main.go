package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/ward-dashboard/internal/config"
	"github.com/hackgods/ward-dashboard/internal/health"
	"github.com/hackgods/ward-dashboard/internal/hospitalapi"
	"github.com/hackgods/ward-dashboard/internal/logger"
)

func main() {
	interval := flag.Duration("interval", 0, "probe repeatedly at this interval instead of once")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	lg, err := logger.New(cfg.LogLevel, cfg.LogFormat, "connection-check")
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	client := hospitalapi.NewClient(hospitalapi.Options{
		BaseURL:    cfg.APIBaseURL,
		Timeout:    cfg.APITimeout,
		HealthPath: cfg.HealthPath,
	}, lg.Named("hospitalapi"))
	prober := health.NewProber(client, 0, lg.Named("health"))

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	h := runOnce(rootCtx, lg, prober, cfg.APITimeout)
	if *interval <= 0 {
		stop()
		exit(lg, h)
	}

	lg.Info("probing hospital API", zap.Duration("interval", *interval), zap.String("api_base_url", cfg.APIBaseURL))

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			lg.Info("shutdown signal received, stopping connection check")
			stop()
			exit(lg, h)
		case <-ticker.C:
			h = runOnce(rootCtx, lg, prober, cfg.APITimeout)
		}
	}
}

func runOnce(ctx context.Context, lg *zap.Logger, prober *health.Prober, timeout time.Duration) health.Health {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	h := prober.Probe(runCtx)
	if h.IsConnected {
		lg.Info("hospital API reachable", zap.Int64("response_ms", h.ResponseTime))
	} else {
		lg.Warn("hospital API unreachable", zap.Int64("response_ms", h.ResponseTime), zap.String("error", h.Error))
	}
	return h
}

func exit(lg *zap.Logger, h health.Health) {
	_ = lg.Sync()
	if !h.IsConnected {
		os.Exit(1)
	}
	os.Exit(0)
}
