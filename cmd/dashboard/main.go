package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hackgods/ward-dashboard/internal/api"
	"github.com/hackgods/ward-dashboard/internal/beds"
	"github.com/hackgods/ward-dashboard/internal/config"
	"github.com/hackgods/ward-dashboard/internal/db"
	"github.com/hackgods/ward-dashboard/internal/fetch"
	"github.com/hackgods/ward-dashboard/internal/health"
	"github.com/hackgods/ward-dashboard/internal/hospitalapi"
	"github.com/hackgods/ward-dashboard/internal/logger"
	"github.com/hackgods/ward-dashboard/internal/mockdata"
	redisclient "github.com/hackgods/ward-dashboard/internal/redis"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	lg, err := logger.New(cfg.LogLevel, cfg.LogFormat, "dashboard")
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	lg.Info("dashboard starting up",
		zap.String("env", cfg.Env),
		zap.String("http_port", cfg.HTTPPort),
		zap.String("api_base_url", cfg.APIBaseURL),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := hospitalapi.NewClient(hospitalapi.Options{
		BaseURL:    cfg.APIBaseURL,
		Timeout:    cfg.APITimeout,
		RetryCount: cfg.APIRetryCount,
		HealthPath: cfg.HealthPath,
	}, lg.Named("hospitalapi"))

	prober := health.NewProber(client, cfg.ManualProbeRate, lg.Named("health"))
	go prober.Run(rootCtx, cfg.ProbeInterval)

	var pgPool *pgxpool.Pool
	events := beds.EventLog(beds.NewMemoryEventLog(0))
	if cfg.PostgresDSN != "" {
		pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
		pgPool, err = db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
		cancelPg()
		if err != nil {
			lg.Fatal("postgres connection error", zap.Error(err))
		}
		defer pgPool.Close()

		pgEvents := beds.NewPgEventLog(pgPool)
		if err := pgEvents.EnsureSchema(rootCtx); err != nil {
			lg.Fatal("bed event schema error", zap.Error(err))
		}
		events = pgEvents
		lg.Info("connected to Postgres, bed events are persisted")
	}

	var rdb *redis.Client
	var locker beds.Locker = beds.NewLocalLocker()
	if cfg.RedisAddr != "" {
		rdb, err = redisclient.NewRedisClient(rootCtx, cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
		if err != nil {
			lg.Fatal("redis connection error", zap.Error(err))
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				lg.Warn("error closing redis", zap.Error(err))
			}
		}()
		locker = redisclient.NewRedisBedLocker(rdb, cfg.LockTTL)
		lg.Info("connected to Redis, bed locks are shared", zap.Duration("lock_ttl", cfg.LockTTL))
	}

	fetcher := fetch.New(prober, lg.Named("fetch"))
	store := beds.NewMemoryStore(mockdata.Beds)
	directory := beds.NewDirectory(client, fetcher, store, lg.Named("beds"))
	workflow := beds.NewWorkflow(beds.WorkflowDeps{
		API:       client,
		Directory: directory,
		Fetcher:   fetcher,
		Store:     store,
		Locker:    locker,
		Events:    events,
		Notices:   beds.NewNotices(cfg.NoticeSuccessTTL),
		Fallback:  mockdata.Patients,
		Logger:    lg.Named("workflow"),
	})

	router := api.NewRouter(api.RouterConfig{
		Prober:    prober,
		Fetcher:   fetcher,
		Directory: directory,
		Workflow:  workflow,
		Events:    events,
		Resources: client,
		PgPool:    pgPool,
		Redis:     rdb,
		Logger:    lg.Named("http"),
		Env:       cfg.Env,
		Version:   version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		lg.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-rootCtx.Done()
	lg.Info("shutting down dashboard")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error("graceful shutdown failed", zap.Error(err))
	}
}
