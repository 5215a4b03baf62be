package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hackgods/ward-dashboard/internal/beds"
	"github.com/hackgods/ward-dashboard/internal/fetch"
	"github.com/hackgods/ward-dashboard/internal/health"
	"github.com/hackgods/ward-dashboard/internal/hospital"
	"github.com/hackgods/ward-dashboard/internal/metrics"
)

// ResourceSource serves the read-only lists shown next to the bed view.
type ResourceSource interface {
	ListPatientsWithAppointments(ctx context.Context) ([]hospital.Patient, error)
	ListMedicines(ctx context.Context) ([]hospital.Medicine, error)
}

type RouterConfig struct {
	Prober    *health.Prober
	Fetcher   *fetch.Fetcher
	Directory *beds.Directory
	Workflow  *beds.Workflow
	Events    beds.EventLog
	Resources ResourceSource
	PgPool    *pgxpool.Pool
	Redis     *redis.Client
	Logger    *zap.Logger
	Env       string
	Version   string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(metrics.Middleware)

	probes := NewHealthHandler(cfg.Prober, cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", probes.Liveness)
	r.Get("/health/ready", probes.Readiness)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Get("/connection", connectionHandler(cfg.Prober))
	r.Post("/connection/test", testConnectionHandler(cfg.Prober))

	r.Route("/beds", func(r chi.Router) {
		r.Get("/", listBedsHandler(cfg.Directory, cfg.Workflow))
		r.Post("/refresh", refreshBedsHandler(cfg.Directory, cfg.Workflow))

		r.Route("/{id}", func(r chi.Router) {
			r.Post("/assignment", openAssignmentHandler(cfg.Workflow))
			r.Put("/assignment", confirmAssignmentHandler(cfg.Workflow))
			r.Delete("/assignment", closeAssignmentHandler(cfg.Workflow))
			r.Put("/discharge", dischargeHandler(cfg.Directory, cfg.Workflow))
			r.Put("/status", updateStatusHandler(cfg.Directory, cfg.Workflow))
		})
	})

	r.Get("/patients", listPatientsHandler(cfg.Resources, cfg.Fetcher))
	r.Get("/medicines", listMedicinesHandler(cfg.Resources, cfg.Fetcher))
	r.Get("/events", listEventsHandler(cfg.Events))

	return r
}
