package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

type RouterConfig struct {
	Service        AppointmentService
	Postgres       Pinger
	Redis          Pinger
	Logger         logrus.FieldLogger
	RateLimitRPS   float64
	RateLimitBurst int
	Env            string
	Version        string
}

func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	r := chi.NewRouter()

	// Apply middleware
	r.Use(middleware.RealIP)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(log))
	r.Use(middleware.Recoverer)

	// Health endpoints
	health := NewHealthHandler(cfg.Postgres, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Route("/api", func(r chi.Router) {
		r.Use(RateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst, log))

		r.Get("/appointments", listAppointmentsHandler(cfg.Service))
		r.Post("/appointments", createAppointmentHandler(cfg.Service))
		r.Put("/appointments", updateAppointmentHandler(cfg.Service))
		r.Delete("/appointments", deleteAppointmentHandler(cfg.Service))

		r.Get("/patient-status", listStatusHandler(cfg.Service))
		r.Post("/patient-status", setStatusHandler(cfg.Service))
	})

	return r
}
