// Bookworm - Book Catalog and Hybrid Recommendation Service
// Copyright 2026 Bookworm Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookworm-app/bookworm

// Package api provides the HTTP surface of the service: chi routing,
// JSON handlers for the catalog, ratings and recommendations, and the
// Prometheus scrape endpoint.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bookworm-app/bookworm/internal/config"
	"github.com/bookworm-app/bookworm/internal/middleware"
)

// Router wires the handler into the chi routing tree.
type Router struct {
	handler *Handler
	cfg     *config.APIConfig
}

// NewRouter creates a router for the given handler.
func NewRouter(handler *Handler, cfg *config.APIConfig) *Router {
	return &Router{handler: handler, cfg: cfg}
}

// Setup builds the full routing tree.
//
// The health endpoint sits outside the rate limiter so monitoring is
// never throttled; /metrics likewise stays unlimited for the scraper.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: router.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/api/v1/health", router.handler.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.LimitByIP(router.cfg.RateLimitRPM, time.Minute))
		r.Use(middleware.PrometheusMetrics)

		r.Route("/books", func(r chi.Router) {
			r.Get("/", router.handler.ListBooks)
			r.Get("/popular", router.handler.PopularBooks)
			r.Get("/{bookID}", router.handler.GetBook)
			r.Post("/{bookID}/rate", router.handler.RateBook)
		})

		r.Route("/users/{userID}", func(r chi.Router) {
			r.Get("/ratings", router.handler.UserRatings)
			r.Get("/recommendations", router.handler.Recommendations)
		})
	})

	return r
}
