// TimerBridge - DDR Duration to Graphics Timer Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/timerbridge

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/timerbridge/internal/middleware"
)

// Router binds handlers to routes.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router. A nil chiMw uses the default configuration.
func NewRouter(handler *Handler, chiMw *ChiMiddleware) *Router {
	if chiMw == nil {
		chiMw = NewChiMiddleware(nil)
	}
	return &Router{handler: handler, chiMiddleware: chiMw}
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// Applied to all routes, in order
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS()) // global so OPTIONS preflight is answered

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).NotFound("Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "Method not allowed")
	})

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Use(APISecurityHeaders())
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
		r.Get("/", router.handler.Health)
	})

	r.Route("/api/v1/timersync", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitSync())
		r.Use(APISecurityHeaders())
		r.Use(middleware.PrometheusMetrics)

		r.Post("/sync/{channel}", router.handler.SyncChannel)
		r.Post("/sync", router.handler.SyncAll)
		r.Post("/autosync", router.handler.AutoSync)
		r.Get("/status", router.handler.Status)
		r.Post("/timer/all/restart", router.handler.RestartAll)
		r.Post("/timer/{channel}/{action}", router.handler.TimerAction)
		r.Get("/config", router.handler.GetConfig)
		r.Put("/config", router.handler.PutConfig)
	})

	r.Route("/api/v1/tricaster", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitPassthrough())
		r.Use(APISecurityHeaders())
		r.Use(middleware.PrometheusMetrics)

		r.Get("/test", router.handler.TriCasterTest)
		r.Get("/ddr", router.handler.TriCasterDDR)
		r.Get("/tally", router.handler.TriCasterTally)
		r.Get("/dictionary/{key}", router.handler.TriCasterDictionary)
		r.Get("/shortcut/{name}", router.handler.TriCasterShortcutGet)
		r.Post("/shortcut/{name}", router.handler.TriCasterShortcutPost)
	})

	r.Route("/api/v1/singular", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(middleware.PrometheusMetrics)

		r.Get("/fields", router.handler.SingularFields)
	})

	r.With(router.chiMiddleware.RateLimitWebSocket()).Get("/api/v1/ws", router.handler.WebSocket)

	r.Handle("/metrics", promhttp.Handler())

	return r
}
