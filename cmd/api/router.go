package main

import (
	"net/http"
	"net/http/pprof"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/noah-isme/mercadito/internal/accounts"
	"github.com/noah-isme/mercadito/internal/common"
	"github.com/noah-isme/mercadito/internal/config"
	"github.com/noah-isme/mercadito/internal/health"
	"github.com/noah-isme/mercadito/internal/inventory"
	"github.com/noah-isme/mercadito/internal/notes"
	"github.com/noah-isme/mercadito/internal/obs"
	"github.com/noah-isme/mercadito/internal/offers"
	"github.com/noah-isme/mercadito/internal/ratelimit"
	"github.com/noah-isme/mercadito/internal/sales"
	"github.com/noah-isme/mercadito/internal/security"
)

type routerDeps struct {
	cfg         *config.Config
	logger      zerolog.Logger
	httpMetrics *obs.HTTPMetrics
	limiter     ratelimit.Allower
	health      health.Handler

	products *inventory.Handler
	offers   *offers.Handler
	sales    *sales.Handler
	accounts *accounts.Handler
	notes    *notes.Handler
}

func newRouter(d routerDeps) http.Handler {
	cfg := d.cfg
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if cfg.EnableTracing {
		r.Use(obs.TracingMiddleware)
	}
	r.Use(obs.HTTPObs{Metrics: d.httpMetrics}.Middleware)
	r.Use(obs.RequestLogger{Logger: d.logger}.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(security.Headers{Enable: cfg.SecurityHeaders}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(cfg),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", common.IdempotencyHeader},
		MaxAge:         300,
	}))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		common.JSONError(w, http.StatusNotFound, common.CodeNotFound, "recurso no encontrado", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		common.JSONError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "método no permitido", nil)
	})

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health/live", d.health.Live)
	r.Get("/health/ready", d.health.Ready)
	if cfg.EnablePprof {
		r.Mount("/debug/pprof", newPprofMux())
	}

	r.Route("/api", func(api chi.Router) {
		api.Use(security.BodyLimit{Max: cfg.BodyLimitBytes}.Middleware)
		api.Use(ratelimit.Handler{
			Limiter: d.limiter,
			Config: ratelimit.Config{
				Key:     ratelimit.ByClientIP,
				Window:  cfg.RateLimitWindow,
				Max:     cfg.RateLimitWriteMax,
				Methods: ratelimit.WriteMethods,
			},
			OnError: func(err error) { d.logger.Warn().Err(err).Msg("rate limiter unavailable") },
		}.Middleware)

		api.Route("/productos", d.products.Routes)
		api.Route("/ofertas", d.offers.Routes)
		api.Route("/ventas", d.sales.Routes)
		api.Route("/cuentas", d.accounts.Routes)
		api.Route("/notas", d.notes.Routes)
	})
	return r
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

// newPprofMux registers full paths since chi's Mount leaves the request path untouched.
func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return mux
}
