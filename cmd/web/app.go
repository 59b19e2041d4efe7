package main

import (
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"finitefield.org/logo-web/internal/config"
	"finitefield.org/logo-web/internal/content"
	"finitefield.org/logo-web/internal/generator"
	"finitefield.org/logo-web/internal/i18n"
	"finitefield.org/logo-web/internal/logo"
	mw "finitefield.org/logo-web/internal/middleware"
	"finitefield.org/logo-web/internal/observability"
	"finitefield.org/logo-web/internal/ratelimit"
	"finitefield.org/logo-web/internal/results"
)

// app bundles the dependencies shared by the HTTP handlers.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	bundle   *i18n.Bundle
	catalog  *logo.Catalog
	ctrl     *generator.Controller
	results  *results.Store
	pages    *content.Loader
	sessions *mw.Sessions
	limiter  *ratelimit.FixedWindow
	views    *templateSet
}

// newRouter wires middleware and routes. Session-bound routes share one group so
// CSRF and locale resolution always see a session.
func newRouter(a *app) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	// If deployed behind a trusted reverse proxy/load balancer, RealIP will use
	// X-Forwarded-For to determine the client IP.
	r.Use(chimw.RealIP)
	r.Use(mw.Logger(a.logger))
	r.Use(observability.Trace(a.cfg.Secrets.ProjectID))
	r.Use(observability.Recovery(a.logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "ok")
	})

	assetsDir := filepath.Join(a.cfg.Site.PublicDir, "assets")
	r.Handle("/assets/*", mw.AssetsWithCache(assetsDir, "/assets", a.cfg.Server.DevMode))

	r.Group(func(r chi.Router) {
		r.Use(mw.HTMX)
		r.Use(a.sessions.Middleware)
		r.Use(mw.Locale(a.bundle))
		r.Use(a.sessions.CSRF)
		r.Use(mw.VaryLocale)

		r.Get("/logos/{id}", a.LogoHandler)

		r.Group(func(r chi.Router) {
			r.Use(chimw.Compress(5))
			r.Get("/", a.HomeHandler)
			r.Get("/about", a.AboutHandler)
			r.Get("/status", a.StatusHandler)
			r.Post("/colors", a.ColorsHandler)
			r.Post("/reset", a.ResetHandler)
			r.With(
				ratelimit.Middleware(a.limiter, mw.ClientIP, a.throttled),
				chimw.Timeout(a.generateTimeout()),
			).Post("/generate", a.GenerateHandler)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, a.bundle.T(a.bundle.Resolve(r.Header.Get("Accept-Language")), "errors.not_found"), http.StatusNotFound)
	})
	return r
}

// generateTimeout bounds one submission: translation plus the inference call with headroom.
func (a *app) generateTimeout() time.Duration {
	d := a.cfg.Inference.Timeout + 15*time.Second
	if d <= 15*time.Second {
		d = 2 * time.Minute
	}
	return d
}
