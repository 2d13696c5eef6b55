// Package api serves module resolution over HTTP using chi.
//
// Routes:
//
//	GET  /resolve?specifier=&parent=&mode=&condition=&extension=
//	POST /resolve          JSON array of requests, resolved concurrently
//	GET  /trace?specifier=&parent=&format=text|dot|svg
//	GET  /health/live
//	GET  /health/ready
//	GET  /version
//
// Failed resolutions answer with {"error": ..., "code": ...} and a status
// derived from the error code.
package api

import (
	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/resolvekit/pkg/pipeline"
)

// NewRouter creates a chi router with all API routes mounted.
func NewRouter(runner *pipeline.Runner, logger *log.Logger) chi.Router {
	if logger == nil {
		logger = log.Default()
	}
	h := NewHandler(runner, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/health/live", h.Health)
	r.Get("/health/ready", h.Health)
	r.Get("/version", h.Version)

	r.Get("/resolve", h.Resolve)
	r.Post("/resolve", h.ResolveBatch)
	r.Get("/trace", h.Trace)

	return r
}
