package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RouterOptions struct {
	Logger *slog.Logger
	// MetricsHandler is served on /metrics when set.
	MetricsHandler http.Handler
}

// NewRouter builds the base router shared by every service: request ids, real
// client IPs, panic recovery, access logging, /healthz and /metrics. mount adds
// the service routes.
func NewRouter(opts RouterOptions, mount func(r chi.Router)) http.Handler {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(log))

	// Health and metrics stay unauthenticated for infra checks.
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if opts.MetricsHandler != nil {
		r.Handle("/metrics", opts.MetricsHandler)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusNotFound, "NOT_FOUND", "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
	})

	if mount != nil {
		mount(r)
	}
	return r
}

func NewUserRouter(h *UsersHandler, opts RouterOptions) http.Handler {
	return NewRouter(opts, func(r chi.Router) {
		r.Route("/api/users", h.Routes)
	})
}

func NewActivityRouter(h *ActivitiesHandler, opts RouterOptions) http.Handler {
	return NewRouter(opts, func(r chi.Router) {
		r.Route("/api/activities", h.Routes)
	})
}
