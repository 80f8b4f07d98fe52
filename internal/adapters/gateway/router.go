// Package gateway is the edge HTTP surface: it runs user sync on every API
// request and proxies to the user and activity services.
package gateway

import (
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/fitness-tracker/fitness-platform/internal/adapters/gateway/usersync"
	"github.com/fitness-tracker/fitness-platform/internal/adapters/httpapi"
)

// Upstreams are the base URLs of the proxied services.
type Upstreams struct {
	Users      *url.URL
	Activities *url.URL
}

// NewReverseProxy forwards to target, propagating the request id. Upstream
// failures are answered with a JSON 502.
func NewReverseProxy(target *url.URL, log *slog.Logger) *httputil.ReverseProxy {
	if log == nil {
		log = slog.Default()
	}
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			if id := middleware.GetReqID(pr.In.Context()); id != "" {
				pr.Out.Header.Set(middleware.RequestIDHeader, id)
			}
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			log.WarnContext(r.Context(), "upstream request failed",
				"request_id", middleware.GetReqID(r.Context()),
				"upstream", target.Host,
				"error", err,
			)
			httpapi.WriteError(w, r, http.StatusBadGateway, "UPSTREAM_UNAVAILABLE", "upstream service unavailable", nil)
		},
	}
}

func NewRouter(up Upstreams, sync *usersync.Filter, opts httpapi.RouterOptions) http.Handler {
	users := NewReverseProxy(up.Users, opts.Logger)
	activities := NewReverseProxy(up.Activities, opts.Logger)

	return httpapi.NewRouter(opts, func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(sync.Middleware)
			r.Handle("/api/users", users)
			r.Handle("/api/users/*", users)
			r.Handle("/api/activities", activities)
			r.Handle("/api/activities/*", activities)
			r.Post("/api/activity", rewritePath("/api/activities", activities))
		})
	})
}

// rewritePath serves the request to next as if it had been sent to path.
// The query string is kept.
func rewritePath(path string, next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r2 := new(http.Request)
		*r2 = *r
		r2.URL = new(url.URL)
		*r2.URL = *r.URL
		r2.URL.Path = path
		r2.URL.RawPath = ""
		next.ServeHTTP(w, r2)
	}
}
