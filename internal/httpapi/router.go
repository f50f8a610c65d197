// internal/httpapi/router.go
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cites-permits/internal/common/logger"
	"cites-permits/internal/common/metrics"
)

// NewRouter assembles the chi router with recovery, request logging and
// metrics middleware.
func NewRouter(h *Handler, log logger.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(recoverer(log))
	r.Use(requestMetrics)

	r.Route("/applications", func(r chi.Router) {
		r.Post("/", h.SubmitApplication)
		r.Get("/", h.ListApplications)
		r.Get("/{id}", h.GetApplication)
		r.Patch("/{id}/status", h.TransitionApplication)
	})
	r.Route("/documents", func(r chi.Router) {
		r.Post("/", h.UploadDocuments)
		r.Delete("/{id}", h.DeleteDocument)
	})
	r.Get("/healthz", h.Healthz)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// recoverer converts panics into generic 500 responses so a handler bug
// never tears the server down.
func recoverer(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error("panic recovered", map[string]interface{}{
						"panic":  rec,
						"method": r.Method,
						"path":   r.URL.Path,
					})
					writeJSON(w, http.StatusInternalServerError, envelope{
						Success: false,
						Message: "internal server error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func requestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		metrics.RequestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

func intQuery(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
