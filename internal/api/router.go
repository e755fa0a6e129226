package api

import (
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nahida-ai/nahida/internal/database"
	mw "github.com/nahida-ai/nahida/internal/middleware"
	inats "github.com/nahida-ai/nahida/internal/nats"
)

// HandlerSet holds handler functions injected from main.go to avoid import cycles.
type HandlerSet struct {
	// Reply pipeline transports
	Chat   http.HandlerFunc
	Socket http.HandlerFunc

	// Run journal (nil when no database is configured)
	RecentRuns http.HandlerFunc
}

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	CORSAllowedOrigins []string
	// IndexFile is served at / when set.
	IndexFile string
}

// NewRouter builds the HTTP surface. pool and natsClient may be nil when the
// run journal is disabled.
func NewRouter(pool *pgxpool.Pool, natsClient *inats.Client, cfg RouterConfig, h HandlerSet) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.SecurityHeaders)
	r.Use(mw.Logging)
	r.Use(mw.Recovery)
	r.Use(mw.Metrics)
	r.Use(cors.Handler(mw.CORS(cfg.CORSAllowedOrigins)))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		HandleError(w, ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		HandleError(w, ErrMethodNotAllowed)
	})

	// Liveness probe: always 200, no dependency checks
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"status": "alive"})
	})

	// Readiness probe: checks the journal database and NATS when configured
	readinessHandler := func(w http.ResponseWriter, r *http.Request) {
		health := map[string]string{
			"status":   "healthy",
			"database": "healthy",
			"nats":     "healthy",
		}

		status := http.StatusOK

		if pool == nil {
			health["database"] = "not configured"
		} else if err := database.HealthCheck(r.Context(), pool); err != nil {
			health["database"] = "unhealthy"
			health["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}

		if natsClient != nil && !natsClient.Healthy() {
			health["nats"] = "unhealthy"
			health["status"] = "degraded"
			status = http.StatusServiceUnavailable
		} else if natsClient == nil {
			health["nats"] = "not configured"
		}

		JSON(w, status, health)
	}

	r.Get("/health/ready", readinessHandler)
	r.Get("/health", readinessHandler)

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/chat", h.Chat)
	r.Get("/ws", h.Socket)

	if h.RecentRuns != nil {
		r.Get("/runs", h.RecentRuns)
	}

	if cfg.IndexFile != "" {
		r.Get("/", serveIndex(cfg.IndexFile))
	}

	return r
}

// serveIndex serves the page as an opaque document; it is re-read per request.
func serveIndex(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if info, err := os.Stat(path); err != nil || info.IsDir() {
			HandleError(w, ErrNotFound)
			return
		}
		w.Header().Set("Cache-Control", "no-cache")
		http.ServeFile(w, r, path)
	}
}
