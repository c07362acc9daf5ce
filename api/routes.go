package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/garnizeh/intake/internal/auth"
	"github.com/garnizeh/intake/internal/config"
	"github.com/garnizeh/intake/internal/requests"
)

// Deps are the services the HTTP layer is built on.
type Deps struct {
	Gate     *auth.Gate
	Requests *requests.Store
	Stats    *requests.Aggregator
	DB       Pinger
}

// SetupRoutes builds the full handler: recovery, logging, CORS and, when
// enabled, the per-IP rate limit on /api wrap the router.
func SetupRoutes(cfg *config.Config, version, buildTime string, deps Deps) http.Handler {
	dev := cfg.IsDevelopment()
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeFailure(w, http.StatusNotFound, "Route not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeFailure(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	// Create handlers
	systemHandler := NewSystemHandler(deps.DB)
	authHandler := NewAuthHandler(deps.Gate, dev)
	requestsHandler := NewRequestsHandler(deps.Requests, deps.Stats, dev)
	adminOnly := AdminAuthMiddleware(deps.Gate, dev)

	// Open endpoints
	r.HandleFunc("/version", systemHandler.VersionHandler(version, buildTime)).Methods(http.MethodGet)

	// /api routes live on the root router with full paths; a subrouter
	// answers method mismatches with its NotFound reply instead of a 405.
	r.HandleFunc("/api/health", systemHandler.HealthHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/auth/login", authHandler.Login).Methods(http.MethodPost)
	r.HandleFunc("/api/requests", requestsHandler.Create).Methods(http.MethodPost)

	// Protected routes
	r.Handle("/api/auth/me", adminOnly(http.HandlerFunc(authHandler.Me))).Methods(http.MethodGet)
	r.Handle("/api/requests", adminOnly(http.HandlerFunc(requestsHandler.List))).Methods(http.MethodGet)
	// stats routes are registered before {id} so they are not taken as ids
	r.Handle("/api/requests/stats", adminOnly(http.HandlerFunc(requestsHandler.Stats))).Methods(http.MethodGet)
	r.Handle("/api/requests/stats/overview", adminOnly(http.HandlerFunc(requestsHandler.Stats))).Methods(http.MethodGet)
	r.Handle("/api/requests/{id}", adminOnly(http.HandlerFunc(requestsHandler.Get))).Methods(http.MethodGet)
	r.Handle("/api/requests/{id}", adminOnly(http.HandlerFunc(requestsHandler.Update))).Methods(http.MethodPut)
	r.Handle("/api/requests/{id}", adminOnly(http.HandlerFunc(requestsHandler.Delete))).Methods(http.MethodDelete)

	var h http.Handler = r
	if cfg.RateLimitEnabled() {
		h = limitAPI(NewRateLimiter(cfg.RateLimit.Window, cfg.RateLimit.Max), h)
	}
	h = CORSMiddleware(cfg.ClientURL)(h)
	h = LoggingMiddleware(h)
	h = RecoveryMiddleware(h)

	return h
}

// limitAPI rate limits /api paths only.
func limitAPI(l *RateLimiter, next http.Handler) http.Handler {
	limited := l.Middleware(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			limited.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
