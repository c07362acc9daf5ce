package api

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/garnizeh/intake/internal/apperr"
	"github.com/garnizeh/intake/internal/auth"
	"github.com/garnizeh/intake/pkg/models"
)

type ctxKey string

const CtxAdmin ctxKey = "admin"

// package-level logger used by middleware and helpers; can be set via SetLogger from caller
var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// SetLogger installs a logger for the api package. Passing nil is a no-op.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

// AdminFromContext returns the admin resolved by AdminAuthMiddleware.
func AdminFromContext(ctx context.Context) (*models.Admin, bool) {
	a, ok := ctx.Value(CtxAdmin).(*models.Admin)
	return a, ok && a != nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("remote", r.RemoteAddr),
			slog.Int("status", rec.status),
			slog.Duration("duration", time.Since(start)),
		)
	})
}

// CORSMiddleware allows the configured client origin. "*" or an empty value
// allows any origin without credentials.
func CORSMiddleware(clientURL string) func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}
	clientURL = strings.TrimSpace(clientURL)
	if clientURL == "" || clientURL == "*" {
		opts.AllowedOrigins = []string{"*"}
	} else {
		for _, o := range strings.Split(clientURL, ",") {
			if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
				opts.AllowedOrigins = append(opts.AllowedOrigins, o)
			}
		}
		opts.AllowCredentials = true
	}
	return cors.Handler(opts)
}

func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler {
					panic(err)
				}
				logger.Error("panic", slog.Any("err", err), slog.String("path", r.URL.Path))
				writeFailure(w, http.StatusInternalServerError, msgServerError)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// RateLimiter applies a token bucket per client IP: max requests per window,
// refilled evenly across the window.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*client
	limit   rate.Limit
	burst   int
	window  time.Duration
	now     func() time.Time
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewRateLimiter(window time.Duration, max int) *RateLimiter {
	if window <= 0 {
		window = 15 * time.Minute
	}
	if max <= 0 {
		max = 100
	}
	return &RateLimiter{
		clients: make(map[string]*client),
		limit:   rate.Limit(float64(max) / window.Seconds()),
		burst:   max,
		window:  window,
		now:     time.Now,
	}
}

// Allow reports whether ip may make a request now and, when it may not, how
// long until it may.
func (l *RateLimiter) Allow(ip string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	c, ok := l.clients[ip]
	if !ok {
		l.sweep(now)
		c = &client{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[ip] = c
	}
	c.lastSeen = now

	res := c.limiter.ReserveN(now, 1)
	if d := res.DelayFrom(now); d > 0 {
		res.CancelAt(now)
		return false, d
	}
	return true, 0
}

// sweep drops clients idle for longer than a window; their buckets are full
// again by then.
func (l *RateLimiter) sweep(now time.Time) {
	for ip, c := range l.clients {
		if now.Sub(c.lastSeen) > l.window {
			delete(l.clients, ip)
		}
	}
}

func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, retry := l.Allow(clientIP(r))
		if !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
			writeFailure(w, http.StatusTooManyRequests, "Too many requests from this IP, please try again later.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// AdminAuthMiddleware resolves the bearer token to an active admin and stores
// it in the request context.
func AdminAuthMiddleware(gate *auth.Gate, dev bool) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.BearerToken(r.Header.Get("Authorization"))
			if err != nil {
				writeFailure(w, http.StatusUnauthorized, msgUnauthorized)
				return
			}

			admin, err := gate.Authenticate(r.Context(), token)
			if err != nil {
				if errors.Is(err, apperr.ErrUnauthorized) {
					writeFailure(w, http.StatusUnauthorized, msgUnauthorized)
					return
				}
				writeError(w, r, err, dev)
				return
			}

			ctx := context.WithValue(r.Context(), CtxAdmin, admin)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
