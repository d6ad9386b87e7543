package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"

	"github.com/pauljones0/bizdir/internal/apperr"
	"github.com/pauljones0/bizdir/internal/auth"
	"github.com/pauljones0/bizdir/internal/models"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	claimsKey    contextKey = "claims"

	requestIDHeader = "X-Request-ID"
)

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func claimsFrom(ctx context.Context) *auth.Claims {
	c, _ := ctx.Value(claimsKey).(*auth.Claims)
	return c
}

// userID is the verified caller, or "" for anonymous requests.
func userID(ctx context.Context) string {
	if c := claimsFrom(ctx); c != nil {
		return c.UID
	}
	return ""
}

// requestID tags every request with an ID, reusing the caller's if it sent one.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

type httpMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newHTTPMetrics(reg prometheus.Registerer) *httpMetrics {
	f := promauto.With(reg)
	return &httpMetrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bizdir_http_requests_total",
			Help: "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bizdir_http_request_duration_seconds",
			Help:    "HTTP request latency by route and method.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
}

// accessLog logs one line per request and records request metrics.
func accessLog(m *httpMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			elapsed := time.Since(start)
			route := "unmatched"
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			m.requests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
			m.duration.WithLabelValues(route, r.Method).Observe(elapsed.Seconds())

			level := slog.LevelInfo
			if status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			slog.Log(r.Context(), level, "HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"route", route,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration_ms", elapsed.Milliseconds(),
				"remote_ip", clientIP(r),
				"request_id", requestIDFrom(r.Context()),
			)
		})
	}
}

// clientIP prefers the last X-Forwarded-For hop, as appended by the load balancer.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[len(ips)-1])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

const (
	maxTrackedClients = 10000
	clientLimiterTTL  = 10 * time.Minute
)

// ipRateLimiter keeps one token bucket per client IP. Idle buckets expire.
type ipRateLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters *expirable.LRU[string, *rate.Limiter]
}

func newIPRateLimiter(rps float64, burst int) *ipRateLimiter {
	return &ipRateLimiter{
		limit:    rate.Limit(rps),
		burst:    burst,
		limiters: expirable.NewLRU[string, *rate.Limiter](maxTrackedClients, nil, clientLimiterTTL),
	}
}

func (l *ipRateLimiter) allow(ip string) bool {
	l.mu.Lock()
	lim, ok := l.limiters.Get(ip)
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters.Add(ip, lim)
	}
	l.mu.Unlock()
	return lim.Allow()
}

func (l *ipRateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.allow(clientIP(r)) {
			w.Header().Set("Retry-After", "1")
			writeStatusError(w, http.StatusTooManyRequests, apperr.MsgTooManyAttempts)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// authenticate rejects requests without a valid bearer token.
func authenticate(v TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeStatusError(w, http.StatusUnauthorized, "Please sign in to continue.")
				return
			}
			claims, err := v.Verify(r.Context(), token)
			if err != nil {
				if !errors.Is(err, auth.ErrTokenExpired) && !errors.Is(err, auth.ErrTokenInvalid) {
					slog.Warn("Token verification failed", "error", err)
				}
				writeStatusError(w, http.StatusUnauthorized, apperr.MsgSessionExpired)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
		})
	}
}

// optionalAuth attaches the caller's claims when a valid token is present and
// otherwise lets the request through anonymously.
func optionalAuth(v TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := bearerToken(r); token != "" {
				if claims, err := v.Verify(r.Context(), token); err == nil {
					r = r.WithContext(context.WithValue(r.Context(), claimsKey, claims))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

var errAccountDisabled = &apperr.ProviderError{Code: "USER_DISABLED", HTTPStatus: http.StatusBadRequest}

// requireActive rejects callers whose profile has been deactivated. Callers
// without a profile yet pass so the profile can be created on first use.
func requireActive(profiles Profiles) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := profiles.Get(r.Context(), userID(r.Context()))
			switch {
			case errors.Is(err, models.ErrNotFound):
			case err != nil:
				writeError(w, r, err)
				return
			case !p.IsActive:
				writeError(w, r, errAccountDisabled)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requireAdmin checks the stored profile role. It runs after authenticate.
func requireAdmin(profiles Profiles) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := profiles.Get(r.Context(), userID(r.Context()))
			if err != nil {
				if errors.Is(err, models.ErrNotFound) {
					writeError(w, r, models.ErrForbidden)
					return
				}
				writeError(w, r, err)
				return
			}
			if p.Role != models.RoleAdmin || !p.IsActive {
				writeError(w, r, models.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
