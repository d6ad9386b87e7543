// Package httpapi is the HTTP surface of the directory: auth, catalog,
// search, public listings, the owner's dashboard and moderation.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pauljones0/bizdir/internal/search"
	"github.com/pauljones0/bizdir/internal/validator"
)

// Deps are the services the handlers call.
type Deps struct {
	Identity   Identity
	Verifier   TokenVerifier
	Profiles   Profiles
	Onboarding Onboarding
	Listings   Listings
	Tracker    Tracker
	Catalog    Catalog
	Search     search.Searcher
	Validator  *validator.Validator
	// Shell serves every path no API route matches. Optional.
	Shell http.Handler
	// Ping reports whether the database is reachable. Optional.
	Ping func(ctx context.Context) error
}

type Options struct {
	RateLimitRPS   float64
	RateLimitBurst int
	// MaxUploadBytes bounds one image; a request may carry MaxImages of them.
	MaxUploadBytes int64
	MaxImages      int
	Registerer     prometheus.Registerer
	Gatherer       prometheus.Gatherer
}

type Server struct {
	deps    Deps
	opts    Options
	router  chi.Router
	metrics *httpMetrics
	limiter *ipRateLimiter
}

func New(deps Deps, opts Options) *Server {
	if opts.Registerer == nil {
		opts.Registerer = prometheus.DefaultRegisterer
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	if opts.RateLimitRPS <= 0 {
		opts.RateLimitRPS = 20
	}
	if opts.RateLimitBurst <= 0 {
		opts.RateLimitBurst = 40
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 5 << 20
	}
	if opts.MaxImages <= 0 {
		opts.MaxImages = 10
	}
	s := &Server{
		deps:    deps,
		opts:    opts,
		metrics: newHTTPMetrics(opts.Registerer),
		limiter: newIPRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst),
	}
	s.router = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(accessLog(s.metrics))
	r.Use(chimw.Recoverer)

	r.Get("/health", s.health)
	r.Handle("/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))

	authn := authenticate(s.deps.Verifier)

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.limiter.Handler)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", s.signUp)
			r.Post("/signin", s.signIn)
			r.Post("/federated", s.federated)
			r.Post("/refresh", s.refresh)
			r.Post("/password-reset", s.passwordReset)
			r.Post("/password-strength", s.passwordStrength)
		})

		r.Get("/catalog/categories", s.categories)
		r.Get("/catalog/categories/{id}/products", s.products)
		r.Get("/search", s.search)

		r.Route("/listings", func(r chi.Router) {
			r.Use(optionalAuth(s.deps.Verifier))
			r.Get("/", s.activeListings)
			r.Get("/{id}", s.publicListing)
			r.Post("/{id}/click", s.trackEvent)
			r.Post("/{id}/lead", s.trackEvent)
		})

		r.Route("/me", func(r chi.Router) {
			r.Use(authn)
			r.Use(requireActive(s.deps.Profiles))
			r.Get("/", s.me)
			r.Patch("/", s.updateMe)

			r.Get("/onboarding", s.onboarding)
			r.Post("/onboarding/advance", s.onboardingAdvance)
			r.Post("/onboarding/back", s.onboardingBack)
			r.Post("/onboarding/complete", s.onboardingComplete)

			r.Get("/listings", s.myListings)
			r.Post("/listings", s.createListing)
			r.Patch("/listings/{id}", s.updateListing)
			r.Delete("/listings/{id}", s.deleteListing)

			r.Get("/analytics", s.analytics)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(authn)
			r.Use(requireAdmin(s.deps.Profiles))
			r.Post("/listings/{id}/status", s.setListingStatus)
			r.Post("/users/{uid}/active", s.setUserActive)
		})
	})

	if s.deps.Shell != nil {
		r.Handle("/*", s.deps.Shell)
	}
	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := s.deps.Ping(ctx); err != nil {
			slog.Warn("Health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
