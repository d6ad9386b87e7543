package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pauljones0/bizdir/internal/analytics"
	"github.com/pauljones0/bizdir/internal/auth"
	"github.com/pauljones0/bizdir/internal/blob"
	"github.com/pauljones0/bizdir/internal/catalog"
	"github.com/pauljones0/bizdir/internal/config"
	"github.com/pauljones0/bizdir/internal/httpapi"
	"github.com/pauljones0/bizdir/internal/listing"
	"github.com/pauljones0/bizdir/internal/notifier"
	"github.com/pauljones0/bizdir/internal/onboarding"
	"github.com/pauljones0/bizdir/internal/profile"
	"github.com/pauljones0/bizdir/internal/restapi"
	"github.com/pauljones0/bizdir/internal/search"
	"github.com/pauljones0/bizdir/internal/shell"
	"github.com/pauljones0/bizdir/internal/storage"
	"github.com/pauljones0/bizdir/internal/validator"
)

const signingKeysRefresh = time.Hour

func main() {
	slog.Info("Starting business directory server...")
	if err := config.LoadDotEnv(); err != nil {
		slog.Warn("Failed to load .env file", "error", err)
	}
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Critical error loading configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	store, err := storage.New(ctx, cfg.ProjectID)
	if err != nil {
		slog.Error("Critical error initializing Firestore client", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	images, err := blob.New(ctx, cfg.StorageBucket)
	if err != nil {
		slog.Error("Critical error initializing Cloud Storage client", "error", err)
		os.Exit(1)
	}
	defer images.Close()

	v := validator.New()
	n := notifier.New(cfg.DiscordWebhookURL)
	listings := listing.New(store, images, n, v, listing.Limits{
		MaxImages:     cfg.MaxListingImages,
		MaxImageBytes: cfg.MaxUploadBytes,
	})
	profiles := profile.New(store, v)
	wizard := onboarding.New(store, listings, v)

	var (
		analyticsRepo analytics.Repository = store
		catalogRepo   catalog.Repository   = store
		searcher      search.Searcher      = search.NewLocal(store)
	)
	if cfg.UseRESTAPI {
		rest := restapi.New(cfg.RESTAPIBaseURL, cfg.RESTAPIToken)
		analyticsRepo, catalogRepo, searcher = rest, rest, rest
		slog.Info("Using REST API for analytics, catalog and search", "base_url", cfg.RESTAPIBaseURL)
	}

	tracker := analytics.NewTracker(
		analyticsRepo,
		analytics.NewDebouncer(cfg.AnalyticsDebounce, cfg.AnalyticsDebounceMaxKeys, nil),
		analytics.NewMetrics(prometheus.DefaultRegisterer),
	)

	var shellHandler http.Handler
	if cfg.ShellDir != "" {
		cache := newShellCache(ctx, cfg)
		shellHandler = cache
		go rotateShellOnSIGHUP(cache, cfg.ShellCacheName)
	}

	api := httpapi.New(httpapi.Deps{
		Identity:   auth.NewIdentityClient(cfg.FirebaseAPIKey),
		Verifier:   auth.NewVerifier(cfg.ProjectID, auth.NewRemoteKeys("", signingKeysRefresh)),
		Profiles:   profiles,
		Onboarding: wizard,
		Listings:   listings,
		Tracker:    tracker,
		Catalog:    catalog.New(catalogRepo, catalog.DefaultTTL),
		Search:     searcher,
		Validator:  v,
		Shell:      shellHandler,
		Ping:       store.Ping,
	}, httpapi.Options{
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		MaxUploadBytes: cfg.MaxUploadBytes,
		MaxImages:      cfg.MaxListingImages,
	})

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      api,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGTERM/SIGINT
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
		sig := <-sigCh
		slog.Info("Received signal, shutting down gracefully...", "signal", sig)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
		}
	}()

	slog.Info("Listening on port", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("Failed to listen and serve", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped.")
}

// newShellCache precaches the frontend shell. A failed install is logged and
// the shell is then served from the network until the next rotation.
func newShellCache(ctx context.Context, cfg *config.Config) *shell.Cache {
	var fetcher shell.Fetcher
	if strings.HasPrefix(cfg.ShellDir, "http://") || strings.HasPrefix(cfg.ShellDir, "https://") {
		fetcher = shell.NewHTTPFetcher(cfg.ShellDir)
	} else {
		fetcher = shell.NewDirFetcher(cfg.ShellDir)
	}
	cache := shell.New(cfg.ShellCacheName, fetcher, cfg.ShellPrecache)

	installCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	if err := cache.Install(installCtx); err != nil {
		slog.Warn("Failed to precache shell", "source", cfg.ShellDir, "error", err)
		return cache
	}
	cache.Activate()
	return cache
}

// rotateShellOnSIGHUP installs a fresh cache generation on every SIGHUP so a
// redeployed frontend is picked up without a restart.
func rotateShellOnSIGHUP(cache *shell.Cache, baseName string) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	for range hup {
		name := baseName + "-" + time.Now().UTC().Format("20060102T150405")
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		if err := cache.Rotate(ctx, name); err != nil {
			slog.Error("Failed to rotate shell cache", "cache", name, "error", err)
		} else {
			slog.Info("Rotated shell cache", "cache", name)
		}
		cancel()
	}
}
