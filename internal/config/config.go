package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ProjectID      string
	Port           string
	StorageBucket  string
	FirebaseAPIKey string

	// UseRESTAPI routes analytics, catalog and search through the REST API
	// instead of Firestore.
	UseRESTAPI     bool
	RESTAPIBaseURL string
	RESTAPIToken   string

	AnalyticsDebounce        time.Duration
	AnalyticsDebounceMaxKeys int

	MaxUploadBytes   int64
	MaxListingImages int

	DiscordWebhookURL string

	ShellDir       string
	ShellCacheName string
	ShellPrecache  []string

	RateLimitRPS   float64
	RateLimitBurst int
}

// LoadDotEnv loads variables from .env style files into the environment.
// Variables that are already set win. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
		slog.Info("Loaded environment file", "path", p)
	}
	return nil
}

func Load() (*Config, error) {
	projectID := os.Getenv("GOOGLE_CLOUD_PROJECT")
	if projectID == "" {
		return nil, fmt.Errorf("GOOGLE_CLOUD_PROJECT environment variable is required but not set")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
		slog.Info("Defaulting to port", "port", port)
	}

	storageBucket := os.Getenv("STORAGE_BUCKET")
	if storageBucket == "" {
		storageBucket = projectID + ".appspot.com"
	}

	firebaseAPIKey := os.Getenv("FIREBASE_API_KEY")
	if firebaseAPIKey == "" {
		slog.Warn("FIREBASE_API_KEY not set, sign-up and sign-in endpoints will fail")
	}

	useREST := false
	if v := os.Getenv("USE_REST_API"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid USE_REST_API %q: %w", v, err)
		}
		useREST = parsed
	}
	restBaseURL := strings.TrimRight(os.Getenv("REST_API_BASE_URL"), "/")
	if useREST && restBaseURL == "" {
		return nil, fmt.Errorf("REST_API_BASE_URL is required when USE_REST_API is true")
	}

	debounceStr := os.Getenv("ANALYTICS_DEBOUNCE")
	if debounceStr == "" {
		debounceStr = "5s"
	}
	debounce, err := time.ParseDuration(debounceStr)
	if err != nil {
		return nil, fmt.Errorf("invalid ANALYTICS_DEBOUNCE %q: %w", debounceStr, err)
	}

	debounceMaxKeys, err := intEnv("ANALYTICS_DEBOUNCE_MAX_KEYS", 10000)
	if err != nil {
		return nil, err
	}

	maxUploadBytes := int64(5 << 20)
	if v := os.Getenv("MAX_UPLOAD_BYTES"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid MAX_UPLOAD_BYTES %q: %w", v, err)
		}
		maxUploadBytes = parsed
	}

	maxImages, err := intEnv("MAX_LISTING_IMAGES", 10)
	if err != nil {
		return nil, err
	}

	discordWebhookURL := os.Getenv("DISCORD_WEBHOOK_URL")
	if discordWebhookURL == "" {
		slog.Warn("DISCORD_WEBHOOK_URL not set, moderation notifications will be skipped")
	}

	shellCacheName := os.Getenv("SHELL_CACHE_NAME")
	if shellCacheName == "" {
		shellCacheName = "bizdir-shell-v1"
	}

	precache := []string{"/", "/index.html", "/manifest.webmanifest", "/favicon.ico"}
	if v := os.Getenv("SHELL_PRECACHE"); v != "" {
		precache = nil
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				precache = append(precache, p)
			}
		}
	}

	rps := 20.0
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid RATE_LIMIT_RPS %q: %w", v, err)
		}
		rps = parsed
	}
	burst, err := intEnv("RATE_LIMIT_BURST", 40)
	if err != nil {
		return nil, err
	}

	return &Config{
		ProjectID:                projectID,
		Port:                     port,
		StorageBucket:            storageBucket,
		FirebaseAPIKey:           firebaseAPIKey,
		UseRESTAPI:               useREST,
		RESTAPIBaseURL:           restBaseURL,
		RESTAPIToken:             os.Getenv("REST_API_TOKEN"),
		AnalyticsDebounce:        debounce,
		AnalyticsDebounceMaxKeys: debounceMaxKeys,
		MaxUploadBytes:           maxUploadBytes,
		MaxListingImages:         maxImages,
		DiscordWebhookURL:        discordWebhookURL,
		ShellDir:                 os.Getenv("SHELL_DIR"),
		ShellCacheName:           shellCacheName,
		ShellPrecache:            precache,
		RateLimitRPS:             rps,
		RateLimitBurst:           burst,
	}, nil
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return parsed, nil
}
