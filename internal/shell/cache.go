// Package shell caches the static frontend shell the server hosts, with the
// install, activate and fetch policy of the app's service worker.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/bmatcuk/doublestar/v4"

	"github.com/pauljones0/bizdir/internal/util"
)

// BypassPatterns are always fetched from the network, never from the cache.
var BypassPatterns = []string{"**/*.js", "**/*.css", "**/*.json", "**/assets/**"}

const (
	precacheRetries = 3
	precacheBackoff = 200 * time.Millisecond

	SourceCache    = "cache"
	SourceNetwork  = "network"
	SourceBypass   = "bypass"
	SourceFallback = "fallback"
)

// Cache holds named caches of shell assets, of which one is current.
type Cache struct {
	mu       sync.RWMutex
	current  string
	caches   map[string]map[string]*Asset
	fetcher  Fetcher
	precache []string
	backoff  time.Duration
}

func New(name string, fetcher Fetcher, precache []string) *Cache {
	return &Cache{
		current:  name,
		caches:   map[string]map[string]*Asset{},
		fetcher:  fetcher,
		precache: precache,
		backoff:  precacheBackoff,
	}
}

// Name is the current cache name.
func (c *Cache) Name() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Names lists every cache that exists.
func (c *Cache) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.caches))
	for n := range c.caches {
		names = append(names, n)
	}
	return names
}

// Bypassed reports whether p must skip the cache.
func Bypassed(p string) bool {
	name := strings.TrimPrefix(cleanPath(p), "/")
	for _, pattern := range BypassPatterns {
		if ok, _ := doublestar.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

// Install fills the current cache with the configured precache list plus the
// cacheable assets index.html references. Each asset is fetched with a few
// retries; the install fails if any of them cannot be fetched.
func (c *Cache) Install(ctx context.Context) error {
	return c.install(ctx, c.Name())
}

func (c *Cache) install(ctx context.Context, name string) error {
	assets := make(map[string]*Asset)

	index, err := c.fetchWithRetry(ctx, "/index.html")
	if err != nil {
		return fmt.Errorf("precache /index.html: %w", err)
	}
	assets[index.Path] = index

	paths := append([]string{}, c.precache...)
	discovered, err := DiscoverAssets(index.Body)
	if err != nil {
		slog.Warn("Failed to parse index.html for precache", "error", err)
	}
	paths = append(paths, discovered...)

	for _, p := range paths {
		p = cleanPath(p)
		if _, done := assets[p]; done || Bypassed(p) {
			continue
		}
		asset, err := c.fetchWithRetry(ctx, p)
		if err != nil {
			return fmt.Errorf("precache %s: %w", p, err)
		}
		assets[p] = asset
	}

	c.mu.Lock()
	c.caches[name] = assets
	c.mu.Unlock()
	slog.Info("Shell cache installed", "cache", name, "assets", len(assets))
	return nil
}

func (c *Cache) fetchWithRetry(ctx context.Context, p string) (*Asset, error) {
	var asset *Asset
	err := util.RetryWithBackoff(ctx, precacheRetries, c.backoff, func(attempt int) error {
		a, err := c.fetcher.Fetch(ctx, p)
		if errors.Is(err, ErrAssetNotFound) {
			return util.Permanent(err)
		}
		if err != nil {
			if attempt < precacheRetries {
				slog.Debug("Precache fetch failed, retrying", "path", p, "attempt", attempt, "error", err)
			}
			return err
		}
		asset = a
		return nil
	})
	return asset, err
}

// Activate deletes every cache except the current one and returns the deleted names.
func (c *Cache) Activate() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var deleted []string
	for n := range c.caches {
		if n != c.current {
			delete(c.caches, n)
			deleted = append(deleted, n)
		}
	}
	if len(deleted) > 0 {
		slog.Info("Deleted old shell caches", "caches", deleted)
	}
	return deleted
}

// Rotate installs a fresh cache under name, makes it current and activates it.
// The previous cache keeps serving until the new one is complete; on failure
// it stays current.
func (c *Cache) Rotate(ctx context.Context, name string) error {
	if err := c.install(ctx, name); err != nil {
		return err
	}
	c.mu.Lock()
	c.current = name
	c.mu.Unlock()
	c.Activate()
	return nil
}

// Fetch returns the asset for p. Bypassed paths always go to the network.
// Other paths are served from the current cache, then the network. A failed
// navigation falls back to the cached /index.html.
func (c *Cache) Fetch(ctx context.Context, p string, navigate bool) (*Asset, string, error) {
	p = cleanPath(p)
	if Bypassed(p) {
		a, err := c.fetcher.Fetch(ctx, p)
		return a, SourceBypass, err
	}

	if a := c.lookup(p); a != nil {
		return a, SourceCache, nil
	}

	a, err := c.fetcher.Fetch(ctx, p)
	if err == nil {
		return a, SourceNetwork, nil
	}
	if navigate {
		if index := c.lookup("/index.html"); index != nil {
			return index, SourceFallback, nil
		}
	}
	return nil, SourceNetwork, err
}

func (c *Cache) lookup(p string) *Asset {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.caches[c.current][p]
}

// ServeHTTP serves GET and HEAD requests through Fetch.
func (c *Cache) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	asset, source, err := c.Fetch(r.Context(), r.URL.Path, isNavigation(r))
	if err != nil {
		if errors.Is(err, ErrAssetNotFound) {
			http.NotFound(w, r)
			return
		}
		slog.Warn("Shell fetch failed", "path", r.URL.Path, "error", err)
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}

	w.Header().Set("X-Shell-Source", source)
	if source == SourceBypass {
		w.Header().Set("Cache-Control", "no-cache")
	}
	w.Header().Set("Content-Type", asset.ContentType)
	http.ServeContent(w, r, asset.Path, time.Time{}, bytes.NewReader(asset.Body))
}

func isNavigation(r *http.Request) bool {
	if r.Header.Get("Sec-Fetch-Mode") == "navigate" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

// DiscoverAssets returns the same-origin paths index.html links to through
// link, script, img and source elements.
func DiscoverAssets(indexHTML []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(indexHTML))
	if err != nil {
		return nil, err
	}
	var paths []string
	seen := map[string]bool{}
	add := func(ref string) {
		ref = strings.TrimSpace(ref)
		if ref == "" || strings.HasPrefix(ref, "//") || strings.HasPrefix(ref, "#") || strings.Contains(ref, ":") {
			return
		}
		if i := strings.IndexAny(ref, "?#"); i >= 0 {
			ref = ref[:i]
		}
		p := cleanPath(ref)
		if !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}
	doc.Find("link[href]").Each(func(_ int, s *goquery.Selection) { add(s.AttrOr("href", "")) })
	doc.Find("script[src], img[src], source[src]").Each(func(_ int, s *goquery.Selection) { add(s.AttrOr("src", "")) })
	return paths, nil
}
