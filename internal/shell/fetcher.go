package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path"
	"strings"
	"time"
)

// ErrAssetNotFound is returned by a Fetcher when the asset does not exist.
var ErrAssetNotFound = errors.New("asset not found")

// Asset is a fetched shell file.
type Asset struct {
	Path        string
	ContentType string
	Body        []byte
}

// Fetcher is the network side of the cache: where assets come from on a miss.
type Fetcher interface {
	Fetch(ctx context.Context, assetPath string) (*Asset, error)
}

// cleanPath returns the slash-rooted, cleaned form of p. "/" maps to "/index.html".
func cleanPath(p string) string {
	p = path.Clean("/" + strings.TrimSpace(p))
	if p == "/" {
		return "/index.html"
	}
	return p
}

// DirFetcher serves assets from a directory of built frontend files.
type DirFetcher struct {
	fsys fs.FS
}

func NewDirFetcher(dir string) *DirFetcher {
	return &DirFetcher{fsys: os.DirFS(dir)}
}

func (d *DirFetcher) Fetch(_ context.Context, assetPath string) (*Asset, error) {
	p := cleanPath(assetPath)
	name := strings.TrimPrefix(p, "/")
	if !fs.ValidPath(name) {
		return nil, ErrAssetNotFound
	}
	if info, err := fs.Stat(d.fsys, name); err == nil && info.IsDir() {
		return nil, ErrAssetNotFound
	}
	body, err := fs.ReadFile(d.fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrAssetNotFound
		}
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return &Asset{Path: p, ContentType: contentType(p, body), Body: body}, nil
}

// HTTPFetcher fetches assets from an upstream origin such as a CDN.
type HTTPFetcher struct {
	baseURL string
	client  *http.Client
}

func NewHTTPFetcher(baseURL string) *HTTPFetcher {
	return &HTTPFetcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (h *HTTPFetcher) Fetch(ctx context.Context, assetPath string) (*Asset, error) {
	p := cleanPath(assetPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+p, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", p, err)
	}
	res, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", p, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, ErrAssetNotFound
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch %s: status code %d", p, res.StatusCode)
	}
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", p, err)
	}
	ct := res.Header.Get("Content-Type")
	if ct == "" {
		ct = contentType(p, body)
	}
	return &Asset{Path: p, ContentType: ct, Body: body}, nil
}

func contentType(p string, body []byte) string {
	if ct := mime.TypeByExtension(path.Ext(p)); ct != "" {
		return ct
	}
	return http.DetectContentType(body)
}
