// Package restapi talks to the optional REST backend that can stand in for
// Firestore for analytics, catalog and search.
package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/pauljones0/bizdir/internal/models"
)

// StatusError is a non-2xx response from the REST backend.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("rest api %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

type Client struct {
	baseURL     string
	token       string
	client      *http.Client
	rateLimiter *rate.Limiter
}

// New returns a client for baseURL that authenticates with token as a bearer token.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL:     baseURL,
		token:       token,
		client:      &http.Client{},
		rateLimiter: rate.NewLimiter(rate.Limit(50), 100),
	}
}

// GetDaily returns the owner's record for date, or nil if there is none.
func (c *Client) GetDaily(ctx context.Context, ownerID, date string) (*models.DailyAnalytics, error) {
	var rec models.DailyAnalytics
	err := c.do(ctx, http.MethodGet, dailyPath(ownerID)+"/"+url.PathEscape(date), nil, nil, &rec)
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// CreateDaily creates the day's record; a 409 maps to models.ErrAnalyticsExists.
func (c *Client) CreateDaily(ctx context.Context, rec models.DailyAnalytics) error {
	err := c.do(ctx, http.MethodPost, dailyPath(rec.OwnerID), nil, rec, nil)
	if isStatus(err, http.StatusConflict) {
		return models.ErrAnalyticsExists
	}
	return err
}

type incrementRequest struct {
	Field     string    `json:"field"`
	By        int64     `json:"by"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IncrementDaily asks the backend to add one to the kind's counter.
func (c *Client) IncrementDaily(ctx context.Context, ownerID, date string, kind models.EventKind, now time.Time) error {
	body := incrementRequest{Field: string(kind), By: 1, UpdatedAt: now}
	err := c.do(ctx, http.MethodPost, dailyPath(ownerID)+"/"+url.PathEscape(date)+"/increment", nil, body, nil)
	if isStatus(err, http.StatusNotFound) {
		return models.ErrNotFound
	}
	return err
}

// ListDaily returns the owner's records in [from, to].
func (c *Client) ListDaily(ctx context.Context, ownerID, from, to string) ([]models.DailyAnalytics, error) {
	q := url.Values{"from": {from}, "to": {to}}
	days := []models.DailyAnalytics{}
	if err := c.do(ctx, http.MethodGet, dailyPath(ownerID), q, nil, &days); err != nil {
		return nil, err
	}
	return days, nil
}

// Categories returns the catalog categories.
func (c *Client) Categories(ctx context.Context) ([]models.CatalogCategory, error) {
	cats := []models.CatalogCategory{}
	if err := c.do(ctx, http.MethodGet, "/catalog/categories", nil, nil, &cats); err != nil {
		return nil, err
	}
	return cats, nil
}

// Products returns a category's catalog products.
func (c *Client) Products(ctx context.Context, categoryID string) ([]models.CatalogProduct, error) {
	products := []models.CatalogProduct{}
	path := "/catalog/categories/" + url.PathEscape(categoryID) + "/products"
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// Search runs the query on the backend, which ranks the results.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]models.Listing, error) {
	q := url.Values{"q": {query}}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	listings := []models.Listing{}
	if err := c.do(ctx, http.MethodGet, "/search", q, nil, &listings); err != nil {
		return nil, err
	}
	return listings, nil
}

func dailyPath(ownerID string) string {
	return "/analytics/" + url.PathEscape(ownerID) + "/daily"
}

func isStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

// do sends one request. Failures are returned as-is; nothing is retried.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("rest api %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}
