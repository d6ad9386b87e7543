package restapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/pauljones0/bizdir/internal/models"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)
	c := New(server.URL, "secret")
	c.rateLimiter = rate.NewLimiter(rate.Inf, 1)
	return c
}

func TestClient_SendsBearerToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q", got)
		}
		w.Write([]byte(`[]`))
	})
	if _, err := c.Categories(context.Background()); err != nil {
		t.Fatalf("Categories() error = %v", err)
	}
}

func TestGetDaily(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/analytics/o1/daily/2025-05-01":
			w.Write([]byte(`{"ownerId":"o1","date":"2025-05-01","views":4}`))
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	rec, err := c.GetDaily(ctx, "o1", "2025-05-01")
	if err != nil {
		t.Fatalf("GetDaily() error = %v", err)
	}
	if rec == nil || rec.Views != 4 {
		t.Errorf("GetDaily() = %+v", rec)
	}

	rec, err = c.GetDaily(ctx, "o1", "2025-05-02")
	if err != nil || rec != nil {
		t.Errorf("GetDaily() on missing day = %+v, %v; want nil, nil", rec, err)
	}
}

func TestCreateDaily_ConflictMapsToExists(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/analytics/o1/daily" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var rec models.DailyAnalytics
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if rec.Clicks != 1 {
			t.Errorf("clicks = %d, want 1", rec.Clicks)
		}
		w.WriteHeader(http.StatusConflict)
	})

	rec := models.NewDailyAnalytics("o1", "2025-05-01", models.EventClick, time.Now())
	if err := c.CreateDaily(context.Background(), rec); !errors.Is(err, models.ErrAnalyticsExists) {
		t.Errorf("CreateDaily() error = %v, want ErrAnalyticsExists", err)
	}
}

func TestIncrementDaily(t *testing.T) {
	var got incrementRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/analytics/o1/daily/2025-05-01/increment" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	})

	if err := c.IncrementDaily(context.Background(), "o1", "2025-05-01", models.EventLead, time.Now()); err != nil {
		t.Fatalf("IncrementDaily() error = %v", err)
	}
	if got.Field != "leads" || got.By != 1 {
		t.Errorf("request = %+v", got)
	}
}

func TestSearch_PassesQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" || r.URL.Query().Get("q") != "fresh fish" || r.URL.Query().Get("limit") != "5" {
			t.Errorf("unexpected request %s", r.URL.String())
		}
		w.Write([]byte(`[{"id":"l1","title":"Fish"}]`))
	})

	got, err := c.Search(context.Background(), "fresh fish", 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != "l1" {
		t.Errorf("Search() = %+v", got)
	}
}

func TestServerErrorIsNotRetried(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "boom", http.StatusBadGateway)
	})

	_, err := c.Products(context.Background(), "c1")
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusBadGateway {
		t.Fatalf("error = %v, want StatusError 502", err)
	}
	if calls != 1 {
		t.Errorf("server called %d times, want 1", calls)
	}
}

func TestClient_DeadlineComesFromContext(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
	})
	defer close(release)
	if c.client.Timeout != 0 {
		t.Errorf("client timeout = %v, want none", c.client.Timeout)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := c.GetDaily(ctx, "u1", "2024-05-01"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("GetDaily() error = %v, want deadline exceeded", err)
	}
}
