package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/pauljones0/bizdir/internal/models"
)

func testListing() models.Listing {
	return models.Listing{
		ID:          "lst-1",
		Title:       "Fresh Hilsa",
		Description: "Caught this morning",
		Category:    "food",
		Subcategory: "fish",
		Price:       1200,
		Unit:        "kg",
		City:        "Chattogram",
		Images:      []string{"https://example.com/hilsa.jpg"},
		Status:      models.StatusPending,
		UpdatedAt:   time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestFormatListingToEmbed(t *testing.T) {
	embed := formatListingToEmbed(testListing())

	if embed.Title != "Fresh Hilsa" {
		t.Errorf("Title = %q", embed.Title)
	}
	if embed.Color != colorPending {
		t.Errorf("Color = %d, want pending color", embed.Color)
	}
	if embed.Thumbnail.URL != "https://example.com/hilsa.jpg" {
		t.Errorf("Thumbnail = %q", embed.Thumbnail.URL)
	}
	if embed.Footer.Text != "Listing lst-1" {
		t.Errorf("Footer = %q", embed.Footer.Text)
	}

	want := map[string]string{
		"Status":   "pending",
		"Category": "food / fish",
		"Price":    "৳1200 / kg",
		"City":     "Chattogram",
	}
	if len(embed.Fields) != len(want) {
		t.Fatalf("got %d fields, want %d", len(embed.Fields), len(want))
	}
	for _, f := range embed.Fields {
		if want[f.Name] != f.Value {
			t.Errorf("field %s = %q, want %q", f.Name, f.Value, want[f.Name])
		}
	}
}

func TestFormatListingToEmbed_TruncatesDescription(t *testing.T) {
	l := testListing()
	l.Description = strings.Repeat("ক", maxDescriptionLen+50)

	embed := formatListingToEmbed(l)
	if got := len([]rune(embed.Description)); got != maxDescriptionLen+1 {
		t.Errorf("description has %d runes, want %d", got, maxDescriptionLen+1)
	}
}

func TestStatusColor(t *testing.T) {
	tests := []struct {
		status models.ListingStatus
		want   int
	}{
		{models.StatusPending, colorPending},
		{models.StatusActive, colorActive},
		{models.StatusRejected, colorRejected},
	}
	for _, tt := range tests {
		if got := statusColor(tt.status); got != tt.want {
			t.Errorf("statusColor(%s) = %d, want %d", tt.status, got, tt.want)
		}
	}
}

func TestClient_Submitted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST request, got %s", r.Method)
		}
		if r.URL.Query().Get("wait") != "true" {
			t.Errorf("Expected wait=true query param")
		}

		var payload discordWebhookPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("Failed to decode request body: %v", err)
		}
		if len(payload.Embeds) != 1 {
			t.Errorf("Expected 1 embed, got %d", len(payload.Embeds))
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": "12345", "channel_id": "67890"}`))
	}))
	defer server.Close()

	client := New(server.URL)
	client.rateLimiter = rate.NewLimiter(rate.Inf, 1)

	id, err := client.Submitted(context.Background(), testListing())
	if err != nil {
		t.Fatalf("Submitted() returned error: %v", err)
	}
	if id != "12345" {
		t.Errorf("Expected ID 12345, got %s", id)
	}
}

func TestClient_StatusChanged_PatchesExistingMessage(t *testing.T) {
	messageID := "12345"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("Expected PATCH request, got %s", r.Method)
		}
		if !strings.Contains(r.URL.Path, "/messages/"+messageID) {
			t.Errorf("URL %s does not contain message ID %s", r.URL.Path, messageID)
		}
		w.Write([]byte(`{"id": "12345"}`))
	}))
	defer server.Close()

	client := New(server.URL)
	client.rateLimiter = rate.NewLimiter(rate.Inf, 1)

	l := testListing()
	l.Status = models.StatusActive
	if err := client.StatusChanged(context.Background(), messageID, l); err != nil {
		t.Fatalf("StatusChanged() returned error: %v", err)
	}
}

func TestClient_StatusChanged_PostsWithoutMessage(t *testing.T) {
	var method string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		w.Write([]byte(`{"id": "999"}`))
	}))
	defer server.Close()

	client := New(server.URL)
	client.rateLimiter = rate.NewLimiter(rate.Inf, 1)

	if err := client.StatusChanged(context.Background(), "", testListing()); err != nil {
		t.Fatalf("StatusChanged() returned error: %v", err)
	}
	if method != http.MethodPost {
		t.Errorf("method = %s, want POST", method)
	}
}

func TestClient_NoRetryOn5xx(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"message": "server error"}`))
	}))
	defer server.Close()

	client := New(server.URL)
	client.rateLimiter = rate.NewLimiter(rate.Inf, 1)

	if _, err := client.Submitted(context.Background(), testListing()); err == nil {
		t.Fatal("expected error on 500")
	}
	if got := atomic.LoadInt32(&attempts); got != 1 {
		t.Errorf("server saw %d attempts, want 1", got)
	}
}

func TestClient_EmptyWebhookIsNoop(t *testing.T) {
	client := New("")
	id, err := client.Submitted(context.Background(), testListing())
	if err != nil || id != "" {
		t.Errorf("Submitted() = %q, %v; want empty, nil", id, err)
	}
	if err := client.StatusChanged(context.Background(), "1", testListing()); err != nil {
		t.Errorf("StatusChanged() error = %v", err)
	}
}
