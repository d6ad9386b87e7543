package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pauljones0/bizdir/internal/apperr"
)

func newTestIdentityClient(serverURL string) *IdentityClient {
	c := NewIdentityClient("test-key")
	c.identityURL = serverURL
	c.tokenURL = serverURL
	c.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return c
}

func TestIdentityClient_SignUp(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/accounts:signUp" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("expected api key in query")
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["email"] != "owner@example.com" || body["returnSecureToken"] != true {
			t.Errorf("unexpected body %v", body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"localId":"uid-1","email":"owner@example.com","idToken":"id","refreshToken":"ref","expiresIn":"3600"}`))
	}))
	defer server.Close()

	c := newTestIdentityClient(server.URL)
	s, err := c.SignUp(context.Background(), "owner@example.com", "Abcdefg1")
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	if s.UID != "uid-1" || s.IDToken != "id" || s.RefreshToken != "ref" {
		t.Errorf("unexpected session %+v", s)
	}
	if !s.IsNewUser {
		t.Error("sign up should report a new user")
	}
	want := time.Date(2026, 1, 2, 4, 4, 5, 0, time.UTC)
	if !s.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", s.ExpiresAt, want)
	}
}

func TestIdentityClient_ProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":400,"message":"EMAIL_EXISTS","errors":[{"message":"EMAIL_EXISTS","reason":"invalid"}]}}`))
	}))
	defer server.Close()

	c := newTestIdentityClient(server.URL)
	_, err := c.SignUp(context.Background(), "owner@example.com", "Abcdefg1")
	var pe *apperr.ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if pe.Code != "EMAIL_EXISTS" || pe.HTTPStatus != http.StatusBadRequest {
		t.Errorf("unexpected provider error %+v", pe)
	}
	if apperr.UserMessage(err) != apperr.MsgEmailInUse {
		t.Errorf("unexpected user message %q", apperr.UserMessage(err))
	}
}

func TestIdentityClient_SignInWithIdp(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["postBody"] != "id_token=google-token&providerId=google.com" {
			t.Errorf("unexpected postBody %v", body["postBody"])
		}
		w.Write([]byte(`{"localId":"uid-2","email":"g@example.com","displayName":"G","idToken":"id","refreshToken":"ref","expiresIn":"3600","isNewUser":true,"providerId":"google.com"}`))
	}))
	defer server.Close()

	c := newTestIdentityClient(server.URL)
	s, err := c.SignInWithIdp(context.Background(), FederatedCredential{
		ProviderID: "google.com",
		IDToken:    "google-token",
		RequestURI: "http://localhost",
	})
	if err != nil {
		t.Fatalf("SignInWithIdp() error = %v", err)
	}
	if !s.IsNewUser || s.DisplayName != "G" || s.ProviderID != "google.com" {
		t.Errorf("unexpected session %+v", s)
	}
}

func TestIdentityClient_Refresh(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/token" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		if r.PostForm.Get("grant_type") != "refresh_token" || r.PostForm.Get("refresh_token") != "old" {
			t.Errorf("unexpected form %v", r.PostForm)
		}
		w.Write([]byte(`{"expires_in":"3600","token_type":"Bearer","refresh_token":"new","id_token":"id2","user_id":"uid-1"}`))
	}))
	defer server.Close()

	c := newTestIdentityClient(server.URL)
	s, err := c.Refresh(context.Background(), "old")
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if s.UID != "uid-1" || s.IDToken != "id2" || s.RefreshToken != "new" {
		t.Errorf("unexpected session %+v", s)
	}
}

func TestIdentityClient_SendPasswordReset(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["requestType"] != "PASSWORD_RESET" {
			t.Errorf("unexpected requestType %v", body["requestType"])
		}
		w.Write([]byte(`{"email":"owner@example.com"}`))
	}))
	defer server.Close()

	c := newTestIdentityClient(server.URL)
	if err := c.SendPasswordReset(context.Background(), "owner@example.com"); err != nil {
		t.Fatalf("SendPasswordReset() error = %v", err)
	}
	if !called {
		t.Error("expected provider to be called")
	}
}

func TestIdentityClient_NoClientTimeout(t *testing.T) {
	if c := NewIdentityClient("test-key"); c.client.Timeout != 0 {
		t.Errorf("client timeout = %v, want none", c.client.Timeout)
	}
}
