package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pauljones0/bizdir/internal/apperr"
)

const (
	identityToolkitURL = "https://identitytoolkit.googleapis.com/v1"
	secureTokenURL     = "https://securetoken.googleapis.com/v1"
)

// Session is what the provider returns after a successful sign-in.
type Session struct {
	UID          string    `json:"uid"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"displayName,omitempty"`
	PhotoURL     string    `json:"photoURL,omitempty"`
	IDToken      string    `json:"idToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
	IsNewUser    bool      `json:"isNewUser"`
	ProviderID   string    `json:"providerId,omitempty"`
}

// FederatedCredential is a credential obtained from an identity provider on the client.
type FederatedCredential struct {
	ProviderID  string `json:"providerId" validate:"required"`
	IDToken     string `json:"idToken,omitempty"`
	AccessToken string `json:"accessToken,omitempty"`
	RequestURI  string `json:"requestUri" validate:"required,url"`
}

// IdentityClient talks to the Identity Toolkit and Secure Token REST APIs.
type IdentityClient struct {
	apiKey      string
	identityURL string
	tokenURL    string
	client      *http.Client
	now         func() time.Time
}

func NewIdentityClient(apiKey string) *IdentityClient {
	return &IdentityClient{
		apiKey:      apiKey,
		identityURL: identityToolkitURL,
		tokenURL:    secureTokenURL,
		client:      &http.Client{},
		now:         time.Now,
	}
}

type providerSession struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	PhotoURL     string `json:"photoUrl"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
	IsNewUser    bool   `json:"isNewUser"`
	ProviderID   string `json:"providerId"`
}

func (c *IdentityClient) toSession(ps providerSession) *Session {
	secs, _ := strconv.Atoi(ps.ExpiresIn)
	return &Session{
		UID:          ps.LocalID,
		Email:        ps.Email,
		DisplayName:  ps.DisplayName,
		PhotoURL:     ps.PhotoURL,
		IDToken:      ps.IDToken,
		RefreshToken: ps.RefreshToken,
		ExpiresAt:    c.now().Add(time.Duration(secs) * time.Second),
		IsNewUser:    ps.IsNewUser,
		ProviderID:   ps.ProviderID,
	}
}

// SignUp creates an email/password account and signs it in.
func (c *IdentityClient) SignUp(ctx context.Context, email, password string) (*Session, error) {
	var ps providerSession
	err := c.postJSON(ctx, "accounts:signUp", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &ps)
	if err != nil {
		return nil, fmt.Errorf("sign up: %w", err)
	}
	s := c.toSession(ps)
	s.IsNewUser = true
	return s, nil
}

// SignIn signs in with email and password.
func (c *IdentityClient) SignIn(ctx context.Context, email, password string) (*Session, error) {
	var ps providerSession
	err := c.postJSON(ctx, "accounts:signInWithPassword", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &ps)
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	return c.toSession(ps), nil
}

// SignInWithIdp exchanges a federated provider credential for a session.
func (c *IdentityClient) SignInWithIdp(ctx context.Context, cred FederatedCredential) (*Session, error) {
	postBody := url.Values{}
	postBody.Set("providerId", cred.ProviderID)
	if cred.IDToken != "" {
		postBody.Set("id_token", cred.IDToken)
	}
	if cred.AccessToken != "" {
		postBody.Set("access_token", cred.AccessToken)
	}

	var ps providerSession
	err := c.postJSON(ctx, "accounts:signInWithIdp", map[string]any{
		"postBody":            postBody.Encode(),
		"requestUri":          cred.RequestURI,
		"returnIdpCredential": true,
		"returnSecureToken":   true,
	}, &ps)
	if err != nil {
		return nil, fmt.Errorf("federated sign in: %w", err)
	}
	return c.toSession(ps), nil
}

// SetDisplayName stores the display name on the provider account.
func (c *IdentityClient) SetDisplayName(ctx context.Context, idToken, displayName string) error {
	err := c.postJSON(ctx, "accounts:update", map[string]any{
		"idToken":           idToken,
		"displayName":       displayName,
		"returnSecureToken": false,
	}, nil)
	if err != nil {
		return fmt.Errorf("update display name: %w", err)
	}
	return nil
}

// SendPasswordReset asks the provider to email a password reset link.
func (c *IdentityClient) SendPasswordReset(ctx context.Context, email string) error {
	err := c.postJSON(ctx, "accounts:sendOobCode", map[string]any{
		"requestType": "PASSWORD_RESET",
		"email":       email,
	}, nil)
	if err != nil {
		return fmt.Errorf("send password reset: %w", err)
	}
	return nil
}

// Refresh exchanges a refresh token for a new ID token.
func (c *IdentityClient) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	endpoint := c.tokenURL + "/token?key=" + url.QueryEscape(c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var out struct {
		ExpiresIn    string `json:"expires_in"`
		RefreshToken string `json:"refresh_token"`
		IDToken      string `json:"id_token"`
		UserID       string `json:"user_id"`
	}
	if err := c.do(req, &out); err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}
	return c.toSession(providerSession{
		LocalID:      out.UserID,
		IDToken:      out.IDToken,
		RefreshToken: out.RefreshToken,
		ExpiresIn:    out.ExpiresIn,
	}), nil
}

func (c *IdentityClient) postJSON(ctx context.Context, method string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	endpoint := c.identityURL + "/" + method + "?key=" + url.QueryEscape(c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

type providerErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *IdentityClient) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var pe providerErrorBody
		if jsonErr := json.Unmarshal(bodyBytes, &pe); jsonErr == nil && pe.Error.Message != "" {
			return &apperr.ProviderError{Code: pe.Error.Message, HTTPStatus: resp.StatusCode}
		}
		return fmt.Errorf("auth provider status: %s, body: %s", resp.Status, string(bodyBytes))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return fmt.Errorf("decode auth provider response: %w", err)
	}
	return nil
}
