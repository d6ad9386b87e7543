package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

// googleJWKSURL publishes the keys that sign Firebase ID tokens.
const googleJWKSURL = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"

var (
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenExpired = errors.New("token expired")
)

// Claims are the verified identity facts carried by an ID token.
type Claims struct {
	UID           string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
	SignInMethod  string
	ExpiresAt     time.Time
}

// KeySource supplies the key set used to verify token signatures.
type KeySource interface {
	Keys(ctx context.Context) (jwk.Set, error)
}

// StaticKeys is a KeySource over a fixed set.
type StaticKeys struct {
	Set jwk.Set
}

func (s StaticKeys) Keys(context.Context) (jwk.Set, error) {
	return s.Set, nil
}

// RemoteKeys fetches a JWKS document and keeps it for refreshInterval.
type RemoteKeys struct {
	url             string
	refreshInterval time.Duration

	mu        sync.Mutex
	set       jwk.Set
	fetchedAt time.Time
}

func NewRemoteKeys(url string, refreshInterval time.Duration) *RemoteKeys {
	if url == "" {
		url = googleJWKSURL
	}
	return &RemoteKeys{url: url, refreshInterval: refreshInterval}
}

func (r *RemoteKeys) Keys(ctx context.Context) (jwk.Set, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.set != nil && time.Since(r.fetchedAt) < r.refreshInterval {
		return r.set, nil
	}
	set, err := jwk.Fetch(ctx, r.url)
	if err != nil {
		if r.set != nil {
			// Keep serving the previous keys; Google rotates with overlap.
			return r.set, nil
		}
		return nil, fmt.Errorf("fetch signing keys: %w", err)
	}
	r.set = set
	r.fetchedAt = time.Now()
	return set, nil
}

// Verifier checks Firebase ID tokens for one project.
type Verifier struct {
	projectID string
	keys      KeySource
}

func NewVerifier(projectID string, keys KeySource) *Verifier {
	return &Verifier{projectID: projectID, keys: keys}
}

// Verify validates signature, issuer, audience and lifetime and returns the token's claims.
func (v *Verifier) Verify(ctx context.Context, tokenString string) (*Claims, error) {
	set, err := v.keys.Keys(ctx)
	if err != nil {
		return nil, err
	}

	token, err := jwt.Parse(
		[]byte(tokenString),
		jwt.WithKeySet(set),
		jwt.WithValidate(true),
		jwt.WithIssuer("https://securetoken.google.com/"+v.projectID),
		jwt.WithAudience(v.projectID),
		jwt.WithAcceptableSkew(30*time.Second),
	)
	if err != nil {
		if isTokenExpiredError(err) {
			return nil, fmt.Errorf("verify token: %w", ErrTokenExpired)
		}
		return nil, fmt.Errorf("verify token: %w: %v", ErrTokenInvalid, err)
	}

	subject, ok := token.Subject()
	if !ok || subject == "" {
		return nil, fmt.Errorf("verify token: missing subject: %w", ErrTokenInvalid)
	}

	claims := &Claims{UID: subject}
	if exp, ok := token.Expiration(); ok {
		claims.ExpiresAt = exp
	}
	_ = token.Get("email", &claims.Email)
	_ = token.Get("email_verified", &claims.EmailVerified)
	_ = token.Get("name", &claims.Name)
	_ = token.Get("picture", &claims.Picture)

	var firebase map[string]any
	if err := token.Get("firebase", &firebase); err == nil {
		if p, ok := firebase["sign_in_provider"].(string); ok {
			claims.SignInMethod = p
		}
	}
	return claims, nil
}

func isTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "exp") &&
		strings.Contains(errStr, "not satisfied")
}
