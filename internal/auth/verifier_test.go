package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

const testProject = "bizdir-test"

func newTestKeys(t *testing.T) (jwk.Key, jwk.Set) {
	t.Helper()
	raw, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	priv, err := jwk.Import(raw)
	if err != nil {
		t.Fatalf("import key: %v", err)
	}
	if err := priv.Set(jwk.KeyIDKey, "test-kid"); err != nil {
		t.Fatal(err)
	}
	if err := priv.Set(jwk.AlgorithmKey, jwa.RS256()); err != nil {
		t.Fatal(err)
	}
	pub, err := priv.PublicKey()
	if err != nil {
		t.Fatalf("public key: %v", err)
	}
	if err := pub.Set(jwk.KeyIDKey, "test-kid"); err != nil {
		t.Fatal(err)
	}
	if err := pub.Set(jwk.AlgorithmKey, jwa.RS256()); err != nil {
		t.Fatal(err)
	}
	set := jwk.NewSet()
	if err := set.AddKey(pub); err != nil {
		t.Fatal(err)
	}
	return priv, set
}

func signToken(t *testing.T, priv jwk.Key, audience string, exp time.Time) string {
	t.Helper()
	now := time.Now()
	tok, err := jwt.NewBuilder().
		Issuer("https://securetoken.google.com/"+audience).
		Audience([]string{audience}).
		Subject("uid-1").
		IssuedAt(now.Add(-time.Minute)).
		Expiration(exp).
		Claim("email", "owner@example.com").
		Claim("email_verified", true).
		Claim("firebase", map[string]any{"sign_in_provider": "password"}).
		Build()
	if err != nil {
		t.Fatalf("build token: %v", err)
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.RS256(), priv))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return string(signed)
}

func TestVerifier_Valid(t *testing.T) {
	priv, set := newTestKeys(t)
	v := NewVerifier(testProject, StaticKeys{Set: set})

	claims, err := v.Verify(context.Background(), signToken(t, priv, testProject, time.Now().Add(time.Hour)))
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if claims.UID != "uid-1" {
		t.Errorf("UID = %q", claims.UID)
	}
	if claims.Email != "owner@example.com" || !claims.EmailVerified {
		t.Errorf("unexpected email claims %+v", claims)
	}
	if claims.SignInMethod != "password" {
		t.Errorf("SignInMethod = %q", claims.SignInMethod)
	}
}

func TestVerifier_WrongAudience(t *testing.T) {
	priv, set := newTestKeys(t)
	v := NewVerifier(testProject, StaticKeys{Set: set})

	_, err := v.Verify(context.Background(), signToken(t, priv, "other-project", time.Now().Add(time.Hour)))
	if !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestVerifier_Expired(t *testing.T) {
	priv, set := newTestKeys(t)
	v := NewVerifier(testProject, StaticKeys{Set: set})

	_, err := v.Verify(context.Background(), signToken(t, priv, testProject, time.Now().Add(-time.Hour)))
	if err == nil {
		t.Fatal("expected expired token to be rejected")
	}
	if !errors.Is(err, ErrTokenExpired) && !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("unexpected error type %v", err)
	}
}

func TestVerifier_ForeignKey(t *testing.T) {
	_, set := newTestKeys(t)
	otherPriv, _ := newTestKeys(t)
	v := NewVerifier(testProject, StaticKeys{Set: set})

	_, err := v.Verify(context.Background(), signToken(t, otherPriv, testProject, time.Now().Add(time.Hour)))
	if err == nil {
		t.Fatal("expected token signed by another key to be rejected")
	}
}

func TestVerifier_Garbage(t *testing.T) {
	_, set := newTestKeys(t)
	v := NewVerifier(testProject, StaticKeys{Set: set})
	if _, err := v.Verify(context.Background(), "not.a.token"); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid, got %v", err)
	}
}
