package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestSessionRoundTrip(t *testing.T) {
	token, err := SignSession("sess-1", "test-secret", time.Hour, time.Now())
	if err != nil {
		t.Fatalf("SignSession failed: %v", err)
	}
	id, err := VerifySession(token, "test-secret")
	if err != nil {
		t.Fatalf("VerifySession failed: %v", err)
	}
	if id != "sess-1" {
		t.Fatalf("expected sess-1, got %q", id)
	}
	if _, err := VerifySession(token, "wrong-secret"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken with wrong secret, got %v", err)
	}
}

func TestSessionExpired(t *testing.T) {
	token, err := SignSession("sess-1", "s", time.Minute, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("SignSession failed: %v", err)
	}
	if _, err := VerifySession(token, "s"); err == nil {
		t.Fatal("expected expired token to fail")
	}
}

func TestSessionRejectsNoneAlg(t *testing.T) {
	c := SessionClaims{RegisteredClaims: jwt.RegisteredClaims{Issuer: sessionIssuer, Subject: "x"}}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, c).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := VerifySession(raw, "s"); err == nil {
		t.Fatal("expected none alg to be rejected")
	}
}

func TestSignSessionRequiresSecret(t *testing.T) {
	if _, err := SignSession("x", "", time.Minute, time.Now()); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestBackendTokenExpiry(t *testing.T) {
	exp := time.Now().Add(2 * time.Hour).Truncate(time.Second)
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("backend-key"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	got, ok := BackendTokenExpiry(raw)
	if !ok || !got.Equal(exp) {
		t.Fatalf("expected %v, got %v ok=%v", exp, got, ok)
	}
	if _, ok := BackendTokenExpiry("opaque-token"); ok {
		t.Fatal("expected opaque token to report no expiry")
	}
}
