package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

const sessionIssuer = "careportal"

// SessionClaims are carried in the signed session cookie. Subject is the
// server-side session id; nothing else about the user leaves the server.
type SessionClaims struct {
	jwt.RegisteredClaims
}

// SignSession issues an HS256 token naming sessionID, valid for ttl.
func SignSession(sessionID, secret string, ttl time.Duration, now time.Time) (string, error) {
	if secret == "" {
		return "", errors.New("session secret is empty")
	}
	c := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			Subject:   sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
}

// VerifySession checks signature, algorithm and expiry and returns the
// session id.
func VerifySession(raw, secret string) (string, error) {
	tok, err := jwt.ParseWithClaims(raw, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(sessionIssuer))
	if err != nil || !tok.Valid {
		return "", ErrInvalidToken
	}
	c, ok := tok.Claims.(*SessionClaims)
	if !ok || c.Subject == "" {
		return "", ErrInvalidToken
	}
	return c.Subject, nil
}

// BackendTokenExpiry reads the exp claim of a backend-issued session token
// without verifying it. The portal never holds the backend's key; the
// result is informational only. ok is false for opaque tokens.
func BackendTokenExpiry(raw string) (exp time.Time, ok bool) {
	var c jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &c); err != nil {
		return time.Time{}, false
	}
	if c.ExpiresAt == nil {
		return time.Time{}, false
	}
	return c.ExpiresAt.Time, true
}
