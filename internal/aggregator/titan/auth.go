// Package titan implements the streaming (WebSocket push) aggregator
// client. auth.go carries its JWT-refresh cycle, grounded on the
// teacher's internal/adapters/polymarket/auth.go EnsureCreds shape:
// derive once, cache, and hand authenticated headers to every
// subsequent call without re-deriving.
package titan

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenIssuer mints a bearer token from a shared secret, standing in for
// whatever out-of-band credential exchange a Titan-style gateway requires.
type TokenIssuer interface {
	Issue(ctx context.Context) (token string, expiresAt time.Time, err error)
}

// HMACIssuer signs a short-lived JWT with a shared secret — the
// lowest-ceremony stand-in for the original's titan/jwt.rs credential
// derivation.
type HMACIssuer struct {
	Secret   []byte
	Subject  string
	TTL      time.Duration
}

func (h HMACIssuer) Issue(ctx context.Context) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(h.TTL)
	claims := jwt.RegisteredClaims{
		Subject:   h.Subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(h.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("titan: sign jwt: %w", err)
	}
	return signed, expiresAt, nil
}

// Authenticator caches the bearer token and re-derives it only once it's
// within refreshSkew of expiry, mirroring EnsureCreds's "derive once,
// cache, reuse" discipline.
type Authenticator struct {
	issuer      TokenIssuer
	refreshSkew time.Duration

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func NewAuthenticator(issuer TokenIssuer, refreshSkew time.Duration) *Authenticator {
	if refreshSkew <= 0 {
		refreshSkew = 30 * time.Second
	}
	return &Authenticator{issuer: issuer, refreshSkew: refreshSkew}
}

// Token returns a valid bearer token, re-deriving it if the cached one is
// absent or near expiry.
func (a *Authenticator) Token(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.token != "" && time.Until(a.expiresAt) > a.refreshSkew {
		return a.token, nil
	}

	token, expiresAt, err := a.issuer.Issue(ctx)
	if err != nil {
		return "", err
	}
	a.token = token
	a.expiresAt = expiresAt
	return a.token, nil
}

// RunRefreshLoop periodically forces a re-derivation ahead of expiry,
// so a long-lived WebSocket connection never authenticates with a stale
// token on reconnect. Returns when ctx is done.
func (a *Authenticator) RunRefreshLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.mu.Lock()
			a.token = ""
			a.mu.Unlock()
			_, _ = a.Token(ctx)
		}
	}
}
