// Package session manages the admin auth session: login, token persistence,
// expiry, and verification against the API.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"

	"github.com/jackblog/blogkit/identity"
	"github.com/jackblog/blogkit/observability"
	"github.com/jackblog/blogkit/rest"
	"github.com/jackblog/blogkit/schema"
)

// StoreKey is the identity.Store key under which the session persists.
const StoreKey = "auth"

type persisted struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"`
}

// Session holds the current admin token. Safe for concurrent use.
type Session struct {
	gw    *rest.Gateway
	store identity.Store

	mu        sync.RWMutex
	token     string
	expiresAt time.Time
}

// New creates a session and hydrates it from the store, discarding expired or
// corrupt persisted state.
func New(gw *rest.Gateway, store identity.Store) *Session {
	s := &Session{gw: gw, store: store}
	s.hydrate()
	return s
}

func (s *Session) hydrate() {
	raw, ok, err := s.store.Get(StoreKey)
	if err != nil {
		observability.Log().Error("session store read failed",
			observability.Field{Key: "error", Value: err})
		return
	}
	if !ok {
		return
	}
	var saved persisted
	if err := json.Unmarshal([]byte(raw), &saved); err != nil || saved.Token == "" {
		_ = s.store.Delete(StoreKey)
		return
	}
	expiresAt := time.UnixMilli(saved.ExpiresAt)
	if !time.Now().Before(expiresAt) {
		_ = s.store.Delete(StoreKey)
		return
	}
	s.token = saved.Token
	s.expiresAt = expiresAt
}

// Login exchanges the password for a bearer token and persists it.
func (s *Session) Login(ctx context.Context, password string) error {
	result, err := s.gw.Login(ctx, password)
	if err != nil {
		return fmt.Errorf("admin login: %w", err)
	}

	expiresAt := expiryOf(result)
	s.mu.Lock()
	s.token = result.Token
	s.expiresAt = expiresAt
	s.mu.Unlock()

	raw, err := json.Marshal(persisted{Token: result.Token, ExpiresAt: expiresAt.UnixMilli()})
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.store.Set(StoreKey, string(raw)); err != nil {
		observability.Log().Error("session store write failed",
			observability.Field{Key: "error", Value: err})
	}
	return nil
}

// Logout clears the token in memory and in the store.
func (s *Session) Logout() {
	s.mu.Lock()
	s.token = ""
	s.expiresAt = time.Time{}
	s.mu.Unlock()
	_ = s.store.Delete(StoreKey)
}

// Token returns the current token and whether it is still valid.
func (s *Session) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" || !time.Now().Before(s.expiresAt) {
		return "", false
	}
	return s.token, true
}

// IsAuthenticated reports whether a non-expired token is held.
func (s *Session) IsAuthenticated() bool {
	_, ok := s.Token()
	return ok
}

// Verify asks the server whether the token is still accepted. Any failure,
// network included, logs the session out; the caller can re-login.
func (s *Session) Verify(ctx context.Context) (bool, error) {
	token, ok := s.Token()
	if !ok {
		return false, nil
	}
	result, err := s.gw.VerifyToken(ctx, token)
	if err != nil {
		s.Logout()
		return false, fmt.Errorf("verify token: %w", err)
	}
	if !result.Valid {
		s.Logout()
	}
	return result.Valid, nil
}

// expiryOf resolves when the token expires. ExpiresIn (milliseconds) wins;
// when the server omits it, the unverified exp claim of the JWT is used as a
// fallback. Unverified parsing is fine here: expiry only schedules a local
// logout, the server re-checks the token on every authenticated call.
func expiryOf(result schema.LoginResult) time.Time {
	if result.ExpiresIn > 0 {
		return time.Now().Add(time.Duration(result.ExpiresIn) * time.Millisecond)
	}
	if exp, ok := jwtExpiry(result.Token); ok {
		return exp
	}
	return time.Now().Add(time.Hour)
}

func jwtExpiry(token string) (time.Time, bool) {
	if strings.Count(token, ".") != 2 {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
