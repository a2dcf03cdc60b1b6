package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"
)

// ErrRefreshFailed reports that the token-refresh endpoint rejected the
// refresh token. The manager's state is left untouched; the caller decides
// whether to Clear.
var ErrRefreshFailed = errors.New("token refresh failed")

// Session is the authentication state for the current actor. AccessToken
// present means the actor is considered authenticated; RefreshToken may be
// absent even then, in which case the session cannot be refreshed.
type Session struct {
	AccessToken     string
	RefreshToken    string
	Role            string
	UserID          string
	RelatedEntityID string
}

// RefreshFunc exchanges a refresh token for a new access token against the
// platform's POST /auth/refresh endpoint.
type RefreshFunc func(ctx context.Context, refreshToken string) (string, error)

// Manager is the single source of truth for "am I logged in, as whom, with
// what token". All mutation of the persisted session goes through it.
//
// Concurrent callers observing a 401 at the same time share one in-flight
// refresh: the singleflight group collapses them onto a single upstream
// call, so a burst of expired requests cannot stampede the auth endpoint
// or race each other writing the stored token.
type Manager struct {
	store   Store
	refresh RefreshFunc
	sf      singleflight.Group
}

func NewManager(store Store, refresh RefreshFunc) *Manager {
	return &Manager{store: store, refresh: refresh}
}

// Set replaces the persisted session wholesale. Absent fields are removed
// so stale values from an earlier login cannot leak into the new session.
func (m *Manager) Set(ctx context.Context, s Session) error {
	fields := map[string]string{
		KeyToken:         s.AccessToken,
		KeyRefreshToken:  s.RefreshToken,
		KeyUserRole:      s.Role,
		KeyUserID:        s.UserID,
		KeyRelatedEntity: s.RelatedEntityID,
	}
	for key, value := range fields {
		if value == "" {
			if err := m.store.Delete(ctx, key); err != nil {
				return fmt.Errorf("clear session field %s: %w", key, err)
			}
			continue
		}
		if err := m.store.Set(ctx, key, value); err != nil {
			return fmt.Errorf("persist session field %s: %w", key, err)
		}
	}
	return nil
}

// Current reads the persisted session. Store read errors degrade to an
// anonymous session.
func (m *Manager) Current(ctx context.Context) Session {
	get := func(key string) string {
		v, _, _ := m.store.Get(ctx, key)
		return v
	}
	return Session{
		AccessToken:     get(KeyToken),
		RefreshToken:    get(KeyRefreshToken),
		Role:            get(KeyUserRole),
		UserID:          get(KeyUserID),
		RelatedEntityID: get(KeyRelatedEntity),
	}
}

// AccessToken returns the current bearer token, or "" when anonymous.
func (m *Manager) AccessToken(ctx context.Context) string {
	v, _, _ := m.store.Get(ctx, KeyToken)
	return v
}

// IsAuthenticated reports whether an access token is present. It does not
// inspect expiry or signature; those are the upstream API's concern.
func (m *Manager) IsAuthenticated(ctx context.Context) bool {
	_, ok, _ := m.store.Get(ctx, KeyToken)
	return ok
}

// HasRefreshToken reports whether the session can be refreshed at all.
func (m *Manager) HasRefreshToken(ctx context.Context) bool {
	_, ok, _ := m.store.Get(ctx, KeyRefreshToken)
	return ok
}

// Clear removes every session field. Idempotent.
func (m *Manager) Clear(ctx context.Context) error {
	for _, key := range allKeys {
		if err := m.store.Delete(ctx, key); err != nil {
			return fmt.Errorf("clear session field %s: %w", key, err)
		}
	}
	return nil
}

// Refresh exchanges the stored refresh token for a new access token and
// persists it. On any failure it returns ErrRefreshFailed and leaves the
// stored session exactly as it was.
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	refreshToken, ok, err := m.store.Get(ctx, KeyRefreshToken)
	if err != nil || !ok || refreshToken == "" {
		return "", ErrRefreshFailed
	}
	if m.refresh == nil {
		return "", ErrRefreshFailed
	}

	token, err, _ := m.sf.Do("refresh", func() (interface{}, error) {
		newToken, err := m.refresh(ctx, refreshToken)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRefreshFailed, err)
		}
		if newToken == "" {
			return nil, ErrRefreshFailed
		}
		if err := m.store.Set(ctx, KeyToken, newToken); err != nil {
			return nil, fmt.Errorf("%w: persist token: %v", ErrRefreshFailed, err)
		}
		return newToken, nil
	})
	if err != nil {
		if !errors.Is(err, ErrRefreshFailed) {
			err = fmt.Errorf("%w: %v", ErrRefreshFailed, err)
		}
		return "", err
	}
	return token.(string), nil
}

// TokenClaims are the unverified claims of the stored access token, used
// only for display (whoami, session introspection). Signature validation
// happens upstream.
type TokenClaims struct {
	Subject   string
	Role      string
	ExpiresAt time.Time
}

// Claims parses the stored access token without verifying its signature.
func (m *Manager) Claims(ctx context.Context) (*TokenClaims, error) {
	token, ok, err := m.store.Get(ctx, KeyToken)
	if err != nil || !ok {
		return nil, errors.New("no access token")
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}

	tc := &TokenClaims{}
	if sub, err := claims.GetSubject(); err == nil {
		tc.Subject = sub
	}
	if role, ok := claims["role"].(string); ok {
		tc.Role = role
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		tc.ExpiresAt = exp.Time
	}
	return tc, nil
}
