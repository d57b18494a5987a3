package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func signIDToken(t *testing.T, email, name string, exp time.Time) string {
	t.Helper()
	claims := Claims{
		Email: email,
		Name:  name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "https://accounts.google.com",
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return raw
}

func TestNewSession(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	raw := signIDToken(t, "ana@example.com", "Ana", exp)

	s, err := NewSession(raw, nil)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", s.Email)
	assert.Equal(t, "Ana", s.DisplayName())
	assert.True(t, exp.Equal(s.Expiry))
	assert.False(t, s.Expired(time.Now()))
	assert.True(t, s.Expired(exp.Add(-10*time.Second)))

	_, err = NewSession("not-a-jwt", nil)
	assert.Error(t, err)
}

func TestSessionFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrNotSignedIn)

	raw := signIDToken(t, "ana@example.com", "", time.Now().Add(time.Hour))
	s, err := NewSession(raw, &oauth2.Token{AccessToken: "at", RefreshToken: "rt"})
	require.NoError(t, err)
	require.NoError(t, s.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, s.IDToken, loaded.IDToken)
	assert.Equal(t, "ana@example.com", loaded.DisplayName())
	require.NotNil(t, loaded.OAuth)
	assert.Equal(t, "rt", loaded.OAuth.RefreshToken)

	require.NoError(t, Remove(path))
	require.NoError(t, Remove(path))
	_, err = Load(path)
	assert.ErrorIs(t, err, ErrNotSignedIn)
}

func TestTokenSourceValidSession(t *testing.T) {
	raw := signIDToken(t, "ana@example.com", "Ana", time.Now().Add(time.Hour))
	s, err := NewSession(raw, nil)
	require.NoError(t, err)

	tok, err := TokenSource(context.Background(), nil, s, nil).Token()
	require.NoError(t, err)
	assert.Equal(t, raw, tok.AccessToken)
	assert.Equal(t, "Bearer", tok.Type())
}

func TestTokenSourceExpiredWithoutRefresh(t *testing.T) {
	raw := signIDToken(t, "ana@example.com", "Ana", time.Now().Add(-time.Hour))
	s, err := NewSession(raw, nil)
	require.NoError(t, err)

	_, err = TokenSource(context.Background(), nil, s, nil).Token()
	assert.ErrorIs(t, err, ErrSessionExpired)

	_, err = TokenSource(context.Background(), nil, &Session{}, nil).Token()
	assert.ErrorIs(t, err, ErrNotSignedIn)
}

func TestTokenSourceRefreshes(t *testing.T) {
	fresh := signIDToken(t, "ana@example.com", "Ana Maria", time.Now().Add(time.Hour))
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		assert.Equal(t, "rt", r.Form.Get("refresh_token"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "new-access",
			"token_type":   "Bearer",
			"expires_in":   3600,
			"id_token":     fresh,
		})
	}))
	defer srv.Close()

	cfg := &oauth2.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		Endpoint:     oauth2.Endpoint{TokenURL: srv.URL, AuthStyle: oauth2.AuthStyleInParams},
	}
	old := signIDToken(t, "ana@example.com", "Ana", time.Now().Add(-time.Minute))
	s, err := NewSession(old, &oauth2.Token{AccessToken: "still-valid", RefreshToken: "rt", Expiry: time.Now().Add(time.Hour)})
	require.NoError(t, err)

	var saved *Session
	ts := TokenSource(context.Background(), cfg, s, func(s *Session) error {
		saved = s
		return nil
	})

	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, fresh, tok.AccessToken)
	require.NotNil(t, saved)
	assert.Equal(t, "Ana Maria", saved.Name)
	assert.Equal(t, "rt", saved.OAuth.RefreshToken)

	// Cached until expiry.
	_, err = ts.Token()
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestExchange(t *testing.T) {
	idTok := signIDToken(t, "bia@example.com", "Bia", time.Now().Add(time.Hour))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "the-code", r.Form.Get("code"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "at",
			"refresh_token": "rt",
			"token_type":    "Bearer",
			"expires_in":    3600,
			"id_token":      idTok,
		})
	}))
	defer srv.Close()

	cfg := &oauth2.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		Endpoint:     oauth2.Endpoint{TokenURL: srv.URL, AuthStyle: oauth2.AuthStyleInParams},
	}
	s, err := Exchange(context.Background(), cfg, "the-code")
	require.NoError(t, err)
	assert.Equal(t, "bia@example.com", s.Email)
	assert.Equal(t, "rt", s.OAuth.RefreshToken)
}

func TestOAuthConfigRequiresCredentials(t *testing.T) {
	_, err := OAuthConfig("", "")
	assert.Error(t, err)

	cfg, err := OAuthConfig("id", "secret")
	require.NoError(t, err)
	assert.Contains(t, cfg.Scopes, "openid")
}
