package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
)

const redirectURL = "urn:ietf:wg:oauth:2.0:oob"

// OAuthConfig returns the installed-app config used to sign in with Google.
// Calendar read access is requested for the direct free/busy lookup.
func OAuthConfig(clientID, clientSecret string) (*oauth2.Config, error) {
	if clientID == "" || clientSecret == "" {
		return nil, errors.New("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET must be set")
	}
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       []string{"openid", "email", "profile", calendar.CalendarReadonlyScope},
		Endpoint:     google.Endpoint,
	}, nil
}

// Exchange trades an authorization code for a session.
func Exchange(ctx context.Context, cfg *oauth2.Config, code string) (*Session, error) {
	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging authorization code: %w", err)
	}
	raw, _ := tok.Extra("id_token").(string)
	if raw == "" {
		return nil, errors.New("token response carries no id_token, is the openid scope granted?")
	}
	return NewSession(raw, tok)
}

// TokenSource yields the session's ID token as a bearer token. When the ID
// token has expired and cfg is set, the OAuth refresh token is used to get a
// new one; onRefresh is then called with the updated session so it can be
// persisted. cfg and onRefresh may be nil.
func TokenSource(ctx context.Context, cfg *oauth2.Config, sess *Session, onRefresh func(*Session) error) oauth2.TokenSource {
	src := &idTokenSource{ctx: ctx, cfg: cfg, sess: sess, onRefresh: onRefresh}
	return oauth2.ReuseTokenSource(nil, src)
}

type idTokenSource struct {
	ctx       context.Context
	cfg       *oauth2.Config
	onRefresh func(*Session) error

	mu   sync.Mutex
	sess *Session
}

func (s *idTokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sess == nil || s.sess.IDToken == "" {
		return nil, ErrNotSignedIn
	}
	if !s.sess.Expired(time.Now()) {
		return bearer(s.sess), nil
	}
	if s.cfg == nil || s.sess.OAuth == nil || s.sess.OAuth.RefreshToken == "" {
		return nil, ErrSessionExpired
	}

	// An empty access token forces the refresh even if the old one is
	// still valid; only a refresh yields a new id_token.
	stale := &oauth2.Token{RefreshToken: s.sess.OAuth.RefreshToken}
	fresh, err := s.cfg.TokenSource(s.ctx, stale).Token()
	if err != nil {
		return nil, fmt.Errorf("refreshing session: %w", err)
	}
	raw, _ := fresh.Extra("id_token").(string)
	if raw == "" {
		return nil, ErrSessionExpired
	}
	next, err := NewSession(raw, fresh)
	if err != nil {
		return nil, err
	}
	*s.sess = *next
	if s.onRefresh != nil {
		if err := s.onRefresh(s.sess); err != nil {
			return nil, fmt.Errorf("saving refreshed session: %w", err)
		}
	}
	return bearer(s.sess), nil
}

func bearer(s *Session) *oauth2.Token {
	tok := &oauth2.Token{AccessToken: s.IDToken, TokenType: "Bearer"}
	if !s.Expiry.IsZero() {
		tok.Expiry = s.Expiry.Add(-expirySkew)
	}
	return tok
}
