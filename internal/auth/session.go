// Package auth keeps the signed-in user's Google identity and hands out the
// bearer token the booking service expects.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// expirySkew treats a token as expired slightly before it really is.
const expirySkew = 30 * time.Second

var (
	ErrNotSignedIn    = errors.New("not signed in, run the 'login' command first")
	ErrSessionExpired = errors.New("session expired, run the 'login' command again")
)

// Session is the signed-in user. It is passed explicitly to whatever talks
// to the booking service.
type Session struct {
	IDToken string        `json:"id_token"`
	Email   string        `json:"email"`
	Name    string        `json:"name,omitempty"`
	Expiry  time.Time     `json:"expiry"`
	OAuth   *oauth2.Token `json:"oauth,omitempty"`
}

// Claims are the ID token fields courtbook cares about.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// ParseIDToken decodes a Google ID token without checking its signature.
// The booking service verifies it; the client only reads who it belongs to.
func ParseIDToken(raw string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("decoding id token: %w", err)
	}
	return claims, nil
}

// NewSession builds a session from a raw ID token and, optionally, the
// OAuth token it came with.
func NewSession(idToken string, tok *oauth2.Token) (*Session, error) {
	claims, err := ParseIDToken(idToken)
	if err != nil {
		return nil, err
	}
	s := &Session{
		IDToken: idToken,
		Email:   claims.Email,
		Name:    claims.Name,
		OAuth:   tok,
	}
	if claims.ExpiresAt != nil {
		s.Expiry = claims.ExpiresAt.Time
	}
	return s, nil
}

// Expired reports whether the ID token can no longer be used at now.
func (s *Session) Expired(now time.Time) bool {
	if s.Expiry.IsZero() {
		return false
	}
	return !now.Before(s.Expiry.Add(-expirySkew))
}

// DisplayName is the name shown in "signed in as".
func (s *Session) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Email
}

// Load reads a session file.
func Load(path string) (*Session, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotSignedIn
		}
		return nil, fmt.Errorf("opening session file: %w", err)
	}
	defer f.Close()

	s := &Session{}
	if err := json.NewDecoder(f).Decode(s); err != nil {
		return nil, fmt.Errorf("decoding session file: %w", err)
	}
	if s.IDToken == "" {
		return nil, ErrNotSignedIn
	}
	return s, nil
}

// Save writes the session with owner-only permissions.
func (s *Session) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating session directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("unable to create session file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// Remove deletes the session file. A missing file is not an error.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing session file: %w", err)
	}
	return nil
}
