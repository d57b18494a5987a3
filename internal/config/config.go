// Package config reads courtbook settings from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultAPIURL        = "http://localhost:8001"
	DefaultTimeZone      = "America/Sao_Paulo"
	DefaultBlockedMarker = "bloqueado"
	DefaultMirrorState   = "mirror-state.json"
)

// Config holds every setting the CLI needs.
type Config struct {
	APIURL             string
	GoogleClientID     string
	GoogleClientSecret string
	TimeZone           string
	SessionFile        string
	Courts             map[string]string // court name -> Google calendar ID
	BlockedMarker      string
	RequestsPerSecond  float64

	CalDAVEndpoint string
	CalDAVUsername string
	CalDAVPassword string
	CalDAVCalendar string
	MirrorState    string
}

// Load reads the configuration from environment variables, applying
// defaults. Call godotenv.Load before it to pick up a .env file.
func Load() (*Config, error) {
	cfg := &Config{
		APIURL:             getenv("COURTBOOK_API_URL", DefaultAPIURL),
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		TimeZone:           getenv("COURTBOOK_TIMEZONE", DefaultTimeZone),
		SessionFile:        os.Getenv("COURTBOOK_SESSION_FILE"),
		BlockedMarker:      getenv("COURTBOOK_BLOCKED_MARKER", DefaultBlockedMarker),
		CalDAVEndpoint:     os.Getenv("CALDAV_ENDPOINT"),
		CalDAVUsername:     os.Getenv("CALDAV_USERNAME"),
		CalDAVPassword:     os.Getenv("CALDAV_PASSWORD"),
		CalDAVCalendar:     os.Getenv("CALDAV_CALENDAR"),
		MirrorState:        getenv("COURTBOOK_MIRROR_STATE", DefaultMirrorState),
	}

	if cfg.SessionFile == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("locating config directory, set COURTBOOK_SESSION_FILE: %w", err)
		}
		cfg.SessionFile = filepath.Join(dir, "courtbook", "session.json")
	}

	courts, err := ParseCourts(os.Getenv("COURTBOOK_COURTS"))
	if err != nil {
		return nil, err
	}
	cfg.Courts = courts

	if v := os.Getenv("COURTBOOK_REQUESTS_PER_SECOND"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid COURTBOOK_REQUESTS_PER_SECOND %q: %w", v, err)
		}
		cfg.RequestsPerSecond = rps
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values Load cannot default.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid COURTBOOK_API_URL %q", c.APIURL)
	}
	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		return fmt.Errorf("invalid COURTBOOK_TIMEZONE '%s': %w", c.TimeZone, err)
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("COURTBOOK_REQUESTS_PER_SECOND must not be negative")
	}
	return nil
}

// Location returns the configured time zone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.Local
	}
	return loc
}

// CalendarID resolves a court name to its Google calendar ID. Names are
// matched case-insensitively; an unknown name is returned unchanged so a
// raw calendar ID can be passed.
func (c *Config) CalendarID(court string) string {
	if id, ok := c.Courts[court]; ok {
		return id
	}
	for name, id := range c.Courts {
		if strings.EqualFold(name, court) {
			return id
		}
	}
	return court
}

// CourtNames returns the configured court names, sorted.
func (c *Config) CourtNames() []string {
	names := make([]string, 0, len(c.Courts))
	for name := range c.Courts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseCourts reads a "Name=calendar-id,Other=id2" mapping.
func ParseCourts(s string) (map[string]string, error) {
	courts := make(map[string]string)
	if strings.TrimSpace(s) == "" {
		return courts, nil
	}
	for _, pair := range strings.Split(s, ",") {
		if strings.TrimSpace(pair) == "" {
			continue
		}
		name, id, ok := strings.Cut(pair, "=")
		name, id = strings.TrimSpace(name), strings.TrimSpace(id)
		if !ok || name == "" || id == "" {
			return nil, fmt.Errorf("invalid COURTBOOK_COURTS entry %q, expected Name=calendar-id", pair)
		}
		if _, dup := courts[name]; dup {
			return nil, fmt.Errorf("court %q listed twice in COURTBOOK_COURTS", name)
		}
		courts[name] = id
	}
	return courts, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
