package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"

	"courtbook/internal/auth"
	"courtbook/internal/booking"
	"courtbook/internal/config"
	"courtbook/internal/google"
	"courtbook/internal/render"
	"courtbook/internal/timeline"
)

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		stop()
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "courtbook",
		Usage: "Book sports courts and check their availability from the terminal.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-level", Value: "info", EnvVars: []string{"LOG_LEVEL"}, Usage: "debug, info, warn or error"},
			&cli.BoolFlag{Name: "json", Usage: "Print machine-readable JSON instead of text."},
			&cli.BoolFlag{Name: "no-color", Usage: "Disable colored output."},
		},
		Commands: []*cli.Command{
			loginCommand(),
			logoutCommand(),
			whoamiCommand(),
			courtsCommand(),
			bookingsCommand(),
			bookCommand(),
			rescheduleCommand(),
			cancelCommand(),
			availabilityCommand(),
			exportCommand(),
			mirrorCommand(),
		},
	}
}

// env is what every command needs: settings, a logger and output options.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	json   bool
}

func newEnv(c *cli.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	render.ConfigureColor(os.Stdout, c.Bool("no-color"))
	return &env{
		cfg:    cfg,
		logger: setupLogger(c.String("log-level")),
		json:   c.Bool("json"),
	}, nil
}

// tokenSource yields the signed-in session's ID token, refreshing and
// persisting it when it expires.
func (e *env) tokenSource(ctx context.Context) (oauth2.TokenSource, *auth.Session, error) {
	sess, err := auth.Load(e.cfg.SessionFile)
	if err != nil {
		return nil, nil, err
	}
	// Refresh is only possible with OAuth credentials.
	oauthCfg, _ := auth.OAuthConfig(e.cfg.GoogleClientID, e.cfg.GoogleClientSecret)
	path := e.cfg.SessionFile
	ts := auth.TokenSource(ctx, oauthCfg, sess, func(s *auth.Session) error {
		e.logger.Debug("Session refreshed", "email", s.Email, "expiry", s.Expiry)
		return s.Save(path)
	})
	return ts, sess, nil
}

func (e *env) bookingClient(ctx context.Context) (*booking.Client, error) {
	ts, sess, err := e.tokenSource(ctx)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("Using session", "email", sess.Email)
	return booking.NewClient(e.cfg.APIURL, ts,
		booking.WithLogger(e.logger),
		booking.WithRateLimit(e.cfg.RequestsPerSecond),
		booking.WithLocation(e.cfg.Location()),
	)
}

// googleClient builds a direct Google Calendar client from the session's
// OAuth token.
func (e *env) googleClient(ctx context.Context) (*google.CalendarClient, error) {
	sess, err := auth.Load(e.cfg.SessionFile)
	if err != nil {
		return nil, err
	}
	oauthCfg, err := auth.OAuthConfig(e.cfg.GoogleClientID, e.cfg.GoogleClientSecret)
	if err != nil {
		return nil, err
	}
	return google.NewClient(ctx, e.logger, oauthCfg, sess.OAuth)
}

// parseDateTime reads a command-line date-time in the configured zone.
func (e *env) parseDateTime(flag, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("--%s is required", flag)
	}
	t, err := timeline.ParseTime(value, e.cfg.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: expected YYYY-MM-DDTHH:MM or RFC 3339: %w", flag, err)
	}
	return t, nil
}

func (e *env) today() string {
	return time.Now().In(e.cfg.Location()).Format("2006-01-02")
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}
