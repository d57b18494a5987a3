// Package caldav exports bookings as iCalendar data and mirrors them to a
// CalDAV calendar.
package caldav

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"

	"courtbook/internal/models"
)

// DefaultEndpoint is iCloud's CalDAV endpoint.
const DefaultEndpoint = "https://caldav.icloud.com/"

// customTransport handles adding Basic Auth and custom headers to requests.
type customTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
}

// RoundTrip adds required headers and authentication to each request.
func (t *customTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.SetBasicAuth(t.Username, t.Password)
	req.Header.Set("User-Agent", "courtbook/1.0")
	return t.Transport.RoundTrip(req)
}

// Options selects the CalDAV server and calendar.
type Options struct {
	Endpoint     string // defaults to DefaultEndpoint
	Username     string
	Password     string
	CalendarName string
	Transport    http.RoundTripper
}

// Client writes bookings into one calendar of a CalDAV server.
type Client struct {
	caldavClient *caldav.Client
	webdavClient *webdav.Client
	logger       *slog.Logger
	calendarPath string
}

// NewClient connects to the server and looks up the calendar by display
// name.
func NewClient(ctx context.Context, logger *slog.Logger, opts Options) (*Client, error) {
	if opts.Username == "" || opts.Password == "" || opts.CalendarName == "" {
		return nil, fmt.Errorf("CALDAV_USERNAME, CALDAV_PASSWORD and CALDAV_CALENDAR must be set")
	}
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	base := opts.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	httpClient := &http.Client{Transport: &customTransport{
		Username:  opts.Username,
		Password:  opts.Password,
		Transport: base,
	}}

	caldavClient, err := caldav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}
	webdavClient, err := webdav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create webdav client: %w", err)
	}

	c := &Client{
		caldavClient: caldavClient,
		webdavClient: webdavClient,
		logger:       logger,
	}

	logger.Info("Finding CalDAV calendar", "calendarName", opts.CalendarName, "endpoint", endpoint)
	calendarPath, err := c.findCalendar(ctx, opts.CalendarName)
	if err != nil {
		return nil, fmt.Errorf("could not find calendar '%s': %w", opts.CalendarName, err)
	}
	c.calendarPath = calendarPath
	logger.Info("Found CalDAV calendar", "path", calendarPath)
	return c, nil
}

// PutEvent creates or replaces the calendar object for a booking.
func (c *Client) PutEvent(ctx context.Context, event *models.Event, uid string) error {
	c.logger.Debug("Writing booking to CalDAV", "title", event.Title, "uid", uid)

	cal := NewCalendar()
	cal.Children = append(cal.Children, EventComponent(event, uid))
	if _, err := c.caldavClient.PutCalendarObject(ctx, c.objectPath(uid), cal); err != nil {
		return fmt.Errorf("failed to put event on CalDAV server: %w", err)
	}
	return nil
}

// DeleteEvent removes the calendar object with uid.
func (c *Client) DeleteEvent(ctx context.Context, uid string) error {
	c.logger.Debug("Removing booking from CalDAV", "uid", uid)
	if err := c.webdavClient.RemoveAll(ctx, c.objectPath(uid)); err != nil {
		return fmt.Errorf("failed to delete event on CalDAV server: %w", err)
	}
	return nil
}

func (c *Client) objectPath(uid string) string {
	return path.Join(c.calendarPath, uid+".ics")
}

// findCalendar discovers the user's calendars and returns the path of the one
// with the matching name.
func (c *Client) findCalendar(ctx context.Context, name string) (string, error) {
	principalPath, err := c.caldavClient.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to find principal path: %w", err)
	}

	homeSetPath, err := c.caldavClient.FindCalendarHomeSet(ctx, principalPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendar home set: %w", err)
	}

	calendars, err := c.caldavClient.FindCalendars(ctx, homeSetPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendars: %w", err)
	}

	for _, cal := range calendars {
		if strings.EqualFold(cal.Name, name) {
			return cal.Path, nil
		}
	}
	return "", fmt.Errorf("no calendar found with name '%s'", name)
}
