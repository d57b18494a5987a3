// Package booking talks to the court booking service over HTTP.
package booking

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"courtbook/internal/auth"
	"courtbook/internal/models"
	"courtbook/internal/timeline"
)

const (
	requestIDHeader = "X-Request-Id"
	defaultTimeout  = 30 * time.Second
)

// ErrNotAuthenticated is returned when no bearer token is available.
var ErrNotAuthenticated = errors.New("not authenticated, please sign in again")

// APIError is a non-2xx answer from the booking service.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("booking service: %s (HTTP %d)", e.Detail, e.Status)
}

// Client is a client for the booking service API.
type Client struct {
	baseURL  *url.URL
	http     *http.Client
	limiter  *rate.Limiter
	location *time.Location
	logger   *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithRateLimit paces requests to perSecond. Zero or less disables pacing.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// WithLocation sets the zone offset-less timestamps are read in.
func WithLocation(loc *time.Location) Option {
	return func(c *Client) { c.location = loc }
}

// WithHTTPClient sets the base client the bearer transport wraps.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// NewClient creates a client for the service at baseURL. Every request is
// authorized with the bearer token from tokens.
func NewClient(baseURL string, tokens oauth2.TokenSource, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid booking service URL %q", baseURL)
	}
	if tokens == nil {
		return nil, ErrNotAuthenticated
	}

	c := &Client{
		baseURL:  u,
		http:     &http.Client{Timeout: defaultTimeout},
		limiter:  rate.NewLimiter(rate.Inf, 1),
		location: time.Local,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}

	base := c.http.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	c.http = &http.Client{
		Timeout:       c.http.Timeout,
		CheckRedirect: c.http.CheckRedirect,
		Jar:           c.http.Jar,
		Transport:     &oauth2.Transport{Source: tokens, Base: base},
	}
	return c, nil
}

// Location is the zone the client reads offset-less timestamps in.
func (c *Client) Location() *time.Location {
	return c.location
}

// ListCalendars returns the courts the signed-in user may see.
func (c *Client) ListCalendars(ctx context.Context) ([]models.Calendar, error) {
	var resp calendarListResponse
	if err := c.do(ctx, http.MethodGet, "/actions/list_calendars", nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("listing courts: %w", err)
	}
	out := make([]models.Calendar, 0, len(resp.Items))
	for _, item := range resp.Items {
		out = append(out, models.Calendar{
			ID:          item.ID,
			Summary:     item.Summary,
			Description: item.Description,
			TimeZone:    item.TimeZone,
			AccessRole:  item.AccessRole,
		})
	}
	return out, nil
}

// EventsPage is one page of a bookings listing.
type EventsPage struct {
	UserEmail     string         `json:"user_email"`
	IsAdmin       bool           `json:"is_admin"`
	Events        []models.Event `json:"events"`
	NextPageToken string         `json:"next_page_token,omitempty"`
}

// FindEvents returns one page of bookings for a court.
func (c *Client) FindEvents(ctx context.Context, calendarID string, q EventQuery) (*EventsPage, error) {
	if calendarID == "" {
		return nil, ErrMissingCalendar
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}

	params := url.Values{"calendar_id": {calendarID}}
	if q.PageToken != "" {
		params.Set("page_token", q.PageToken)
	}
	if q.From != "" {
		params.Set("time_min_str", q.From)
	}
	if q.To != "" {
		params.Set("time_max_str", q.To)
	}

	var resp findEventsResponse
	if err := c.do(ctx, http.MethodGet, "/actions/find_events", params, nil, &resp); err != nil {
		return nil, fmt.Errorf("finding bookings: %w", err)
	}

	page := &EventsPage{
		UserEmail:     resp.UserEmail,
		IsAdmin:       resp.IsAdmin,
		NextPageToken: resp.Events.NextPageToken,
		Events:        make([]models.Event, 0, len(resp.Events.Items)),
	}
	for _, item := range resp.Events.Items {
		ev, err := item.toModel(calendarID, c.location)
		if err != nil {
			return nil, fmt.Errorf("booking %s: %w", item.ID, err)
		}
		page.Events = append(page.Events, ev)
	}
	c.logger.Debug("Fetched bookings page", "court", calendarID, "count", len(page.Events), "hasMore", page.NextPageToken != "")
	return page, nil
}

// FindAllEvents follows page tokens until the listing is exhausted. The
// date filters of q apply to every page.
func (c *Client) FindAllEvents(ctx context.Context, calendarID string, q EventQuery) (*EventsPage, error) {
	all := &EventsPage{}
	seen := map[string]bool{}
	for {
		page, err := c.FindEvents(ctx, calendarID, q)
		if err != nil {
			return nil, err
		}
		all.UserEmail, all.IsAdmin = page.UserEmail, page.IsAdmin
		all.Events = append(all.Events, page.Events...)
		if page.NextPageToken == "" {
			return all, nil
		}
		if seen[page.NextPageToken] {
			return nil, fmt.Errorf("finding bookings: page token %q repeated", page.NextPageToken)
		}
		seen[page.NextPageToken] = true
		q.PageToken = page.NextPageToken
	}
}

// LookupEvent searches a court's bookings for eventID. It returns nil
// without error when the booking is not in the listing.
func (c *Client) LookupEvent(ctx context.Context, calendarID, eventID string, q EventQuery) (*models.Event, *EventsPage, error) {
	page, err := c.FindAllEvents(ctx, calendarID, q)
	if err != nil {
		return nil, nil, err
	}
	for i := range page.Events {
		if page.Events[i].ID == eventID {
			return &page.Events[i], page, nil
		}
	}
	return nil, page, nil
}

// CreateResult reports how many occurrences were booked and which were
// skipped because of conflicts.
type CreateResult struct {
	Message      string           `json:"message"`
	CreatedCount int              `json:"created_count"`
	SkippedCount int              `json:"skipped_count"`
	Skipped      []models.Skipped `json:"skipped_events,omitempty"`
}

// Failed reports whether nothing was booked because every occurrence
// conflicted.
func (r *CreateResult) Failed() bool {
	return r.CreatedCount == 0 && r.SkippedCount > 0
}

// CreateEvent books a court, once or repeatedly.
func (c *Client) CreateEvent(ctx context.Context, calendarID string, b NewBooking) (*CreateResult, error) {
	if calendarID == "" {
		return nil, ErrMissingCalendar
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}

	body := createEventRequest{CalendarID: calendarID, EventData: b.wire()}
	var resp createEventResponse
	if err := c.do(ctx, http.MethodPost, "/actions/create_event", nil, body, &resp); err != nil {
		return nil, fmt.Errorf("creating booking: %w", err)
	}
	return &CreateResult{
		Message:      resp.Message,
		CreatedCount: resp.CreatedCount,
		SkippedCount: resp.SkippedCount,
		Skipped:      resp.SkippedEvents,
	}, nil
}

// UpdateEvent moves a booking to a new time range.
func (c *Client) UpdateEvent(ctx context.Context, calendarID, eventID string, r Reschedule) (string, error) {
	if err := checkIDs(calendarID, eventID); err != nil {
		return "", err
	}
	if err := r.Validate(); err != nil {
		return "", err
	}

	var resp actionResponse
	path := "/actions/update_event/" + url.PathEscape(eventID)
	params := url.Values{"calendar_id": {calendarID}}
	if err := c.do(ctx, http.MethodPatch, path, params, r.wire(), &resp); err != nil {
		return "", fmt.Errorf("rescheduling booking: %w", err)
	}
	return resp.Message, nil
}

// DeleteEvent cancels a single booking.
func (c *Client) DeleteEvent(ctx context.Context, calendarID, eventID string) (string, error) {
	if err := checkIDs(calendarID, eventID); err != nil {
		return "", err
	}

	var resp actionResponse
	path := "/actions/delete_event/" + url.PathEscape(eventID)
	params := url.Values{"calendar_id": {calendarID}}
	if err := c.do(ctx, http.MethodDelete, path, params, nil, &resp); err != nil {
		return "", fmt.Errorf("cancelling booking: %w", err)
	}
	return resp.Message, nil
}

// DeleteRecurringEvent cancels occurrences of a series.
func (c *Client) DeleteRecurringEvent(ctx context.Context, calendarID, eventID string, scope Scope) (string, error) {
	if err := checkIDs(calendarID, eventID); err != nil {
		return "", err
	}
	if _, err := ParseScope(string(scope)); err != nil {
		return "", err
	}

	var resp actionResponse
	path := "/actions/delete_recurring_event/" + url.PathEscape(eventID)
	params := url.Values{"calendar_id": {calendarID}, "delete_scope": {string(scope)}}
	if err := c.do(ctx, http.MethodDelete, path, params, nil, &resp); err != nil {
		return "", fmt.Errorf("cancelling recurring booking: %w", err)
	}
	return resp.Message, nil
}

// BusyInterval is a busy range as sent by the booking service.
type BusyInterval struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// FindAvailability returns the raw busy intervals of a court on a
// YYYY-MM-DD date.
func (c *Client) FindAvailability(ctx context.Context, calendarID, date string) ([]BusyInterval, error) {
	if calendarID == "" {
		return nil, ErrMissingCalendar
	}
	if err := ValidateDate(date); err != nil {
		return nil, err
	}

	var resp availabilityResponse
	params := url.Values{"calendar_id": {calendarID}, "date_str": {date}}
	if err := c.do(ctx, http.MethodGet, "/actions/find_availability", params, nil, &resp); err != nil {
		return nil, fmt.Errorf("finding availability: %w", err)
	}
	return resp.Busy, nil
}

// BusyIntervals fetches and parses the busy intervals of a court for day.
// A malformed timestamp fails the whole call.
func (c *Client) BusyIntervals(ctx context.Context, calendarID string, day timeline.Day) ([]timeline.Interval, error) {
	raw, err := c.FindAvailability(ctx, calendarID, day.Date)
	if err != nil {
		return nil, err
	}
	out := make([]timeline.Interval, 0, len(raw))
	for i, b := range raw {
		iv, err := timeline.ParseInterval(b.Start, b.End, day.Location)
		if err != nil {
			return nil, fmt.Errorf("busy interval %d: %w", i, err)
		}
		out = append(out, iv)
	}
	return out, nil
}

func checkIDs(calendarID, eventID string) error {
	if calendarID == "" {
		return ErrMissingCalendar
	}
	if eventID == "" {
		return ErrMissingEventID
	}
	return nil
}

// do sends one request and decodes a JSON answer into out.
func (c *Client) do(ctx context.Context, method, path string, params url.Values, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	u := *c.baseURL
	// path arrives escaped so IDs containing "/" survive.
	u.RawPath = c.baseURL.EscapedPath() + path
	unescaped, err := url.PathUnescape(u.RawPath)
	if err != nil {
		return err
	}
	u.Path = unescaped
	u.RawQuery = params.Encode()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return err
	}
	reqID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, reqID)

	c.logger.Debug("Calling booking service", "method", method, "path", path, "requestID", reqID)
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if isTokenError(err) {
			return fmt.Errorf("%w: %w", ErrNotAuthenticated, err)
		}
		return err
	}
	defer resp.Body.Close()
	c.logger.Debug("Booking service answered", "status", resp.StatusCode, "requestID", reqID, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Detail: http.StatusText(resp.StatusCode)}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var er errorResponse
	if json.Unmarshal(b, &er) == nil && er.Detail != nil {
		switch d := er.Detail.(type) {
		case string:
			if d != "" {
				apiErr.Detail = d
			}
		default:
			// Validation errors come back as a list of objects.
			if raw, err := json.Marshal(d); err == nil {
				apiErr.Detail = string(raw)
			}
		}
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: %w", ErrNotAuthenticated, apiErr)
	}
	return apiErr
}

// isTokenError reports whether err came from the token source rather than
// the network.
func isTokenError(err error) bool {
	if errors.Is(err, auth.ErrNotSignedIn) || errors.Is(err, auth.ErrSessionExpired) {
		return true
	}
	var retrieve *oauth2.RetrieveError
	return errors.As(err, &retrieve)
}
