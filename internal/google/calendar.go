package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"courtbook/internal/models"
	"courtbook/internal/timeline"
)

// CalendarClient reads busy times straight from Google Calendar, bypassing
// the booking service.
type CalendarClient struct {
	service *calendar.Service
	logger  *slog.Logger
}

// NewClient creates a Google Calendar client authorized with the OAuth token
// of the signed-in session. The token is refreshed through config.
func NewClient(ctx context.Context, logger *slog.Logger, config *oauth2.Config, token *oauth2.Token) (*CalendarClient, error) {
	if token == nil || (token.AccessToken == "" && token.RefreshToken == "") {
		return nil, errors.New("session has no Google OAuth token, please run 'login' without --id-token")
	}
	client := config.Client(ctx, token)
	return NewClientWithOptions(ctx, logger, option.WithHTTPClient(client))
}

// NewClientWithOptions creates a client from raw API options.
func NewClientWithOptions(ctx context.Context, logger *slog.Logger, opts ...option.ClientOption) (*CalendarClient, error) {
	service, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return &CalendarClient{service: service, logger: logger}, nil
}

// BusyIntervals queries the free/busy API for one calendar over day.
func (c *CalendarClient) BusyIntervals(ctx context.Context, calendarID string, day timeline.Day) ([]timeline.Interval, error) {
	c.logger.Debug("Querying free/busy", "calendarID", calendarID, "date", day.Date)

	req := &calendar.FreeBusyRequest{
		TimeMin:  day.Start.Format(time.RFC3339),
		TimeMax:  day.End.Add(time.Second).Format(time.RFC3339),
		TimeZone: day.Location.String(),
		Items:    []*calendar.FreeBusyRequestItem{{Id: calendarID}},
	}
	resp, err := c.service.Freebusy.Query(req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to query free/busy: %w", err)
	}

	cal, ok := resp.Calendars[calendarID]
	if !ok {
		return nil, fmt.Errorf("calendar %s missing from free/busy response", calendarID)
	}
	if len(cal.Errors) > 0 {
		reasons := make([]string, 0, len(cal.Errors))
		for _, e := range cal.Errors {
			reasons = append(reasons, e.Reason)
		}
		return nil, fmt.Errorf("free/busy for %s failed: %s", calendarID, strings.Join(reasons, ", "))
	}

	busy := make([]timeline.Interval, 0, len(cal.Busy))
	for i, p := range cal.Busy {
		iv, err := timeline.ParseInterval(p.Start, p.End, day.Location)
		if err != nil {
			return nil, fmt.Errorf("busy period %d of %s: %w", i, calendarID, err)
		}
		busy = append(busy, iv)
	}
	c.logger.Info("Fetched busy periods from Google Calendar", "count", len(busy), "calendarID", calendarID)
	return busy, nil
}

// DiscoverCalendars lists the calendars visible to the signed-in account.
func (c *CalendarClient) DiscoverCalendars(ctx context.Context) ([]models.Calendar, error) {
	var out []models.Calendar
	err := c.service.CalendarList.List().Pages(ctx, func(list *calendar.CalendarList) error {
		for _, item := range list.Items {
			out = append(out, models.Calendar{
				ID:          item.Id,
				Summary:     item.Summary,
				Description: item.Description,
				TimeZone:    item.TimeZone,
				AccessRole:  item.AccessRole,
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list calendars: %w", err)
	}
	return out, nil
}
