package google

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"courtbook/internal/timeline"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *CalendarClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c, err := NewClientWithOptions(context.Background(), logger,
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return c
}

func TestBusyIntervals(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/freeBusy"), r.URL.Path)

		var req struct {
			TimeMin  string `json:"timeMin"`
			TimeMax  string `json:"timeMax"`
			TimeZone string `json:"timeZone"`
			Items    []struct {
				ID string `json:"id"`
			} `json:"items"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "2024-06-10T00:00:00Z", req.TimeMin)
		assert.Equal(t, "2024-06-11T00:00:00Z", req.TimeMax)
		assert.Equal(t, "UTC", req.TimeZone)
		if assert.Len(t, req.Items, 1) {
			assert.Equal(t, "court1@group.calendar.google.com", req.Items[0].ID)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"kind": "calendar#freeBusy",
			"calendars": map[string]any{
				"court1@group.calendar.google.com": map[string]any{
					"busy": []map[string]string{
						{"start": "2024-06-10T09:30:00Z", "end": "2024-06-10T11:00:00Z"},
						{"start": "2024-06-10T09:00:00Z", "end": "2024-06-10T10:00:00Z"},
					},
				},
			},
		})
	})

	day, err := timeline.ParseDay("2024-06-10", time.UTC)
	require.NoError(t, err)
	busy, err := c.BusyIntervals(context.Background(), "court1@group.calendar.google.com", day)
	require.NoError(t, err)
	require.Len(t, busy, 2)

	entries := timeline.Format(timeline.Build(day, busy), time.UTC)
	require.Len(t, entries, 3)
	assert.Equal(t, timeline.Entry{Kind: timeline.Busy, Start: "09:00", End: "11:00"}, entries[1])
}

func TestBusyIntervalsCalendarErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"calendars": map[string]any{
				"court1": map[string]any{
					"errors": []map[string]string{{"domain": "calendar", "reason": "notFound"}},
				},
			},
		})
	})

	day, err := timeline.ParseDay("2024-06-10", time.UTC)
	require.NoError(t, err)

	_, err = c.BusyIntervals(context.Background(), "court1", day)
	assert.ErrorContains(t, err, "notFound")

	_, err = c.BusyIntervals(context.Background(), "court2", day)
	assert.ErrorContains(t, err, "missing")
}

func TestDiscoverCalendars(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/users/me/calendarList"), r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]string{
				{"id": "court1", "summary": "Quadra 1", "accessRole": "reader"},
			},
		})
	})

	cals, err := c.DiscoverCalendars(context.Background())
	require.NoError(t, err)
	require.Len(t, cals, 1)
	assert.Equal(t, "Quadra 1", cals[0].Summary)
}

func TestNewClientNeedsToken(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err := NewClient(context.Background(), logger, &oauth2.Config{}, nil)
	assert.Error(t, err)
}
