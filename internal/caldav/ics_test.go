package caldav

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courtbook/internal/models"
	"courtbook/internal/timeline"
)

func TestWriteICS(t *testing.T) {
	start := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	events := []models.Event{
		{
			ID:          "ev1",
			Court:       "Quadra 1",
			Title:       "Treino",
			Description: "Turma da manhã",
			StartTime:   start,
			EndTime:     start.Add(time.Hour),
			Status:      "confirmed",
			Organizer:   "admin@example.com",
			Attendees:   []string{"ana@example.com"},
		},
		{ID: "ev2", Court: "Quadra 1", Title: "Jogo", StartTime: start.Add(2 * time.Hour), EndTime: start.Add(3 * time.Hour)},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteICS(&buf, events))

	cal, err := ical.NewDecoder(&buf).Decode()
	require.NoError(t, err)
	assert.Equal(t, ProductID, cal.Props.Get(ical.PropProductID).Value)

	got := cal.Events()
	require.Len(t, got, 2)

	uid, err := got[0].Props.Text(ical.PropUID)
	require.NoError(t, err)
	assert.Equal(t, UIDFor("ev1"), uid)

	summary, err := got[0].Props.Text(ical.PropSummary)
	require.NoError(t, err)
	assert.Equal(t, "Treino", summary)

	loc, err := got[0].Props.Text(ical.PropLocation)
	require.NoError(t, err)
	assert.Equal(t, "Quadra 1", loc)

	dtstart, err := got[0].DateTimeStart(time.UTC)
	require.NoError(t, err)
	assert.True(t, dtstart.Equal(start))

	assert.Equal(t, "CONFIRMED", got[0].Props.Get(ical.PropStatus).Value)
	assert.Equal(t, "mailto:ana@example.com", got[0].Props.Get(ical.PropAttendee).Value)
	assert.Nil(t, got[1].Props.Get(ical.PropDescription))
}

func TestUIDForIsStable(t *testing.T) {
	assert.Equal(t, UIDFor("ev1"), UIDFor("ev1"))
	assert.NotEqual(t, UIDFor("ev1"), UIDFor("ev2"))
}

func TestWriteFreeBusy(t *testing.T) {
	day, err := timeline.ParseDay("2024-06-10", time.UTC)
	require.NoError(t, err)
	blocks := timeline.Build(day, []timeline.Interval{
		{Start: time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC), End: time.Date(2024, 6, 10, 11, 0, 0, 0, time.UTC)},
	})

	var buf bytes.Buffer
	require.NoError(t, WriteFreeBusy(&buf, "Quadra 1", day, blocks))
	assert.Contains(t, buf.String(), "BEGIN:VFREEBUSY")

	cal, err := ical.NewDecoder(strings.NewReader(buf.String())).Decode()
	require.NoError(t, err)
	require.Len(t, cal.Children, 1)
	fb := cal.Children[0]
	assert.Equal(t, ical.CompFreeBusy, fb.Name)

	periods := fb.Props.Values(ical.PropFreeBusy)
	require.Len(t, periods, 3)
	assert.Equal(t, "FREE", periods[0].Params.Get(paramFreeBusyType))
	assert.Equal(t, "BUSY", periods[1].Params.Get(paramFreeBusyType))
	assert.Equal(t, "20240610T090000Z/20240610T110000Z", periods[1].Value)
	assert.Equal(t, "20240610T110000Z/20240610T235959Z", periods[2].Value)
}

func TestCustomTransportAddsCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "ana", user)
		assert.Equal(t, "app-password", pass)
		assert.Equal(t, "courtbook/1.0", r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err := NewClient(context.Background(), logger, Options{
		Endpoint:     srv.URL + "/",
		Username:     "ana",
		Password:     "app-password",
		CalendarName: "Quadras",
	})
	assert.ErrorContains(t, err, "could not find calendar 'Quadras'")
}

func TestNewClientRequiresCredentials(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err := NewClient(context.Background(), logger, Options{Username: "ana"})
	assert.Error(t, err)
}
