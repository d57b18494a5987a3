package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBookingValidate(t *testing.T) {
	start := time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Minute)

	tests := []struct {
		name    string
		in      NewBooking
		wantErr error
	}{
		{"single", NewBooking{Title: "Treino", Start: start, End: end}, nil},
		{"missing title", NewBooking{Title: "  ", Start: start, End: end}, ErrMissingField},
		{"missing end", NewBooking{Title: "Treino", Start: start}, ErrMissingField},
		{"equal times", NewBooking{Title: "Treino", Start: start, End: start}, ErrEndBeforeStart},
		{"reversed", NewBooking{Title: "Treino", Start: end, End: start}, ErrEndBeforeStart},
		{"unknown frequency", NewBooking{Title: "Treino", Start: start, End: end, Frequency: "hourly"}, ErrInvalidFrequency},
		{"daily without until", NewBooking{Title: "Treino", Start: start, End: end, Frequency: Daily}, ErrMissingUntil},
		{"bad until", NewBooking{Title: "Treino", Start: start, End: end, Frequency: Monthly, Until: "30/06/2024"}, ErrInvalidDate},
		{"weekly without days", NewBooking{Title: "Treino", Start: start, End: end, Frequency: Weekly, Until: "2024-06-30"}, ErrMissingWeekdays},
		{"weekly bad day", NewBooking{Title: "Treino", Start: start, End: end, Frequency: Weekly, Until: "2024-06-30", Weekdays: []string{"funday"}}, ErrInvalidWeekday},
		{"weekly", NewBooking{Title: "Treino", Start: start, End: end, Frequency: Weekly, Until: "2024-06-30", Weekdays: []string{"Tue", "TH"}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := tt.in
			err := b.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNewBookingNormalizes(t *testing.T) {
	start := time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)

	b := NewBooking{Title: "Treino", Start: start, End: start.Add(time.Hour)}
	require.NoError(t, b.Validate())
	assert.Equal(t, Once, b.Frequency)
	d := b.wire()
	assert.Empty(t, d.Frequency)
	assert.Empty(t, d.RecurrenceEndDate)

	b = NewBooking{Title: "Treino", Start: start, End: start.Add(time.Hour), Frequency: "DAILY", Until: "2024-05-20", Weekdays: []string{"mo"}}
	require.NoError(t, b.Validate())
	assert.Equal(t, Daily, b.Frequency)
	assert.Nil(t, b.Weekdays)

	b = NewBooking{Title: "Treino", Start: start, End: start.Add(time.Hour), Frequency: Weekly, Until: "2024-05-20", Weekdays: []string{"sunday", " sa "}}
	require.NoError(t, b.Validate())
	assert.Equal(t, []string{"SU", "SA"}, b.wire().RecurrenceDays)
}

func TestRescheduleValidate(t *testing.T) {
	start := time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)

	r := Reschedule{Start: start, End: start.Add(time.Hour)}
	require.NoError(t, r.Validate())
	w := r.wire()
	assert.Equal(t, "2024-05-06T10:00:00Z", w.End.DateTime)
	assert.Empty(t, w.Summary)

	r = Reschedule{Start: start, End: start.Add(-time.Minute)}
	assert.ErrorIs(t, r.Validate(), ErrEndBeforeStart)

	r = Reschedule{End: start}
	assert.ErrorIs(t, r.Validate(), ErrMissingField)
}

func TestParseScope(t *testing.T) {
	for in, want := range map[string]Scope{
		"this_event":    ThisEvent,
		"FUTURE_EVENTS": FutureEvents,
		" all_events ":  AllEvents,
	} {
		got, err := ParseScope(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseScope("series")
	assert.ErrorIs(t, err, ErrInvalidScope)
}

func TestEventQueryValidate(t *testing.T) {
	assert.NoError(t, EventQuery{}.Validate())
	assert.NoError(t, EventQuery{From: "2024-05-01"}.Validate())
	assert.NoError(t, EventQuery{From: "2024-05-01", To: "2024-05-01"}.Validate())
	assert.ErrorIs(t, EventQuery{To: "2024-13-01"}.Validate(), ErrInvalidDate)
	assert.ErrorIs(t, EventQuery{From: "2024-05-02", To: "2024-05-01"}.Validate(), ErrEndBeforeStart)
}
