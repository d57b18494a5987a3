package booking

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Validation errors returned before any request is sent.
var (
	ErrMissingField        = errors.New("title, start and end are required")
	ErrEndBeforeStart      = errors.New("end must be after start")
	ErrInvalidFrequency    = errors.New("frequency must be one of none, daily, weekly, monthly")
	ErrMissingUntil        = errors.New("recurring bookings need an end date")
	ErrMissingWeekdays     = errors.New("weekly bookings need at least one weekday")
	ErrInvalidWeekday      = errors.New("unknown weekday")
	ErrInvalidDate         = errors.New("date must be in YYYY-MM-DD format")
	ErrInvalidScope        = errors.New("scope must be one of this_event, future_events, all_events")
	ErrMissingCalendar     = errors.New("a court is required")
	ErrMissingEventID      = errors.New("a booking id is required")
	ErrRecurringReschedule = errors.New("bookings that belong to a series cannot be rescheduled")
)

// Frequency of a recurring booking.
type Frequency string

const (
	Once    Frequency = "none"
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
)

// Scope selects which occurrences of a series a cancellation removes.
type Scope string

const (
	ThisEvent    Scope = "this_event"
	FutureEvents Scope = "future_events"
	AllEvents    Scope = "all_events"
)

// ParseScope validates a cancellation scope.
func ParseScope(s string) (Scope, error) {
	switch sc := Scope(strings.ToLower(strings.TrimSpace(s))); sc {
	case ThisEvent, FutureEvents, AllEvents:
		return sc, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidScope, s)
}

var weekdays = map[string]string{
	"mo": "MO", "mon": "MO", "monday": "MO",
	"tu": "TU", "tue": "TU", "tuesday": "TU",
	"we": "WE", "wed": "WE", "wednesday": "WE",
	"th": "TH", "thu": "TH", "thursday": "TH",
	"fr": "FR", "fri": "FR", "friday": "FR",
	"sa": "SA", "sat": "SA", "saturday": "SA",
	"su": "SU", "sun": "SU", "sunday": "SU",
}

// NewBooking is a booking to create, optionally repeating.
type NewBooking struct {
	Title       string
	Description string
	Start       time.Time
	End         time.Time
	Frequency   Frequency
	Until       string   // YYYY-MM-DD, required when Frequency is not Once
	Weekdays    []string // required when Frequency is Weekly
}

// Validate checks the booking and normalizes frequency and weekdays.
func (b *NewBooking) Validate() error {
	if strings.TrimSpace(b.Title) == "" || b.Start.IsZero() || b.End.IsZero() {
		return ErrMissingField
	}
	if !b.End.After(b.Start) {
		return ErrEndBeforeStart
	}

	freq := Frequency(strings.ToLower(string(b.Frequency)))
	if freq == "" {
		freq = Once
	}
	switch freq {
	case Once:
		b.Frequency = Once
		return nil
	case Daily, Weekly, Monthly:
		b.Frequency = freq
	default:
		return fmt.Errorf("%w: %q", ErrInvalidFrequency, b.Frequency)
	}

	if b.Until == "" {
		return ErrMissingUntil
	}
	if err := ValidateDate(b.Until); err != nil {
		return err
	}

	if freq != Weekly {
		b.Weekdays = nil
		return nil
	}
	if len(b.Weekdays) == 0 {
		return ErrMissingWeekdays
	}
	days := make([]string, 0, len(b.Weekdays))
	for _, d := range b.Weekdays {
		code, ok := weekdays[strings.ToLower(strings.TrimSpace(d))]
		if !ok {
			return fmt.Errorf("%w: %q", ErrInvalidWeekday, d)
		}
		days = append(days, code)
	}
	b.Weekdays = days
	return nil
}

func (b *NewBooking) wire() eventData {
	d := eventData{
		Summary:     b.Title,
		Description: b.Description,
		Start:       dateTimeOf(b.Start),
		End:         dateTimeOf(b.End),
	}
	if b.Frequency != Once {
		d.Frequency = string(b.Frequency)
		d.RecurrenceEndDate = b.Until
		d.RecurrenceDays = b.Weekdays
	}
	return d
}

// Reschedule moves a booking. Title and Description are kept on the
// server when empty.
type Reschedule struct {
	Title       string
	Description string
	Start       time.Time
	End         time.Time
}

// Validate checks the new time range.
func (r *Reschedule) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return ErrMissingField
	}
	if !r.End.After(r.Start) {
		return ErrEndBeforeStart
	}
	return nil
}

func (r *Reschedule) wire() updateEventRequest {
	start, end := dateTimeOf(r.Start), dateTimeOf(r.End)
	return updateEventRequest{
		Summary:     r.Title,
		Description: r.Description,
		Start:       &start,
		End:         &end,
	}
}

// EventQuery filters and pages a bookings listing. From and To are
// YYYY-MM-DD dates and may be empty.
type EventQuery struct {
	PageToken string
	From      string
	To        string
}

// Validate checks the date filters.
func (q EventQuery) Validate() error {
	for _, d := range []string{q.From, q.To} {
		if d == "" {
			continue
		}
		if err := ValidateDate(d); err != nil {
			return err
		}
	}
	if q.From != "" && q.To != "" && q.To < q.From {
		return fmt.Errorf("%w: %s is before %s", ErrEndBeforeStart, q.To, q.From)
	}
	return nil
}

// ValidateDate checks a YYYY-MM-DD date.
func ValidateDate(d string) error {
	if _, err := time.Parse("2006-01-02", d); err != nil {
		return fmt.Errorf("%w, got %q", ErrInvalidDate, d)
	}
	return nil
}
