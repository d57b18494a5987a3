package booking

import (
	"errors"
	"fmt"
	"time"

	"courtbook/internal/models"
	"courtbook/internal/timeline"
)

// Wire shapes of the booking service. Events mirror Google Calendar's
// event resource, which the service passes through.

type eventDateTime struct {
	Date     string `json:"date,omitempty"`
	DateTime string `json:"dateTime,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

type person struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
}

type attendee struct {
	Email          string `json:"email"`
	ResponseStatus string `json:"responseStatus,omitempty"`
}

type extendedProperties struct {
	Private map[string]string `json:"private,omitempty"`
	Shared  map[string]string `json:"shared,omitempty"`
}

type wireEvent struct {
	ID                 string              `json:"id"`
	Status             string              `json:"status,omitempty"`
	Summary            string              `json:"summary,omitempty"`
	Description        string              `json:"description,omitempty"`
	Location           string              `json:"location,omitempty"`
	Updated            string              `json:"updated,omitempty"`
	Organizer          *person             `json:"organizer,omitempty"`
	Start              eventDateTime       `json:"start"`
	End                eventDateTime       `json:"end"`
	Attendees          []attendee          `json:"attendees,omitempty"`
	RecurringEventID   string              `json:"recurringEventId,omitempty"`
	ExtendedProperties *extendedProperties `json:"extendedProperties,omitempty"`
}

type eventsResponse struct {
	Items         []wireEvent `json:"items"`
	NextPageToken string      `json:"nextPageToken,omitempty"`
	Summary       string      `json:"summary,omitempty"`
}

type findEventsResponse struct {
	UserEmail string         `json:"user_email"`
	IsAdmin   bool           `json:"isAdmin"`
	Events    eventsResponse `json:"events"`
}

type wireCalendar struct {
	ID          string `json:"id"`
	Summary     string `json:"summary"`
	Description string `json:"description,omitempty"`
	TimeZone    string `json:"timeZone,omitempty"`
	AccessRole  string `json:"accessRole,omitempty"`
}

type calendarListResponse struct {
	Items         []wireCalendar `json:"items"`
	NextPageToken string         `json:"nextPageToken,omitempty"`
}

type eventData struct {
	Summary           string        `json:"summary"`
	Description       string        `json:"description,omitempty"`
	Start             eventDateTime `json:"start"`
	End               eventDateTime `json:"end"`
	Frequency         string        `json:"frequency,omitempty"`
	RecurrenceEndDate string        `json:"recurrence_end_date,omitempty"`
	RecurrenceDays    []string      `json:"recurrence_days,omitempty"`
}

type createEventRequest struct {
	CalendarID string    `json:"calendar_id"`
	EventData  eventData `json:"event_data"`
}

type updateEventRequest struct {
	Summary     string         `json:"summary,omitempty"`
	Description string         `json:"description,omitempty"`
	Start       *eventDateTime `json:"start,omitempty"`
	End         *eventDateTime `json:"end,omitempty"`
}

type actionResponse struct {
	Message string `json:"message"`
}

type createEventResponse struct {
	Message       string           `json:"message"`
	CreatedCount  int              `json:"created_count"`
	SkippedCount  int              `json:"skipped_count"`
	SkippedEvents []models.Skipped `json:"skipped_events"`
}

type availabilityResponse struct {
	Busy []BusyInterval `json:"busy"`
}

type errorResponse struct {
	Detail any `json:"detail"`
}

func (d eventDateTime) time(loc *time.Location) (time.Time, error) {
	switch {
	case d.DateTime != "":
		return timeline.ParseTime(d.DateTime, loc)
	case d.Date != "":
		t, err := time.ParseInLocation("2006-01-02", d.Date, loc)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date %q: %w", d.Date, err)
		}
		return t, nil
	}
	return time.Time{}, errors.New("missing date")
}

func dateTimeOf(t time.Time) eventDateTime {
	return eventDateTime{DateTime: t.Format(time.RFC3339)}
}

func (e wireEvent) toModel(court string, loc *time.Location) (models.Event, error) {
	ev := models.Event{
		ID:          e.ID,
		Court:       court,
		Title:       e.Summary,
		Description: e.Description,
		Location:    e.Location,
		Status:      e.Status,
	}
	var err error
	if ev.StartTime, err = e.Start.time(loc); err != nil {
		return ev, fmt.Errorf("start: %w", err)
	}
	if ev.EndTime, err = e.End.time(loc); err != nil {
		return ev, fmt.Errorf("end: %w", err)
	}
	if e.Updated != "" {
		if ev.Updated, err = time.Parse(time.RFC3339Nano, e.Updated); err != nil {
			return ev, fmt.Errorf("updated: %w", err)
		}
	}
	if e.Organizer != nil {
		ev.Organizer = e.Organizer.Email
	}
	for _, a := range e.Attendees {
		ev.Attendees = append(ev.Attendees, a.Email)
	}
	if e.ExtendedProperties != nil {
		ev.RequesterEmail = e.ExtendedProperties.Private["requesterEmail"]
		ev.SeriesID = e.ExtendedProperties.Private["seriesId"]
	}
	if ev.SeriesID == "" {
		ev.SeriesID = e.RecurringEventID
	}
	return ev, nil
}
