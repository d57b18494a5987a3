package models

import (
	"strings"
	"time"
)

// Event is a booking on a court, independent of the wire format of the
// booking service.
type Event struct {
	ID             string    `json:"id"`                        // Booking ID assigned by the booking service
	Court          string    `json:"court"`                     // Court (calendar) name the booking belongs to
	Title          string    `json:"title"`                     // Summary shown to users
	Description    string    `json:"description,omitempty"`     // Free-form notes
	StartTime      time.Time `json:"start"`                     // Start of the booking
	EndTime        time.Time `json:"end"`                       // End of the booking
	Location       string    `json:"location,omitempty"`        // Location, if any
	Status         string    `json:"status,omitempty"`          // confirmed, tentative, cancelled
	Organizer      string    `json:"organizer,omitempty"`       // Organizer's email
	RequesterEmail string    `json:"requester_email,omitempty"` // Who asked for the booking
	SeriesID       string    `json:"series_id,omitempty"`       // Set when the booking belongs to a recurring series
	Updated        time.Time `json:"updated"`                   // Last modification on the server
	Attendees      []string  `json:"attendees,omitempty"`       // Attendee emails
}

// IsRecurring reports whether the booking is part of a series.
func (e *Event) IsRecurring() bool {
	return e.SeriesID != ""
}

// IsBlocked reports whether the booking is an administrative block, marked
// by marker appearing in its title (case-insensitive).
func (e *Event) IsBlocked(marker string) bool {
	if marker == "" {
		return false
	}
	return strings.Contains(strings.ToLower(e.Title), strings.ToLower(marker))
}

// Calendar is a court the user may see.
type Calendar struct {
	ID          string `json:"id"`
	Summary     string `json:"summary"`
	Description string `json:"description,omitempty"`
	TimeZone    string `json:"time_zone,omitempty"`
	AccessRole  string `json:"access_role,omitempty"`
}

// Skipped describes an occurrence the booking service refused because it
// conflicted with an existing booking.
type Skipped struct {
	Start  string `json:"start"`
	End    string `json:"end"`
	Reason string `json:"reason"`
}
