package caldav

import (
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"

	"courtbook/internal/models"
	"courtbook/internal/timeline"
)

// ProductID identifies courtbook in generated calendars.
const ProductID = "-//courtbook//EN"

const (
	paramFreeBusyType = "FBTYPE"
	utcLayout         = "20060102T150405Z"
)

// uidNamespace scopes booking IDs so the same booking always maps to the
// same calendar UID.
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://courtbook/bookings"))

// UIDFor returns the stable calendar UID of a booking.
func UIDFor(bookingID string) string {
	return uuid.NewSHA1(uidNamespace, []byte(bookingID)).String()
}

// NewCalendar returns an empty VCALENDAR with the required properties.
func NewCalendar() *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, ProductID)
	return cal
}

// EventComponent converts a booking to a VEVENT.
func EventComponent(event *models.Event, uid string) *ical.Component {
	if uid == "" {
		uid = UIDFor(event.ID)
	}
	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, uid)
	ve.Props.SetText(ical.PropSummary, event.Title)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	ve.Props.SetDateTime(ical.PropDateTimeStart, event.StartTime.UTC())
	ve.Props.SetDateTime(ical.PropDateTimeEnd, event.EndTime.UTC())

	if event.Description != "" {
		ve.Props.SetText(ical.PropDescription, event.Description)
	}
	location := event.Location
	if location == "" {
		location = event.Court
	}
	if location != "" {
		ve.Props.SetText(ical.PropLocation, location)
	}
	if !event.Updated.IsZero() {
		ve.Props.SetDateTime(ical.PropLastModified, event.Updated.UTC())
	}
	if event.Status != "" {
		ve.Props.SetText(ical.PropStatus, icalStatus(event.Status))
	}
	if event.Organizer != "" {
		p := ical.NewProp(ical.PropOrganizer)
		p.SetText(fmt.Sprintf("mailto:%s", event.Organizer))
		ve.Props.Add(p)
	}
	for _, attendee := range event.Attendees {
		p := ical.NewProp(ical.PropAttendee)
		p.SetText(fmt.Sprintf("mailto:%s", attendee))
		ve.Props.Add(p)
	}
	return ve
}

func icalStatus(s string) string {
	switch s {
	case "tentative":
		return "TENTATIVE"
	case "cancelled":
		return "CANCELLED"
	}
	return "CONFIRMED"
}

// WriteICS encodes bookings as one iCalendar stream.
func WriteICS(w io.Writer, events []models.Event) error {
	cal := NewCalendar()
	for i := range events {
		cal.Children = append(cal.Children, EventComponent(&events[i], ""))
	}
	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode calendar: %w", err)
	}
	return nil
}

// WriteFreeBusy encodes a day's timeline as a VFREEBUSY component, one
// FREEBUSY period per block.
func WriteFreeBusy(w io.Writer, court string, day timeline.Day, blocks []timeline.Block) error {
	fb := ical.NewComponent(ical.CompFreeBusy)
	fb.Props.SetText(ical.PropUID, UIDFor(court+"/"+day.Date))
	fb.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	fb.Props.SetDateTime(ical.PropDateTimeStart, day.Start.UTC())
	fb.Props.SetDateTime(ical.PropDateTimeEnd, day.End.UTC())
	if court != "" {
		fb.Props.SetText(ical.PropComment, court)
	}
	for _, b := range blocks {
		p := ical.NewProp(ical.PropFreeBusy)
		p.Params.Set(paramFreeBusyType, freeBusyType(b.Kind))
		p.Value = b.Start.UTC().Format(utcLayout) + "/" + b.End.UTC().Format(utcLayout)
		fb.Props.Add(p)
	}

	cal := NewCalendar()
	cal.Children = append(cal.Children, fb)
	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode free/busy: %w", err)
	}
	return nil
}

func freeBusyType(k timeline.Kind) string {
	if k == timeline.Busy {
		return "BUSY"
	}
	return "FREE"
}
