package render

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"courtbook/internal/models"
	"courtbook/internal/timeline"
)

const (
	dayLayout  = "Mon 02 Jan 2006"
	dateLayout = "02/01/2006"
)

// Viewer is who is looking at a bookings listing.
type Viewer struct {
	Email   string
	IsAdmin bool
}

// CanManage reports whether the viewer may cancel e. Blocked bookings are
// never manageable.
func CanManage(e *models.Event, v Viewer, blockedMarker string) bool {
	if e.IsBlocked(blockedMarker) {
		return false
	}
	return v.IsAdmin || (v.Email != "" && strings.EqualFold(e.RequesterEmail, v.Email))
}

// CanReschedule reports whether the viewer may move e. Occurrences of a
// series can only be cancelled.
func CanReschedule(e *models.Event, v Viewer, blockedMarker string) bool {
	return CanManage(e, v, blockedMarker) && !e.IsRecurring()
}

// Timeline prints a day's availability, one line per block. A day without
// busy blocks gets a single message instead.
func Timeline(w io.Writer, court string, day timeline.Day, entries []timeline.Entry) {
	header := "Availability for " + day.Date
	if court != "" {
		header += " on " + court
	}
	fmt.Fprintf(w, "%s\n", colorHeader.Sprint(header))

	if len(entries) == 0 || (len(entries) == 1 && entries[0].Kind == timeline.Free) {
		fmt.Fprintln(w, colorFree.Sprint("The whole day is free."))
		return
	}
	for _, e := range entries {
		line := fmt.Sprintf("%s - %s (%s)", e.Start, e.End, e.Kind)
		if e.Kind == timeline.Busy {
			fmt.Fprintf(w, "  %s\n", colorBusy.Sprint(line))
			continue
		}
		fmt.Fprintf(w, "  %s\n", colorFree.Sprint(line))
	}
}

// Calendars prints the courts the user can see.
func Calendars(w io.Writer, cals []models.Calendar) {
	if len(cals) == 0 {
		fmt.Fprintln(w, "No courts available.")
		return
	}
	fmt.Fprintln(w, colorHeader.Sprint("Courts"))
	for _, c := range cals {
		name := c.Summary
		if name == "" {
			name = c.ID
		}
		line := "  " + name
		if c.ID != name {
			line += " " + colorMuted.Sprint("("+c.ID+")")
		}
		if c.Description != "" {
			line += " " + colorMuted.Sprint(c.Description)
		}
		fmt.Fprintln(w, line)
	}
}

// BookingsOptions controls how a listing is printed.
type BookingsOptions struct {
	Viewer        Viewer
	BlockedMarker string
	Location      *time.Location
	// Filtered selects the empty-listing message: a date filter was given.
	Filtered bool
}

// Bookings prints events grouped by day.
func Bookings(w io.Writer, events []models.Event, opts BookingsOptions) {
	if len(events) == 0 {
		if opts.Filtered {
			fmt.Fprintln(w, "No bookings found for the given filters.")
		} else {
			fmt.Fprintln(w, "No upcoming bookings for this court.")
		}
		return
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	sorted := append([]models.Event(nil), events...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartTime.Before(sorted[j].StartTime)
	})

	maxDesc := termWidth() - 10
	var current string
	for i := range sorted {
		e := &sorted[i]
		start, end := e.StartTime.In(loc), e.EndTime.In(loc)
		if day := start.Format(dayLayout); day != current {
			if current != "" {
				fmt.Fprintln(w)
			}
			current = day
			fmt.Fprintln(w, colorHeader.Sprint(day))
		}

		title := e.Title
		if strings.TrimSpace(title) == "" {
			title = "(untitled)"
		}
		line := fmt.Sprintf("  %s - %s  %s", start.Format(timeline.ClockLayout), end.Format(timeline.ClockLayout), title)
		if flags := bookingFlags(e, opts); len(flags) > 0 {
			line += " " + colorFlag.Sprint("["+strings.Join(flags, ", ")+"]")
		}
		fmt.Fprintln(w, line)
		fmt.Fprintf(w, "    %s\n", colorMuted.Sprint("id: "+e.ID))
		if e.Description != "" {
			fmt.Fprintf(w, "    %s\n", truncate(e.Description, maxDesc))
		}
	}
}

func bookingFlags(e *models.Event, opts BookingsOptions) []string {
	var flags []string
	if e.IsBlocked(opts.BlockedMarker) {
		flags = append(flags, "blocked")
	}
	if e.IsRecurring() {
		flags = append(flags, "recurring")
	}
	if !CanManage(e, opts.Viewer, opts.BlockedMarker) {
		flags = append(flags, "read-only")
	}
	return flags
}

// ConflictReport lists occurrences the service skipped while creating a
// recurring booking.
func ConflictReport(w io.Writer, skipped []models.Skipped, loc *time.Location) {
	if len(skipped) == 0 {
		return
	}
	fmt.Fprintln(w, colorFlag.Sprintf("%d occurrence(s) skipped because of conflicts:", len(skipped)))
	for _, s := range skipped {
		when := s.Start
		if t, err := timeline.ParseTime(s.Start, loc); err == nil {
			if loc != nil {
				t = t.In(loc)
			}
			when = t.Format(dateLayout) + " at " + t.Format(timeline.ClockLayout)
		}
		reason := s.Reason
		if reason == "" {
			reason = "existing booking"
		}
		fmt.Fprintf(w, "  %s: conflicts with %q\n", when, reason)
	}
}

// truncate shortens s to max runes, marking the cut with an ellipsis.
func truncate(s string, max int) string {
	r := []rune(s)
	if max < 4 || len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
