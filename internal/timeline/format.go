package timeline

import (
	"fmt"
	"time"
)

// ClockLayout is the time-of-day layout used for display.
const ClockLayout = "15:04"

// offset-less date-times are read in the caller's location.
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// Entry is a block ready for display.
type Entry struct {
	Kind  Kind   `json:"kind"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// Format renders blocks as HH:MM entries in loc. A nil loc keeps each
// timestamp's own location.
func Format(blocks []Block, loc *time.Location) []Entry {
	entries := make([]Entry, 0, len(blocks))
	for _, b := range blocks {
		start, end := b.Start, b.End
		if loc != nil {
			start, end = start.In(loc), end.In(loc)
		}
		entries = append(entries, Entry{
			Kind:  b.Kind,
			Start: start.Format(ClockLayout),
			End:   end.Format(ClockLayout),
		})
	}
	return entries
}

// ParseTime reads an RFC 3339 timestamp, or a date-time without offset
// which is interpreted in loc.
func ParseTime(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

// ParseInterval parses both boundaries of a busy interval. It does not
// check their order; Build tolerates reversed intervals.
func ParseInterval(start, end string, loc *time.Location) (Interval, error) {
	s, err := ParseTime(start, loc)
	if err != nil {
		return Interval{}, fmt.Errorf("interval start: %w", err)
	}
	e, err := ParseTime(end, loc)
	if err != nil {
		return Interval{}, fmt.Errorf("interval end: %w", err)
	}
	return Interval{Start: s, End: e}, nil
}
