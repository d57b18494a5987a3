// Package timeline turns the busy intervals of a court into an ordered
// sequence of free and busy blocks covering one calendar day.
package timeline

import (
	"fmt"
	"sort"
	"time"
)

const dateLayout = "2006-01-02"

// Kind labels a block of the day.
type Kind int

const (
	Free Kind = iota
	Busy
)

func (k Kind) String() string {
	if k == Busy {
		return "Busy"
	}
	return "Free"
}

// MarshalText encodes the kind as "free" or "busy".
func (k Kind) MarshalText() ([]byte, error) {
	if k == Busy {
		return []byte("busy"), nil
	}
	return []byte("free"), nil
}

// Interval is a busy range as reported by a calendar. Start may be after End.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Block is a labelled, non-empty range of the day.
type Block struct {
	Kind  Kind
	Start time.Time
	End   time.Time
}

// Day is the window availability is computed against: 00:00:00 through
// 23:59:59 of Date in Location.
type Day struct {
	Date     string
	Start    time.Time
	End      time.Time
	Location *time.Location
}

// ParseDay builds the window for a YYYY-MM-DD date in loc.
// A nil loc means time.Local.
func ParseDay(date string, loc *time.Location) (Day, error) {
	if loc == nil {
		loc = time.Local
	}
	d, err := time.ParseInLocation(dateLayout, date, loc)
	if err != nil {
		return Day{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", date, err)
	}
	return DayOf(d), nil
}

// DayOf returns the window of the calendar day t falls on, in t's location.
func DayOf(t time.Time) Day {
	y, m, d := t.Date()
	loc := t.Location()
	return Day{
		Date:     t.Format(dateLayout),
		Start:    time.Date(y, m, d, 0, 0, 0, 0, loc),
		End:      time.Date(y, m, d, 23, 59, 59, 0, loc),
		Location: loc,
	}
}

// Build sweeps the busy intervals left to right and returns blocks that
// partition [day.Start, day.End] with no gaps and no overlaps. A point is
// Busy iff it falls inside at least one interval clipped to the day.
// Intervals outside the day or with Start >= End contribute nothing, and
// abutting blocks of the same kind are merged.
func Build(day Day, busy []Interval) []Block {
	if !day.Start.Before(day.End) {
		return nil
	}

	sorted := normalize(day, busy)

	var blocks []Block
	cursor := day.Start
	for _, iv := range sorted {
		if cursor.Before(iv.Start) {
			blocks = appendBlock(blocks, Free, cursor, iv.Start)
		}
		busyStart := later(cursor, iv.Start)
		if busyStart.Before(iv.End) {
			blocks = appendBlock(blocks, Busy, busyStart, iv.End)
		}
		// The cursor never moves backward; nested and overlapping
		// intervals collapse here.
		cursor = later(cursor, iv.End)
	}
	if cursor.Before(day.End) {
		blocks = appendBlock(blocks, Free, cursor, day.End)
	}
	return blocks
}

// normalize clips every interval to the day, drops the empty ones and
// sorts the rest by start. Ties keep their input order.
func normalize(day Day, busy []Interval) []Interval {
	out := make([]Interval, 0, len(busy))
	for _, iv := range busy {
		start := later(iv.Start, day.Start)
		end := earlier(iv.End, day.End)
		if !start.Before(end) {
			continue
		}
		out = append(out, Interval{Start: start, End: end})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start.Before(out[j].Start)
	})
	return out
}

func appendBlock(blocks []Block, kind Kind, start, end time.Time) []Block {
	if n := len(blocks); n > 0 && blocks[n-1].Kind == kind && !blocks[n-1].End.Before(start) {
		if end.After(blocks[n-1].End) {
			blocks[n-1].End = end
		}
		return blocks
	}
	return append(blocks, Block{Kind: kind, Start: start, End: end})
}

func later(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func earlier(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
