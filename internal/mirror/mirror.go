// Package mirror copies a court's bookings into a CalDAV calendar.
package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"courtbook/internal/booking"
	"courtbook/internal/caldav"
	"courtbook/internal/models"
)

// Entry records where a booking was mirrored to.
type Entry struct {
	Court   string    `json:"court"`
	UID     string    `json:"uid"`
	Start   time.Time `json:"start"`
	Updated time.Time `json:"updated"`
}

// State keeps track of which bookings have been mirrored, keyed by booking
// ID.
type State map[string]Entry

// BookingSource lists a court's bookings.
type BookingSource interface {
	FindAllEvents(ctx context.Context, calendarID string, q booking.EventQuery) (*booking.EventsPage, error)
}

// CalendarWriter stores calendar objects.
type CalendarWriter interface {
	PutEvent(ctx context.Context, event *models.Event, uid string) error
	DeleteEvent(ctx context.Context, uid string) error
}

// Report summarizes one sync cycle.
type Report struct {
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Deleted   int `json:"deleted"`
	Unchanged int `json:"unchanged"`
	Failed    int `json:"failed"`
}

// Mirror orchestrates the copy from the booking service to CalDAV.
type Mirror struct {
	logger    *slog.Logger
	source    BookingSource
	target    CalendarWriter
	statePath string
	state     State
	dryRun    bool
	location  *time.Location
}

// New creates a Mirror, loading state from statePath.
func New(logger *slog.Logger, source BookingSource, target CalendarWriter, statePath string, dryRun bool, loc *time.Location) (*Mirror, error) {
	state, err := loadState(statePath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load mirror state: %w", err)
		}
		logger.Info("No mirror state file found, starting fresh.", "file", statePath)
		state = make(State)
	}
	if loc == nil {
		loc = time.Local
	}
	return &Mirror{
		logger:    logger,
		source:    source,
		target:    target,
		statePath: statePath,
		state:     state,
		dryRun:    dryRun,
		location:  loc,
	}, nil
}

// State returns the current mirror state.
func (m *Mirror) State() State {
	return m.state
}

// Sync performs a full cycle for court between the YYYY-MM-DD dates from
// and to. Bookings mirrored earlier in that range that no longer exist are
// removed.
func (m *Mirror) Sync(ctx context.Context, court, from, to string) (Report, error) {
	var report Report
	m.logger.Info("Starting mirror cycle.", "court", court, "from", from, "to", to)

	page, err := m.source.FindAllEvents(ctx, court, booking.EventQuery{From: from, To: to})
	if err != nil {
		return report, fmt.Errorf("failed to fetch bookings: %w", err)
	}
	m.logger.Info("Fetched bookings.", "count", len(page.Events))

	seen := make(map[string]bool, len(page.Events))
	for i := range page.Events {
		event := &page.Events[i]
		if event.Status == "cancelled" {
			continue
		}
		seen[event.ID] = true

		changed, err := m.syncEvent(ctx, court, event)
		switch {
		case err != nil:
			// Continue with the next booking even if one fails.
			m.logger.Error("Failed to mirror booking", "title", event.Title, "id", event.ID, "error", err)
			report.Failed++
		case changed == created:
			report.Created++
		case changed == updated:
			report.Updated++
		default:
			report.Unchanged++
		}
	}

	lo, hi, err := window(from, to, m.location)
	if err != nil {
		return report, err
	}
	for id, entry := range m.state {
		if entry.Court != court || seen[id] || !inWindow(entry.Start, lo, hi) {
			continue
		}
		if m.dryRun {
			m.logger.Info("[DRY RUN] Would remove mirrored booking", "id", id, "uid", entry.UID)
			report.Deleted++
			continue
		}
		if err := m.target.DeleteEvent(ctx, entry.UID); err != nil {
			m.logger.Error("Failed to remove mirrored booking", "id", id, "error", err)
			report.Failed++
			continue
		}
		m.logger.Info("Removed mirrored booking", "id", id, "uid", entry.UID)
		delete(m.state, id)
		report.Deleted++
	}

	if !m.dryRun {
		if err := m.saveState(); err != nil {
			return report, err
		}
	}

	m.logger.Info("Mirror cycle finished.", "created", report.Created, "updated", report.Updated,
		"deleted", report.Deleted, "unchanged", report.Unchanged, "failed", report.Failed)
	return report, nil
}

type change int

const (
	unchanged change = iota
	created
	updated
)

// syncEvent handles the logic for mirroring a single booking.
func (m *Mirror) syncEvent(ctx context.Context, court string, event *models.Event) (change, error) {
	entry, exists := m.state[event.ID]
	if exists && !event.Updated.After(entry.Updated) {
		m.logger.Debug("Booking already mirrored, skipping.", "title", event.Title, "id", event.ID)
		return unchanged, nil
	}

	kind := created
	uid := caldav.UIDFor(event.ID)
	if exists {
		kind = updated
		uid = entry.UID
	}

	event.StartTime = event.StartTime.In(m.location)
	event.EndTime = event.EndTime.In(m.location)

	if m.dryRun {
		m.logger.Info("[DRY RUN] Would write booking", "title", event.Title, "startTime", event.StartTime, "update", exists)
		return kind, nil
	}

	if err := m.target.PutEvent(ctx, event, uid); err != nil {
		return unchanged, err
	}
	m.state[event.ID] = Entry{Court: court, UID: uid, Start: event.StartTime, Updated: event.Updated}
	m.logger.Info("Mirrored booking", "title", event.Title, "id", event.ID, "update", exists)
	return kind, nil
}

// window converts the date filters to a half-open time range. Empty bounds
// are open.
func window(from, to string, loc *time.Location) (time.Time, time.Time, error) {
	var lo, hi time.Time
	if from != "" {
		t, err := time.ParseInLocation("2006-01-02", from, loc)
		if err != nil {
			return lo, hi, fmt.Errorf("invalid from date: %w", err)
		}
		lo = t
	}
	if to != "" {
		t, err := time.ParseInLocation("2006-01-02", to, loc)
		if err != nil {
			return lo, hi, fmt.Errorf("invalid to date: %w", err)
		}
		hi = t.AddDate(0, 0, 1)
	}
	return lo, hi, nil
}

func inWindow(t, lo, hi time.Time) bool {
	if !lo.IsZero() && t.Before(lo) {
		return false
	}
	if !hi.IsZero() && !t.Before(hi) {
		return false
	}
	return true
}

// loadState loads the mirror state from the JSON file.
func loadState(path string) (State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	state := make(State)
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	return state, nil
}

// saveState saves the current mirror state to the JSON file.
func (m *Mirror) saveState() error {
	data, err := json.MarshalIndent(m.state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal mirror state: %w", err)
	}
	if dir := filepath.Dir(m.statePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create state directory: %w", err)
		}
	}
	if err := os.WriteFile(m.statePath, data, 0o644); err != nil {
		return fmt.Errorf("failed to save mirror state: %w", err)
	}
	return nil
}
