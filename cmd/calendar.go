package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"courtbook/internal/booking"
	"courtbook/internal/caldav"
	"courtbook/internal/mirror"
	"courtbook/internal/render"
	"courtbook/internal/timeline"
)

// busySource is anything that can report a court's busy intervals for a day.
type busySource interface {
	BusyIntervals(ctx context.Context, calendarID string, day timeline.Day) ([]timeline.Interval, error)
}

func availabilityCommand() *cli.Command {
	return &cli.Command{
		Name:  "availability",
		Usage: "Show the free and busy blocks of a court for one day.",
		Flags: []cli.Flag{
			courtFlag(),
			&cli.StringFlag{Name: "date", Aliases: []string{"d"}, Usage: "Day to check, YYYY-MM-DD. Defaults to today."},
			&cli.BoolFlag{Name: "direct", Usage: "Ask Google Calendar instead of the booking service."},
			&cli.StringFlag{Name: "ics", Usage: "Also write the timeline as a VFREEBUSY file."},
		},
		Action: func(c *cli.Context) error {
			e, err := newEnv(c)
			if err != nil {
				return err
			}
			court := c.String("court")
			date := c.String("date")
			if date == "" {
				date = e.today()
			}
			day, err := timeline.ParseDay(date, e.cfg.Location())
			if err != nil {
				return err
			}

			var src busySource
			calendarID := court
			if c.Bool("direct") {
				if calendarID, err = e.directCalendarID(court); err != nil {
					return err
				}
				src, err = e.googleClient(c.Context)
			} else {
				src, err = e.bookingClient(c.Context)
			}
			if err != nil {
				return err
			}

			busy, err := src.BusyIntervals(c.Context, calendarID, day)
			if err != nil {
				return err
			}
			blocks := timeline.Build(day, busy)
			entries := timeline.Format(blocks, day.Location)
			e.logger.Debug("Built timeline", "court", court, "date", date, "busy", len(busy), "blocks", len(blocks))

			if path := c.String("ics"); path != "" {
				if err := writeFile(path, func(w io.Writer) error {
					return caldav.WriteFreeBusy(w, court, day, blocks)
				}); err != nil {
					return err
				}
				e.logger.Info("Wrote free/busy file.", "file", path)
			}

			if e.json {
				return render.JSON(os.Stdout, map[string]any{
					"court":  court,
					"date":   day.Date,
					"blocks": entries,
				})
			}
			render.Timeline(os.Stdout, court, day, entries)
			return nil
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Write a court's bookings to an .ics file.",
		Flags: []cli.Flag{
			courtFlag(),
			&cli.StringFlag{Name: "from", Usage: "First day, YYYY-MM-DD."},
			&cli.StringFlag{Name: "to", Usage: "Last day, YYYY-MM-DD."},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: "-", Usage: "Output file, - for stdout."},
		},
		Action: func(c *cli.Context) error {
			e, err := newEnv(c)
			if err != nil {
				return err
			}
			client, err := e.bookingClient(c.Context)
			if err != nil {
				return err
			}
			court := c.String("court")
			page, err := client.FindAllEvents(c.Context, court, booking.EventQuery{From: c.String("from"), To: c.String("to")})
			if err != nil {
				return err
			}

			out := c.String("out")
			if err := writeFile(out, func(w io.Writer) error {
				return caldav.WriteICS(w, page.Events)
			}); err != nil {
				return err
			}
			e.logger.Info("Exported bookings.", "court", court, "count", len(page.Events), "file", out)
			return nil
		},
	}
}

func mirrorCommand() *cli.Command {
	return &cli.Command{
		Name:  "mirror",
		Usage: "Copy a court's bookings into a CalDAV calendar.",
		Flags: []cli.Flag{
			courtFlag(),
			&cli.StringFlag{Name: "from", Usage: "First day, YYYY-MM-DD. Defaults to today."},
			&cli.StringFlag{Name: "to", Usage: "Last day, YYYY-MM-DD."},
			&cli.BoolFlag{Name: "dry-run", Usage: "Log what would be mirrored without making changes."},
			&cli.IntFlag{Name: "watch", Value: 300, Usage: "Run every N seconds."},
		},
		Action: func(c *cli.Context) error {
			e, err := newEnv(c)
			if err != nil {
				return err
			}
			logger := e.logger
			if c.Bool("dry-run") {
				logger.Info("Performing a dry run. No changes will be made.")
			}

			client, err := e.bookingClient(c.Context)
			if err != nil {
				return err
			}
			target, err := caldav.NewClient(c.Context, logger, caldav.Options{
				Endpoint:     e.cfg.CalDAVEndpoint,
				Username:     e.cfg.CalDAVUsername,
				Password:     e.cfg.CalDAVPassword,
				CalendarName: e.cfg.CalDAVCalendar,
			})
			if err != nil {
				return fmt.Errorf("failed to create caldav client: %w", err)
			}

			m, err := mirror.New(logger, client, target, e.cfg.MirrorState, c.Bool("dry-run"), e.cfg.Location())
			if err != nil {
				return fmt.Errorf("failed to create mirror: %w", err)
			}

			court, from, to := c.String("court"), c.String("from"), c.String("to")
			if from == "" {
				from = e.today()
			}

			// --watch keeps mirroring until interrupted
			if c.IsSet("watch") {
				interval := time.Duration(c.Int("watch")) * time.Second
				if interval <= 0 {
					return fmt.Errorf("--watch must be a positive number of seconds")
				}
				logger.Info("Starting watcher.", "interval", interval)
				ticker := time.NewTicker(interval)
				defer ticker.Stop()
				for {
					if _, err := m.Sync(c.Context, court, from, to); err != nil {
						logger.Error("Mirror cycle failed", "error", err)
					}
					select {
					case <-c.Context.Done():
						logger.Info("Watcher stopped.")
						return nil
					case <-ticker.C:
					}
				}
			}

			logger.Info("Running a single mirror cycle.")
			report, err := m.Sync(c.Context, court, from, to)
			if err != nil {
				return fmt.Errorf("mirror cycle failed: %w", err)
			}
			if e.json {
				return render.JSON(os.Stdout, report)
			}
			fmt.Printf("Created %d, updated %d, removed %d, unchanged %d, failed %d.\n",
				report.Created, report.Updated, report.Deleted, report.Unchanged, report.Failed)
			return nil
		},
	}
}

// directCalendarID maps a court name to its Google calendar ID. Raw calendar
// IDs pass through; other names must be configured in COURTBOOK_COURTS.
func (e *env) directCalendarID(court string) (string, error) {
	id := e.cfg.CalendarID(court)
	if id != court || strings.Contains(court, "@") {
		return id, nil
	}
	names := e.cfg.CourtNames()
	if len(names) == 0 {
		return "", fmt.Errorf("unknown court %q, set COURTBOOK_COURTS or pass a calendar ID", court)
	}
	return "", fmt.Errorf("unknown court %q, configured courts: %s", court, strings.Join(names, ", "))
}

// writeFile runs write against path, or stdout when path is "-".
func writeFile(path string, write func(io.Writer) error) error {
	if path == "-" {
		return write(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
