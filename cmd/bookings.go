package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"courtbook/internal/booking"
	"courtbook/internal/models"
	"courtbook/internal/render"
)

func courtFlag() *cli.StringFlag {
	return &cli.StringFlag{Name: "court", Aliases: []string{"c"}, Required: true, Usage: "Court (calendar) name."}
}

func courtsCommand() *cli.Command {
	return &cli.Command{
		Name:  "courts",
		Usage: "List the courts you can book.",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "direct", Usage: "List calendars straight from Google Calendar."},
		},
		Action: func(c *cli.Context) error {
			e, err := newEnv(c)
			if err != nil {
				return err
			}

			var cals []models.Calendar
			if c.Bool("direct") {
				gc, err := e.googleClient(c.Context)
				if err != nil {
					return err
				}
				cals, err = gc.DiscoverCalendars(c.Context)
				if err != nil {
					return err
				}
			} else {
				client, err := e.bookingClient(c.Context)
				if err != nil {
					return err
				}
				cals, err = client.ListCalendars(c.Context)
				if err != nil {
					return err
				}
			}

			if e.json {
				return render.JSON(os.Stdout, cals)
			}
			render.Calendars(os.Stdout, cals)
			return nil
		},
	}
}

func bookingsCommand() *cli.Command {
	return &cli.Command{
		Name:  "bookings",
		Usage: "List the bookings of a court.",
		Flags: []cli.Flag{
			courtFlag(),
			&cli.StringFlag{Name: "from", Usage: "First day, YYYY-MM-DD."},
			&cli.StringFlag{Name: "to", Usage: "Last day, YYYY-MM-DD."},
			&cli.StringFlag{Name: "page-token", Usage: "Continue a previous listing."},
			&cli.BoolFlag{Name: "all", Usage: "Fetch every page."},
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
			q := booking.EventQuery{From: c.String("from"), To: c.String("to"), PageToken: c.String("page-token")}
			var page *booking.EventsPage
			if c.Bool("all") {
				page, err = client.FindAllEvents(c.Context, court, q)
			} else {
				page, err = client.FindEvents(c.Context, court, q)
			}
			if err != nil {
				return err
			}

			if e.json {
				return render.JSON(os.Stdout, page)
			}
			render.Bookings(os.Stdout, page.Events, render.BookingsOptions{
				Viewer:        render.Viewer{Email: page.UserEmail, IsAdmin: page.IsAdmin},
				BlockedMarker: e.cfg.BlockedMarker,
				Location:      e.cfg.Location(),
				Filtered:      q.From != "" || q.To != "",
			})
			if page.NextPageToken != "" {
				fmt.Printf("\nMore bookings available, continue with --page-token %s\n", page.NextPageToken)
			}
			return nil
		},
	}
}

func bookCommand() *cli.Command {
	return &cli.Command{
		Name:  "book",
		Usage: "Book a court, once or repeatedly.",
		Flags: []cli.Flag{
			courtFlag(),
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Required: true},
			&cli.StringFlag{Name: "start", Required: true, Usage: "YYYY-MM-DDTHH:MM"},
			&cli.StringFlag{Name: "end", Required: true, Usage: "YYYY-MM-DDTHH:MM"},
			&cli.StringFlag{Name: "description"},
			&cli.StringFlag{Name: "frequency", Value: string(booking.Once), Usage: "none, daily, weekly or monthly"},
			&cli.StringFlag{Name: "until", Usage: "Last day of a recurring booking, YYYY-MM-DD."},
			&cli.StringSliceFlag{Name: "day", Usage: "Weekday of a weekly booking (MO, TU, ...), repeatable."},
		},
		Action: func(c *cli.Context) error {
			e, err := newEnv(c)
			if err != nil {
				return err
			}
			start, err := e.parseDateTime("start", c.String("start"))
			if err != nil {
				return err
			}
			end, err := e.parseDateTime("end", c.String("end"))
			if err != nil {
				return err
			}

			nb := booking.NewBooking{
				Title:       c.String("title"),
				Description: c.String("description"),
				Start:       start,
				End:         end,
				Frequency:   booking.Frequency(c.String("frequency")),
				Until:       c.String("until"),
				Weekdays:    c.StringSlice("day"),
			}
			// Fail before asking for a session.
			if err := nb.Validate(); err != nil {
				return err
			}

			client, err := e.bookingClient(c.Context)
			if err != nil {
				return err
			}
			res, err := client.CreateEvent(c.Context, c.String("court"), nb)
			if err != nil {
				return err
			}

			if e.json {
				if err := render.JSON(os.Stdout, res); err != nil {
					return err
				}
			} else {
				if res.Message != "" {
					fmt.Println(res.Message)
				}
				render.ConflictReport(os.Stdout, res.Skipped, e.cfg.Location())
			}
			if res.Failed() {
				return errors.New("no booking was created, every occurrence conflicts with an existing booking")
			}
			e.logger.Info("Booking created.", "court", c.String("court"), "created", res.CreatedCount, "skipped", res.SkippedCount)
			return nil
		},
	}
}

func rescheduleCommand() *cli.Command {
	return &cli.Command{
		Name:  "reschedule",
		Usage: "Move a booking to a new time.",
		Flags: []cli.Flag{
			courtFlag(),
			&cli.StringFlag{Name: "id", Required: true, Usage: "Booking ID."},
			&cli.StringFlag{Name: "start", Required: true, Usage: "YYYY-MM-DDTHH:MM"},
			&cli.StringFlag{Name: "end", Required: true, Usage: "YYYY-MM-DDTHH:MM"},
			&cli.StringFlag{Name: "title", Usage: "New title, kept when empty."},
			&cli.StringFlag{Name: "description", Usage: "New description, kept when empty."},
		},
		Action: func(c *cli.Context) error {
			e, err := newEnv(c)
			if err != nil {
				return err
			}
			start, err := e.parseDateTime("start", c.String("start"))
			if err != nil {
				return err
			}
			end, err := e.parseDateTime("end", c.String("end"))
			if err != nil {
				return err
			}
			r := booking.Reschedule{Title: c.String("title"), Description: c.String("description"), Start: start, End: end}
			if err := r.Validate(); err != nil {
				return err
			}

			client, err := e.bookingClient(c.Context)
			if err != nil {
				return err
			}
			court, id := c.String("court"), c.String("id")

			ev, page, err := client.LookupEvent(c.Context, court, id, booking.EventQuery{})
			if err != nil {
				return err
			}
			if ev != nil {
				viewer := render.Viewer{Email: page.UserEmail, IsAdmin: page.IsAdmin}
				if ev.IsRecurring() {
					return booking.ErrRecurringReschedule
				}
				if !render.CanReschedule(ev, viewer, e.cfg.BlockedMarker) {
					return fmt.Errorf("booking %s cannot be changed by %s", id, page.UserEmail)
				}
			} else {
				e.logger.Debug("Booking not among upcoming bookings, letting the service decide", "id", id)
			}

			msg, err := client.UpdateEvent(c.Context, court, id, r)
			if err != nil {
				return err
			}
			if e.json {
				return render.JSON(os.Stdout, map[string]string{"message": msg})
			}
			fmt.Println(msg)
			return nil
		},
	}
}

func cancelCommand() *cli.Command {
	return &cli.Command{
		Name:  "cancel",
		Usage: "Cancel a booking or part of a series.",
		Flags: []cli.Flag{
			courtFlag(),
			&cli.StringFlag{Name: "id", Required: true, Usage: "Booking ID."},
			&cli.StringFlag{Name: "scope", Usage: "For recurring bookings: this_event, future_events or all_events."},
		},
		Action: func(c *cli.Context) error {
			e, err := newEnv(c)
			if err != nil {
				return err
			}
			var scope booking.Scope
			if s := c.String("scope"); s != "" {
				if scope, err = booking.ParseScope(s); err != nil {
					return err
				}
			}

			client, err := e.bookingClient(c.Context)
			if err != nil {
				return err
			}
			court, id := c.String("court"), c.String("id")

			ev, page, err := client.LookupEvent(c.Context, court, id, booking.EventQuery{})
			if err != nil {
				return err
			}
			recurring := scope != ""
			if ev != nil {
				viewer := render.Viewer{Email: page.UserEmail, IsAdmin: page.IsAdmin}
				if !render.CanManage(ev, viewer, e.cfg.BlockedMarker) {
					return fmt.Errorf("booking %s cannot be cancelled by %s", id, page.UserEmail)
				}
				recurring = ev.IsRecurring()
				if recurring && scope == "" {
					return fmt.Errorf("booking %s is part of a series, pass --scope this_event, future_events or all_events", id)
				}
				if !recurring && scope != "" {
					e.logger.Warn("Booking is not recurring, ignoring --scope", "id", id)
				}
			}

			var msg string
			if recurring {
				msg, err = client.DeleteRecurringEvent(c.Context, court, id, scope)
			} else {
				msg, err = client.DeleteEvent(c.Context, court, id)
			}
			if err != nil {
				return err
			}
			if e.json {
				return render.JSON(os.Stdout, map[string]string{"message": msg})
			}
			fmt.Println(msg)
			return nil
		},
	}
}
