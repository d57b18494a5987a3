package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"

	"courtbook/internal/auth"
	"courtbook/internal/render"
)

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Sign in with a Google account.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "id-token", Usage: "Use an existing Google ID token instead of the browser flow."},
		},
		Action: func(c *cli.Context) error {
			e, err := newEnv(c)
			if err != nil {
				return err
			}

			var sess *auth.Session
			if raw := c.String("id-token"); raw != "" {
				sess, err = auth.NewSession(strings.TrimSpace(raw), nil)
				if err != nil {
					return err
				}
			} else {
				e.logger.Info("Starting Google authentication flow.")
				config, err := auth.OAuthConfig(e.cfg.GoogleClientID, e.cfg.GoogleClientSecret)
				if err != nil {
					return fmt.Errorf("failed to get google oauth config: %w", err)
				}

				authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
				fmt.Printf("Go to the following link in your browser then type the "+
					"authorization code: \n%v\n", authURL)

				fmt.Print("Enter Authorization Code: ")
				reader := bufio.NewReader(os.Stdin)
				authCode, _ := reader.ReadString('\n')
				authCode = strings.TrimSpace(authCode)

				sess, err = auth.Exchange(c.Context, config, authCode)
				if err != nil {
					return err
				}
			}

			if sess.Expired(time.Now()) {
				return auth.ErrSessionExpired
			}
			if err := sess.Save(e.cfg.SessionFile); err != nil {
				return fmt.Errorf("failed to save session: %w", err)
			}
			e.logger.Info("Session saved.", "file", e.cfg.SessionFile)
			fmt.Printf("Signed in as %s\n", color.New(color.Bold).Sprint(sess.DisplayName()))
			return nil
		},
	}
}

func logoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "Forget the saved session.",
		Action: func(c *cli.Context) error {
			e, err := newEnv(c)
			if err != nil {
				return err
			}
			if err := auth.Remove(e.cfg.SessionFile); err != nil {
				return err
			}
			fmt.Println("Signed out.")
			return nil
		},
	}
}

func whoamiCommand() *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "Show the signed-in account.",
		Action: func(c *cli.Context) error {
			e, err := newEnv(c)
			if err != nil {
				return err
			}
			sess, err := auth.Load(e.cfg.SessionFile)
			if err != nil {
				return err
			}

			if e.json {
				return render.JSON(os.Stdout, map[string]any{
					"email":   sess.Email,
					"name":    sess.Name,
					"expiry":  sess.Expiry,
					"expired": sess.Expired(time.Now()),
				})
			}

			fmt.Printf("Signed in as %s", color.New(color.Bold).Sprint(sess.DisplayName()))
			if sess.Name != "" && sess.Email != "" {
				fmt.Printf(" <%s>", sess.Email)
			}
			fmt.Println()
			switch {
			case sess.Expiry.IsZero():
			case sess.Expired(time.Now()):
				status := "expired"
				if sess.OAuth != nil && sess.OAuth.RefreshToken != "" {
					status += ", will refresh on next request"
				}
				fmt.Printf("ID token %s (%s)\n", status, sess.Expiry.In(e.cfg.Location()).Format(time.RFC1123))
			default:
				fmt.Printf("ID token valid until %s\n", sess.Expiry.In(e.cfg.Location()).Format(time.RFC1123))
			}
			return nil
		},
	}
}
