package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"timeclock/internal/domain"
)

const timeLayout = "2006-01-02 15:04 MST"

func loginCommand(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "log in, creating the account on first use",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "user", Aliases: []string{"u"}, Required: true},
			&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "defaults to the username for new accounts"},
		},
		Action: func(c *cli.Context) error {
			username := c.String("user")
			password := c.String("password")
			if !c.IsSet("password") {
				password = username
			}
			user, err := rt.users.Login(c.Context, username, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "logged in as %s\n", user.Username)
			if !user.HasChangedPassword {
				fmt.Fprintln(c.App.Writer, "you are using the default password, change it with 'timeclock passwd'")
			}
			return nil
		},
	}
}

func logoutCommand(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "forget the current user",
		Action: func(c *cli.Context) error {
			if err := rt.users.Logout(c.Context); err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, "logged out")
			return nil
		},
	}
}

func statusCommand(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "show whether you are clocked in",
		Action: func(c *cli.Context) error {
			user, err := rt.currentUser(c.Context)
			if err != nil {
				return err
			}
			state, err := rt.clock.CurrentState(c.Context, user.ID)
			if err != nil {
				return err
			}
			printState(c.App.Writer, user.Username, state)
			return nil
		},
	}
}

func clockInCommand(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "in",
		Usage: "start a shift",
		Action: func(c *cli.Context) error {
			user, err := rt.currentUser(c.Context)
			if err != nil {
				return err
			}
			rec, err := rt.clock.ClockIn(c.Context, user.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "clocked in at %s\n", rec.ClockIn.Format(timeLayout))
			return nil
		},
	}
}

func clockOutCommand(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "out",
		Usage: "end the open shift",
		Action: func(c *cli.Context) error {
			user, err := rt.currentUser(c.Context)
			if err != nil {
				return err
			}
			rec, err := rt.clock.ClockOut(c.Context, user.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "clocked out at %s after %.2f hours\n", rec.ClockOut.Format(timeLayout), rec.Hours())
			return nil
		},
	}
}

func toggleCommand(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "toggle",
		Usage: "clock in or out, whichever applies",
		Action: func(c *cli.Context) error {
			user, err := rt.currentUser(c.Context)
			if err != nil {
				return err
			}
			if _, _, err := rt.clock.Toggle(c.Context, user.ID); err != nil {
				return err
			}
			state, err := rt.clock.CurrentState(c.Context, user.ID)
			if err != nil {
				return err
			}
			printState(c.App.Writer, user.Username, state)
			return nil
		},
	}
}

func summaryCommand(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "summary",
		Usage: "hours and estimated pay for the last seven days",
		Action: func(c *cli.Context) error {
			user, err := rt.currentUser(c.Context)
			if err != nil {
				return err
			}
			summary, err := rt.summaries.WeeklySummary(c.Context, user.ID)
			if err != nil {
				return err
			}

			w := c.App.Writer
			fmt.Fprintf(w, "%s to %s\n", summary.WindowStart.Format(domain.DateLayout), summary.WindowEnd.Format(domain.DateLayout))
			printRecords(w, summary.Records)
			fmt.Fprintf(w, "total: %.2f hours at %.2f/h = %.2f\n", summary.TotalHours, summary.HourlyRate, summary.EstimatedPay)
			return nil
		},
	}
}

func averageCommand(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "average",
		Usage: "average hours per worked calendar week",
		Action: func(c *cli.Context) error {
			user, err := rt.currentUser(c.Context)
			if err != nil {
				return err
			}
			avg, err := rt.summaries.WeeklyAverage(c.Context, user.ID)
			if err != nil {
				return err
			}
			if avg.Weeks == 0 {
				fmt.Fprintln(c.App.Writer, "no completed shifts yet")
				return nil
			}
			fmt.Fprintf(c.App.Writer, "%.2f hours/week over %d weeks, estimated pay %.2f/week\n", avg.AverageHours, avg.Weeks, avg.AveragePay)
			return nil
		},
	}
}

func recordsCommand(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "records",
		Usage: "list every shift",
		Action: func(c *cli.Context) error {
			user, err := rt.currentUser(c.Context)
			if err != nil {
				return err
			}
			records, err := rt.clock.TimeRecords(c.Context, user.ID)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(c.App.Writer, "no shifts recorded")
				return nil
			}
			printRecords(c.App.Writer, records)
			return nil
		},
	}
}

func passwdCommand(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "passwd",
		Usage: "change your password",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Required: true},
		},
		Action: func(c *cli.Context) error {
			user, err := rt.currentUser(c.Context)
			if err != nil {
				return err
			}
			if _, err := rt.users.UpdateUserPassword(c.Context, user.ID, c.String("password")); err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, "password updated")
			return nil
		},
	}
}

func rateCommand(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:      "rate",
		Usage:     "show or set your hourly rate",
		ArgsUsage: "[RATE]",
		Action: func(c *cli.Context) error {
			user, err := rt.currentUser(c.Context)
			if err != nil {
				return err
			}
			if c.NArg() == 0 {
				fmt.Fprintf(c.App.Writer, "hourly rate: %.2f\n", user.HourlyRate)
				return nil
			}

			rate, err := strconv.ParseFloat(c.Args().First(), 64)
			if err != nil {
				return fmt.Errorf("%w: rate must be a number", domain.ErrInvalidInput)
			}
			updated, err := rt.users.UpdateHourlyRate(c.Context, user.ID, rate)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "hourly rate: %.2f\n", updated.HourlyRate)
			return nil
		},
	}
}

func usersCommand(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "users",
		Usage: "list accounts",
		Action: func(c *cli.Context) error {
			users, err := rt.users.GetUsers(c.Context)
			if err != nil {
				return err
			}
			for _, u := range users {
				fmt.Fprintf(c.App.Writer, "%s\t%.2f/h\t%d shifts\n", u.Username, u.HourlyRate, len(u.TimeRecords))
			}
			return nil
		},
	}
}

func backupCommand(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "backup",
		Usage: "upload a snapshot, or list snapshots with --list",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "list", Aliases: []string{"l"}},
		},
		Action: func(c *cli.Context) error {
			if rt.backups == nil {
				return errBackupsDisabled
			}
			if c.Bool("list") {
				objects, err := rt.backups.List(c.Context)
				if err != nil {
					return err
				}
				for _, obj := range objects {
					fmt.Fprintf(c.App.Writer, "%s\t%d\n", obj.Key, obj.Size)
				}
				return nil
			}

			location, err := rt.backups.BackupNow(c.Context)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "uploaded %s\n", location)
			return nil
		},
	}
}

func restoreCommand(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:      "restore",
		Usage:     "replace all local data with a snapshot",
		ArgsUsage: "KEY",
		Action: func(c *cli.Context) error {
			if rt.backups == nil {
				return errBackupsDisabled
			}
			if c.NArg() != 1 {
				return fmt.Errorf("%w: expected one snapshot key", domain.ErrInvalidInput)
			}
			if err := rt.backups.Restore(c.Context, c.Args().First()); err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "restored %s\n", c.Args().First())
			return nil
		},
	}
}

func printState(w io.Writer, username string, state domain.ClockState) {
	if state.IsClockedIn && state.LastClockIn != nil {
		fmt.Fprintf(w, "%s is clocked in since %s\n", username, state.LastClockIn.Format(timeLayout))
		return
	}
	fmt.Fprintf(w, "%s is clocked out\n", username)
}

func printRecords(w io.Writer, records []domain.TimeRecord) {
	for _, rec := range records {
		out := "open"
		if rec.ClockOut != nil {
			out = rec.ClockOut.UTC().Format(time.TimeOnly)
		}
		fmt.Fprintf(w, "%s  %s - %-8s  %5.2fh\n", rec.Date, rec.ClockIn.UTC().Format(time.TimeOnly), out, rec.Hours())
	}
	if len(records) > 0 {
		fmt.Fprintln(w, strings.Repeat("-", 36))
	}
}
