// Package cli is the command line front end. It works directly on the local
// sqlite store and treats the cached session as the current user.
package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"timeclock/internal/app"
	"timeclock/internal/backup"
	"timeclock/internal/config"
	"timeclock/internal/domain"
	"timeclock/internal/events"
	"timeclock/internal/repository/sqlite"
	"timeclock/internal/service"
)

var errBackupsDisabled = errors.New("backups are not configured, set TIMECLOCK_STORAGE_BUCKET")

type runtime struct {
	db        *sql.DB
	publisher events.Publisher
	users     service.UserService
	clock     service.ClockService
	summaries service.SummaryService
	backups   backup.Manager
}

func (rt *runtime) open(c *cli.Context, logger *logrus.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if path := strings.TrimSpace(c.String("db")); path != "" {
		cfg.Database.Path = path
	}
	level := cfg.Log.Level
	if c.IsSet("log-level") {
		level = c.String("log-level")
	}
	app.SetLogLevel(logger, level)

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	rt.db = db

	store := sqlite.NewRecordStore(db)
	if err := store.Init(c.Context); err != nil {
		return fmt.Errorf("init record store: %w", err)
	}

	publisher, err := app.BuildPublisher(cfg, logger)
	if err != nil {
		return err
	}
	rt.publisher = publisher

	backups, err := app.BuildBackups(c.Context, cfg, store, logger)
	if err != nil {
		return err
	}
	rt.backups = backups

	ledger := service.NewLedger(store, logger)
	rt.users = service.NewUserService(ledger, store, cfg.Users.DefaultHourlyRate, logger)
	rt.clock = service.NewClockService(ledger, publisher, logger)
	rt.summaries = service.NewSummaryService(ledger)
	return nil
}

func (rt *runtime) close() error {
	if rt.publisher != nil {
		rt.publisher.Close()
	}
	if rt.db != nil {
		return rt.db.Close()
	}
	return nil
}

// currentUser resolves the cached session and re-reads the user so that
// later commands see fresh data.
func (rt *runtime) currentUser(ctx context.Context) (*domain.User, error) {
	session, err := rt.users.CurrentSession(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNoSession) {
			return nil, errors.New("not logged in, run 'timeclock login' first")
		}
		return nil, err
	}
	return rt.users.GetByID(ctx, session.ID)
}

// NewApp builds the timeclock command tree.
func NewApp(logger *logrus.Logger) *cli.App {
	if logger == nil {
		logger = logrus.New()
	}
	rt := &runtime{}

	return &cli.App{
		Name:  "timeclock",
		Usage: "personal time clock",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "db",
				Usage: "path to the sqlite database (overrides TIMECLOCK_DATABASE_PATH)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "logrus level",
			},
		},
		Before: func(c *cli.Context) error {
			return rt.open(c, logger)
		},
		After: func(*cli.Context) error {
			return rt.close()
		},
		Commands: []*cli.Command{
			loginCommand(rt),
			logoutCommand(rt),
			statusCommand(rt),
			clockInCommand(rt),
			clockOutCommand(rt),
			toggleCommand(rt),
			summaryCommand(rt),
			averageCommand(rt),
			recordsCommand(rt),
			passwdCommand(rt),
			rateCommand(rt),
			usersCommand(rt),
			backupCommand(rt),
			restoreCommand(rt),
		},
	}
}
