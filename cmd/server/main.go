package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"timeclock/internal/app"
	"timeclock/internal/config"
	apphttp "timeclock/internal/http"
	"timeclock/internal/repository/sqlite"
	"timeclock/internal/service"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	app.SetLogLevel(logger, cfg.Log.Level)

	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		logger.Fatalf("auth jwt secret is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer db.Close()

	store := sqlite.NewRecordStore(db)
	if err := store.Init(ctx); err != nil {
		logger.Fatalf("init record store: %v", err)
	}

	publisher, err := app.BuildPublisher(cfg, logger)
	if err != nil {
		logger.Fatalf("setup events: %v", err)
	}
	defer publisher.Close()

	ledger := service.NewLedger(store, logger)
	userService := service.NewUserService(ledger, store, cfg.Users.DefaultHourlyRate, logger)
	clockService := service.NewClockService(ledger, publisher, logger)
	summaryService := service.NewSummaryService(ledger)

	backups, err := app.BuildBackups(ctx, cfg, store, logger)
	if err != nil {
		logger.Fatalf("setup backups: %v", err)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler := apphttp.NewHandler(
		userService,
		clockService,
		summaryService,
		backups,
		apphttp.NewTokenIssuer(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLMinutes)*time.Minute),
		logger,
	)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if backups != nil {
		g.Go(func() error {
			return backups.Run(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warnf("http shutdown: %v", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Errorf("server stopped: %v", err)
	}
	logger.Info("bye")
}
