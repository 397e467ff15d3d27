// Package app holds the wiring shared by the server and the command line tool.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"

	"timeclock/internal/backup"
	"timeclock/internal/config"
	"timeclock/internal/events"
	"timeclock/internal/repository"
	"timeclock/internal/storage"
)

// SetLogLevel applies a textual level, keeping the current one when it does not parse.
func SetLogLevel(logger *logrus.Logger, level string) {
	level = strings.TrimSpace(level)
	if level == "" {
		return
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		logger.Warnf("unknown log level %q, keeping %s", level, logger.GetLevel())
		return
	}
	logger.SetLevel(parsed)
}

// BuildPublisher connects to NATS when a URL is configured.
func BuildPublisher(cfg config.Config, logger *logrus.Logger) (events.Publisher, error) {
	url := strings.TrimSpace(cfg.Events.NATSURL)
	if url == "" {
		return events.NopPublisher{}, nil
	}
	pub, err := events.NewNATSPublisher(url, cfg.Events.SubjectPrefix, logger)
	if err != nil {
		return nil, err
	}
	logger.Infof("publishing shift events to %s", url)
	return pub, nil
}

// BuildBackups returns nil when no bucket is configured.
func BuildBackups(ctx context.Context, cfg config.Config, store repository.RecordStore, logger *logrus.Logger) (backup.Manager, error) {
	if !cfg.BackupsEnabled() {
		return nil, nil
	}

	storageSvc, err := buildStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	return backup.NewManager(backup.Config{
		Bucket:    cfg.Storage.Bucket,
		KeyPrefix: cfg.Storage.KeyPrefix,
		Interval:  time.Duration(cfg.Backup.IntervalSeconds) * time.Second,
		Retain:    cfg.Backup.Retain,
		Logger:    logger,
	}, store, storageSvc), nil
}

func buildStorage(ctx context.Context, cfg config.Config, logger *logrus.Logger) (storage.Service, error) {
	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Storage.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Infof("using s3 bucket %s (region %s)", cfg.Storage.Bucket, cfg.Storage.Region)
	return storage.NewS3Service(client), nil
}
