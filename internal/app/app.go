// Package app assembles the processing pipeline from configuration. It is
// shared by the HTTP server and the batch CLI.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"epcsync/internal/catalog"
	"epcsync/internal/config"
	"epcsync/internal/convert"
	"epcsync/internal/extractor"
	"epcsync/internal/fingerprint"
	"epcsync/internal/jobs"
	"epcsync/internal/llm/providers"
	"epcsync/internal/port"
	"epcsync/internal/repository/file"
	"epcsync/internal/repository/postgres"
	"epcsync/internal/retry"
	"epcsync/internal/service"
	s3storage "epcsync/internal/storage/s3"
)

// App holds the wired components.
type App struct {
	Tracker  *fingerprint.Tracker
	Registry *jobs.Registry
	Pipeline *service.Pipeline
	Storage  port.ObjectStorage
	DB       *sqlx.DB
}

// Build wires every component from cfg. registry may be nil for batch runs.
func Build(ctx context.Context, cfg *config.Config, registry *jobs.Registry) (*App, error) {
	a := &App{Registry: registry}

	repo, err := a.recordRepo(cfg)
	if err != nil {
		return nil, err
	}
	a.Tracker = fingerprint.NewTracker(repo)

	providers.RegisterAll()
	model, err := providers.Build(&cfg.Model)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("building model client: %w", err)
	}

	ext, err := extractor.New(model, extractor.Config{
		MaxAttempts:        cfg.Model.ExtractionAttempts,
		TransportRetries:   cfg.Model.TransportRetries,
		TransportBaseDelay: cfg.Model.TransportBaseDelay,
		TransportMaxDelay:  cfg.Model.TransportMaxDelay,
		AllowEmptyGroups:   cfg.Pipeline.AllowEmptyGroups,
		PromptSuffix:       cfg.Model.CustomPrompt,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	timeout := time.Duration(cfg.Catalog.TimeoutSecs) * time.Second
	client := catalog.NewClient(cfg.Catalog.BaseURL, catalog.NewTokenSource(&cfg.Catalog), retry.Backoff{
		Base:     cfg.Catalog.BaseDelay,
		Max:      cfg.Catalog.MaxDelay,
		Attempts: cfg.Catalog.MaxAttempts,
	}, timeout)
	submitter := catalog.NewSubmitter(client, catalog.SubmitterConfig{
		GroupEntity:        cfg.Catalog.GroupEntity,
		EntryEntity:        cfg.Catalog.EntryEntity,
		MasterCategoryID:   cfg.Catalog.MasterCategoryID,
		MasterCategoryName: cfg.Catalog.MasterCategoryName,
		CreateEmptyGroups:  cfg.Catalog.CreateEmptyGroups,
	})

	a.Pipeline = service.NewPipeline(a.Tracker, convert.NewDefaultRouter(), ext, submitter, registry, service.PipelineConfig{
		AcceptPartial: cfg.Pipeline.AcceptPartial,
		ReviewMode:    cfg.Pipeline.ReviewMode,
	})

	if cfg.S3.Enabled() {
		storage, err := s3storage.NewArchive(ctx, &cfg.S3)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("initializing archive: %w", err)
		}
		a.Storage = storage
		a.Pipeline.WithArchive(storage, service.ArchiveConfig{Bucket: cfg.S3.Bucket, Prefix: cfg.S3.Prefix})
	}

	return a, nil
}

func (a *App) recordRepo(cfg *config.Config) (port.RecordRepository, error) {
	switch cfg.Store.Driver {
	case "postgres":
		db, err := postgres.NewDB(&cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		a.DB = db
		logrus.Info("app.Build: fingerprint store is postgres")
		return postgres.NewRecordRepo(db), nil
	default:
		logrus.Infof("app.Build: fingerprint store is %s", cfg.Store.Path)
		return file.NewRecordRepo(cfg.Store.Path), nil
	}
}

// Close releases the database connection, if any.
func (a *App) Close() {
	if a.DB != nil {
		_ = a.DB.Close()
	}
}
