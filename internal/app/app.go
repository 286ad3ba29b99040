// Package app provides application initialization and wiring.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gmalt/hgt/internal/adapters/metrics"
	"github.com/gmalt/hgt/internal/adapters/sqlite"
	"github.com/gmalt/hgt/internal/adapters/storage"
	"github.com/gmalt/hgt/internal/application"
	"github.com/gmalt/hgt/internal/config"
	"github.com/gmalt/hgt/internal/dataset"
	"github.com/gmalt/hgt/internal/domain"
	"github.com/gmalt/hgt/internal/pipeline"
	"github.com/gmalt/hgt/internal/ports/output"
)

// App holds all application components.
type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	Storage       output.ObjectStorage
	Sinks         *sqlite.Factory
	Pipeline      *pipeline.Pipeline
	HealthService *application.HealthService
	Metrics       *metrics.Collector
	MetricsServer *metrics.Server
}

// New creates and wires an application around the given dataset.
func New(ctx context.Context, cfg *config.Config, ds dataset.Dataset, logger *slog.Logger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	// Initialize metrics
	if cfg.Metrics.Enabled {
		app.Metrics = metrics.NewCollector("gmalt")
	}

	var metricsCollector output.MetricsCollector
	if app.Metrics != nil {
		metricsCollector = app.Metrics
	} else {
		metricsCollector = &output.NoOpMetrics{}
	}

	// Initialize storage adapter
	store, err := initStorage(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}
	app.Storage = store

	// Initialize the database unless the import stage never runs
	var sinks output.SinkFactory
	if !cfg.Import.Skip {
		factory, err := sqlite.New(sqlite.Options{
			Path:        cfg.Database.Path,
			Table:       cfg.Database.Table,
			Raster:      cfg.Import.Raster,
			Connections: cfg.SinkConnections(),
			Logger:      logger,
		})
		if err != nil {
			return nil, fmt.Errorf("initializing database: %w", err)
		}
		app.Sinks = factory
		sinks = factory
	}

	// Initialize the pipeline
	p, err := pipeline.New(pipeline.Options{
		Folder:       cfg.Folder,
		Concurrency:  cfg.Concurrency,
		SkipDownload: cfg.Download.Skip,
		SkipExtract:  cfg.Extract.Skip,
		SkipImport:   cfg.Import.Skip,
		Raster:       cfg.Import.Raster,
		SampleWidth:  cfg.Import.SampleWidth,
		SampleHeight: cfg.Import.SampleHeight,
		Dataset:      ds,
		Storage:      store,
		Sinks:        sinks,
		Metrics:      metricsCollector,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing pipeline: %w", err)
	}
	app.Pipeline = p

	// Initialize the health and metrics endpoint
	if cfg.Metrics.Enabled {
		var db application.Pinger
		if app.Sinks != nil {
			db = app.Sinks
		}
		app.HealthService = application.NewHealthService(cfg.Folder, db)
		app.MetricsServer = metrics.NewServer(cfg.Metrics.Address, app.HealthService, logger)
	}

	return app, nil
}

// Run executes the configured pipeline stages once and, when watch is
// set, keeps importing files as they appear until the context is
// canceled. It returns an error when any file failed.
func (a *App) Run(ctx context.Context, watch bool) error {
	if a.MetricsServer != nil {
		go func() {
			if err := a.MetricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.Logger.Error("metrics server error", "error", err)
			}
		}()
	}

	summaries, err := a.Pipeline.Run(ctx)
	if err != nil {
		return err
	}

	if watch {
		if err := a.Pipeline.Watch(ctx); err != nil {
			return err
		}
	}

	if failed := countFailed(summaries); failed > 0 {
		return fmt.Errorf("%d files failed", failed)
	}
	return nil
}

// Shutdown gracefully shuts down all components.
func (a *App) Shutdown(ctx context.Context) error {
	a.Logger.Info("shutting down application")

	if a.MetricsServer != nil {
		if err := a.MetricsServer.Shutdown(ctx); err != nil {
			a.Logger.Error("metrics server shutdown error", "error", err)
		}
	}

	if a.Sinks != nil {
		if err := a.Sinks.Close(); err != nil {
			a.Logger.Error("database close error", "error", err)
		}
	}

	return nil
}

func countFailed(summaries []*domain.RunSummary) int {
	failed := 0
	for _, s := range summaries {
		failed += s.Failed
	}
	return failed
}

// initStorage initializes the appropriate storage adapter.
func initStorage(ctx context.Context, cfg config.StorageConfig) (output.ObjectStorage, error) {
	switch cfg.Type {
	case "local":
		return storage.NewLocalStorage(cfg.LocalPath), nil

	case "s3":
		return storage.NewS3Storage(ctx, storage.S3Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Prefix:          cfg.S3.Prefix,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		})

	case "azure":
		return storage.NewAzureStorage(storage.AzureConfig{
			Container:        cfg.Azure.Container,
			AccountName:      cfg.Azure.AccountName,
			AccountKey:       cfg.Azure.AccountKey,
			ConnectionString: cfg.Azure.ConnectionString,
			Prefix:           cfg.Azure.Prefix,
		})

	case "http":
		return storage.NewHTTPStorage(storage.HTTPConfig{
			BaseURL:  cfg.HTTP.BaseURL,
			Timeout:  cfg.HTTP.Timeout,
			Username: cfg.HTTP.Username,
			Password: cfg.HTTP.Password,
		}), nil

	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
