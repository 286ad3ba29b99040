// Package pipeline orchestrates the stages that move SRTM archives
// from a mirror into the database: download, extract and import. Each
// stage runs a bounded worker pool over the files it finds; one file
// failing never stops the others.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/gmalt/hgt/internal/dataset"
	"github.com/gmalt/hgt/internal/domain"
	"github.com/gmalt/hgt/internal/hgt"
	"github.com/gmalt/hgt/internal/ports/output"
	"github.com/gmalt/hgt/internal/progress"
	"github.com/gmalt/hgt/internal/worker"
)

// Stage names, used in logs, metrics and progress lines.
const (
	StageDownload = "download"
	StageExtract  = "extract"
	StageImport   = "import"
)

// maxLoggedFailures caps how many per-item errors the end-of-stage
// summary prints in full.
const maxLoggedFailures = 5

// Options configures a pipeline.
type Options struct {
	// Folder is the working folder holding archives and HGT files.
	Folder string

	// Concurrency is the number of workers per stage. Default: 1.
	Concurrency int

	// SkipDownload, SkipExtract and SkipImport drop the matching
	// stage from Run.
	SkipDownload bool
	SkipExtract  bool
	SkipImport   bool

	// Raster switches the import stage from one row per sample to
	// WKB raster tiles.
	Raster bool

	// SampleWidth and SampleHeight bound the tile size in raster
	// mode, in samples. Zero means one tile covering the whole file.
	SampleWidth  int
	SampleHeight int

	// Dataset names the archives the download stage fetches.
	Dataset dataset.Dataset

	// Storage fetches archives from the mirror.
	Storage output.ObjectStorage

	// Sinks persists decoded elevation data.
	Sinks output.SinkFactory

	// Metrics receives counters and histograms. Default: no-op.
	Metrics output.MetricsCollector

	// Logger. Default: slog.Default().
	Logger *slog.Logger
}

// Pipeline drives HGT files through its stages. Every instance gets a
// fresh run id that tags all of its log lines, so interleaved runs
// stay distinguishable.
type Pipeline struct {
	opts    Options
	runID   string
	logger  *slog.Logger
	metrics output.MetricsCollector
}

// New validates the options and creates a pipeline.
func New(opts Options) (*Pipeline, error) {
	if opts.Folder == "" {
		return nil, &domain.ValidationError{
			Field:      "folder",
			Value:      opts.Folder,
			Constraint: "non-empty",
			Message:    "a working folder is required",
		}
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Metrics == nil {
		opts.Metrics = &output.NoOpMetrics{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	runID := uuid.NewString()
	return &Pipeline{
		opts:    opts,
		runID:   runID,
		logger:  opts.Logger.With("run_id", runID),
		metrics: opts.Metrics,
	}, nil
}

// Run executes the stages that are not skipped, in order. Per-item
// failures are contained by the worker pools and show up in the
// returned summaries; Run itself fails only when a stage cannot start
// at all.
func (p *Pipeline) Run(ctx context.Context) ([]*domain.RunSummary, error) {
	p.logger.Info("pipeline starting",
		"folder", p.opts.Folder,
		"concurrency", p.opts.Concurrency,
		"raster", p.opts.Raster)

	var summaries []*domain.RunSummary
	stages := []struct {
		name string
		skip bool
		run  func(context.Context) (*domain.RunSummary, error)
	}{
		{StageDownload, p.opts.SkipDownload, p.Download},
		{StageExtract, p.opts.SkipExtract, p.Extract},
		{StageImport, p.opts.SkipImport, p.Import},
	}
	for _, stage := range stages {
		if stage.skip {
			p.logger.Debug("stage skipped", "stage", stage.name)
			continue
		}
		summary, err := stage.run(ctx)
		if err != nil {
			return summaries, fmt.Errorf("%s stage: %w", stage.name, err)
		}
		summaries = append(summaries, summary)
	}

	p.logger.Info("pipeline finished", "stages", len(summaries))
	return summaries, nil
}

// Download fetches every archive named by the dataset into the
// working folder and verifies checksums where the dataset provides
// them.
func (p *Pipeline) Download(ctx context.Context) (*domain.RunSummary, error) {
	items, err := p.opts.Dataset.Items(p.opts.Folder)
	if err != nil {
		return nil, err
	}
	return p.runStage(ctx, StageDownload, items, p.downloadHandler())
}

// Extract unpacks every zip archive found in the working folder.
func (p *Pipeline) Extract(ctx context.Context) (*domain.RunSummary, error) {
	items, err := scanFolder(p.opts.Folder, "*.zip")
	if err != nil {
		return nil, err
	}
	return p.runStage(ctx, StageExtract, items, p.extractHandler())
}

// Import decodes every HGT file in the working folder and persists
// it. The schema is bootstrapped first; bootstrap failure aborts the
// stage before any worker starts.
func (p *Pipeline) Import(ctx context.Context) (*domain.RunSummary, error) {
	if err := p.opts.Sinks.Bootstrap(ctx); err != nil {
		return nil, err
	}
	items, err := scanFolder(p.opts.Folder, "*"+hgt.Extension)
	if err != nil {
		return nil, err
	}
	return p.runStage(ctx, StageImport, items, p.importHandler())
}

// runStage drives one worker pool over the items. The queue is filled
// before the workers start, so a canceled context stops the stage
// without ever blocking a producer on a full queue. A single
// goroutine folds results into the summary; workers never touch
// shared state.
func (p *Pipeline) runStage(ctx context.Context, stage string, items []domain.WorkItem, handler worker.Handler[domain.WorkItem]) (*domain.RunSummary, error) {
	summary := &domain.RunSummary{Stage: stage}
	if len(items) == 0 {
		p.logger.Info("nothing to do", "stage", stage)
		return summary, nil
	}

	reporter := progress.New(progress.Options{
		Stage:  stage,
		Total:  int64(len(items)),
		Logger: p.logger,
	})
	pool := worker.New(worker.Options[domain.WorkItem]{
		QueueSize: len(items),
		Logger:    p.logger,
		Reporter:  reporter,
		Label:     func(item domain.WorkItem) string { return item.Name },
	})
	for _, item := range items {
		if err := pool.Submit(item); err != nil {
			return nil, err
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for res := range pool.Results() {
			summary.AddResult(domain.ItemResult{
				Name:    res.Item.Name,
				Rows:    res.Rows,
				Elapsed: res.Elapsed,
				Err:     res.Err,
			})
			p.metrics.IncFileProcessed(stage, res.Err == nil)
			p.metrics.ObserveFileDuration(stage, res.Elapsed)
			p.metrics.SetQueueDepth(stage, pool.QueueDepth())
		}
	}()

	start := time.Now()
	reporter.Start()
	if err := pool.Start(ctx, p.opts.Concurrency, handler); err != nil {
		pool.Drain()
		pool.Wait()
		<-done
		return nil, err
	}
	pool.Drain()
	pool.Wait()
	<-done
	reporter.Stop()

	summary.Elapsed = time.Since(start)
	p.logFailures(summary)
	return summary, nil
}

// logFailures prints the first few per-item errors of a stage. The
// reporter already logged the counts; this adds the reasons.
func (p *Pipeline) logFailures(s *domain.RunSummary) {
	for i, f := range s.Failures {
		if i == maxLoggedFailures {
			p.logger.Error("further items failed",
				"stage", s.Stage,
				"omitted", len(s.Failures)-maxLoggedFailures)
			return
		}
		p.logger.Error("item failed",
			"stage", s.Stage,
			"file", f.Name,
			"error", f.Err)
	}
}

// scanFolder lists the files matching pattern in the folder as
// pending work items, in lexical order.
func scanFolder(folder, pattern string) ([]domain.WorkItem, error) {
	matches, err := filepath.Glob(filepath.Join(folder, pattern))
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", folder, err)
	}

	items := make([]domain.WorkItem, 0, len(matches))
	now := time.Now()
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		items = append(items, domain.WorkItem{
			Name:     filepath.Base(path),
			Path:     path,
			Size:     info.Size(),
			Status:   domain.StatusPending,
			QueuedAt: now,
		})
	}
	return items, nil
}
