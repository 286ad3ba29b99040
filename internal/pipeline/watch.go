package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/gmalt/hgt/internal/adapters/watcher"
	"github.com/gmalt/hgt/internal/domain"
)

// Watch imports HGT files as they appear in the working folder and
// blocks until the context is canceled. The schema is bootstrapped up
// front so the first event does not race the first table creation.
func (p *Pipeline) Watch(ctx context.Context) error {
	if err := p.opts.Sinks.Bootstrap(ctx); err != nil {
		return err
	}

	w, err := watcher.New(watcher.Config{Paths: []string{p.opts.Folder}}, p.watchHandler(), p.logger)
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	p.logger.Info("watching for new files", "folder", p.opts.Folder)

	<-ctx.Done()
	return w.Stop()
}

// watchHandler imports one settled file per event through the regular
// import stage machinery, one pool of one item per event.
func (p *Pipeline) watchHandler() watcher.Handler {
	return func(ctx context.Context, event watcher.Event) error {
		info, err := os.Stat(event.Path)
		if err != nil {
			return err
		}

		item := domain.WorkItem{
			Name:     filepath.Base(event.Path),
			Path:     event.Path,
			Size:     info.Size(),
			Status:   domain.StatusPending,
			QueuedAt: time.Now(),
		}
		summary, err := p.runStage(ctx, StageImport, []domain.WorkItem{item}, p.importHandler())
		if err != nil {
			return err
		}
		if !summary.OK() {
			return summary.Failures[0].Err
		}
		return nil
	}
}
