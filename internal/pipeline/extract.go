package pipeline

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gmalt/hgt/internal/domain"
	"github.com/gmalt/hgt/internal/worker"
)

// extractHandler returns the worker handler for the extract stage.
func (p *Pipeline) extractHandler() worker.Handler[domain.WorkItem] {
	return func(ctx context.Context, item domain.WorkItem) (int64, error) {
		return 0, extractArchive(ctx, item.Path, p.opts.Folder)
	}
}

// extractArchive unpacks the zip at path into the folder. Every entry
// lands flat under its base name, so hostile archive paths cannot
// escape the working folder.
func extractArchive(ctx context.Context, path, folder string) error {
	r, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("opening archive %s: %w", filepath.Base(path), err)
	}
	defer func() { _ = r.Close() }()

	for _, entry := range r.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry.FileInfo().IsDir() {
			continue
		}
		if err := extractEntry(entry, folder); err != nil {
			return err
		}
	}
	return nil
}

func extractEntry(entry *zip.File, folder string) error {
	src, err := entry.Open()
	if err != nil {
		return fmt.Errorf("opening entry %s: %w", entry.Name, err)
	}
	defer func() { _ = src.Close() }()

	dest := filepath.Join(folder, filepath.Base(entry.Name))
	out, err := os.Create(dest) //#nosec G304 -- destination stays inside the working folder
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	//#nosec G110 -- archives come from the configured dataset mirror
	if _, err := io.Copy(out, src); err != nil {
		return err
	}
	return out.Close()
}
