package pipeline

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/md5"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/gmalt/hgt/internal/adapters/sqlite"
	"github.com/gmalt/hgt/internal/adapters/watcher"
	"github.com/gmalt/hgt/internal/dataset"
	"github.com/gmalt/hgt/internal/domain"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newPipeline builds a pipeline with test defaults applied.
func newPipeline(t *testing.T, opts Options) *Pipeline {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = quietLogger()
	}
	if opts.Concurrency == 0 {
		opts.Concurrency = 2
	}
	p, err := New(opts)
	if err != nil {
		t.Fatalf("creating pipeline: %v", err)
	}
	return p
}

// encodeSamples builds raw HGT sample data where the sample at
// (row, col) is fill(row, col).
func encodeSamples(n int, fill func(row, col int) int16) []byte {
	buf := make([]byte, n*n*2)
	for row := 0; row < n; row++ {
		for col := 0; col < n; col++ {
			binary.BigEndian.PutUint16(buf[(row*n+col)*2:], uint16(fill(row, col)))
		}
	}
	return buf
}

// writeHGT writes a synthetic HGT file into dir and returns its path.
func writeHGT(t *testing.T, dir, name string, n int, fill func(row, col int) int16) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, encodeSamples(n, fill), 0644); err != nil {
		t.Fatalf("writing test file: %v", err)
	}
	return path
}

// writeZip writes a zip archive holding the given entries.
func writeZip(t *testing.T, path string, entries map[string][]byte) {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, data := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("creating zip entry: %v", err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatalf("writing zip entry: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing zip: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("writing zip: %v", err)
	}
}

func plainFill(row, col int) int16 {
	return int16(row*10 + col)
}

func TestNewRequiresFolder(t *testing.T) {
	_, err := New(Options{})
	if err == nil {
		t.Fatal("expected an error for a missing folder")
	}
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("error = %v, want ErrInvalidInput", err)
	}
}

func TestNewDefaults(t *testing.T) {
	a, err := New(Options{Folder: t.TempDir(), Concurrency: -3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.opts.Concurrency != 1 {
		t.Errorf("Concurrency = %d, want 1", a.opts.Concurrency)
	}
	if a.runID == "" {
		t.Error("expected a run id")
	}

	b, err := New(Options{Folder: t.TempDir()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.runID == b.runID {
		t.Errorf("two pipelines share run id %s", a.runID)
	}
}

func TestScanFolder(t *testing.T) {
	folder := t.TempDir()
	writeHGT(t, folder, "N00E011.hgt", 3, plainFill)
	writeHGT(t, folder, "N00E010.hgt", 3, plainFill)
	if err := os.WriteFile(filepath.Join(folder, "N00E010.hgt.zip"), []byte("zip"), 0644); err != nil {
		t.Fatalf("writing zip: %v", err)
	}
	if err := os.Mkdir(filepath.Join(folder, "old.hgt"), 0755); err != nil {
		t.Fatalf("creating directory: %v", err)
	}

	items, err := scanFolder(folder, "*.hgt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[0].Name != "N00E010.hgt" || items[1].Name != "N00E011.hgt" {
		t.Errorf("items out of order: %s, %s", items[0].Name, items[1].Name)
	}
	if items[0].Size != 18 {
		t.Errorf("Size = %d, want 18", items[0].Size)
	}
	if items[0].Status != domain.StatusPending {
		t.Errorf("Status = %s, want pending", items[0].Status)
	}
}

func TestDownloadStage(t *testing.T) {
	folder := t.TempDir()
	archive := []byte("archive bytes")
	sum := md5.Sum(archive)

	ds := dataset.Dataset{
		Sampling: 3,
		Files: map[string]dataset.FileRef{
			"N00E010.hgt": {
				URL: "https://mirror.test/srtm3/N00E010.hgt.zip",
				Zip: "N00E010.hgt.zip",
				MD5: hex.EncodeToString(sum[:]),
			},
			"N00E011.hgt": {
				URL: "https://mirror.test/srtm3/N00E011.hgt.zip",
				Zip: "N00E011.hgt.zip",
			},
		},
	}
	storage := &mockStorage{objects: map[string][]byte{
		"N00E010.hgt.zip": archive,
		"N00E011.hgt.zip": archive,
	}}
	metrics := &countingMetrics{}

	p := newPipeline(t, Options{Folder: folder, Dataset: ds, Storage: storage, Metrics: metrics})
	summary, err := p.Download(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.Succeeded != 2 || summary.Failed != 0 {
		t.Fatalf("succeeded = %d, failed = %d, want 2 and 0", summary.Succeeded, summary.Failed)
	}
	for _, name := range []string{"N00E010.hgt.zip", "N00E011.hgt.zip"} {
		data, err := os.ReadFile(filepath.Join(folder, name))
		if err != nil {
			t.Fatalf("reading %s: %v", name, err)
		}
		if !bytes.Equal(data, archive) {
			t.Errorf("%s holds wrong bytes", name)
		}
	}
	if storage.existsCalls != 2 {
		t.Errorf("existsCalls = %d, want 2", storage.existsCalls)
	}
	if metrics.storageOps != 2 {
		t.Errorf("storage operations = %d, want 2", metrics.storageOps)
	}
}

func TestDownloadChecksumMismatch(t *testing.T) {
	folder := t.TempDir()
	ds := dataset.Dataset{
		Sampling: 3,
		Files: map[string]dataset.FileRef{
			"N00E010.hgt": {
				URL: "https://mirror.test/srtm3/N00E010.hgt.zip",
				Zip: "N00E010.hgt.zip",
				MD5: "00000000000000000000000000000000",
			},
		},
	}
	storage := &mockStorage{objects: map[string][]byte{"N00E010.hgt.zip": []byte("archive bytes")}}

	p := newPipeline(t, Options{Folder: folder, Dataset: ds, Storage: storage})
	summary, err := p.Download(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.Failed != 1 {
		t.Fatalf("failed = %d, want 1", summary.Failed)
	}
	if !errors.Is(summary.Failures[0].Err, domain.ErrChecksumMismatch) {
		t.Errorf("error = %v, want ErrChecksumMismatch", summary.Failures[0].Err)
	}
}

func TestDownloadMissingObject(t *testing.T) {
	folder := t.TempDir()
	ds := dataset.Dataset{
		Sampling: 3,
		Files: map[string]dataset.FileRef{
			"N00E012.hgt": {
				URL: "https://mirror.test/srtm3/N00E012.hgt.zip",
				Zip: "N00E012.hgt.zip",
			},
		},
	}
	storage := &mockStorage{objects: map[string][]byte{}}
	metrics := &countingMetrics{}

	p := newPipeline(t, Options{Folder: folder, Dataset: ds, Storage: storage, Metrics: metrics})
	summary, err := p.Download(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.Failed != 1 {
		t.Fatalf("failed = %d, want 1", summary.Failed)
	}
	if !errors.Is(summary.Failures[0].Err, domain.ErrObjectNotFound) {
		t.Errorf("error = %v, want ErrObjectNotFound", summary.Failures[0].Err)
	}
	if metrics.storageOps != 0 {
		t.Errorf("storage operations = %d, want 0, the transfer should never start", metrics.storageOps)
	}
}

func TestExtractStage(t *testing.T) {
	folder := t.TempDir()
	inner := encodeSamples(3, plainFill)
	writeZip(t, filepath.Join(folder, "N00E010.hgt.zip"), map[string][]byte{
		"N00E010.hgt":       inner,
		"cgiar/N00E011.hgt": inner,
	})

	p := newPipeline(t, Options{Folder: folder})
	summary, err := p.Extract(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.Succeeded != 1 || summary.Failed != 0 {
		t.Fatalf("succeeded = %d, failed = %d, want 1 and 0", summary.Succeeded, summary.Failed)
	}
	for _, name := range []string{"N00E010.hgt", "N00E011.hgt"} {
		data, err := os.ReadFile(filepath.Join(folder, name))
		if err != nil {
			t.Fatalf("reading %s: %v", name, err)
		}
		if !bytes.Equal(data, inner) {
			t.Errorf("%s holds wrong bytes", name)
		}
	}
}

func TestExtractCorruptArchive(t *testing.T) {
	folder := t.TempDir()
	if err := os.WriteFile(filepath.Join(folder, "N00E010.hgt.zip"), []byte("not a zip"), 0644); err != nil {
		t.Fatalf("writing archive: %v", err)
	}

	p := newPipeline(t, Options{Folder: folder})
	summary, err := p.Extract(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Failed != 1 {
		t.Errorf("failed = %d, want 1", summary.Failed)
	}
}

func TestImportValuesSkipsVoids(t *testing.T) {
	folder := t.TempDir()
	writeHGT(t, folder, "N00E010.hgt", 3, func(row, col int) int16 {
		if row == 1 && col == 1 {
			return domain.VoidValue
		}
		return plainFill(row, col)
	})

	sinks := &mockSinkFactory{}
	metrics := &countingMetrics{}
	p := newPipeline(t, Options{Folder: folder, Sinks: sinks, Metrics: metrics})

	summary, err := p.Import(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.Succeeded != 1 {
		t.Fatalf("succeeded = %d, want 1", summary.Succeeded)
	}
	if summary.Rows != 8 {
		t.Errorf("rows = %d, want 8, the void sample must be skipped", summary.Rows)
	}
	if sinks.valueCount() != 8 {
		t.Errorf("stored values = %d, want 8", sinks.valueCount())
	}
	if sinks.bootstraps != 1 {
		t.Errorf("bootstraps = %d, want 1", sinks.bootstraps)
	}
	if metrics.rowsInserted != 8 {
		t.Errorf("rowsInserted = %d, want 8", metrics.rowsInserted)
	}
}

func TestImportRasterTiles(t *testing.T) {
	folder := t.TempDir()
	writeHGT(t, folder, "N00E010.hgt", 3, plainFill)

	sinks := &mockSinkFactory{}
	p := newPipeline(t, Options{
		Folder:       folder,
		Sinks:        sinks,
		Raster:       true,
		SampleWidth:  2,
		SampleHeight: 2,
	})

	summary, err := p.Import(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A 3x3 grid cut into 2x2 tiles leaves a 2x1, a 1x2 and a 1x1
	// remainder, nine samples over four tiles.
	if sinks.tileCount() != 4 {
		t.Errorf("stored tiles = %d, want 4", sinks.tileCount())
	}
	if summary.Rows != 9 {
		t.Errorf("rows = %d, want 9", summary.Rows)
	}
}

func TestImportFailureIsolation(t *testing.T) {
	folder := t.TempDir()
	writeHGT(t, folder, "N00E010.hgt", 3, plainFill)
	writeHGT(t, folder, "N00E011.hgt", 3, plainFill)
	// 17 bytes cannot form a square grid of 2-byte samples.
	if err := os.WriteFile(filepath.Join(folder, "N00E012.hgt"), make([]byte, 17), 0644); err != nil {
		t.Fatalf("writing truncated file: %v", err)
	}

	sinks := &mockSinkFactory{}
	p := newPipeline(t, Options{Folder: folder, Sinks: sinks})

	summary, err := p.Import(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.Succeeded != 2 || summary.Failed != 1 {
		t.Fatalf("succeeded = %d, failed = %d, want 2 and 1", summary.Succeeded, summary.Failed)
	}
	if !errors.Is(summary.Failures[0].Err, domain.ErrMalformedGrid) {
		t.Errorf("error = %v, want ErrMalformedGrid", summary.Failures[0].Err)
	}
	if summary.Failures[0].Name != "N00E012.hgt" {
		t.Errorf("failed file = %s, want N00E012.hgt", summary.Failures[0].Name)
	}
	if sinks.valueCount() != 18 {
		t.Errorf("stored values = %d, want 18, good files must not be affected", sinks.valueCount())
	}
}

func TestImportIsIdempotent(t *testing.T) {
	folder := t.TempDir()
	writeHGT(t, folder, "N00E010.hgt", 3, plainFill)

	dbPath := filepath.Join(t.TempDir(), "elevation.db")
	factory, err := sqlite.New(sqlite.Options{Path: dbPath, Connections: 2, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("creating factory: %v", err)
	}
	t.Cleanup(func() { _ = factory.Close() })

	p := newPipeline(t, Options{Folder: folder, Sinks: factory})

	first, err := p.Import(context.Background())
	if err != nil {
		t.Fatalf("first import: %v", err)
	}
	if first.Rows != 9 {
		t.Fatalf("first import rows = %d, want 9", first.Rows)
	}

	second, err := p.Import(context.Background())
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	if second.Succeeded != 1 || second.Failed != 0 {
		t.Fatalf("second import succeeded = %d, failed = %d, want 1 and 0", second.Succeeded, second.Failed)
	}
	if second.Rows != 0 {
		t.Errorf("second import rows = %d, want 0", second.Rows)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	defer func() { _ = db.Close() }()
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM elevation").Scan(&count); err != nil {
		t.Fatalf("counting rows: %v", err)
	}
	if count != 9 {
		t.Errorf("table holds %d rows, want 9", count)
	}
}

func TestImportBootstrapFailure(t *testing.T) {
	folder := t.TempDir()
	writeHGT(t, folder, "N00E010.hgt", 3, plainFill)

	bootErr := errors.New("schema locked")
	sinks := &mockSinkFactory{bootstrapErr: bootErr}
	p := newPipeline(t, Options{Folder: folder, Sinks: sinks})

	if _, err := p.Import(context.Background()); !errors.Is(err, bootErr) {
		t.Errorf("error = %v, want the bootstrap error", err)
	}
	if sinks.valueCount() != 0 {
		t.Errorf("stored values = %d, want 0, no worker may start", sinks.valueCount())
	}
}

func TestRunSkipsStages(t *testing.T) {
	folder := t.TempDir()
	writeHGT(t, folder, "N00E010.hgt", 3, plainFill)

	sinks := &mockSinkFactory{}
	p := newPipeline(t, Options{
		Folder:       folder,
		Sinks:        sinks,
		SkipDownload: true,
		SkipExtract:  true,
	})

	summaries, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("got %d summaries, want 1", len(summaries))
	}
	if summaries[0].Stage != StageImport {
		t.Errorf("stage = %s, want import", summaries[0].Stage)
	}
	if sinks.valueCount() != 9 {
		t.Errorf("stored values = %d, want 9", sinks.valueCount())
	}
}

func TestRunAllStages(t *testing.T) {
	folder := t.TempDir()
	archive := new(bytes.Buffer)
	zw := zip.NewWriter(archive)
	w, err := zw.Create("N00E010.hgt")
	if err != nil {
		t.Fatalf("creating zip entry: %v", err)
	}
	if _, err := w.Write(encodeSamples(3, plainFill)); err != nil {
		t.Fatalf("writing zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing zip: %v", err)
	}

	ds := dataset.Dataset{
		Sampling: 3,
		Files: map[string]dataset.FileRef{
			"N00E010.hgt": {
				URL: "https://mirror.test/srtm3/N00E010.hgt.zip",
				Zip: "N00E010.hgt.zip",
			},
		},
	}
	storage := &mockStorage{objects: map[string][]byte{"N00E010.hgt.zip": archive.Bytes()}}
	sinks := &mockSinkFactory{}

	p := newPipeline(t, Options{Folder: folder, Dataset: ds, Storage: storage, Sinks: sinks})
	summaries, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(summaries) != 3 {
		t.Fatalf("got %d summaries, want 3", len(summaries))
	}
	for i, stage := range []string{StageDownload, StageExtract, StageImport} {
		if summaries[i].Stage != stage {
			t.Errorf("summaries[%d].Stage = %s, want %s", i, summaries[i].Stage, stage)
		}
		if !summaries[i].OK() {
			t.Errorf("%s stage failed: %+v", stage, summaries[i].Failures)
		}
	}
	if sinks.valueCount() != 9 {
		t.Errorf("stored values = %d, want 9", sinks.valueCount())
	}
}

func TestWatchHandlerImportsFile(t *testing.T) {
	folder := t.TempDir()
	path := writeHGT(t, folder, "N00E010.hgt", 3, plainFill)

	sinks := &mockSinkFactory{}
	p := newPipeline(t, Options{Folder: folder, Sinks: sinks})

	handler := p.watchHandler()
	if err := handler(context.Background(), watcher.Event{Path: path, Operation: watcher.OpCreate}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sinks.valueCount() != 9 {
		t.Errorf("stored values = %d, want 9", sinks.valueCount())
	}

	err := handler(context.Background(), watcher.Event{
		Path:      filepath.Join(folder, "N00E011.hgt"),
		Operation: watcher.OpCreate,
	})
	if err == nil {
		t.Error("expected an error for a vanished file")
	}
}
