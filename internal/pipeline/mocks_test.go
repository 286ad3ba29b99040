package pipeline

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/gmalt/hgt/internal/domain"
	"github.com/gmalt/hgt/internal/ports/output"
)

// mockStorage implements output.ObjectStorage for testing. Objects
// maps archive keys to their contents.
type mockStorage struct {
	mu          sync.Mutex
	objects     map[string][]byte
	existsCalls int
	downloadErr error
}

func (m *mockStorage) Download(_ context.Context, obj output.StorageObject, dest string) error {
	if m.downloadErr != nil {
		return m.downloadErr
	}
	m.mu.Lock()
	data, ok := m.objects[obj.Key]
	m.mu.Unlock()
	if !ok {
		return &domain.StorageError{
			Operation: "download",
			Key:       obj.Key,
			Err:       domain.ErrObjectNotFound,
		}
	}
	return os.WriteFile(dest, data, 0600)
}

func (m *mockStorage) Exists(_ context.Context, obj output.StorageObject) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.existsCalls++
	_, ok := m.objects[obj.Key]
	return ok, nil
}

// boundsKey is the natural key the real schema uses, a bounding box.
type boundsKey struct {
	latMin, lngMin, latMax, lngMax float64
}

// mockSinkFactory implements output.SinkFactory with in-memory
// storage keyed by bounding box, mirroring the upsert semantics of
// the real database.
type mockSinkFactory struct {
	mu           sync.Mutex
	bootstraps   int
	bootstrapErr error
	insertErr    error
	values       map[boundsKey]int16
	tiles        map[boundsKey]int
}

func (m *mockSinkFactory) Bootstrap(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bootstraps++
	return m.bootstrapErr
}

func (m *mockSinkFactory) ValueSink(_ context.Context) (output.ValueSink, error) {
	return &mockValueSink{factory: m}, nil
}

func (m *mockSinkFactory) TileSink(_ context.Context) (output.TileSink, error) {
	return &mockTileSink{factory: m}, nil
}

func (m *mockSinkFactory) Close() error {
	return nil
}

func (m *mockSinkFactory) valueCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.values)
}

func (m *mockSinkFactory) tileCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tiles)
}

type mockValueSink struct {
	factory *mockSinkFactory
}

func (s *mockValueSink) Insert(_ context.Context, rec domain.ImportRecord) (bool, error) {
	f := s.factory
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return false, f.insertErr
	}
	if f.values == nil {
		f.values = make(map[boundsKey]int16)
	}
	key := boundsKey{rec.LatMin, rec.LngMin, rec.LatMax, rec.LngMax}
	if _, ok := f.values[key]; ok {
		return false, nil
	}
	f.values[key] = rec.Value
	return true, nil
}

func (s *mockValueSink) Close() error {
	return nil
}

type mockTileSink struct {
	factory *mockSinkFactory
}

func (s *mockTileSink) Insert(_ context.Context, tile domain.Tile) (bool, error) {
	f := s.factory
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return false, f.insertErr
	}
	if f.tiles == nil {
		f.tiles = make(map[boundsKey]int)
	}
	ext := tile.Extent
	key := boundsKey{ext.MinLat, ext.MinLng, ext.MaxLat, ext.MaxLng}
	if _, ok := f.tiles[key]; ok {
		return false, nil
	}
	f.tiles[key] = len(tile.Samples)
	return true, nil
}

func (s *mockTileSink) Close() error {
	return nil
}

// countingMetrics implements output.MetricsCollector for testing.
type countingMetrics struct {
	mu           sync.Mutex
	files        map[string]int
	rowsInserted int64
	rowsSkipped  int64
	storageOps   int
}

func (c *countingMetrics) IncFileProcessed(stage string, _ bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.files == nil {
		c.files = make(map[string]int)
	}
	c.files[stage]++
}

func (c *countingMetrics) ObserveFileDuration(_ string, _ time.Duration) {}

func (c *countingMetrics) AddRows(_ string, inserted bool, n int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if inserted {
		c.rowsInserted += n
		return
	}
	c.rowsSkipped += n
}

func (c *countingMetrics) SetQueueDepth(_ string, _ int) {}

func (c *countingMetrics) IncStorageOperations(_ string, _ bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.storageOps++
}

func (c *countingMetrics) ObserveStorageDuration(_ string, _ time.Duration) {}
