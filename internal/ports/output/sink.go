package output

import (
	"context"

	"github.com/gmalt/hgt/internal/domain"
)

// SinkFactory defines the secondary port for elevation persistence.
// Bootstrap runs once before any worker starts; the per-worker sinks
// each own their database session, so workers never share a
// connection.
type SinkFactory interface {
	// Bootstrap prepares the schema. Failure is fatal for the run.
	Bootstrap(ctx context.Context) error

	// ValueSink opens a sink for individual sample records.
	ValueSink(ctx context.Context) (ValueSink, error)

	// TileSink opens a sink for raster tiles.
	TileSink(ctx context.Context) (TileSink, error)

	// Close releases the underlying database.
	Close() error
}

// ValueSink persists one elevation sample per row.
type ValueSink interface {
	// Insert upserts a record. The first return value is false when an
	// equal record already existed and the write was a no-op.
	Insert(ctx context.Context, rec domain.ImportRecord) (bool, error)

	// Close releases the sink's session.
	Close() error
}

// TileSink persists raster tiles.
type TileSink interface {
	// Insert upserts a tile keyed by its bounding box. The first
	// return value is false when the tile already existed.
	Insert(ctx context.Context, tile domain.Tile) (bool, error)

	// Close releases the sink's session.
	Close() error
}
