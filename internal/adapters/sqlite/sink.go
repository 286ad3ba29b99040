// Package sqlite stores elevation data in a SQLite database, either as
// plain sample rows or as WKB raster tiles.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/mattn/go-sqlite3"

	"github.com/gmalt/hgt/internal/domain"
	"github.com/gmalt/hgt/internal/ports/output"
)

const tableExistsQuery = `SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`

// Options configures the sink factory.
type Options struct {
	// Path is the database file. Created on first bootstrap.
	Path string

	// Table is the elevation table name. Default: "elevation".
	Table string

	// Raster selects the raster schema instead of the value schema.
	Raster bool

	// Connections caps the connection pool and should be at least the
	// worker concurrency, so every worker can hold its own session.
	Connections int

	// Logger receives bootstrap progress. Default: slog.Default().
	Logger *slog.Logger
}

// Factory implements output.SinkFactory on one SQLite database. Every
// sink it opens is pinned to a dedicated connection, so concurrent
// workers never share a session.
type Factory struct {
	db     *sql.DB
	table  string
	raster bool
	logger *slog.Logger
}

// New opens the database in WAL mode with a busy timeout sized for
// concurrent writers.
func New(opts Options) (*Factory, error) {
	if opts.Table == "" {
		opts.Table = "elevation"
	}
	if opts.Connections < 1 {
		opts.Connections = 1
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", opts.Path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, &domain.PersistenceError{Operation: "open", Table: opts.Table, Err: err}
	}
	db.SetMaxOpenConns(opts.Connections)

	return &Factory{
		db:     db,
		table:  opts.Table,
		raster: opts.Raster,
		logger: opts.Logger,
	}, nil
}

// Bootstrap creates the elevation table if it does not exist yet. It
// runs once, before any worker starts; failure aborts the run.
func (f *Factory) Bootstrap(ctx context.Context) error {
	if err := f.db.PingContext(ctx); err != nil {
		return &domain.PersistenceError{Operation: "bootstrap", Table: f.table, Err: err}
	}

	var count int
	if err := f.db.QueryRowContext(ctx, tableExistsQuery, f.table).Scan(&count); err != nil {
		return &domain.PersistenceError{Operation: "bootstrap", Table: f.table, Err: err}
	}
	if count > 0 {
		f.logger.Debug("table exists, nothing to create", "table", f.table)
		return nil
	}

	create := f.valueCreateTable()
	if f.raster {
		create = f.rasterCreateTable()
	}
	if _, err := f.db.ExecContext(ctx, create); err != nil {
		return &domain.PersistenceError{Operation: "bootstrap", Table: f.table, Err: err}
	}

	f.logger.Info("table created", "table", f.table, "raster", f.raster)
	return nil
}

// ValueSink opens a sample-row sink on its own connection.
func (f *Factory) ValueSink(ctx context.Context) (output.ValueSink, error) {
	conn, err := f.db.Conn(ctx)
	if err != nil {
		return nil, &domain.PersistenceError{Operation: "connect", Table: f.table, Err: err}
	}
	return &valueSink{conn: conn, table: f.table}, nil
}

// TileSink opens a raster-tile sink on its own connection.
func (f *Factory) TileSink(ctx context.Context) (output.TileSink, error) {
	conn, err := f.db.Conn(ctx)
	if err != nil {
		return nil, &domain.PersistenceError{Operation: "connect", Table: f.table, Err: err}
	}
	return &tileSink{conn: conn, table: f.table}, nil
}

// Ping reports whether the database answers.
func (f *Factory) Ping(ctx context.Context) error {
	return f.db.PingContext(ctx)
}

// Close releases the database.
func (f *Factory) Close() error {
	return f.db.Close()
}

func (f *Factory) valueCreateTable() string {
	return fmt.Sprintf(`CREATE TABLE "%s" (
		lat_min REAL NOT NULL,
		lng_min REAL NOT NULL,
		lat_max REAL NOT NULL,
		lng_max REAL NOT NULL,
		"value" INTEGER NOT NULL,
		PRIMARY KEY (lat_min, lng_min, lat_max, lng_max)
	)`, f.table) //#nosec G201 -- table name from validated configuration
}

func (f *Factory) rasterCreateTable() string {
	return fmt.Sprintf(`CREATE TABLE "%s" (
		rid INTEGER PRIMARY KEY AUTOINCREMENT,
		lat_min REAL NOT NULL,
		lng_min REAL NOT NULL,
		lat_max REAL NOT NULL,
		lng_max REAL NOT NULL,
		rast BLOB NOT NULL,
		UNIQUE (lat_min, lng_min, lat_max, lng_max)
	)`, f.table) //#nosec G201 -- table name from validated configuration
}

// valueSink writes one row per sample, keyed by the cell bounds.
type valueSink struct {
	conn  *sql.Conn
	table string
}

func (s *valueSink) Insert(ctx context.Context, rec domain.ImportRecord) (bool, error) {
	query := fmt.Sprintf(`INSERT INTO "%s" (lat_min, lng_min, lat_max, lng_max, "value")
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (lat_min, lng_min, lat_max, lng_max) DO NOTHING`,
		s.table) //#nosec G201 -- table name from validated configuration

	res, err := s.conn.ExecContext(ctx, query,
		rec.LatMin, rec.LngMin, rec.LatMax, rec.LngMax, rec.Value)
	if err != nil {
		return false, &domain.PersistenceError{Operation: "insert", Table: s.table, Err: err}
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, &domain.PersistenceError{Operation: "insert", Table: s.table, Err: err}
	}
	return n > 0, nil
}

func (s *valueSink) Close() error {
	return s.conn.Close()
}

// tileSink writes one row per raster tile, keyed by the tile bbox.
type tileSink struct {
	conn  *sql.Conn
	table string
}

func (s *tileSink) Insert(ctx context.Context, tile domain.Tile) (bool, error) {
	query := fmt.Sprintf(`INSERT INTO "%s" (lat_min, lng_min, lat_max, lng_max, rast)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (lat_min, lng_min, lat_max, lng_max) DO NOTHING`,
		s.table) //#nosec G201 -- table name from validated configuration

	ext := tile.Extent
	res, err := s.conn.ExecContext(ctx, query,
		ext.MinLat, ext.MinLng, ext.MaxLat, ext.MaxLng, EncodeTile(tile))
	if err != nil {
		return false, &domain.PersistenceError{Operation: "insert", Table: s.table, Err: err}
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, &domain.PersistenceError{Operation: "insert", Table: s.table, Err: err}
	}
	return n > 0, nil
}

func (s *tileSink) Close() error {
	return s.conn.Close()
}
