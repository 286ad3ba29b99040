package pipeline

import (
	"context"

	"github.com/gmalt/hgt/internal/domain"
	"github.com/gmalt/hgt/internal/hgt"
	"github.com/gmalt/hgt/internal/ports/output"
	"github.com/gmalt/hgt/internal/worker"
)

// importHandler returns the worker handler for the import stage. Each
// invocation checks a dedicated database session out of the factory,
// so concurrent workers never share a connection.
func (p *Pipeline) importHandler() worker.Handler[domain.WorkItem] {
	return func(ctx context.Context, item domain.WorkItem) (int64, error) {
		f, err := hgt.Open(item.Path)
		if err != nil {
			return 0, err
		}
		defer func() { _ = f.Close() }()

		g, err := f.ReadGrid()
		if err != nil {
			return 0, err
		}

		if p.opts.Raster {
			return p.importTiles(ctx, g)
		}
		return p.importValues(ctx, g)
	}
}

// importValues writes one row per sample, skipping voids. The
// returned count is rows actually inserted; re-importing a file that
// is already in the table counts zero.
func (p *Pipeline) importValues(ctx context.Context, g *domain.Grid) (int64, error) {
	sink, err := p.opts.Sinks.ValueSink(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = sink.Close() }()

	var rows int64
	for row := 0; row < g.N; row++ {
		for col := 0; col < g.N; col++ {
			if g.At(row, col) == domain.VoidValue {
				continue
			}
			inserted, err := sink.Insert(ctx, domain.NewImportRecord(g, row, col))
			if err != nil {
				return rows, err
			}
			p.metrics.AddRows(output.RowKindValue, inserted, 1)
			if inserted {
				rows++
			}
		}
	}
	return rows, nil
}

// importTiles cuts the grid into WKB raster tiles. Void samples stay
// in the tiles as nodata, so the returned count is samples carried by
// newly inserted tiles.
func (p *Pipeline) importTiles(ctx context.Context, g *domain.Grid) (int64, error) {
	sink, err := p.opts.Sinks.TileSink(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = sink.Close() }()

	tiler, err := domain.NewTiler(g, p.opts.SampleWidth, p.opts.SampleHeight)
	if err != nil {
		return 0, err
	}

	var rows int64
	for {
		tile, ok := tiler.Next()
		if !ok {
			return rows, nil
		}
		inserted, err := sink.Insert(ctx, tile)
		if err != nil {
			return rows, err
		}
		n := int64(len(tile.Samples))
		p.metrics.AddRows(output.RowKindTile, inserted, n)
		if inserted {
			rows += n
		}
	}
}
