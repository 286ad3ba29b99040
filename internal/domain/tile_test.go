package domain

import (
	"errors"
	"testing"
)

func newTestGrid(t *testing.T, n int) *Grid {
	t.Helper()
	g, err := NewGrid(NewCoordinate(0, 10), n)
	if err != nil {
		t.Fatalf("NewGrid() error = %v", err)
	}
	g.Samples = make([]int16, n*n)
	for i := range g.Samples {
		g.Samples[i] = int16(i)
	}
	return g
}

func TestNewTilerInvalidSize(t *testing.T) {
	g := newTestGrid(t, 3)

	tests := []struct {
		name       string
		lngSamples int
		latSamples int
	}{
		{"negative width", -1, 2},
		{"negative height", 2, -1},
		{"zero width only", 0, 2},
		{"zero height only", 2, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTiler(g, tt.lngSamples, tt.latSamples)
			if !errors.Is(err, ErrInvalidTileSize) {
				t.Errorf("NewTiler(%d, %d) error = %v, want ErrInvalidTileSize",
					tt.lngSamples, tt.latSamples, err)
			}
		})
	}
}

func TestTilerWholeGrid(t *testing.T) {
	g := newTestGrid(t, 3)

	tiler, err := NewTiler(g, 0, 0)
	if err != nil {
		t.Fatalf("NewTiler() error = %v", err)
	}

	tile, ok := tiler.Next()
	if !ok {
		t.Fatal("Next() returned no tile")
	}
	if tile.Row != 0 || tile.Col != 0 || tile.Width != 3 || tile.Height != 3 {
		t.Errorf("tile = %dx%d at (%d, %d), want 3x3 at (0, 0)",
			tile.Width, tile.Height, tile.Row, tile.Col)
	}
	if tile.Extent != g.Extent() {
		t.Errorf("tile extent = %v, want %v", tile.Extent, g.Extent())
	}
	if len(tile.Samples) != 9 {
		t.Errorf("len(Samples) = %d, want 9", len(tile.Samples))
	}

	if _, ok := tiler.Next(); ok {
		t.Error("Next() should be exhausted after the whole grid tile")
	}
}

func TestTilerClipsEdges(t *testing.T) {
	g := newTestGrid(t, 5)

	tiler, err := NewTiler(g, 2, 3)
	if err != nil {
		t.Fatalf("NewTiler() error = %v", err)
	}

	var tiles []Tile
	for {
		tile, ok := tiler.Next()
		if !ok {
			break
		}
		tiles = append(tiles, tile)
	}

	// 5 columns in blocks of 2 -> widths 2, 2, 1; 5 lines in blocks
	// of 3 -> heights 3, 2.
	if len(tiles) != 6 {
		t.Fatalf("len(tiles) = %d, want 6", len(tiles))
	}

	wantDims := []struct {
		row, col      int
		width, height int
	}{
		{0, 0, 2, 3},
		{0, 2, 2, 3},
		{0, 4, 1, 3},
		{3, 0, 2, 2},
		{3, 2, 2, 2},
		{3, 4, 1, 2},
	}

	for i, want := range wantDims {
		got := tiles[i]
		if got.Row != want.row || got.Col != want.col ||
			got.Width != want.width || got.Height != want.height {
			t.Errorf("tile %d = %dx%d at (%d, %d), want %dx%d at (%d, %d)",
				i, got.Width, got.Height, got.Row, got.Col,
				want.width, want.height, want.row, want.col)
		}
		if len(got.Samples) != got.Width*got.Height {
			t.Errorf("tile %d: len(Samples) = %d, want %d",
				i, len(got.Samples), got.Width*got.Height)
		}
	}
}

func TestTilerCoversEveryCellOnce(t *testing.T) {
	g := newTestGrid(t, 5)

	tiler, err := NewTiler(g, 3, 2)
	if err != nil {
		t.Fatalf("NewTiler() error = %v", err)
	}

	seen := make([]int, 5*5)
	for {
		tile, ok := tiler.Next()
		if !ok {
			break
		}
		for r := tile.Row; r < tile.Row+tile.Height; r++ {
			for c := tile.Col; c < tile.Col+tile.Width; c++ {
				seen[g.Index(r, c)]++
			}
		}
	}

	for i, n := range seen {
		if n != 1 {
			t.Errorf("cell %d covered %d times, want exactly once", i, n)
		}
	}
}

func TestTilerUnionEqualsGridExtent(t *testing.T) {
	// N=5 keeps the cell size at 0.25 so the union can be compared
	// exactly.
	g := newTestGrid(t, 5)

	tiler, err := NewTiler(g, 2, 2)
	if err != nil {
		t.Fatalf("NewTiler() error = %v", err)
	}

	first := true
	var union Extent
	for {
		tile, ok := tiler.Next()
		if !ok {
			break
		}
		if first {
			union = tile.Extent
			first = false
			continue
		}
		if tile.Extent.MinLat < union.MinLat {
			union.MinLat = tile.Extent.MinLat
		}
		if tile.Extent.MinLng < union.MinLng {
			union.MinLng = tile.Extent.MinLng
		}
		if tile.Extent.MaxLat > union.MaxLat {
			union.MaxLat = tile.Extent.MaxLat
		}
		if tile.Extent.MaxLng > union.MaxLng {
			union.MaxLng = tile.Extent.MaxLng
		}
	}

	if union != g.Extent() {
		t.Errorf("union of tile extents = %v, want %v", union, g.Extent())
	}
}

func TestTilerSamples(t *testing.T) {
	g := newTestGrid(t, 4)

	tiler, err := NewTiler(g, 3, 3)
	if err != nil {
		t.Fatalf("NewTiler() error = %v", err)
	}

	want := [][]int16{
		{0, 1, 2, 4, 5, 6, 8, 9, 10},
		{3, 7, 11},
		{12, 13, 14},
		{15},
	}

	for i, wantSamples := range want {
		tile, ok := tiler.Next()
		if !ok {
			t.Fatalf("Next() exhausted after %d tiles, want %d", i, len(want))
		}
		if len(tile.Samples) != len(wantSamples) {
			t.Fatalf("tile %d: len(Samples) = %d, want %d",
				i, len(tile.Samples), len(wantSamples))
		}
		for j, v := range wantSamples {
			if tile.Samples[j] != v {
				t.Errorf("tile %d sample %d = %d, want %d", i, j, tile.Samples[j], v)
			}
		}
	}

	if _, ok := tiler.Next(); ok {
		t.Error("Next() should be exhausted")
	}
}

func TestTileAt(t *testing.T) {
	g := newTestGrid(t, 4)

	tiler, err := NewTiler(g, 3, 3)
	if err != nil {
		t.Fatalf("NewTiler() error = %v", err)
	}

	tile, ok := tiler.Next()
	if !ok {
		t.Fatal("Next() returned no tile")
	}

	if got := tile.At(1, 1); got != 5 {
		t.Errorf("At(1, 1) = %d, want 5", got)
	}
	if got := tile.At(2, 0); got != 8 {
		t.Errorf("At(2, 0) = %d, want 8", got)
	}
}
