package domain

// Tile is a rectangular block of samples cut from a parent grid.
type Tile struct {
	Row     int     // Parent row of the northwest sample
	Col     int     // Parent column of the northwest sample
	Width   int     // Samples per line
	Height  int     // Lines
	Extent  Extent  // Outer bounding box of the covered cells
	Samples []int16 // Row-major samples, north to south; nil if the parent holds no data
}

// At returns the tile sample at the given local offset.
func (t Tile) At(row, col int) int16 {
	return t.Samples[row*t.Width+col]
}

// Tiler cuts a grid into rectangular tiles, row-major from the
// northwest corner. Tiles on the southern and eastern edges are clipped
// to the grid boundary. Every sample belongs to exactly one tile and
// the union of all tile extents equals the grid extent.
//
// A Tiler is a single-pass iterator. It is not safe for concurrent use.
type Tiler struct {
	grid   *Grid
	width  int
	height int
	row    int
	col    int
}

// NewTiler creates a tiler producing tiles of lngSamples x latSamples.
// Passing zero for both dimensions produces a single tile covering the
// whole grid. Negative or partially zero dimensions are invalid.
func NewTiler(g *Grid, lngSamples, latSamples int) (*Tiler, error) {
	if lngSamples == 0 && latSamples == 0 {
		lngSamples, latSamples = g.N, g.N
	}
	if lngSamples <= 0 || latSamples <= 0 {
		return nil, ErrInvalidTileSize
	}
	return &Tiler{grid: g, width: lngSamples, height: latSamples}, nil
}

// Next returns the next tile. The second return value is false once the
// grid is exhausted.
func (t *Tiler) Next() (Tile, bool) {
	if t.row >= t.grid.N {
		return Tile{}, false
	}
	h := min(t.height, t.grid.N-t.row)
	w := min(t.width, t.grid.N-t.col)
	tile := Tile{
		Row:    t.row,
		Col:    t.col,
		Width:  w,
		Height: h,
		Extent: t.grid.BlockExtent(t.row, t.col, h, w),
	}
	if t.grid.Samples != nil {
		tile.Samples = make([]int16, 0, h*w)
		for r := t.row; r < t.row+h; r++ {
			start := t.grid.Index(r, t.col)
			tile.Samples = append(tile.Samples, t.grid.Samples[start:start+w]...)
		}
	}
	t.col += t.width
	if t.col >= t.grid.N {
		t.col = 0
		t.row += t.height
	}
	return tile, true
}
