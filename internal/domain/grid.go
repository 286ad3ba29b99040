package domain

import (
	"math"
)

// VoidValue marks a missing sample in SRTM data. It is distinct from a
// valid zero elevation.
const VoidValue int16 = -32768

// Common grid resolutions (samples per side).
const (
	ResolutionSRTM3 = 1201 // 3 arc-second
	ResolutionSRTM1 = 3601 // 1 arc-second
)

// ResolutionFromSize derives the grid side length from a file byte length.
// A valid HGT file holds exactly N*N two-byte samples for some N >= 2.
func ResolutionFromSize(byteLength int64) (int, error) {
	if byteLength <= 0 {
		return 0, &MalformedGridError{
			ByteLength: byteLength,
			Reason:     "empty file",
		}
	}
	n := int(math.Round(math.Sqrt(float64(byteLength) / 2)))
	if n < 2 {
		return 0, &MalformedGridError{
			ByteLength: byteLength,
			Reason:     "grid side must be at least 2 samples",
		}
	}
	if int64(n)*int64(n)*2 != byteLength {
		return 0, &MalformedGridError{
			ByteLength: byteLength,
			Reason:     "length does not describe a square grid of 2-byte samples",
		}
	}
	return n, nil
}

// Grid represents a square elevation sample grid covering a nominal
// 1x1 degree square. Row 0 is the northernmost line, column 0 the
// westernmost; latitude decreases as rows increase.
type Grid struct {
	SW      Coordinate // Southwest corner of the nominal square
	N       int        // Samples per side
	Samples []int16    // Row-major samples, north to south; nil for index-only grids
}

// NewGrid creates an index-only grid (no sample data) for the given
// southwest corner and resolution.
func NewGrid(sw Coordinate, n int) (*Grid, error) {
	if n < 2 {
		return nil, &MalformedGridError{
			ByteLength: int64(n) * int64(n) * 2,
			Reason:     "grid side must be at least 2 samples",
		}
	}
	return &Grid{SW: sw, N: n}, nil
}

// CellSize returns the angular spacing between two adjacent samples in
// degrees. Edge samples sit exactly on the degree lines, so N samples
// span one degree in N-1 steps.
func (g *Grid) CellSize() float64 {
	return 1 / float64(g.N-1)
}

// Extent returns the area covered by the grid. Samples are cell centers,
// so the covered area extends half a cell beyond the nominal square on
// every side.
func (g *Grid) Extent() Extent {
	half := g.CellSize() / 2
	return Extent{
		MinLat: g.SW.Lat - half,
		MinLng: g.SW.Lng - half,
		MaxLat: g.SW.Lat + 1 + half,
		MaxLng: g.SW.Lng + 1 + half,
	}
}

// Contains checks if a coordinate falls in the covered area.
func (g *Grid) Contains(c Coordinate) bool {
	return g.Extent().ContainsStrict(c)
}

// OffsetFor maps a coordinate onto the row and column of its nearest
// sample. Rounding is half away from zero. Returns a
// PointOutOfBoundsError when the coordinate falls outside the covered
// area.
func (g *Grid) OffsetFor(c Coordinate) (row, col int, err error) {
	if !g.Contains(c) {
		return 0, 0, &PointOutOfBoundsError{Point: c, Extent: g.Extent()}
	}
	fracLat := c.Lat - g.SW.Lat
	fracLng := c.Lng - g.SW.Lng
	col = int(math.Round(fracLng * float64(g.N-1)))
	row = (g.N - 1) - int(math.Round(fracLat*float64(g.N-1)))
	if row < 0 || row >= g.N || col < 0 || col >= g.N {
		return 0, 0, &PointOutOfBoundsError{Point: c, Extent: g.Extent()}
	}
	return row, col, nil
}

// Index returns the position of a sample in the row-major sample array.
func (g *Grid) Index(row, col int) int {
	return row*g.N + col
}

// At returns the sample at the given offset. The caller is responsible
// for bounds, normally via OffsetFor.
func (g *Grid) At(row, col int) int16 {
	return g.Samples[g.Index(row, col)]
}

// SamplePosition returns the geographic position of a sample.
func (g *Grid) SamplePosition(row, col int) Coordinate {
	cell := g.CellSize()
	return Coordinate{
		Lat: g.SW.Lat + 1 - float64(row)*cell,
		Lng: g.SW.Lng + float64(col)*cell,
	}
}

// CellExtent returns the unit cell centered on a sample position.
func (g *Grid) CellExtent(row, col int) Extent {
	return g.BlockExtent(row, col, 1, 1)
}

// BlockExtent returns the bounding box of a height x width block of
// cells whose northwest sample sits at (row, col). The box is measured
// from the outer corners of the covered cells.
func (g *Grid) BlockExtent(row, col, height, width int) Extent {
	cell := g.CellSize()
	nw := g.SamplePosition(row, col)
	top := nw.Lat + cell/2
	left := nw.Lng - cell/2
	return Extent{
		MinLat: top - float64(height)*cell,
		MinLng: left,
		MaxLat: top,
		MaxLng: left + float64(width)*cell,
	}
}
