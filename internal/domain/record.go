package domain

// ImportRecord is one elevation sample prepared for persistence. The
// bounds describe the unit cell centered on the sample position; they
// form the natural key of the record.
type ImportRecord struct {
	LatMin float64
	LngMin float64
	LatMax float64
	LngMax float64
	Value  int16
}

// NewImportRecord builds the record for the sample at (row, col).
func NewImportRecord(g *Grid, row, col int) ImportRecord {
	cell := g.CellExtent(row, col)
	return ImportRecord{
		LatMin: cell.MinLat,
		LngMin: cell.MinLng,
		LatMax: cell.MaxLat,
		LngMax: cell.MaxLng,
		Value:  g.At(row, col),
	}
}

// IsVoid returns true when the sample carries no measured elevation.
func (r ImportRecord) IsVoid() bool {
	return r.Value == VoidValue
}
