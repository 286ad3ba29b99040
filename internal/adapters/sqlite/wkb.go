package sqlite

import (
	"encoding/binary"
	"math"

	"github.com/gmalt/hgt/internal/domain"
)

// WKB raster constants, following the PostGIS raster serialization so
// stored blobs can later be moved into PostGIS via ST_RastFromWKB.
const (
	wkbLittleEndian = 1
	wkbVersion      = 0

	// Pixel type 16BSI (signed 16-bit integer) with the has-nodata
	// flag set.
	wkbPixType16BSI = 5
	wkbHasNodata    = 0x40
)

// EncodeTile serializes a tile as a little-endian WKB raster with one
// 16BSI band. The geo-reference puts the insertion point at the tile's
// northwest corner with a negative Y scale, matching the north-to-south
// sample order.
func EncodeTile(t domain.Tile) []byte {
	scaleX := t.Extent.Width() / float64(t.Width)
	scaleY := -t.Extent.Height() / float64(t.Height)

	size := 61 + 3 + len(t.Samples)*2
	b := make([]byte, 0, size)

	// Raster header.
	b = append(b, wkbLittleEndian)
	b = binary.LittleEndian.AppendUint16(b, wkbVersion)
	b = binary.LittleEndian.AppendUint16(b, 1) // one band
	b = binary.LittleEndian.AppendUint64(b, math.Float64bits(scaleX))
	b = binary.LittleEndian.AppendUint64(b, math.Float64bits(scaleY))
	b = binary.LittleEndian.AppendUint64(b, math.Float64bits(t.Extent.MinLng))
	b = binary.LittleEndian.AppendUint64(b, math.Float64bits(t.Extent.MaxLat))
	b = binary.LittleEndian.AppendUint64(b, math.Float64bits(0)) // skew X
	b = binary.LittleEndian.AppendUint64(b, math.Float64bits(0)) // skew Y
	b = binary.LittleEndian.AppendUint32(b, uint32(domain.SRIDWGS84))
	b = binary.LittleEndian.AppendUint16(b, uint16(t.Width))
	b = binary.LittleEndian.AppendUint16(b, uint16(t.Height))

	// Band header: pixel type plus flags, then the nodata value in the
	// band's pixel type.
	b = append(b, wkbPixType16BSI|wkbHasNodata)
	nodata := domain.VoidValue
	b = binary.LittleEndian.AppendUint16(b, uint16(nodata))

	// Band data, row-major from the northwest corner.
	for _, v := range t.Samples {
		b = binary.LittleEndian.AppendUint16(b, uint16(v))
	}
	return b
}
