// Package hgt reads SRTM HGT elevation files.
//
// An HGT file is a square grid of big-endian int16 samples, stored
// row-major from the northwest corner. The file name encodes the
// southwest corner of the covered square, N00E010.hgt style, and the
// grid side length is implied by the file size.
package hgt

import (
	"fmt"
	"strings"

	"github.com/gmalt/hgt/internal/domain"
)

// Extension is the canonical HGT file extension.
const Extension = ".hgt"

// SampleBytes is the storage width of one sample.
const SampleBytes = 2

// ReadError reports a failed read inside an HGT file.
type ReadError struct {
	Path   string // Source file, empty for plain readers
	Offset int64  // Byte offset of the failed read
	Err    error  // Underlying error
}

// Error implements the error interface.
func (e *ReadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("read error in %s at offset %d: %v", e.Path, e.Offset, e.Err)
	}
	return fmt.Sprintf("read error at offset %d: %v", e.Offset, e.Err)
}

// Unwrap returns the underlying error.
func (e *ReadError) Unwrap() error {
	return e.Err
}

// ParseName derives the southwest corner from an HGT file name. The
// name must follow the [N|S]DD[E|W]DDD pattern, with or without the
// .hgt extension.
func ParseName(name string) (domain.Coordinate, error) {
	base := strings.TrimSuffix(name, Extension)
	if len(base) != 7 {
		return domain.Coordinate{}, nameError(name, "must match [N|S]DD[E|W]DDD")
	}

	lat, ok := parseDegrees(base[1:3])
	if !ok {
		return domain.Coordinate{}, nameError(name, "latitude digits are not a number")
	}
	switch base[0] {
	case 'N':
		if lat > 89 {
			return domain.Coordinate{}, nameError(name, "northern latitude must be at most 89")
		}
	case 'S':
		if lat > 90 {
			return domain.Coordinate{}, nameError(name, "southern latitude must be at most 90")
		}
		lat = -lat
	default:
		return domain.Coordinate{}, nameError(name, "hemisphere must be N or S")
	}

	lng, ok := parseDegrees(base[4:7])
	if !ok {
		return domain.Coordinate{}, nameError(name, "longitude digits are not a number")
	}
	switch base[3] {
	case 'E':
		if lng > 179 {
			return domain.Coordinate{}, nameError(name, "eastern longitude must be at most 179")
		}
	case 'W':
		if lng > 180 {
			return domain.Coordinate{}, nameError(name, "western longitude must be at most 180")
		}
		lng = -lng
	default:
		return domain.Coordinate{}, nameError(name, "meridian side must be E or W")
	}

	return domain.NewCoordinate(float64(lat), float64(lng)), nil
}

// FormatName returns the canonical file name for a southwest corner.
func FormatName(sw domain.Coordinate) string {
	ns, lat := 'N', int(sw.Lat)
	if lat < 0 {
		ns, lat = 'S', -lat
	}
	ew, lng := 'E', int(sw.Lng)
	if lng < 0 {
		ew, lng = 'W', -lng
	}
	return fmt.Sprintf("%c%02d%c%03d%s", ns, lat, ew, lng, Extension)
}

func parseDegrees(s string) (int, bool) {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, true
}

func nameError(name, message string) error {
	return &domain.ValidationError{
		Field:      "filename",
		Value:      name,
		Constraint: "[N|S]DD[E|W]DDD" + Extension,
		Message:    message,
	}
}
