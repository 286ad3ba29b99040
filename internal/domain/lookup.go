package domain

import "time"

// LookupRequest represents a point lookup against a single HGT file.
type LookupRequest struct {
	Coordinate Coordinate // Query position
	Path       string     // HGT file to search
}

// LookupResult represents the result of a point lookup.
type LookupResult struct {
	Row     int           // Grid line, 0 = northernmost
	Col     int           // Grid column, 0 = westernmost
	Value   int16         // Decoded sample, zero value when void
	Void    bool          // True when the sample is the void marker
	Elapsed time.Duration // Lookup execution time
}

// HasValue returns true if a measured elevation was found.
func (r *LookupResult) HasValue() bool {
	return !r.Void
}
