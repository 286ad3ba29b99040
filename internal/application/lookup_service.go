package application

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/gmalt/hgt/internal/domain"
	"github.com/gmalt/hgt/internal/hgt"
)

// LookupService answers point lookups against a single HGT file. The
// file is opened per request; a lookup reads exactly one sample, so
// there is nothing worth caching between calls.
type LookupService struct {
	logger *slog.Logger
}

// NewLookupService creates a new lookup service.
func NewLookupService(logger *slog.Logger) *LookupService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LookupService{logger: logger}
}

// Lookup maps the coordinate to its nearest sample in the file and
// reads it.
func (s *LookupService) Lookup(ctx context.Context, req domain.LookupRequest) (*domain.LookupResult, error) {
	start := time.Now()

	if err := req.Coordinate.Validate(); err != nil {
		return nil, err
	}

	f, err := hgt.Open(req.Path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	row, col, value, err := f.ValueAt(req.Coordinate)
	if err != nil {
		return nil, err
	}

	result := &domain.LookupResult{
		Row:     row,
		Col:     col,
		Void:    value == domain.VoidValue,
		Elapsed: time.Since(start),
	}
	if !result.Void {
		result.Value = value
	}

	s.logger.Debug("lookup answered",
		"file", filepath.Base(req.Path),
		"lat", req.Coordinate.Lat,
		"lng", req.Coordinate.Lng,
		"row", row,
		"col", col,
		"void", result.Void,
		"elapsed", result.Elapsed)
	return result, nil
}
