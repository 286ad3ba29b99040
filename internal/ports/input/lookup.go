// Package input defines the primary/driving ports of the application.
package input

import (
	"context"

	"github.com/gmalt/hgt/internal/domain"
)

// LookupService defines the primary port for point lookups against a
// single HGT file.
type LookupService interface {
	// Lookup maps a coordinate to its nearest sample and reads it.
	Lookup(ctx context.Context, req domain.LookupRequest) (*domain.LookupResult, error)
}

// HealthChecker defines the primary port for health checks.
type HealthChecker interface {
	// IsHealthy returns true if the service is healthy.
	IsHealthy(ctx context.Context) bool

	// IsReady returns true if the service is ready to process imports.
	IsReady(ctx context.Context) bool

	// GetHealthDetails returns detailed health information.
	GetHealthDetails(ctx context.Context) HealthDetails
}

// HealthDetails contains detailed health information.
type HealthDetails struct {
	Healthy    bool              // Overall health status
	Ready      bool              // Ready to process imports
	FilesFound int               // HGT files visible in the working folder
	Components map[string]string // Component statuses
}
