package application

import (
	"context"
	"os"
	"path/filepath"

	"github.com/gmalt/hgt/internal/hgt"
	"github.com/gmalt/hgt/internal/ports/input"
)

// Pinger reports whether the database behind the sinks answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthService provides health check functionality for the import
// service.
type HealthService struct {
	folder string
	db     Pinger
}

// NewHealthService creates a new health service. db may be nil when
// the service runs without a database, read-only lookups for example.
func NewHealthService(folder string, db Pinger) *HealthService {
	return &HealthService{
		folder: folder,
		db:     db,
	}
}

// IsHealthy returns true if the service is healthy.
func (s *HealthService) IsHealthy(ctx context.Context) bool {
	return true // Basic health check
}

// IsReady returns true if the service can process imports: the
// working folder exists and the database answers.
func (s *HealthService) IsReady(ctx context.Context) bool {
	if !s.folderOK() {
		return false
	}
	if s.db != nil && s.db.Ping(ctx) != nil {
		return false
	}
	return true
}

// GetHealthDetails returns detailed health information.
func (s *HealthService) GetHealthDetails(ctx context.Context) input.HealthDetails {
	components := map[string]string{
		"folder": componentStatus(s.folderOK()),
	}
	if s.db != nil {
		components["database"] = componentStatus(s.db.Ping(ctx) == nil)
	}

	return input.HealthDetails{
		Healthy:    s.IsHealthy(ctx),
		Ready:      s.IsReady(ctx),
		FilesFound: s.countFiles(),
		Components: components,
	}
}

func (s *HealthService) folderOK() bool {
	info, err := os.Stat(s.folder)
	return err == nil && info.IsDir()
}

// countFiles counts the HGT files currently visible in the working
// folder.
func (s *HealthService) countFiles() int {
	matches, err := filepath.Glob(filepath.Join(s.folder, "*"+hgt.Extension))
	if err != nil {
		return 0
	}
	return len(matches)
}

func componentStatus(ok bool) string {
	if ok {
		return "ok"
	}
	return "unhealthy"
}
