// Package dataset loads the descriptor files that name the archives of
// an SRTM collection and where to fetch them.
package dataset

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/gmalt/hgt/internal/domain"
	"github.com/gmalt/hgt/internal/hgt"
)

// FileRef locates one remote archive of a dataset.
type FileRef struct {
	URL string `json:"url" yaml:"url"`
	Zip string `json:"zip" yaml:"zip"`
	MD5 string `json:"md5,omitempty" yaml:"md5,omitempty"`
}

// Dataset maps HGT file names to their remote archives. A Dataset is
// loaded once at startup, validated eagerly, and passed by value from
// then on.
type Dataset struct {
	Sampling int                `json:"sampling" yaml:"sampling"`
	Files    map[string]FileRef `json:"files" yaml:"files"`
}

// Load reads and validates the descriptor at path. JSON is the original
// format; .yaml and .yml variants are accepted too.
func Load(path string) (Dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("reading dataset %s: %w", path, err)
	}

	var d Dataset
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &d)
	default:
		err = json.Unmarshal(raw, &d)
	}
	if err != nil {
		return Dataset{}, fmt.Errorf("parsing dataset %s: %w", path, err)
	}

	if err := d.Validate(); err != nil {
		return Dataset{}, fmt.Errorf("dataset %s: %w", path, err)
	}
	return d, nil
}

// Validate checks that the descriptor is complete enough to drive a
// run: a plausible sampling, at least one file, parseable file names,
// and a URL and archive name for every entry.
func (d Dataset) Validate() error {
	if d.Sampling < 2 {
		return &domain.ValidationError{
			Field:      "sampling",
			Value:      d.Sampling,
			Constraint: "at least 2 samples per side",
			Message:    "invalid grid sampling",
		}
	}
	if len(d.Files) == 0 {
		return fmt.Errorf("no files listed: %w", domain.ErrInvalidDataset)
	}
	for _, name := range d.Names() {
		ref := d.Files[name]
		if _, err := hgt.ParseName(name); err != nil {
			return fmt.Errorf("file %q: %w", name, err)
		}
		if ref.URL == "" {
			return &domain.ValidationError{
				Field:      name,
				Value:      ref.URL,
				Constraint: "non-empty url",
				Message:    "missing archive URL",
			}
		}
		if ref.Zip == "" {
			return &domain.ValidationError{
				Field:      name,
				Value:      ref.Zip,
				Constraint: "non-empty zip",
				Message:    "missing archive name",
			}
		}
		if ref.MD5 != "" {
			if sum, err := hex.DecodeString(ref.MD5); err != nil || len(sum) != 16 {
				return &domain.ValidationError{
					Field:      name,
					Value:      ref.MD5,
					Constraint: "32 hex characters",
					Message:    "invalid md5 checksum",
				}
			}
		}
	}
	return nil
}

// Names returns the file names in lexical order so every run walks the
// dataset deterministically.
func (d Dataset) Names() []string {
	names := make([]string, 0, len(d.Files))
	for name := range d.Files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Items builds one pending WorkItem per dataset entry, targeting the
// given working folder. Nothing is touched on disk.
func (d Dataset) Items(folder string) ([]domain.WorkItem, error) {
	now := time.Now()
	items := make([]domain.WorkItem, 0, len(d.Files))
	for _, name := range d.Names() {
		ref := d.Files[name]
		sw, err := hgt.ParseName(name)
		if err != nil {
			return nil, fmt.Errorf("file %q: %w", name, err)
		}
		items = append(items, domain.WorkItem{
			Name:       name,
			Path:       filepath.Join(folder, name),
			URL:        ref.URL,
			Zip:        ref.Zip,
			MD5:        ref.MD5,
			SW:         sw,
			Resolution: d.Sampling,
			Status:     domain.StatusPending,
			QueuedAt:   now,
		})
	}
	return items, nil
}
