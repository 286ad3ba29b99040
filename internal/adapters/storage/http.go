package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gmalt/hgt/internal/domain"
	"github.com/gmalt/hgt/internal/ports/output"
)

// HTTPStorage implements ObjectStorage for plain HTTP(S) mirrors. SRTM
// collections publish one absolute URL per archive, so an object's own
// URL wins over the configured base URL.
type HTTPStorage struct {
	client   *http.Client
	baseURL  string
	username string
	password string
}

// HTTPConfig holds HTTP storage configuration.
type HTTPConfig struct {
	BaseURL  string
	Timeout  time.Duration
	Username string
	Password string
}

// NewHTTPStorage creates a new HTTP storage adapter.
func NewHTTPStorage(cfg HTTPConfig) *HTTPStorage {
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Minute
	}

	return &HTTPStorage{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
		username: cfg.Username,
		password: cfg.Password,
	}
}

// Download fetches an archive over HTTP into dest.
func (s *HTTPStorage) Download(ctx context.Context, obj output.StorageObject, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0750); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.objectURL(obj), nil)
	if err != nil {
		return err
	}
	if s.username != "" && s.password != "" {
		req.SetBasicAuth(s.username, s.password)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return &domain.StorageError{Operation: "download", Key: obj.Key, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return &domain.StorageError{Operation: "download", Key: obj.Key, Err: domain.ErrObjectNotFound}
	}
	if resp.StatusCode != http.StatusOK {
		return &domain.StorageError{
			Operation: "download",
			Key:       obj.Key,
			Err:       fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	f, err := os.Create(dest) //#nosec G304 -- dest is a controlled local path
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	_, err = io.Copy(f, resp.Body)
	return err
}

// Exists checks the archive with a HEAD request.
func (s *HTTPStorage) Exists(ctx context.Context, obj output.StorageObject) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, s.objectURL(obj), nil)
	if err != nil {
		return false, err
	}
	if s.username != "" && s.password != "" {
		req.SetBasicAuth(s.username, s.password)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return false, nil //nolint:nilerr // intentionally ignoring error when connection fails
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode == http.StatusOK, nil
}

// objectURL resolves the remote location of an object.
func (s *HTTPStorage) objectURL(obj output.StorageObject) string {
	if obj.URL != "" {
		return obj.URL
	}
	return s.baseURL + "/" + obj.Key
}
