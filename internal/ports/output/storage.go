// Package output defines the secondary/driven ports of the application.
package output

import (
	"context"
)

// ObjectStorage defines the secondary port for fetching HGT archives
// from a remote mirror.
type ObjectStorage interface {
	// Download fetches an archive to the local filesystem.
	Download(ctx context.Context, obj StorageObject, dest string) error

	// Exists checks if an archive is present on the mirror.
	Exists(ctx context.Context, obj StorageObject) (bool, error)
}

// StorageObject identifies an archive on a mirror. HTTP mirrors address
// objects by absolute URL, bucket mirrors by key.
type StorageObject struct {
	Key  string // Object key/path within the mirror
	URL  string // Absolute source URL, HTTP mirrors only
	Size int64  // Size in bytes, 0 when unknown
}

// StorageType represents the type of storage backend.
type StorageType string

const (
	StorageTypeS3    StorageType = "s3"
	StorageTypeAzure StorageType = "azure"
	StorageTypeHTTP  StorageType = "http"
	StorageTypeLocal StorageType = "local"
)
