package storage

import (
	"context"
	"io"
)

// Storage is the backend-agnostic artifact store contract.
type Storage interface {
	// Upload writes a file to the storage
	Upload(ctx context.Context, path string, data io.Reader) error

	// Download reads a file from the storage
	Download(ctx context.Context, path string) (io.Reader, error)

	// Exists checks whether a file exists
	Exists(ctx context.Context, path string) (bool, error)

	// Delete removes a file
	Delete(ctx context.Context, path string) error

	// List lists files under a prefix
	List(ctx context.Context, prefix string) ([]string, error)

	// GetURL returns the access URL for a file
	GetURL(ctx context.Context, path string) (string, error)
}

// StorageConfig selects and configures a backend.
type StorageConfig struct {
	Type      string // "filesystem" or "garage"
	BasePath  string // filesystem only
	Endpoint  string // S3/Garage only
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
}
