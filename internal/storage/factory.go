package storage

import (
	"fmt"

	"coursegen-worker/internal/storage/filesystem"
	"coursegen-worker/internal/storage/garage"
	"coursegen-worker/pkg/storage"
)

// NewStorage builds the configured storage backend.
func NewStorage(config *storage.StorageConfig) (storage.Storage, error) {
	switch config.Type {
	case "filesystem":
		return filesystem.NewFilesystemStorage(config.BasePath)
	case "garage":
		return garage.NewGarageStorage(config)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", config.Type)
	}
}
