package storage

import (
	"context"
	"fmt"

	"github.com/hkakademi/media/internal/config"
)

// PutResult describes a successfully written object.
type PutResult struct {
	URL  string
	Key  string
	Size int64
}

// Storage is the uniform contract over the local-disk and S3-compatible
// backends. Keys are backend-relative, forward-slash paths supplied by the
// caller; the adapter never invents naming.
type Storage interface {
	// Put writes data under key and returns its public address and size.
	// Failures are fatal to the upload attempt in progress.
	Put(ctx context.Context, key string, data []byte, contentType string) (PutResult, error)

	// Delete removes the object. Deleting a missing object is a no-op success.
	Delete(ctx context.Context, key string) error

	// Exists is a best-effort existence check.
	Exists(ctx context.Context, key string) (bool, error)

	// PublicURL is a pure function of configuration and key.
	PublicURL(key string) string
}

// New selects a backend from config. Callers never learn which one is active.
func New(cfg *config.Config) (Storage, error) {
	switch cfg.StorageDriver {
	case "local", "":
		return NewLocalStorage(cfg.LocalPath, cfg.LocalBaseURL)
	case "s3":
		return NewS3Storage(context.Background(), S3Config{
			Region:       cfg.S3Region,
			Bucket:       cfg.S3Bucket,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			Endpoint:     cfg.S3Endpoint,
			PublicURL:    cfg.S3PublicURL,
			UsePathStyle: cfg.S3UsePathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

// EntityPath builds the storage key for one derived file:
// {entityType}s/{entityId}/{filename}.
func EntityPath(entityType string, entityID int64, filename string) string {
	return fmt.Sprintf("%ss/%d/%s", entityType, entityID, filename)
}
