package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	cfg "github.com/adpanel/adpanel/internal/config"
)

// Storage defines the interface for media object storage
type Storage interface {
	// Save stores an object at the given key
	Save(ctx context.Context, key string, body io.Reader, contentType string) error

	// Delete removes the object at the given key
	Delete(ctx context.Context, key string) error

	// URL returns a URL a display can fetch the object from
	URL(ctx context.Context, key string) string
}

// New builds the storage backend selected by STORAGE_DRIVER.
func New(c *cfg.Config) (Storage, error) {
	switch c.StorageDriver {
	case "s3":
		slog.Info("initializing S3 storage",
			"bucket", c.S3Bucket,
			"region", c.S3Region,
			"endpoint", c.S3Endpoint,
		)
		return NewS3Storage(context.Background(), S3Config{
			Region:        c.S3Region,
			Bucket:        c.S3Bucket,
			AccessKey:     c.S3AccessKey,
			SecretKey:     c.S3SecretKey,
			Endpoint:      c.S3Endpoint,
			PresignExpiry: c.S3PresignExpiry,
		})
	case "local", "":
		slog.Info("initializing local storage", "path", c.StorageLocalPath)
		return NewLocalStorage(c.StorageLocalPath, c.PublicDomain+"/uploads")
	default:
		return nil, fmt.Errorf("unknown storage driver: %s (supported: local, s3)", c.StorageDriver)
	}
}
