package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/aws/smithy-go"
)

// BackupFile represents a stored backup object
type BackupFile struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Storage defines the interface for backup storage backends.
// List returns objects in backend order; callers that need a stable
// ordering sort by LastModified themselves.
type Storage interface {
	// Store saves backup data with the given key
	Store(ctx context.Context, key string, reader io.Reader) error

	// List returns all backups whose key starts with prefix
	List(ctx context.Context, prefix string) ([]BackupFile, error)

	// Delete removes a backup
	Delete(ctx context.Context, key string) error

	// Get retrieves a backup for reading
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// StorageType creates Storage instances from configuration.
// Each storage backend implements this interface to provide factory functionality.
type StorageType interface {
	// Name returns the type identifier ("local", "s3", etc.)
	Name() string

	// Create instantiates storage from pool configuration options
	Create(poolName string, options map[string]string) (Storage, error)
}

// IsNotFound reports whether err is a backend "object does not exist"
// error. Cleanup tolerates these: a delete racing an eventually
// consistent listing is treated as already done.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, os.ErrNotExist) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
