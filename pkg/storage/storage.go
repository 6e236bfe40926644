// Package storage persists raw source snapshots. Each day's payloads are
// written verbatim under raw/<date>/<source file>; other tooling depends
// on that key layout, whichever backend holds the bytes.
package storage

import (
    "context"
    "fmt"
    "io"
    "path"
    "time"

    "github.com/anasnay11/mobility-pipeline/pkg/logger"
    "github.com/anasnay11/mobility-pipeline/pkg/storage/local"
    "github.com/anasnay11/mobility-pipeline/pkg/storage/minio"
    "github.com/anasnay11/mobility-pipeline/pkg/storage/s3"
)

// StorageType selects a snapshot backend
type StorageType string

const (
    StorageTypeLocal StorageType = "local"
    StorageTypeS3    StorageType = "s3"
    StorageTypeMinio StorageType = "minio"
)

// Storage interface
type Storage interface {
    // Store writes a snapshot blob, overwriting any same-day snapshot
    Store(ctx context.Context, reader io.Reader, key string) (string, error)
    // Get reads a snapshot blob back
    Get(ctx context.Context, key string) (io.ReadCloser, error)
    // Delete removes one blob
    Delete(ctx context.Context, key string) error
    // CleanupBefore removes snapshots older than the threshold
    CleanupBefore(ctx context.Context, threshold time.Time) error
}

// SnapshotKey builds the date-partitioned key for one source snapshot.
func SnapshotKey(date time.Time, filename string) string {
    return path.Join("raw", date.Format("2006-01-02"), filename)
}

// NewStorage creates the configured snapshot backend
func NewStorage(storageType StorageType, logger logger.Logger) (Storage, error) {
    switch storageType {
    case StorageTypeLocal:
        return local.GetClient(logger)
    case StorageTypeS3:
        return s3.GetClient(logger)
    case StorageTypeMinio:
        return minio.GetClient(logger)
    default:
        return nil, fmt.Errorf("unsupported storage type: %s", storageType)
    }
}
