package local

import (
    "context"
    "fmt"
    "io"
    "os"
    "path/filepath"
    "time"

    cfg "github.com/anasnay11/mobility-pipeline/config"
    "github.com/anasnay11/mobility-pipeline/pkg/logger"
)

// LocalStorage keeps snapshots on the local filesystem under a root
// directory, mirroring the key layout the object backends use.
type LocalStorage struct {
    root   string
    logger logger.Logger
}

// Store implements Storage.Store
func (l *LocalStorage) Store(ctx context.Context, reader io.Reader, key string) (string, error) {
    full := filepath.Join(l.root, filepath.FromSlash(key))
    if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
        return "", fmt.Errorf("failed to create snapshot directory: %w", err)
    }

    f, err := os.Create(full)
    if err != nil {
        return "", fmt.Errorf("failed to create snapshot file: %w", err)
    }
    defer f.Close()

    if _, err := io.Copy(f, reader); err != nil {
        l.logger.Error("Failed to write snapshot",
            logger.String("key", key),
            logger.Error(err),
        )
        return "", fmt.Errorf("failed to store file: %w", err)
    }

    return key, nil
}

// Get implements Storage.Get
func (l *LocalStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
    f, err := os.Open(filepath.Join(l.root, filepath.FromSlash(key)))
    if err != nil {
        l.logger.Error("Failed to read snapshot",
            logger.String("key", key),
            logger.Error(err),
        )
        return nil, fmt.Errorf("failed to get file: %w", err)
    }
    return f, nil
}

// Delete implements Storage.Delete
func (l *LocalStorage) Delete(ctx context.Context, key string) error {
    if err := os.Remove(filepath.Join(l.root, filepath.FromSlash(key))); err != nil {
        return fmt.Errorf("failed to delete file: %w", err)
    }
    return nil
}

// CleanupBefore implements Storage.CleanupBefore. Snapshot directories
// are named by day, so the date in the path decides expiry.
func (l *LocalStorage) CleanupBefore(ctx context.Context, threshold time.Time) error {
    rawDir := filepath.Join(l.root, "raw")
    entries, err := os.ReadDir(rawDir)
    if os.IsNotExist(err) {
        return nil
    }
    if err != nil {
        return fmt.Errorf("failed to list snapshots: %w", err)
    }

    for _, entry := range entries {
        if !entry.IsDir() {
            continue
        }
        day, err := time.Parse("2006-01-02", entry.Name())
        if err != nil {
            continue
        }
        if day.Before(threshold) {
            if err := os.RemoveAll(filepath.Join(rawDir, entry.Name())); err != nil {
                l.logger.Error("Failed to delete expired snapshots",
                    logger.String("date", entry.Name()),
                    logger.Error(err),
                )
                continue
            }
            l.logger.Info("Deleted expired snapshots",
                logger.String("date", entry.Name()),
            )
        }
    }

    return nil
}

func NewLocalStorage(log logger.Logger) (*LocalStorage, error) {
    pipelineCfg, err := cfg.GetPipelineConfig()
    if err != nil {
        return nil, err
    }

    if err := os.MkdirAll(pipelineCfg.SnapshotRoot, 0755); err != nil {
        return nil, fmt.Errorf("failed to create snapshot root: %w", err)
    }

    return &LocalStorage{
        root:   pipelineCfg.SnapshotRoot,
        logger: log,
    }, nil
}

func GetClient(log logger.Logger) (*LocalStorage, error) {
    return NewLocalStorage(log)
}
