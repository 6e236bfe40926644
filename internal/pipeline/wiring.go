package pipeline

import (
	"fmt"
	"net/http"

	cfg "github.com/anasnay11/mobility-pipeline/config"
	"github.com/anasnay11/mobility-pipeline/internal/sources"
	"github.com/anasnay11/mobility-pipeline/internal/store"
	"github.com/anasnay11/mobility-pipeline/pkg/logger"
	"github.com/anasnay11/mobility-pipeline/pkg/storage"
)

// GetRunner builds a fully wired Runner from the environment
// configuration: source registry (with optional endpoint overrides),
// snapshot backend, HTTP client with a bounded timeout, and the analytical
// database with its schema in place. Close the runner when done.
func GetRunner(log logger.Logger) (*Runner, error) {
	pipelineCfg, err := cfg.GetPipelineConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	specs := sources.Registry()
	if pipelineCfg.SourcesFile != "" {
		specs, err = sources.ApplyOverrides(specs, pipelineCfg.SourcesFile)
		if err != nil {
			return nil, err
		}
	}
	for _, spec := range specs {
		if err := spec.Validate(); err != nil {
			return nil, err
		}
	}

	snapshots, err := storage.NewStorage(storage.StorageType(pipelineCfg.SnapshotBackend), log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize snapshot storage: %w", err)
	}

	db, err := store.Open(pipelineCfg.DuckDBPath)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	client := &http.Client{Timeout: pipelineCfg.RequestTimeout}

	return NewRunner(client, snapshots, db, specs, log, &RunnerConfig{
		RetentionDays: pipelineCfg.RetentionDays,
	}), nil
}

// Close releases the database handle.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}
