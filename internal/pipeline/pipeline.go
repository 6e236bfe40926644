// Package pipeline orchestrates one ETL invocation: ingest the raw feeds,
// consolidate them into the history tables, then rebuild the dimensional
// layer. The three stages always run in that fixed order with no retries
// and no partial resume; the first failure aborts the run.
package pipeline

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/anasnay11/mobility-pipeline/internal/aggregate"
	"github.com/anasnay11/mobility-pipeline/internal/consolidate"
	"github.com/anasnay11/mobility-pipeline/internal/models"
	"github.com/anasnay11/mobility-pipeline/internal/normalize"
	"github.com/anasnay11/mobility-pipeline/internal/sources"
	"github.com/anasnay11/mobility-pipeline/pkg/logger"
	"github.com/anasnay11/mobility-pipeline/pkg/storage"
)

// Runner wires one pipeline invocation together. It holds a single
// database handle for the whole run; the pipeline is the only writer.
type Runner struct {
	client        *http.Client
	snapshots     storage.Storage
	db            *sql.DB
	specs         []sources.Spec
	retentionDays int
	logger        logger.Logger
}

// RunnerConfig carries the run-level knobs that are not collaborators.
type RunnerConfig struct {
	RetentionDays int // 0 keeps raw snapshots forever
}

func NewRunner(
	client *http.Client,
	snapshots storage.Storage,
	db *sql.DB,
	specs []sources.Spec,
	log logger.Logger,
	cfg *RunnerConfig,
) *Runner {
	if cfg == nil {
		cfg = &RunnerConfig{}
	}

	return &Runner{
		client:        client,
		snapshots:     snapshots,
		db:            db,
		specs:         specs,
		retentionDays: cfg.RetentionDays,
		logger:        log,
	}
}

// Run executes one full invocation. The run timestamp is fixed for the
// whole run: every consolidated row of this invocation carries the same
// created_date, which is what makes same-day re-runs idempotent.
func (r *Runner) Run(ctx context.Context, runTime time.Time) (*models.RunReport, error) {
	runDate := runTime.UTC().Truncate(24 * time.Hour)

	report := &models.RunReport{
		RunID:     uuid.NewString(),
		RunDate:   runDate.Format("2006-01-02"),
		Status:    models.RunStatusRunning,
		Sources:   make(map[string]models.SourceCounts),
		StartedAt: runTime,
	}
	log := r.logger.With(
		logger.String("runId", report.RunID),
		logger.String("runDate", report.RunDate),
	)

	fail := func(stage string, err error) (*models.RunReport, error) {
		report.Status = models.RunStatusFailed
		report.Error = err.Error()
		report.FinishedAt = time.Now().UTC()
		log.Error("Pipeline run failed",
			logger.String("stage", stage),
			logger.Error(err),
		)
		return report, fmt.Errorf("%s: %w", stage, err)
	}

	log.Info("Starting pipeline run")

	if err := r.ingest(ctx, runDate, log); err != nil {
		return fail("ingest", err)
	}
	if err := r.consolidateAll(ctx, runDate, report, log); err != nil {
		return fail("consolidate", err)
	}
	if err := r.aggregateAll(ctx, report, log); err != nil {
		return fail("aggregate", err)
	}

	r.cleanupSnapshots(ctx, runDate, log)

	report.Status = models.RunStatusCompleted
	report.FinishedAt = time.Now().UTC()
	log.Info("Pipeline run completed",
		logger.Int("cities", report.Cities),
		logger.Int("factRows", report.FactRows),
		logger.Int("droppedFactRows", report.DroppedFactRows),
		logger.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)),
	)
	return report, nil
}

// ingest fetches every source and lands the raw bytes as dated
// snapshots. One failed fetch aborts the run.
func (r *Runner) ingest(ctx context.Context, runDate time.Time, log logger.Logger) error {
	for _, spec := range r.specs {
		raw, err := sources.Fetch(ctx, r.client, spec.URL)
		if err != nil {
			return fmt.Errorf("fetch %s: %w", spec.Name, err)
		}

		key := storage.SnapshotKey(runDate, spec.Filename)
		if _, err := r.snapshots.Store(ctx, bytes.NewReader(raw), key); err != nil {
			return fmt.Errorf("snapshot %s: %w", spec.Name, err)
		}

		log.Info("Ingested source",
			logger.String("source", spec.Name),
			logger.String("key", key),
			logger.Int("bytes", len(raw)),
		)
	}
	return nil
}

// consolidateAll loads the snapshots back and upserts the normalized
// rows. Cities land first and must be non-empty before any station is
// written: the commune lookups of the contract sources read them.
func (r *Runner) consolidateAll(ctx context.Context, runDate time.Time, report *models.RunReport, log logger.Logger) error {
	records := make(map[string][]normalize.Record, len(r.specs))
	for _, spec := range r.specs {
		recs, err := r.readSnapshot(ctx, runDate, spec)
		if err != nil {
			return err
		}
		records[spec.Name] = recs
	}

	for _, spec := range r.specs {
		if spec.Kind != sources.KindCommunes {
			continue
		}
		cities, err := normalize.Cities(records[spec.Name], runDate)
		if err != nil {
			return err
		}
		if err := consolidate.Cities(ctx, r.db, cities); err != nil {
			return err
		}
	}

	count, err := consolidate.CountCitiesForDate(ctx, r.db, runDate)
	if err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("no cities consolidated for %s; station consolidation requires them", runDate.Format("2006-01-02"))
	}
	report.Cities = count
	log.Info("Consolidated cities", logger.Int("count", count))

	resolve := r.cityResolver(ctx)

	for _, spec := range r.specs {
		if spec.Kind != sources.KindBicycle {
			continue
		}
		stations, unresolved, err := normalize.Stations(spec, records[spec.Name], runDate, resolve)
		if err != nil {
			return err
		}
		if err := consolidate.Stations(ctx, r.db, stations); err != nil {
			return err
		}

		counts := report.Sources[spec.Name]
		counts.Stations = len(stations)
		counts.UnresolvedStations = unresolved
		report.Sources[spec.Name] = counts

		if unresolved > 0 {
			log.Warn("Stations left without a resolved city",
				logger.String("source", spec.Name),
				logger.Int("unresolved", unresolved),
			)
		}
		log.Info("Consolidated stations",
			logger.String("source", spec.Name),
			logger.Int("count", len(stations)),
		)
	}

	for _, spec := range r.specs {
		if spec.Kind != sources.KindBicycle {
			continue
		}
		statements, err := normalize.Statements(spec, records[spec.Name], runDate)
		if err != nil {
			return err
		}
		if err := consolidate.Statements(ctx, r.db, statements); err != nil {
			return err
		}

		counts := report.Sources[spec.Name]
		counts.Statements = len(statements)
		report.Sources[spec.Name] = counts

		log.Info("Consolidated station statements",
			logger.String("source", spec.Name),
			logger.Int("count", len(statements)),
		)
	}

	return nil
}

func (r *Runner) aggregateAll(ctx context.Context, report *models.RunReport, log logger.Logger) error {
	if _, err := aggregate.DimCity(ctx, r.db); err != nil {
		return err
	}
	if _, err := aggregate.DimStation(ctx, r.db); err != nil {
		return err
	}

	inserted, dropped, err := aggregate.FactStationStatements(ctx, r.db)
	if err != nil {
		return err
	}
	report.FactRows = inserted
	report.DroppedFactRows = dropped

	if dropped > 0 {
		log.Warn("Statements dropped from fact table for lack of a resolved city",
			logger.Int("dropped", dropped),
		)
	}
	return nil
}

func (r *Runner) readSnapshot(ctx context.Context, runDate time.Time, spec sources.Spec) ([]normalize.Record, error) {
	rc, err := r.snapshots.Get(ctx, storage.SnapshotKey(runDate, spec.Filename))
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", spec.Name, err)
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", spec.Name, err)
	}

	records, err := normalize.DecodeRecords(raw)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", spec.Name, err)
	}
	return records, nil
}

// cityResolver memoizes commune lookups against the consolidated cities,
// one query per distinct name per run.
func (r *Runner) cityResolver(ctx context.Context) normalize.CityResolver {
	type entry struct {
		code string
		ok   bool
	}
	cache := make(map[string]entry)

	return func(name string) (string, bool, error) {
		if e, hit := cache[name]; hit {
			return e.code, e.ok, nil
		}
		code, ok, err := consolidate.CityCodeByName(ctx, r.db, name)
		if err != nil {
			return "", false, err
		}
		cache[name] = entry{code: code, ok: ok}
		return code, ok, nil
	}
}

// cleanupSnapshots applies the configured raw retention. Failures are
// logged, not fatal: the run's own data is already committed.
func (r *Runner) cleanupSnapshots(ctx context.Context, runDate time.Time, log logger.Logger) {
	if r.retentionDays <= 0 {
		return
	}
	threshold := runDate.AddDate(0, 0, -r.retentionDays)
	if err := r.snapshots.CleanupBefore(ctx, threshold); err != nil {
		log.Error("Snapshot cleanup failed", logger.Error(err))
	}
}
