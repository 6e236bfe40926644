// Package consolidate appends normalized row batches into the append-only
// CONSOLIDATE_* tables. Every write is an upsert on (entity id,
// created_date): re-running a day is idempotent, a new day adds a new
// partition and never touches history.
package consolidate

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/anasnay11/mobility-pipeline/internal/models"
)

const upsertCitySQL = `
	INSERT OR REPLACE INTO CONSOLIDATE_CITY (id, name, nb_inhabitants, created_date)
	VALUES (?, ?, ?, ?)`

const upsertStationSQL = `
	INSERT OR REPLACE INTO CONSOLIDATE_STATION
		(id, code, name, city_name, city_code, address, longitude, latitude, status, capacity, created_date)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const upsertStatementSQL = `
	INSERT OR REPLACE INTO CONSOLIDATE_STATION_STATEMENT
		(station_id, bicycle_docks_available, bicycle_available, last_statement_date, created_date)
	VALUES (?, ?, ?, ?, ?)`

// Cities upserts one batch of commune rows.
func Cities(ctx context.Context, db *sql.DB, cities []models.City) error {
	if len(cities) == 0 {
		return nil
	}

	return inTx(ctx, db, upsertCitySQL, func(stmt *sql.Stmt) error {
		for _, c := range cities {
			if _, err := stmt.ExecContext(ctx, c.ID, c.Name, c.NbInhabitants, c.CreatedDate); err != nil {
				return fmt.Errorf("upsert city %s: %w", c.ID, err)
			}
		}
		return nil
	})
}

// Stations upserts one batch of station rows. A nil CityCode is stored as
// NULL; the fact load later skips those statements.
func Stations(ctx context.Context, db *sql.DB, stations []models.Station) error {
	if len(stations) == 0 {
		return nil
	}

	return inTx(ctx, db, upsertStationSQL, func(stmt *sql.Stmt) error {
		for _, s := range stations {
			if _, err := stmt.ExecContext(ctx,
				s.ID, s.Code, s.Name, s.CityName, s.CityCode, s.Address,
				s.Longitude, s.Latitude, s.Status, s.Capacity, s.CreatedDate,
			); err != nil {
				return fmt.Errorf("upsert station %s: %w", s.ID, err)
			}
		}
		return nil
	})
}

// Statements upserts one batch of occupancy readings.
func Statements(ctx context.Context, db *sql.DB, statements []models.StationStatement) error {
	if len(statements) == 0 {
		return nil
	}

	return inTx(ctx, db, upsertStatementSQL, func(stmt *sql.Stmt) error {
		for _, st := range statements {
			if _, err := stmt.ExecContext(ctx,
				st.StationID, st.BicycleDocksAvailable, st.BicycleAvailable,
				st.LastStatementDate, st.CreatedDate,
			); err != nil {
				return fmt.Errorf("upsert statement %s: %w", st.StationID, err)
			}
		}
		return nil
	})
}

func inTx(ctx context.Context, db *sql.DB, query string, fn func(*sql.Stmt) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare: %w", err)
	}

	if err := fn(stmt); err != nil {
		stmt.Close()
		tx.Rollback()
		return err
	}

	stmt.Close()
	return tx.Commit()
}

// CityCodeByName resolves a commune name to its code, exact match, first
// row wins when the registry carries duplicates.
func CityCodeByName(ctx context.Context, db *sql.DB, name string) (string, bool, error) {
	var code string
	err := db.QueryRowContext(ctx,
		`SELECT id FROM CONSOLIDATE_CITY WHERE name = ? LIMIT 1`, name,
	).Scan(&code)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup city %q: %w", name, err)
	}
	return code, true, nil
}

// CountCitiesForDate reports how many commune rows the given partition
// holds. The orchestrator uses it to enforce that cities land before
// stations within a run.
func CountCitiesForDate(ctx context.Context, db *sql.DB, date time.Time) (int, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT count(*) FROM CONSOLIDATE_CITY WHERE created_date = ?`, date,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count cities: %w", err)
	}
	return n, nil
}
