// Package aggregate materializes the dimensional layer from the latest
// consolidate partitions. Each load selects exactly the max(created_date)
// partition and replaces aggregate rows by natural key; an empty
// consolidate table makes the load a no-op.
package aggregate

import (
	"context"
	"database/sql"
	"fmt"
)

const dimCitySQL = `
	INSERT OR REPLACE INTO DIM_CITY
	SELECT id, name, nb_inhabitants
	FROM CONSOLIDATE_CITY
	WHERE created_date = (SELECT max(created_date) FROM CONSOLIDATE_CITY)`

const dimStationSQL = `
	INSERT OR REPLACE INTO DIM_STATION
	SELECT id, code, name, address, longitude, latitude, status, capacity
	FROM CONSOLIDATE_STATION
	WHERE created_date = (SELECT max(created_date) FROM CONSOLIDATE_STATION)`

// Statements join their station partition on the composite id and the
// city partition on the resolved commune code. Stations whose city never
// resolved carry a NULL city_code and are excluded here; the orchestrator
// reports how many were dropped instead of losing them silently.
const factStatementSQL = `
	INSERT OR REPLACE INTO FACT_STATION_STATEMENT
	SELECT
		ss.station_id,
		cc.id AS city_id,
		ss.bicycle_docks_available,
		ss.bicycle_available,
		ss.last_statement_date,
		ss.created_date
	FROM CONSOLIDATE_STATION_STATEMENT ss
	JOIN CONSOLIDATE_STATION s ON s.id = ss.station_id
	JOIN CONSOLIDATE_CITY cc ON cc.id = s.city_code
	WHERE s.city_code IS NOT NULL
		AND ss.created_date = (SELECT max(created_date) FROM CONSOLIDATE_STATION_STATEMENT)
		AND s.created_date = (SELECT max(created_date) FROM CONSOLIDATE_STATION)
		AND cc.created_date = (SELECT max(created_date) FROM CONSOLIDATE_CITY)`

const droppedStatementSQL = `
	SELECT count(*)
	FROM CONSOLIDATE_STATION_STATEMENT ss
	JOIN CONSOLIDATE_STATION s ON s.id = ss.station_id
	WHERE s.city_code IS NULL
		AND ss.created_date = (SELECT max(created_date) FROM CONSOLIDATE_STATION_STATEMENT)
		AND s.created_date = (SELECT max(created_date) FROM CONSOLIDATE_STATION)`

// DimCity rebuilds DIM_CITY from the latest commune partition.
func DimCity(ctx context.Context, db *sql.DB) (int, error) {
	return exec(ctx, db, dimCitySQL, "DIM_CITY")
}

// DimStation rebuilds DIM_STATION from the latest station partition.
func DimStation(ctx context.Context, db *sql.DB) (int, error) {
	return exec(ctx, db, dimStationSQL, "DIM_STATION")
}

// FactStationStatements rebuilds the fact table from the latest
// partitions and reports how many statements were dropped for lack of a
// resolved city.
func FactStationStatements(ctx context.Context, db *sql.DB) (inserted, dropped int, err error) {
	inserted, err = exec(ctx, db, factStatementSQL, "FACT_STATION_STATEMENT")
	if err != nil {
		return 0, 0, err
	}

	if err := db.QueryRowContext(ctx, droppedStatementSQL).Scan(&dropped); err != nil {
		return 0, 0, fmt.Errorf("count dropped statements: %w", err)
	}

	return inserted, dropped, nil
}

func exec(ctx context.Context, db *sql.DB, query, table string) (int, error) {
	res, err := db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("aggregate %s: %w", table, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return int(n), nil
}
