// Package store owns the embedded DuckDB database: opening it and keeping
// its consolidate and aggregate tables in place.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/duckdb/duckdb-go/v2"
)

// Open opens (creating if needed) the analytical database at path. An
// empty path opens an in-memory database, which the tests rely on. The
// pipeline is single-writer, so one connection is enough.
func Open(path string) (*sql.DB, error) {
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("can't create database directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open DuckDB: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping DuckDB: %w", err)
	}

	return db, nil
}

// EnsureSchema creates every consolidate and aggregate table that is not
// already present.
func EnsureSchema(db *sql.DB) error {
	for _, ddl := range []string{
		createConsolidateCitySQL,
		createConsolidateStationSQL,
		createConsolidateStatementSQL,
		createDimCitySQL,
		createDimStationSQL,
		createFactStatementSQL,
	} {
		if _, err := db.Exec(ddl); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}
