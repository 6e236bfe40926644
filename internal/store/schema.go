package store

// Consolidate tables are pure history: one partition per ingestion day
// per entity, keyed by (id, created_date). Aggregate tables are
// materialized from the latest partition only, keyed by natural id.

const createConsolidateCitySQL = `
	CREATE TABLE IF NOT EXISTS CONSOLIDATE_CITY (
		id VARCHAR NOT NULL,
		name VARCHAR NOT NULL,
		nb_inhabitants INTEGER,
		created_date DATE NOT NULL,
		PRIMARY KEY (id, created_date)
	)`

const createConsolidateStationSQL = `
	CREATE TABLE IF NOT EXISTS CONSOLIDATE_STATION (
		id VARCHAR NOT NULL,
		code VARCHAR NOT NULL,
		name VARCHAR NOT NULL,
		city_name VARCHAR,
		city_code VARCHAR,
		address VARCHAR,
		longitude DOUBLE NOT NULL,
		latitude DOUBLE NOT NULL,
		status VARCHAR NOT NULL,
		capacity INTEGER,
		created_date DATE NOT NULL,
		PRIMARY KEY (id, created_date)
	)`

const createConsolidateStatementSQL = `
	CREATE TABLE IF NOT EXISTS CONSOLIDATE_STATION_STATEMENT (
		station_id VARCHAR NOT NULL,
		bicycle_docks_available INTEGER NOT NULL,
		bicycle_available INTEGER NOT NULL,
		last_statement_date TIMESTAMP NOT NULL,
		created_date DATE NOT NULL,
		PRIMARY KEY (station_id, created_date)
	)`

const createDimCitySQL = `
	CREATE TABLE IF NOT EXISTS DIM_CITY (
		id VARCHAR NOT NULL,
		name VARCHAR NOT NULL,
		nb_inhabitants INTEGER,
		PRIMARY KEY (id)
	)`

const createDimStationSQL = `
	CREATE TABLE IF NOT EXISTS DIM_STATION (
		id VARCHAR NOT NULL,
		code VARCHAR NOT NULL,
		name VARCHAR NOT NULL,
		address VARCHAR,
		longitude DOUBLE NOT NULL,
		latitude DOUBLE NOT NULL,
		status VARCHAR NOT NULL,
		capacity INTEGER,
		PRIMARY KEY (id)
	)`

const createFactStatementSQL = `
	CREATE TABLE IF NOT EXISTS FACT_STATION_STATEMENT (
		station_id VARCHAR NOT NULL,
		city_id VARCHAR NOT NULL,
		bicycle_docks_available INTEGER NOT NULL,
		bicycle_available INTEGER NOT NULL,
		last_statement_date TIMESTAMP NOT NULL,
		created_date DATE NOT NULL,
		PRIMARY KEY (station_id, created_date)
	)`
