package aggregate

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anasnay11/mobility-pipeline/internal/consolidate"
	"github.com/anasnay11/mobility-pipeline/internal/models"
	"github.com/anasnay11/mobility-pipeline/internal/store"
)

var (
	day1 = time.Date(2024, 11, 20, 0, 0, 0, 0, time.UTC)
	day2 = time.Date(2024, 11, 21, 0, 0, 0, 0, time.UTC)
)

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := store.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, store.EnsureSchema(db))
	return db
}

func station(id string, cityCode *string, date time.Time) models.Station {
	return models.Station{
		ID:          id,
		Code:        id,
		Name:        "Station " + id,
		CityName:    strPtr("Paris"),
		CityCode:    cityCode,
		Longitude:   2.3,
		Latitude:    48.8,
		Status:      "OUI",
		Capacity:    intPtr(30),
		CreatedDate: date,
	}
}

func statement(stationID string, bikes int, date time.Time) models.StationStatement {
	return models.StationStatement{
		StationID:             stationID,
		BicycleDocksAvailable: 10,
		BicycleAvailable:      bikes,
		LastStatementDate:     date.Add(14 * time.Hour),
		CreatedDate:           date,
	}
}

func seed(t *testing.T, db *sql.DB, date time.Time, stations []models.Station, statements []models.StationStatement) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, consolidate.Cities(ctx, db, []models.City{{ID: "75056", Name: "Paris", CreatedDate: date}}))
	require.NoError(t, consolidate.Stations(ctx, db, stations))
	require.NoError(t, consolidate.Statements(ctx, db, statements))
}

func rowCount(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow("SELECT count(*) FROM "+table).Scan(&n))
	return n
}

func TestDimensionsUseLatestPartitionOnly(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	seed(t, db, day1,
		[]models.Station{station("1-1", strPtr("75056"), day1), station("1-2", strPtr("75056"), day1)},
		nil)
	seed(t, db, day2,
		[]models.Station{station("1-1", strPtr("75056"), day2)},
		nil)

	n, err := DimCity(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Station 1-2 vanished from the latest snapshot, so the dimension drops it.
	n, err = DimStation(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var id string
	require.NoError(t, db.QueryRow("SELECT id FROM DIM_STATION").Scan(&id))
	assert.Equal(t, "1-1", id)
}

func TestFactExcludesStationsWithoutCityCode(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	seed(t, db, day1,
		[]models.Station{
			station("1-1", strPtr("75056"), day1),
			station("0-9", nil, day1),
		},
		[]models.StationStatement{
			statement("1-1", 25, day1),
			statement("0-9", 3, day1),
		})

	require.NoError(t, refreshDims(ctx, db))

	inserted, dropped, err := FactStationStatements(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)
	assert.Equal(t, 1, dropped)
	assert.Equal(t, 1, rowCount(t, db, "FACT_STATION_STATEMENT"))
}

func TestFactIdempotentAcrossReruns(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	seed(t, db, day1,
		[]models.Station{station("1-1", strPtr("75056"), day1)},
		[]models.StationStatement{statement("1-1", 25, day1)})

	require.NoError(t, refreshDims(ctx, db))

	for i := 0; i < 2; i++ {
		_, _, err := FactStationStatements(ctx, db)
		require.NoError(t, err)
	}

	assert.Equal(t, 1, rowCount(t, db, "FACT_STATION_STATEMENT"))
}

func TestFactKeepsEarlierDays(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	seed(t, db, day1,
		[]models.Station{station("1-1", strPtr("75056"), day1)},
		[]models.StationStatement{statement("1-1", 25, day1)})
	require.NoError(t, refreshDims(ctx, db))
	_, _, err := FactStationStatements(ctx, db)
	require.NoError(t, err)

	seed(t, db, day2,
		[]models.Station{station("1-1", strPtr("75056"), day2)},
		[]models.StationStatement{statement("1-1", 20, day2)})
	require.NoError(t, refreshDims(ctx, db))
	_, _, err = FactStationStatements(ctx, db)
	require.NoError(t, err)

	// The fact table accumulates one row per station per day.
	assert.Equal(t, 2, rowCount(t, db, "FACT_STATION_STATEMENT"))
}

func TestEmptyConsolidationIsNoop(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	n, err := DimCity(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	inserted, dropped, err := FactStationStatements(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)
	assert.Equal(t, 0, dropped)
}

func refreshDims(ctx context.Context, db *sql.DB) error {
	if _, err := DimCity(ctx, db); err != nil {
		return err
	}
	_, err := DimStation(ctx, db)
	return err
}
