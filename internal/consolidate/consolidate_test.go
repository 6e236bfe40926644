package consolidate

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anasnay11/mobility-pipeline/internal/models"
	"github.com/anasnay11/mobility-pipeline/internal/store"
)

var (
	day1 = time.Date(2024, 11, 20, 0, 0, 0, 0, time.UTC)
	day2 = time.Date(2024, 11, 21, 0, 0, 0, 0, time.UTC)
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := store.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, store.EnsureSchema(db))
	return db
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func testStation(id, code string, date time.Time) models.Station {
	return models.Station{
		ID:          id,
		Code:        code,
		Name:        "Station " + code,
		CityName:    strPtr("Paris"),
		CityCode:    strPtr("75056"),
		Longitude:   2.3,
		Latitude:    48.8,
		Status:      "OUI",
		Capacity:    intPtr(30),
		CreatedDate: date,
	}
}

func rowCount(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow("SELECT count(*) FROM "+table).Scan(&n))
	return n
}

func TestCitiesSameDayIdempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	cities := []models.City{
		{ID: "75056", Name: "Paris", CreatedDate: day1},
		{ID: "31555", Name: "Toulouse", CreatedDate: day1},
	}

	require.NoError(t, Cities(ctx, db, cities))
	require.NoError(t, Cities(ctx, db, cities))

	assert.Equal(t, 2, rowCount(t, db, "CONSOLIDATE_CITY"))
}

func TestCitiesMonotonicHistory(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, Cities(ctx, db, []models.City{{ID: "75056", Name: "Paris", CreatedDate: day1}}))
	require.NoError(t, Cities(ctx, db, []models.City{{ID: "75056", Name: "Paris", CreatedDate: day2}}))

	// A new day adds a partition; the old one stays untouched.
	assert.Equal(t, 2, rowCount(t, db, "CONSOLIDATE_CITY"))

	n1, err := CountCitiesForDate(ctx, db, day1)
	require.NoError(t, err)
	assert.Equal(t, 1, n1)
}

func TestStationsUpsertByIDAndDate(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	first := testStation("1-16107", "16107", day1)
	require.NoError(t, Stations(ctx, db, []models.Station{first}))

	// Same key, new content: the re-run wins without duplicating.
	second := first
	second.Name = "Renamed"
	require.NoError(t, Stations(ctx, db, []models.Station{second}))

	assert.Equal(t, 1, rowCount(t, db, "CONSOLIDATE_STATION"))

	var name string
	require.NoError(t, db.QueryRow("SELECT name FROM CONSOLIDATE_STATION WHERE id = '1-16107'").Scan(&name))
	assert.Equal(t, "Renamed", name)

	// Same id on another day becomes a second historical row.
	third := testStation("1-16107", "16107", day2)
	require.NoError(t, Stations(ctx, db, []models.Station{third}))
	assert.Equal(t, 2, rowCount(t, db, "CONSOLIDATE_STATION"))
}

func TestStationsNullCityCode(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	st := testStation("0-42", "42", day1)
	st.CityCode = nil
	require.NoError(t, Stations(ctx, db, []models.Station{st}))

	var cityCode sql.NullString
	require.NoError(t, db.QueryRow("SELECT city_code FROM CONSOLIDATE_STATION WHERE id = '0-42'").Scan(&cityCode))
	assert.False(t, cityCode.Valid)
}

func TestStatementsUpsert(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	stmt := models.StationStatement{
		StationID:             "1-16107",
		BicycleDocksAvailable: 5,
		BicycleAvailable:      25,
		LastStatementDate:     time.Date(2024, 11, 20, 14, 56, 3, 0, time.UTC),
		CreatedDate:           day1,
	}

	require.NoError(t, Statements(ctx, db, []models.StationStatement{stmt}))
	stmt.BicycleAvailable = 24
	require.NoError(t, Statements(ctx, db, []models.StationStatement{stmt}))

	assert.Equal(t, 1, rowCount(t, db, "CONSOLIDATE_STATION_STATEMENT"))

	var bikes int
	require.NoError(t, db.QueryRow("SELECT bicycle_available FROM CONSOLIDATE_STATION_STATEMENT").Scan(&bikes))
	assert.Equal(t, 24, bikes)
}

func TestCityCodeByName(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, Cities(ctx, db, []models.City{{ID: "31555", Name: "Toulouse", CreatedDate: day1}}))

	code, ok, err := CityCodeByName(ctx, db, "Toulouse")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "31555", code)

	// Lookup is exact and case-sensitive.
	_, ok, err = CityCodeByName(ctx, db, "toulouse")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = CityCodeByName(ctx, db, "Nantes")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEmptyBatchesAreNoops(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, Cities(ctx, db, nil))
	require.NoError(t, Stations(ctx, db, nil))
	require.NoError(t, Statements(ctx, db, nil))

	assert.Equal(t, 0, rowCount(t, db, "CONSOLIDATE_CITY"))
}
