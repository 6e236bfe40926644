// Package normalize reshapes heterogeneous per-city feed records into the
// uniform station / statement / city rows of the consolidate layer. One
// generic normalizer driven by the per-source mapping tables in
// internal/sources replaces any per-city transformation code.
package normalize

import (
	"fmt"
	"time"

	"github.com/anasnay11/mobility-pipeline/internal/models"
	"github.com/anasnay11/mobility-pipeline/internal/sources"
)

// CityResolver resolves a commune name to its national code. The second
// return is false when the name is not consolidated yet; the station is
// then kept with an unset city code rather than dropped.
type CityResolver func(name string) (string, bool, error)

// StationID synthesizes the composite station identity. It is the only
// globally unique station key and must agree between Stations and
// Statements for the dimensional joins to hold.
func StationID(prefixCode int, nativeCode string) string {
	return fmt.Sprintf("%d-%s", prefixCode, nativeCode)
}

// Stations maps one source's records to consolidated station rows, all
// stamped with runDate. The returned count is the number of stations left
// without a resolved city code. Any malformed record fails the whole
// batch.
func Stations(spec sources.Spec, records []Record, runDate time.Time, resolve CityResolver) ([]models.Station, int, error) {
	out := make([]models.Station, 0, len(records))
	unresolved := 0

	// A lookup-based source resolves its commune once for the batch.
	var lookupCode *string
	if spec.LookupCity != "" && resolve != nil {
		code, ok, err := resolve(spec.LookupCity)
		if err != nil {
			return nil, 0, fmt.Errorf("source %s: resolve city %q: %w", spec.Name, spec.LookupCity, err)
		}
		if ok {
			lookupCode = &code
		}
	}

	for i, rec := range records {
		st, err := station(spec, rec, runDate, lookupCode)
		if err != nil {
			return nil, 0, fmt.Errorf("source %s record %d: %w", spec.Name, i, err)
		}
		if st.CityCode == nil {
			unresolved++
		}
		out = append(out, st)
	}

	return out, unresolved, nil
}

func station(spec sources.Spec, rec Record, runDate time.Time, lookupCode *string) (models.Station, error) {
	m := spec.Station

	code, err := requiredString(rec, m.Code, "code")
	if err != nil {
		return models.Station{}, err
	}
	name, err := requiredString(rec, m.Name, "name")
	if err != nil {
		return models.Station{}, err
	}
	lon, err := requiredFloat(rec, m.Longitude, "longitude")
	if err != nil {
		return models.Station{}, err
	}
	lat, err := requiredFloat(rec, m.Latitude, "latitude")
	if err != nil {
		return models.Station{}, err
	}
	status, err := requiredString(rec, m.Status, "status")
	if err != nil {
		return models.Station{}, err
	}

	cityName, err := optionalString(rec, m.CityName)
	if err != nil {
		return models.Station{}, err
	}
	address, err := optionalString(rec, m.Address)
	if err != nil {
		return models.Station{}, err
	}
	capacity, err := optionalInt(rec, m.Capacity)
	if err != nil {
		return models.Station{}, err
	}

	cityCode := lookupCode
	if spec.LookupCity == "" {
		// The payload carries the commune code itself; null stays unset.
		cityCode, err = optionalString(rec, m.CityCode)
		if err != nil {
			return models.Station{}, err
		}
	}

	return models.Station{
		ID:          StationID(spec.PrefixCode, code),
		Code:        code,
		Name:        name,
		CityName:    cityName,
		CityCode:    cityCode,
		Address:     address,
		Longitude:   lon,
		Latitude:    lat,
		Status:      status,
		Capacity:    capacity,
		CreatedDate: runDate,
	}, nil
}

// Statements maps one source's records to consolidated occupancy readings
// stamped with runDate.
func Statements(spec sources.Spec, records []Record, runDate time.Time) ([]models.StationStatement, error) {
	m := spec.Statement
	out := make([]models.StationStatement, 0, len(records))

	for i, rec := range records {
		code, err := requiredString(rec, spec.Station.Code, "code")
		if err != nil {
			return nil, fmt.Errorf("source %s record %d: %w", spec.Name, i, err)
		}
		docks, err := requiredInt(rec, m.DocksAvailable, "bicycle_docks_available")
		if err != nil {
			return nil, fmt.Errorf("source %s record %d: %w", spec.Name, i, err)
		}
		bikes, err := requiredInt(rec, m.BikesAvailable, "bicycle_available")
		if err != nil {
			return nil, fmt.Errorf("source %s record %d: %w", spec.Name, i, err)
		}
		ts, err := requiredTime(rec, m.LastStatement, "last_statement_date")
		if err != nil {
			return nil, fmt.Errorf("source %s record %d: %w", spec.Name, i, err)
		}

		out = append(out, models.StationStatement{
			StationID:             StationID(spec.PrefixCode, code),
			BicycleDocksAvailable: docks,
			BicycleAvailable:      bikes,
			LastStatementDate:     ts,
			CreatedDate:           runDate,
		})
	}

	return out, nil
}

// Cities maps the commune registry to consolidated city rows, collapsing
// duplicate (code, name) pairs. NbInhabitants stays unset until a source
// supplies it.
func Cities(records []Record, runDate time.Time) ([]models.City, error) {
	out := make([]models.City, 0, len(records))
	seen := make(map[string]bool, len(records))

	for i, rec := range records {
		id, err := requiredString(rec, "code", "id")
		if err != nil {
			return nil, fmt.Errorf("communes record %d: %w", i, err)
		}
		name, err := requiredString(rec, "nom", "name")
		if err != nil {
			return nil, fmt.Errorf("communes record %d: %w", i, err)
		}

		key := id + "\x00" + name
		if seen[key] {
			continue
		}
		seen[key] = true

		out = append(out, models.City{
			ID:          id,
			Name:        name,
			CreatedDate: runDate,
		})
	}

	return out, nil
}
