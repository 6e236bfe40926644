package sources

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Kind discriminates bicycle-availability feeds from the commune registry.
type Kind string

const (
	KindBicycle  Kind = "bicycle"
	KindCommunes Kind = "communes"
)

// StationMapping maps normalized station columns to source field paths.
// Paths are dot-separated for nested objects ("coordonnees_geo.lon").
// An empty path means the source does not carry the field.
type StationMapping struct {
	Code      string
	Name      string
	CityName  string
	CityCode  string
	Address   string
	Longitude string
	Latitude  string
	Status    string
	Capacity  string
}

// StatementMapping maps normalized occupancy columns to source field paths.
type StatementMapping struct {
	DocksAvailable string
	BikesAvailable string
	LastStatement  string
}

// Spec is the full declarative definition of one ingestion source: where
// to fetch it, how to snapshot it, and how to reshape its records.
type Spec struct {
	Name       string
	Kind       Kind
	PrefixCode int    // city prefix used in composite station ids
	URL        string
	Filename   string // snapshot blob name under raw/<date>/
	LookupCity string // commune name to resolve against consolidated cities; empty when the payload carries the code itself
	Station    StationMapping
	Statement  StatementMapping
}

// Registry returns the fixed set of sources. The communes registry comes
// first: its consolidation is a precondition for the city-code lookups of
// the other sources.
func Registry() []Spec {
	return []Spec{
		{
			Name:     "communes",
			Kind:     KindCommunes,
			URL:      "https://geo.api.gouv.fr/communes?fields=nom,code&format=json&geometry=centre",
			Filename: "communes_data.json",
		},
		{
			Name:       "paris",
			Kind:       KindBicycle,
			PrefixCode: 1,
			URL:        "https://opendata.paris.fr/api/explore/v2.1/catalog/datasets/velib-disponibilite-en-temps-reel/exports/json",
			Filename:   "paris_realtime_bicycle_data.json",
			Station: StationMapping{
				Code:      "stationcode",
				Name:      "name",
				CityName:  "nom_arrondissement_communes",
				CityCode:  "code_insee_commune",
				Longitude: "coordonnees_geo.lon",
				Latitude:  "coordonnees_geo.lat",
				Status:    "is_installed",
				Capacity:  "capacity",
			},
			Statement: StatementMapping{
				DocksAvailable: "numdocksavailable",
				BikesAvailable: "numbikesavailable",
				LastStatement:  "duedate",
			},
		},
		{
			Name:       "toulouse",
			Kind:       KindBicycle,
			PrefixCode: 0,
			URL:        "https://data.toulouse-metropole.fr/api/explore/v2.1/catalog/datasets/api-velo-toulouse-temps-reel/exports/json",
			Filename:   "toulouse_realtime_bicycle_data.json",
			LookupCity: "Toulouse",
			Station:    contractStationMapping(),
			Statement:  contractStatementMapping(),
		},
		{
			Name:       "nantes",
			Kind:       KindBicycle,
			PrefixCode: 2,
			URL:        "https://data.nantesmetropole.fr/api/explore/v2.1/catalog/datasets/244400404_stations-velos-libre-service-nantes-metropole-disponibilites/exports/json",
			Filename:   "nantes_realtime_bicycle_data.json",
			LookupCity: "Nantes",
			Station:    contractStationMapping(),
			Statement:  contractStatementMapping(),
		},
	}
}

// Toulouse and Nantes publish through the same JCDecaux contract schema.
func contractStationMapping() StationMapping {
	return StationMapping{
		Code:      "number",
		Name:      "name",
		CityName:  "contract_name",
		Address:   "address",
		Longitude: "position.lon",
		Latitude:  "position.lat",
		Status:    "status",
		Capacity:  "bike_stands",
	}
}

func contractStatementMapping() StatementMapping {
	return StatementMapping{
		DocksAvailable: "available_bike_stands",
		BikesAvailable: "available_bikes",
		LastStatement:  "last_update",
	}
}

type overridesFile struct {
	Sources map[string]struct {
		URL string `yaml:"url"`
	} `yaml:"sources"`
}

// ApplyOverrides overlays endpoint URLs from a YAML file onto the given
// specs, so deployments can point at mirrors without a rebuild. Unknown
// source names are rejected.
func ApplyOverrides(specs []Spec, path string) ([]Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sources file %s: %w", path, err)
	}

	var file overridesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse sources file %s: %w", path, err)
	}

	byName := make(map[string]int, len(specs))
	for i, s := range specs {
		byName[s.Name] = i
	}

	for name, o := range file.Sources {
		i, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown source %q in %s", name, path)
		}
		if o.URL != "" {
			specs[i].URL = o.URL
		}
	}

	return specs, nil
}

// Validate checks that a spec is internally consistent.
func (s Spec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("source: empty name")
	}
	if s.URL == "" {
		return fmt.Errorf("source %s: empty url", s.Name)
	}
	if s.Filename == "" {
		return fmt.Errorf("source %s: empty filename", s.Name)
	}
	if s.Kind == KindBicycle {
		if s.Station.Code == "" || s.Station.Name == "" {
			return fmt.Errorf("source %s: station mapping must carry code and name", s.Name)
		}
		if s.Station.CityCode == "" && s.LookupCity == "" {
			return fmt.Errorf("source %s: no commune resolution path", s.Name)
		}
		if s.Statement.DocksAvailable == "" || s.Statement.BikesAvailable == "" || s.Statement.LastStatement == "" {
			return fmt.Errorf("source %s: incomplete statement mapping", s.Name)
		}
	}
	return nil
}
