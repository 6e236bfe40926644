package models

import (
    "time"
)

// Station is one consolidated station row. One row exists per station per
// ingestion day; (ID, CreatedDate) is the natural key.
type Station struct {
    ID        string     `json:"id"`
    Code      string     `json:"code"`
    Name      string     `json:"name"`
    CityName  *string    `json:"cityName,omitempty"`
    CityCode  *string    `json:"cityCode,omitempty"` // nil until the commune is resolved
    Address   *string    `json:"address,omitempty"`
    Longitude float64    `json:"longitude"`
    Latitude  float64    `json:"latitude"`
    Status    string     `json:"status"`
    Capacity  *int       `json:"capacity,omitempty"`
    CreatedDate time.Time `json:"createdDate"`
}

// City is one consolidated commune row.
type City struct {
    ID            string    `json:"id"`
    Name          string    `json:"name"`
    NbInhabitants *int      `json:"nbInhabitants,omitempty"` // no source supplies this yet
    CreatedDate   time.Time `json:"createdDate"`
}

// StationStatement is a point-in-time occupancy reading for a station.
// LastStatementDate is the source-reported timestamp; CreatedDate is the
// ingestion day.
type StationStatement struct {
    StationID             string    `json:"stationId"`
    BicycleDocksAvailable int       `json:"bicycleDocksAvailable"`
    BicycleAvailable      int       `json:"bicycleAvailable"`
    LastStatementDate     time.Time `json:"lastStatementDate"`
    CreatedDate           time.Time `json:"createdDate"`
}

// SourceCounts tracks what one source contributed to a run.
type SourceCounts struct {
    Stations           int `json:"stations"`
    Statements         int `json:"statements"`
    UnresolvedStations int `json:"unresolvedStations"`
}

// RunReport summarizes a single pipeline invocation.
type RunReport struct {
    RunID            string                  `json:"runId"`
    RunDate          string                  `json:"runDate"`
    Status           RunStatus               `json:"status"`
    Cities           int                     `json:"cities"`
    Sources          map[string]SourceCounts `json:"sources"`
    FactRows         int                     `json:"factRows"`
    DroppedFactRows  int                     `json:"droppedFactRows"`
    StartedAt        time.Time               `json:"startedAt"`
    FinishedAt       time.Time               `json:"finishedAt,omitempty"`
    Error            string                  `json:"error,omitempty"`
}

type RunStatus string

const (
    RunStatusRunning   RunStatus = "running"
    RunStatusCompleted RunStatus = "completed"
    RunStatusFailed    RunStatus = "failed"
)
