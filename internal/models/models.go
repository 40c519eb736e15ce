// Package models defines shared data types
package models

import (
	"slices"
	"time"
)

// Coordinate is a WGS84 latitude/longitude pair
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Station represents a subway station in the catalog
type Station struct {
	ID        string   `json:"station_id"`
	Name      string   `json:"station_name"`
	Latitude  float64  `json:"station_lat"`
	Longitude float64  `json:"station_lon"`
	Lines     []string `json:"lines"`
}

// Coordinate returns the station position
func (s Station) Coordinate() Coordinate {
	return Coordinate{Latitude: s.Latitude, Longitude: s.Longitude}
}

// SharesLine reports whether both stations are served by at least one common line
func (s Station) SharesLine(other Station) bool {
	for _, line := range s.Lines {
		if slices.Contains(other.Lines, line) {
			return true
		}
	}
	return false
}

// StationWithDistance is a Station with distance from a reference point
type StationWithDistance struct {
	Station
	DistanceKm float64 `json:"distance_km"`
}

// Mode selects how a snapshot is computed
type Mode string

const (
	ModeStations Mode = "stations"
	ModeHeatmap  Mode = "heatmap"
	ModeGrid     Mode = "grid"
)

// Valid reports whether m is a known mode
func (m Mode) Valid() bool {
	switch m {
	case ModeStations, ModeHeatmap, ModeGrid:
		return true
	}
	return false
}

// TransitPoint is one sampled location with its estimated travel time in minutes.
// Unreachable is set on heatmap cells with no walkable station; their TravelTime
// carries the 90 minute ceiling so they still bucket into a color.
type TransitPoint struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	TravelTime  float64 `json:"travel_time"`
	StationID   string  `json:"station_id,omitempty"`
	Unreachable bool    `json:"unreachable,omitempty"`
}

// TransitData is one complete snapshot. Snapshots handed out by the cache are
// shared and must be treated as read-only.
type TransitData struct {
	Points      []TransitPoint `json:"points"`
	LastUpdated time.Time      `json:"last_updated"`
	Mode        Mode           `json:"mode"`
	Generation  uint64         `json:"generation"`
}
