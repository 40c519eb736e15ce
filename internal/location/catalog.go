// Package location holds geographic math and the station catalog
package location

import (
	_ "embed"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"go.trai.ch/zerr"

	"github.com/randytsao24/reachmap/internal/models"
)

//go:embed data/stations.csv
var defaultStationsCSV string

var (
	ErrEmptyCatalog   = zerr.New("catalog has no stations")
	ErrMissingColumns = zerr.New("catalog header is missing required columns")
)

// Catalog is an immutable, ordered list of stations with a spatial index.
// Duplicate ids and coordinates are kept as-is; GetByID returns the first match.
type Catalog struct {
	stations []models.Station
	byID     map[string]int
	index    *gridIndex
}

// NewCatalog builds a catalog from stations, preserving their order
func NewCatalog(stations []models.Station) *Catalog {
	owned := make([]models.Station, len(stations))
	copy(owned, stations)

	byID := make(map[string]int, len(owned))
	for i, s := range owned {
		if _, exists := byID[s.ID]; !exists {
			byID[s.ID] = i
		}
	}

	return &Catalog{
		stations: owned,
		byID:     byID,
		index:    newGridIndex(owned),
	}
}

var defaultCatalog = sync.OnceValues(func() (*Catalog, error) {
	return LoadCSV(strings.NewReader(defaultStationsCSV))
})

// DefaultCatalog returns the built-in NYC subway catalog
func DefaultCatalog() (*Catalog, error) {
	return defaultCatalog()
}

// LoadFile reads a catalog from a CSV file on disk
func LoadFile(path string) (*Catalog, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "opening catalog file"), "path", path)
	}
	defer file.Close()

	cat, err := LoadCSV(file)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "loading catalog file"), "path", path)
	}
	return cat, nil
}

// columns maps the header of either the catalog format or a GTFS stops.txt
type columns struct {
	id, name, lat, lng, lines, locationType int
}

func resolveColumns(header []string) (columns, error) {
	cols := columns{id: -1, name: -1, lat: -1, lng: -1, lines: -1, locationType: -1}
	for i, h := range header {
		switch strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")) {
		case "station_id", "stop_id":
			cols.id = i
		case "station_name", "stop_name":
			cols.name = i
		case "station_lat", "stop_lat":
			cols.lat = i
		case "station_lon", "stop_lon":
			cols.lng = i
		case "lines", "routes":
			cols.lines = i
		case "location_type":
			cols.locationType = i
		}
	}
	if cols.id < 0 || cols.lat < 0 || cols.lng < 0 {
		return cols, zerr.With(zerr.Wrap(ErrMissingColumns, "resolving catalog columns"), "header", strings.Join(header, ","))
	}
	return cols, nil
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// LoadCSV parses a catalog. Accepts the catalog header
// (station_id,station_name,station_lat,station_lon,lines) or a GTFS stops.txt,
// in which case only parent stations are kept when location_type is present.
func LoadCSV(r io.Reader) (*Catalog, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyCatalog
	}
	if err != nil {
		return nil, zerr.Wrap(err, "reading catalog header")
	}

	cols, err := resolveColumns(header)
	if err != nil {
		return nil, err
	}

	var stations []models.Station
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, "reading catalog row"), "line", line)
		}

		if cols.locationType >= 0 && field(record, cols.locationType) != "1" {
			continue
		}

		lat, errLat := strconv.ParseFloat(field(record, cols.lat), 64)
		lng, errLng := strconv.ParseFloat(field(record, cols.lng), 64)
		if errLat != nil || errLng != nil {
			continue
		}

		stations = append(stations, models.Station{
			ID:        field(record, cols.id),
			Name:      field(record, cols.name),
			Latitude:  lat,
			Longitude: lng,
			Lines:     strings.Fields(field(record, cols.lines)),
		})
	}

	if len(stations) == 0 {
		return nil, ErrEmptyCatalog
	}
	return NewCatalog(stations), nil
}

// FindWithin returns stations within maxKm of center, in catalog order
func (c *Catalog) FindWithin(center models.Coordinate, maxKm float64) []models.Station {
	var results []models.Station
	c.eachWithin(center, maxKm, func(i int, _ float64) {
		results = append(results, c.stations[i])
	})
	return results
}

// FindWithinDistance is FindWithin with the distance to each station attached
func (c *Catalog) FindWithinDistance(center models.Coordinate, maxKm float64) []models.StationWithDistance {
	var results []models.StationWithDistance
	c.eachWithin(center, maxKm, func(i int, dist float64) {
		results = append(results, models.StationWithDistance{Station: c.stations[i], DistanceKm: dist})
	})
	return results
}

// Nearest returns the closest station within maxKm. A non-positive maxKm means
// unbounded. Ties resolve to the earlier catalog entry.
func (c *Catalog) Nearest(center models.Coordinate, maxKm float64) (models.Station, bool) {
	best, bestDist := -1, 0.0
	visit := func(i int, dist float64) {
		if best < 0 || dist < bestDist {
			best, bestDist = i, dist
		}
	}

	if maxKm <= 0 {
		for i, s := range c.stations {
			visit(i, DistanceKm(center, s.Coordinate()))
		}
	} else {
		c.eachWithin(center, maxKm, visit)
	}

	if best < 0 {
		return models.Station{}, false
	}
	return c.stations[best], true
}

func (c *Catalog) eachWithin(center models.Coordinate, maxKm float64, fn func(i int, dist float64)) {
	candidates, ok := c.index.candidates(center, maxKm)
	if !ok {
		for i, s := range c.stations {
			if dist := DistanceKm(center, s.Coordinate()); dist <= maxKm {
				fn(i, dist)
			}
		}
		return
	}

	for _, i := range candidates {
		if dist := DistanceKm(center, c.stations[i].Coordinate()); dist <= maxKm {
			fn(i, dist)
		}
	}
}

// GetByID returns the first station with the given id
func (c *Catalog) GetByID(id string) (models.Station, bool) {
	i, ok := c.byID[id]
	if !ok {
		return models.Station{}, false
	}
	return c.stations[i], true
}

// All returns a copy of every station in catalog order
func (c *Catalog) All() []models.Station {
	out := make([]models.Station, len(c.stations))
	copy(out, c.stations)
	return out
}

// Count returns the number of stations, duplicates included
func (c *Catalog) Count() int {
	return len(c.stations)
}
