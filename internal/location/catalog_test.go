package location_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randytsao24/reachmap/internal/location"
	"github.com/randytsao24/reachmap/internal/models"
)

func testStations() []models.Station {
	return []models.Station{
		{ID: "times-square", Name: "Times Square-42nd St", Latitude: 40.7580, Longitude: -73.9855, Lines: []string{"1", "2", "3", "7"}},
		{ID: "grand-central", Name: "Grand Central-42nd St", Latitude: 40.7527, Longitude: -73.9772, Lines: []string{"4", "5", "6", "7"}},
		{ID: "coney-island", Name: "Coney Island", Latitude: 40.5774, Longitude: -73.9813, Lines: []string{"D", "F", "N", "Q"}},
		{ID: "times-square", Name: "Times Sq (dup)", Latitude: 40.7580, Longitude: -73.9855, Lines: []string{"N", "Q"}},
	}
}

func TestDefaultCatalog(t *testing.T) {
	cat, err := location.DefaultCatalog()
	require.NoError(t, err)

	assert.Equal(t, 367, cat.Count())

	ts, ok := cat.GetByID("times-square")
	require.True(t, ok)
	assert.Equal(t, "Times Square-42nd St", ts.Name)
	assert.Contains(t, ts.Lines, "7")
}

func TestFindWithinKeepsCatalogOrder(t *testing.T) {
	cat := location.NewCatalog(testStations())

	// Grand Central is closer than Times Square, but order follows the catalog
	near := cat.FindWithin(grandCentral, 2)
	require.Len(t, near, 3)
	assert.Equal(t, "times-square", near[0].ID)
	assert.Equal(t, "grand-central", near[1].ID)
	assert.Equal(t, "Times Sq (dup)", near[2].Name)

	assert.Empty(t, cat.FindWithin(models.Coordinate{Latitude: 41.5, Longitude: -73}, 1))
}

func TestFindWithinMatchesLinearScan(t *testing.T) {
	cat, err := location.DefaultCatalog()
	require.NoError(t, err)

	centers := []models.Coordinate{timesSquare, coneyIsland, {Latitude: 40.85, Longitude: -73.88}}
	for _, center := range centers {
		for _, radius := range []float64{0.3, 1.5, 5, 40} {
			var want []string
			for _, s := range cat.All() {
				if location.DistanceKm(center, s.Coordinate()) <= radius {
					want = append(want, s.ID+"|"+s.Name)
				}
			}

			var got []string
			for _, s := range cat.FindWithin(center, radius) {
				got = append(got, s.ID+"|"+s.Name)
			}
			assert.Equal(t, want, got, "center=%v radius=%v", center, radius)
		}
	}
}

func TestFindWithinDistance(t *testing.T) {
	cat := location.NewCatalog(testStations())

	near := cat.FindWithinDistance(timesSquare, 0.5)
	require.Len(t, near, 2)
	assert.Zero(t, near[0].DistanceKm)
}

func TestNearest(t *testing.T) {
	cat := location.NewCatalog(testStations())

	s, ok := cat.Nearest(models.Coordinate{Latitude: 40.7530, Longitude: -73.9775}, 1)
	require.True(t, ok)
	assert.Equal(t, "grand-central", s.ID)

	// ties resolve to the earlier entry
	s, ok = cat.Nearest(timesSquare, 1)
	require.True(t, ok)
	assert.Equal(t, "Times Square-42nd St", s.Name)

	_, ok = cat.Nearest(models.Coordinate{Latitude: 42, Longitude: -75}, 1.5)
	assert.False(t, ok)

	s, ok = cat.Nearest(models.Coordinate{Latitude: 42, Longitude: -75}, 0)
	require.True(t, ok, "non-positive radius is unbounded")
	assert.NotEmpty(t, s.ID)

	_, ok = location.NewCatalog(nil).Nearest(timesSquare, 0)
	assert.False(t, ok)
}

func TestLoadCSVGTFSStops(t *testing.T) {
	stops := `stop_id,stop_name,stop_lat,stop_lon,location_type,parent_station
127,Times Sq-42 St,40.75529,-73.987495,1,
127N,Times Sq-42 St,40.75529,-73.987495,0,127
631,Grand Central-42 St,40.751776,-73.976848,1,
`
	cat, err := location.LoadCSV(strings.NewReader(stops))
	require.NoError(t, err)
	assert.Equal(t, 2, cat.Count())

	s, ok := cat.GetByID("631")
	require.True(t, ok)
	assert.Empty(t, s.Lines)
}

func TestLoadCSVErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"empty", "", location.ErrEmptyCatalog},
		{"header only", "station_id,station_name,station_lat,station_lon,lines\n", location.ErrEmptyCatalog},
		{"missing columns", "id,name\na,b\n", location.ErrMissingColumns},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := location.LoadCSV(strings.NewReader(tc.input))
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()

	db, err := location.OpenSQLite(ctx, filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	defer db.Close()

	_, err = location.LoadSQLite(ctx, db)
	require.Error(t, err, "missing table")

	require.NoError(t, location.WriteSQLite(ctx, db, testStations()))
	// rewriting replaces rather than appends
	require.NoError(t, location.WriteSQLite(ctx, db, testStations()))

	cat, err := location.LoadSQLite(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, testStations(), cat.All())
}
