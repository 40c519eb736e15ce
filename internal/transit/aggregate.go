package transit

import (
	"context"

	"github.com/randytsao24/reachmap/internal/models"
)

// StationTravelTimes estimates travel time from origin to every catalog station
// and keeps one point per rounded location (see LocationKey): the one with the
// smallest time, ties going to the earlier station. Points come out in the order
// their location was first seen in the catalog.
func (e *Engine) StationTravelTimes(ctx context.Context, origin models.Coordinate) (*models.TransitData, error) {
	stations := e.catalog.All()

	e.logger.InfoContext(ctx, "calculating travel times to stations", "stations", len(stations))

	slots := make(map[string]int, len(stations))
	points := make([]models.TransitPoint, 0, len(stations))

	for _, station := range stations {
		if ctx.Err() != nil {
			return nil, aborted(ctx)
		}

		point := models.TransitPoint{
			Latitude:   station.Latitude,
			Longitude:  station.Longitude,
			TravelTime: e.timer.EstimateTravelTime(ctx, origin, station.Coordinate()),
			StationID:  station.ID,
		}

		key := LocationKey(station.Coordinate())
		if i, seen := slots[key]; seen {
			if point.TravelTime < points[i].TravelTime {
				points[i] = point
			}
			continue
		}
		slots[key] = len(points)
		points = append(points, point)
	}

	e.logger.InfoContext(ctx, "reduced stations to unique locations",
		"stations", len(stations), "locations", len(points))

	return e.snapshot(models.ModeStations, points), nil
}
