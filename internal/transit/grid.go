package transit

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/randytsao24/reachmap/internal/location"
	"github.com/randytsao24/reachmap/internal/models"
)

// cellFunc computes one lattice sample
type cellFunc func(ctx context.Context, cell models.Coordinate) models.TransitPoint

// lattice samples an n x n grid covering center +/- radius degrees, starting at
// the minimum corner and stepping 2*radius/n, so the maximum edge is excluded.
// Points are row-major (latitude index outer). Rows run on up to e.workers
// goroutines; each writes only its own slice range.
func (e *Engine) lattice(ctx context.Context, center models.Coordinate, radius float64, n int, fn cellFunc) ([]models.TransitPoint, error) {
	points := make([]models.TransitPoint, n*n)
	step := radius * 2 / float64(n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			lat := center.Latitude - radius + float64(i)*step
			for j := 0; j < n; j++ {
				lng := center.Longitude - radius + float64(j)*step
				points[i*n+j] = fn(gctx, models.Coordinate{Latitude: lat, Longitude: lng})
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, aborted(ctx)
	}
	if ctx.Err() != nil {
		return nil, aborted(ctx)
	}
	return points, nil
}

// Grid estimates travel time from the lattice center to every cell
func (e *Engine) Grid(ctx context.Context, req Request) (*models.TransitData, error) {
	n, err := e.Density(req)
	if err != nil {
		return nil, err
	}
	center := req.GridCenter()

	e.logger.InfoContext(ctx, "generating travel time grid",
		"density", n, "points", n*n, "zoom", req.Zoom, "radius_deg", e.gridRadius)

	points, err := e.lattice(ctx, center, e.gridRadius, n, func(ctx context.Context, cell models.Coordinate) models.TransitPoint {
		return models.TransitPoint{
			Latitude:   cell.Latitude,
			Longitude:  cell.Longitude,
			TravelTime: e.timer.EstimateTravelTime(ctx, center, cell),
		}
	})
	if err != nil {
		return nil, err
	}
	return e.snapshot(models.ModeGrid, points), nil
}

// Heatmap builds the accessibility grid in two phases. First the transit time
// from the center to every station within stationSearchKm is estimated once and
// stored by station id. Once that map is complete it is only read: each cell
// takes the best of (station transit time + walk from station to cell) over the
// stations within walking distance.
func (e *Engine) Heatmap(ctx context.Context, req Request) (*models.TransitData, error) {
	n, err := e.Density(req)
	if err != nil {
		return nil, err
	}
	center := req.GridCenter()

	memo, err := e.stationTimes(ctx, center)
	if err != nil {
		return nil, err
	}

	e.logger.InfoContext(ctx, "calculating accessibility heatmap",
		"density", n, "points", n*n, "radius_deg", e.heatmapRadius, "stations", len(memo))

	points, err := e.lattice(ctx, center, e.heatmapRadius, n, func(_ context.Context, cell models.Coordinate) models.TransitPoint {
		return e.bestCell(cell, memo)
	})
	if err != nil {
		return nil, err
	}
	return e.snapshot(models.ModeHeatmap, points), nil
}

// stationTimes estimates transit time from center to each station within
// stationSearchKm. Duplicate ids keep their first estimate.
func (e *Engine) stationTimes(ctx context.Context, center models.Coordinate) (map[string]float64, error) {
	nearby := e.catalog.FindWithin(center, e.stationSearchKm)
	memo := make(map[string]float64, len(nearby))

	for _, station := range nearby {
		if ctx.Err() != nil {
			return nil, aborted(ctx)
		}
		if _, done := memo[station.ID]; done {
			continue
		}
		memo[station.ID] = e.timer.EstimateTravelTime(ctx, center, station.Coordinate())
	}

	e.logger.DebugContext(ctx, "pre-calculated station transit times",
		"stations", len(nearby), "unique", len(memo))
	return memo, nil
}

func (e *Engine) bestCell(cell models.Coordinate, memo map[string]float64) models.TransitPoint {
	point := models.TransitPoint{Latitude: cell.Latitude, Longitude: cell.Longitude}

	walkable := e.catalog.FindWithinDistance(cell, e.walkRadiusKm)
	if len(walkable) == 0 {
		point.TravelTime = MaxMinutes
		point.Unreachable = true
		return point
	}

	best := -1.0
	for _, station := range walkable {
		transitTime, ok := memo[station.ID]
		if !ok {
			transitTime = FallbackMinutes
		}
		total := transitTime + location.WalkingTimeMinutes(station.DistanceKm)
		if best < 0 || total < best {
			best = total
			point.StationID = station.ID
		}
	}

	point.TravelTime = Clamp(best)
	return point
}
