package handlers

import (
	"context"
	"time"

	"github.com/randytsao24/reachmap/internal/cache"
	"github.com/randytsao24/reachmap/internal/models"
	"github.com/randytsao24/reachmap/internal/transit"
)

// SnapshotService abstracts the snapshot cache for testability.
type SnapshotService interface {
	Get(ctx context.Context, req transit.Request) (*models.TransitData, error)
	ForceRefresh(ctx context.Context, req transit.Request) (*models.TransitData, error)
	Status() cache.Status
	SetMode(mode cache.Mode) error
	SetInterval(d time.Duration) error
}

// StationFinder abstracts the station catalog.
type StationFinder interface {
	FindWithinDistance(center models.Coordinate, maxKm float64) []models.StationWithDistance
	GetByID(id string) (models.Station, bool)
	Count() int
}
