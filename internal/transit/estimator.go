// Package transit estimates travel times and builds accessibility snapshots
package transit

import (
	"context"
	"errors"
	"log/slog"
	"math"

	"go.trai.ch/zerr"

	"github.com/randytsao24/reachmap/internal/location"
	"github.com/randytsao24/reachmap/internal/models"
)

const (
	// FallbackMinutes is returned when no estimate can be made. It means
	// "unknown", not "unreachable"; see models.TransitPoint.Unreachable.
	FallbackMinutes = 60
	MinMinutes      = 3
	MaxMinutes      = 90

	// DefaultAccessRadiusKm bounds the nearest-station search on each side of a trip
	DefaultAccessRadiusKm = 1.5

	minutesPerKm           = 2.5
	transferPenaltyMinutes = 5
)

var (
	ErrNoStation         = zerr.New("no station within access radius")
	ErrInvalidCoordinate = zerr.New("coordinate is not a finite number")
)

// TravelTimer estimates transit minutes between two points. Implementations
// never fail: problems are folded into a fallback value.
type TravelTimer interface {
	EstimateTravelTime(ctx context.Context, origin, destination models.Coordinate) float64
}

// Estimator approximates transit time between the stations nearest to each end
// of a trip: 2.5 min/km between them, a transfer penalty when they share no
// line, optional noise, clamped to [MinMinutes, MaxMinutes].
type Estimator struct {
	catalog        *location.Catalog
	accessRadiusKm float64
	noise          NoiseSource
	logger         *slog.Logger
}

// EstimatorOption configures an Estimator
type EstimatorOption func(*Estimator)

// WithAccessRadius sets how far from a point the nearest station may be
func WithAccessRadius(km float64) EstimatorOption {
	return func(e *Estimator) {
		if km > 0 {
			e.accessRadiusKm = km
		}
	}
}

// WithNoise adds jitter to every estimate
func WithNoise(noise NoiseSource) EstimatorOption {
	return func(e *Estimator) {
		e.noise = noise
	}
}

// WithEstimatorLogger sets the logger used for swallowed errors
func WithEstimatorLogger(logger *slog.Logger) EstimatorOption {
	return func(e *Estimator) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEstimator creates a deterministic estimator over catalog
func NewEstimator(catalog *location.Catalog, opts ...EstimatorOption) *Estimator {
	e := &Estimator{
		catalog:        catalog,
		accessRadiusKm: DefaultAccessRadiusKm,
		noise:          NoNoise{},
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EstimateTravelTime returns minutes from origin to destination, or
// FallbackMinutes when either end has no station nearby or anything goes wrong.
func (e *Estimator) EstimateTravelTime(ctx context.Context, origin, destination models.Coordinate) float64 {
	minutes, err := e.estimate(origin, destination)
	if err != nil {
		if errors.Is(err, ErrNoStation) {
			e.logger.DebugContext(ctx, "no station near trip end, using fallback",
				"origin", origin, "destination", destination)
		} else {
			zerr.Log(ctx, e.logger, err)
		}
		return FallbackMinutes
	}
	return minutes
}

func (e *Estimator) estimate(origin, destination models.Coordinate) (minutes float64, err error) {
	defer zerr.Defer(func(recovered error) {
		minutes, err = 0, zerr.Wrap(recovered, "estimating travel time")
	})

	if !finite(origin) || !finite(destination) {
		return 0, zerr.Wrap(ErrInvalidCoordinate, "estimating travel time")
	}

	from, ok := e.catalog.Nearest(origin, e.accessRadiusKm)
	if !ok {
		return 0, zerr.With(zerr.Wrap(ErrNoStation, "resolving origin station"), "origin", origin)
	}
	to, ok := e.catalog.Nearest(destination, e.accessRadiusKm)
	if !ok {
		return 0, zerr.With(zerr.Wrap(ErrNoStation, "resolving destination station"), "destination", destination)
	}

	minutes = location.DistanceKm(from.Coordinate(), to.Coordinate()) * minutesPerKm
	if !from.SharesLine(to) {
		minutes += transferPenaltyMinutes
	}
	minutes += e.noise.Jitter()

	return Clamp(minutes), nil
}

// Clamp bounds minutes to [MinMinutes, MaxMinutes]
func Clamp(minutes float64) float64 {
	return math.Max(MinMinutes, math.Min(MaxMinutes, minutes))
}

func finite(c models.Coordinate) bool {
	for _, v := range []float64{c.Latitude, c.Longitude} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
