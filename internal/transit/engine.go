package transit

import (
	"context"
	"log/slog"
	"math"
	"strconv"

	"github.com/jonboulle/clockwork"
	"go.trai.ch/zerr"

	"github.com/randytsao24/reachmap/internal/location"
	"github.com/randytsao24/reachmap/internal/models"
)

const (
	// DefaultGridRadius is the lattice half-width, in degrees, around the user for the basic grid
	DefaultGridRadius = 0.01
	// DefaultHeatmapRadius is the lattice half-width, in degrees, for the accessibility heatmap
	DefaultHeatmapRadius = 0.05
	// DefaultStationSearchKm bounds the stations whose transit time is precomputed for a heatmap
	DefaultStationSearchKm = 5.0
	// DefaultWalkRadiusKm bounds how far a heatmap cell may be from a station
	DefaultWalkRadiusKm = 1.5
	DefaultWorkers      = 4
)

var (
	ErrInvalidDensity = zerr.New("grid density out of range")
	ErrUnknownMode    = zerr.New("unknown snapshot mode")
	ErrAborted        = zerr.New("computation aborted")
)

// Request describes one snapshot computation
type Request struct {
	Mode   models.Mode
	Origin models.Coordinate
	// Center is the viewport center for grid and heatmap modes; nil uses Origin
	Center *models.Coordinate
	// Density is the lattice side length; 0 derives it from Zoom
	Density int
	Zoom    int
}

// GridCenter returns the lattice center for grid and heatmap modes
func (r Request) GridCenter() models.Coordinate {
	if r.Center != nil {
		return *r.Center
	}
	return r.Origin
}

// Key identifies requests that would produce the same snapshot. Coordinates are
// rounded to 4 decimals (about 11 m).
func (r Request) Key() string {
	key := string(r.Mode) + "|" + LocationKey(r.Origin)
	if r.Mode != models.ModeStations {
		key += "|" + LocationKey(r.GridCenter()) +
			"|d" + strconv.Itoa(r.Density) + "|z" + strconv.Itoa(r.Zoom)
	}
	return key
}

// LocationKey formats a coordinate rounded to 4 decimal places as "lat,lng"
func LocationKey(c models.Coordinate) string {
	return formatRounded(c.Latitude) + "," + formatRounded(c.Longitude)
}

func formatRounded(v float64) string {
	return strconv.FormatFloat(math.Round(v*10000)/10000, 'f', -1, 64)
}

// Engine builds snapshots from a catalog and a travel timer
type Engine struct {
	catalog         *location.Catalog
	timer           TravelTimer
	density         DensityPolicy
	gridRadius      float64
	heatmapRadius   float64
	stationSearchKm float64
	walkRadiusKm    float64
	workers         int
	clock           clockwork.Clock
	logger          *slog.Logger
}

// Option configures an Engine
type Option func(*Engine)

// WithDensityPolicy replaces the zoom to density table
func WithDensityPolicy(policy DensityPolicy) Option {
	return func(e *Engine) {
		if policy != nil {
			e.density = policy
		}
	}
}

// WithRadii sets the lattice half-widths, in degrees, for the grid and heatmap modes
func WithRadii(gridDegrees, heatmapDegrees float64) Option {
	return func(e *Engine) {
		if gridDegrees > 0 {
			e.gridRadius = gridDegrees
		}
		if heatmapDegrees > 0 {
			e.heatmapRadius = heatmapDegrees
		}
	}
}

// WithHeatmapDistances sets the station search and walking radii in kilometers
func WithHeatmapDistances(stationSearchKm, walkRadiusKm float64) Option {
	return func(e *Engine) {
		if stationSearchKm > 0 {
			e.stationSearchKm = stationSearchKm
		}
		if walkRadiusKm > 0 {
			e.walkRadiusKm = walkRadiusKm
		}
	}
}

// WithWorkers sets how many lattice rows are computed concurrently
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

func WithClock(clock clockwork.Clock) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates an engine over catalog using timer for every estimate
func NewEngine(catalog *location.Catalog, timer TravelTimer, opts ...Option) *Engine {
	e := &Engine{
		catalog:         catalog,
		timer:           timer,
		density:         DefaultDensity,
		gridRadius:      DefaultGridRadius,
		heatmapRadius:   DefaultHeatmapRadius,
		stationSearchKm: DefaultStationSearchKm,
		walkRadiusKm:    DefaultWalkRadiusKm,
		workers:         DefaultWorkers,
		clock:           clockwork.NewRealClock(),
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Compute dispatches req to the generator for its mode
func (e *Engine) Compute(ctx context.Context, req Request) (*models.TransitData, error) {
	switch req.Mode {
	case models.ModeStations:
		return e.StationTravelTimes(ctx, req.Origin)
	case models.ModeHeatmap:
		return e.Heatmap(ctx, req)
	case models.ModeGrid:
		return e.Grid(ctx, req)
	default:
		return nil, zerr.With(zerr.Wrap(ErrUnknownMode, "computing snapshot"), "mode", string(req.Mode))
	}
}

// Density resolves the lattice side length for req
func (e *Engine) Density(req Request) (int, error) {
	n := req.Density
	if n == 0 {
		n = e.density(req.Zoom)
	}
	if n < 1 || n > MaxGridDensity {
		return 0, zerr.With(zerr.Wrap(ErrInvalidDensity, "resolving grid density"), "density", n)
	}
	return n, nil
}

func (e *Engine) snapshot(mode models.Mode, points []models.TransitPoint) *models.TransitData {
	return &models.TransitData{
		Points:      points,
		LastUpdated: e.clock.Now(),
		Mode:        mode,
	}
}

func aborted(ctx context.Context) error {
	return zerr.With(zerr.Wrap(ErrAborted, "computing snapshot"), "cause", context.Cause(ctx))
}
