// Package cache holds the single-slot snapshot cache with its live/frozen policy
package cache

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.trai.ch/zerr"
	"golang.org/x/sync/singleflight"

	"github.com/randytsao24/reachmap/internal/models"
	"github.com/randytsao24/reachmap/internal/transit"
)

// DefaultRefreshInterval is how long a live snapshot stays fresh
const DefaultRefreshInterval = 5 * time.Minute

var (
	ErrSuperseded      = zerr.New("snapshot superseded by a newer request")
	ErrInvalidMode     = zerr.New("invalid cache mode")
	ErrInvalidInterval = zerr.New("refresh interval must be positive")
)

// Mode selects the staleness policy
type Mode string

const (
	// Live recomputes once the snapshot is older than the refresh interval
	Live Mode = "live"
	// Frozen keeps serving the cached snapshot regardless of age
	Frozen Mode = "frozen"
)

func (m Mode) Valid() bool {
	return m == Live || m == Frozen
}

// State is the controller's position in its Empty -> Computing -> Cached cycle
type State string

const (
	StateEmpty     State = "empty"
	StateComputing State = "computing"
	StateCached    State = "cached"
)

// Computer builds a snapshot for a request. transit.Engine implements it.
type Computer interface {
	Compute(ctx context.Context, req transit.Request) (*models.TransitData, error)
}

// ComputeFunc adapts a function to Computer
type ComputeFunc func(ctx context.Context, req transit.Request) (*models.TransitData, error)

func (f ComputeFunc) Compute(ctx context.Context, req transit.Request) (*models.TransitData, error) {
	return f(ctx, req)
}

type entry struct {
	key       string
	data      *models.TransitData
	fetchedAt time.Time
}

// Status is a point-in-time view of the controller
type Status struct {
	Mode       Mode          `json:"mode"`
	Interval   time.Duration `json:"-"`
	State      State         `json:"state"`
	FetchedAt  *time.Time    `json:"fetched_at,omitempty"`
	Generation uint64        `json:"generation"`
}

// Controller owns exactly one snapshot. Concurrent requests for the same key
// share one computation. Every computation gets a new generation; starting one
// cancels the previous and only a newer generation may replace the installed
// snapshot, so the most recent request wins.
type Controller struct {
	computer Computer
	clock    clockwork.Clock
	logger   *slog.Logger
	observer Observer
	group    singleflight.Group

	mu         sync.Mutex
	mode       Mode
	interval   time.Duration
	current    *entry
	inFlight   int
	generation uint64
	installed  uint64
	cancel     context.CancelCauseFunc
}

// Option configures a Controller
type Option func(*Controller)

func WithClock(clock clockwork.Clock) Option {
	return func(c *Controller) {
		if clock != nil {
			c.clock = clock
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithObserver receives cache decisions and computation outcomes
func WithObserver(observer Observer) Option {
	return func(c *Controller) {
		if observer != nil {
			c.observer = observer
		}
	}
}

// WithMode sets the initial mode
func WithMode(mode Mode) Option {
	return func(c *Controller) {
		if mode.Valid() {
			c.mode = mode
		}
	}
}

// WithInterval sets the initial refresh interval
func WithInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.interval = d
		}
	}
}

// New creates an empty controller in live mode
func New(computer Computer, opts ...Option) *Controller {
	c := &Controller{
		computer: computer,
		clock:    clockwork.NewRealClock(),
		logger:   slog.Default(),
		observer: NopObserver{},
		mode:     Live,
		interval: DefaultRefreshInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached snapshot when the current mode allows it, otherwise
// computes a new one. In live mode the snapshot must be for the same request
// and no older than the interval. In frozen mode any snapshot of the same
// snapshot mode is served.
func (c *Controller) Get(ctx context.Context, req transit.Request) (*models.TransitData, error) {
	key := req.Key()

	c.mu.Lock()
	mode := c.mode
	if c.current != nil && c.fresh(c.current, key, req.Mode) {
		data := c.current.data
		c.mu.Unlock()

		c.observer.ObserveRequest(req.Mode, ResultHit)
		c.logger.DebugContext(ctx, "serving cached snapshot",
			"cache_mode", mode, "key", key, "generation", data.Generation)
		return data, nil
	}
	c.mu.Unlock()

	c.observer.ObserveRequest(req.Mode, ResultMiss)
	return c.compute(ctx, req, key, false)
}

// ForceRefresh drops the cached snapshot and computes a new one regardless of mode
func (c *Controller) ForceRefresh(ctx context.Context, req transit.Request) (*models.TransitData, error) {
	key := req.Key()

	c.mu.Lock()
	c.current = nil
	c.mu.Unlock()

	// never join a flight that started before the refresh
	c.group.Forget(key)

	c.observer.ObserveRequest(req.Mode, ResultRefresh)
	c.logger.InfoContext(ctx, "forcing snapshot refresh", "key", key)
	return c.compute(ctx, req, key, true)
}

// SetMode switches between live and frozen. It never triggers a computation.
func (c *Controller) SetMode(mode Mode) error {
	if !mode.Valid() {
		return zerr.With(zerr.Wrap(ErrInvalidMode, "setting cache mode"), "mode", string(mode))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = mode
	return nil
}

// SetInterval changes the live refresh interval for future requests
func (c *Controller) SetInterval(d time.Duration) error {
	if d <= 0 {
		return zerr.With(zerr.Wrap(ErrInvalidInterval, "setting refresh interval"), "interval", d.String())
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.interval = d
	return nil
}

func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

func (c *Controller) Interval() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interval
}

// State reports Computing while any computation is in flight
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state()
}

func (c *Controller) state() State {
	switch {
	case c.inFlight > 0:
		return StateComputing
	case c.current == nil:
		return StateEmpty
	default:
		return StateCached
	}
}

// Snapshot returns the installed snapshot without any freshness check
func (c *Controller) Snapshot() (*models.TransitData, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil, false
	}
	return c.current.data, true
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Status{
		Mode:       c.mode,
		Interval:   c.interval,
		State:      c.state(),
		Generation: c.installed,
	}
	if c.current != nil {
		fetchedAt := c.current.fetchedAt
		s.FetchedAt = &fetchedAt
	}
	return s
}

// fresh must be called with mu held
func (c *Controller) fresh(e *entry, key string, mode models.Mode) bool {
	if c.mode == Frozen {
		return e.data.Mode == mode
	}
	return e.key == key && c.clock.Since(e.fetchedAt) <= c.interval
}

func (c *Controller) compute(ctx context.Context, req transit.Request, key string, force bool) (*models.TransitData, error) {
	ch := c.group.DoChan(key, func() (any, error) {
		// the computation outlives any single caller; only supersession cancels it
		return c.run(context.WithoutCancel(ctx), req, key, force)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*models.TransitData), nil
	case <-ctx.Done():
		return nil, zerr.Wrap(ctx.Err(), "waiting for snapshot")
	}
}

func (c *Controller) run(parent context.Context, req transit.Request, key string, force bool) (*models.TransitData, error) {
	c.mu.Lock()
	// a flight that finished between the caller's check and this one already installed it
	if !force && c.current != nil && c.fresh(c.current, key, req.Mode) {
		data := c.current.data
		c.mu.Unlock()
		return data, nil
	}

	ctx, cancel := context.WithCancelCause(parent)
	defer cancel(nil)

	c.generation++
	gen := c.generation
	if c.cancel != nil {
		c.cancel(ErrSuperseded)
	}
	c.cancel = cancel
	c.inFlight++
	c.mu.Unlock()

	start := c.clock.Now()
	data, err := c.computer.Compute(ctx, req)
	elapsed := c.clock.Since(start)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.inFlight--
	if gen == c.generation {
		c.cancel = nil
	}

	switch {
	case err == nil && gen > c.installed:
	case err == nil, errors.Is(context.Cause(ctx), ErrSuperseded):
		c.observer.ObserveComputation(req.Mode, OutcomeDiscarded, elapsed, 0)
		c.logger.WarnContext(ctx, "discarding superseded snapshot",
			"key", key, "generation", gen, "latest", c.generation)
		return nil, zerr.With(zerr.Wrap(ErrSuperseded, "computing snapshot"), "generation", gen)
	default:
		c.observer.ObserveComputation(req.Mode, OutcomeFailed, elapsed, 0)
		return nil, zerr.With(zerr.Wrap(err, "computing snapshot"), "key", key)
	}

	data.Generation = gen
	c.installed = gen
	c.current = &entry{key: key, data: data, fetchedAt: c.clock.Now()}

	c.observer.ObserveComputation(req.Mode, OutcomeInstalled, elapsed, len(data.Points))
	c.logger.InfoContext(ctx, "installed snapshot",
		"key", key, "generation", gen, "points", len(data.Points), "duration", elapsed)
	return data, nil
}
