package cache

import (
	"time"

	"github.com/randytsao24/reachmap/internal/models"
)

// Request results reported to an Observer
const (
	ResultHit     = "hit"
	ResultMiss    = "miss"
	ResultRefresh = "refresh"
)

// Computation outcomes reported to an Observer
const (
	OutcomeInstalled = "installed"
	OutcomeDiscarded = "discarded"
	OutcomeFailed    = "failed"
)

// Observer is told about every cache decision and finished computation.
// Calls may happen while the controller holds its lock, so implementations
// must not call back into the controller.
type Observer interface {
	ObserveRequest(mode models.Mode, result string)
	ObserveComputation(mode models.Mode, outcome string, elapsed time.Duration, points int)
}

type NopObserver struct{}

func (NopObserver) ObserveRequest(models.Mode, string) {}

func (NopObserver) ObserveComputation(models.Mode, string, time.Duration, int) {}
