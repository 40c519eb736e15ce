package transit_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/randytsao24/reachmap/internal/location"
	"github.com/randytsao24/reachmap/internal/models"
)

func defaultCatalog(t *testing.T) *location.Catalog {
	t.Helper()
	catalog, err := location.DefaultCatalog()
	require.NoError(t, err)
	return catalog
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubTimer returns fixed minutes per exact destination and counts calls
type stubTimer struct {
	mu       sync.Mutex
	minutes  map[models.Coordinate]float64
	fallback float64
	calls    map[models.Coordinate]int
}

func newStubTimer(fallback float64) *stubTimer {
	return &stubTimer{
		minutes:  make(map[models.Coordinate]float64),
		fallback: fallback,
		calls:    make(map[models.Coordinate]int),
	}
}

func (s *stubTimer) set(dest models.Coordinate, minutes float64) *stubTimer {
	s.minutes[dest] = minutes
	return s
}

func (s *stubTimer) EstimateTravelTime(_ context.Context, _, destination models.Coordinate) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[destination]++
	if m, ok := s.minutes[destination]; ok {
		return m
	}
	return s.fallback
}

func (s *stubTimer) totalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.calls {
		total += n
	}
	return total
}
