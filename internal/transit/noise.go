package transit

import (
	"math/rand/v2"
	"sync"
)

// DefaultNoiseAmplitude is the +/- minutes of jitter historically applied to estimates
const DefaultNoiseAmplitude = 5

// NoiseSource supplies the random term added to every estimate
type NoiseSource interface {
	Jitter() float64
}

// NoNoise keeps estimates deterministic
type NoNoise struct{}

func (NoNoise) Jitter() float64 { return 0 }

type seededNoise struct {
	mu        sync.Mutex
	rng       *rand.Rand
	amplitude float64
}

// SeededNoise returns reproducible uniform noise in [-amplitude, +amplitude].
// It is safe for concurrent use.
func SeededNoise(seed uint64, amplitude float64) NoiseSource {
	return &seededNoise{
		rng:       rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		amplitude: amplitude,
	}
}

func (n *seededNoise) Jitter() float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return (n.rng.Float64()*2 - 1) * n.amplitude
}
