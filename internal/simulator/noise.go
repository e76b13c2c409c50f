package simulator

import (
	"math/rand"
	"sync"
)

// ChannelNoise adds zero-mean Gaussian noise with a per-channel standard
// deviation, mirroring the original prototype's MultiChannelNoise.
type ChannelNoise struct {
	mu      sync.Mutex
	rng     *rand.Rand
	stdDevs map[string]float64
}

// NewChannelNoise constructs a generator seeded from seed, with the given
// per-channel standard deviations.
func NewChannelNoise(seed int64, stdDevs map[string]float64) *ChannelNoise {
	return &ChannelNoise{
		rng:     rand.New(rand.NewSource(seed)), //nolint:gosec
		stdDevs: stdDevs,
	}
}

// Add returns value perturbed by Gaussian noise for the named channel.
// An unrecognized channel passes value through unchanged.
func (c *ChannelNoise) Add(channel string, value float64) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	std, ok := c.stdDevs[channel]
	if !ok {
		return value
	}
	return value + c.rng.NormFloat64()*std
}
