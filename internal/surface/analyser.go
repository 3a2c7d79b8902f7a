package surface

import (
	"math"
	"sync"
)

// Default decibel range used to scale byte frequency data.
const (
	DefaultMinDecibels = -100
	DefaultMaxDecibels = -30
)

// Analyser holds the latest frequency-domain snapshot of an audio graph, one
// decibel value per bin.
type Analyser struct {
	handle Handle
	arena  *Arena

	mu          sync.Mutex
	bins        []float32
	minDecibels float64
	maxDecibels float64
}

// NewAnalyser allocates an analyser with binCount silent bins.
func NewAnalyser(arena *Arena, binCount int) *Analyser {
	bins := make([]float32, binCount)
	for i := range bins {
		bins[i] = float32(math.Inf(-1))
	}
	return &Analyser{
		handle:      arena.Allocate(),
		arena:       arena,
		bins:        bins,
		minDecibels: DefaultMinDecibels,
		maxDecibels: DefaultMaxDecibels,
	}
}

func (a *Analyser) Handle() Handle { return a.handle }

func (a *Analyser) FrequencyBinCount() int { return len(a.bins) }

// SetFrequencyData replaces the bins with db, truncated to the bin count.
func (a *Analyser) SetFrequencyData(db []float32) {
	a.mu.Lock()
	copy(a.bins, db)
	a.mu.Unlock()
}

// FloatFrequencyData copies the bins into dst. Extra bins or extra dst
// elements are left alone.
func (a *Analyser) FloatFrequencyData(dst []float32) {
	a.mu.Lock()
	copy(dst, a.bins)
	a.mu.Unlock()
}

// ByteFrequencyData scales the bins onto [0, 255] across the decibel range
// and copies them into dst.
func (a *Analyser) ByteFrequencyData(dst []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()

	span := a.maxDecibels - a.minDecibels
	for i := range min(len(dst), len(a.bins)) {
		v := math.Floor(255 / span * (float64(a.bins[i]) - a.minDecibels))
		dst[i] = byte(min(max(v, 0), 255))
	}
}

// Destroy releases the analyser handle.
func (a *Analyser) Destroy() {
	a.arena.Destroy(a.handle)
}
