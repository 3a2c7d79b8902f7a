package noise

import (
	"errors"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"

	"github.com/stupside/veil/internal/port"
)

// Mode selects how channel offsets are produced.
type Mode string

const (
	ModeFixed   Mode = "fixed"
	ModeRandom  Mode = "random"
	ModeSession Mode = "session"
)

// ParseMode maps a raw mode attribute to a Mode. Anything unrecognized
// behaves as fixed.
func ParseMode(raw string) Mode {
	switch Mode(strings.TrimSpace(raw)) {
	case ModeRandom:
		return ModeRandom
	case ModeSession:
		return ModeSession
	default:
		return ModeFixed
	}
}

// Offsets are the per-channel deltas added to a perturbed pixel.
type Offsets struct {
	R int
	G int
	B int
}

// Zero reports whether applying o would leave every channel unchanged.
func (o Offsets) Zero() bool {
	return o.R == 0 && o.G == 0 && o.B == 0
}

// Policy computes offsets from the current configuration. In session mode the
// first random triple is cached for the policy's lifetime; the same is true
// for the audio noise amplitude.
type Policy struct {
	mu      sync.Mutex
	rng     *rand.Rand
	session *Offsets
	audio   *float64
}

// NewPolicy returns a policy drawing from src. A nil src seeds a fresh PCG
// from the runtime's random source, so no two process starts agree.
func NewPolicy(src rand.Source) *Policy {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Policy{rng: rand.New(src)}
}

// Offsets returns the triple to apply for one perturbation.
func (p *Policy) Offsets(cfg port.Snapshot) Offsets {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch ParseMode(cfg.Mode) {
	case ModeRandom:
		return p.randomLocked()
	case ModeSession:
		if p.session == nil {
			o := p.randomLocked()
			p.session = &o
		}
		return *p.session
	default:
		return Offsets{
			R: parseOffset(cfg.Red),
			G: parseOffset(cfg.Green),
			B: parseOffset(cfg.Blue),
		}
	}
}

// Session returns the cached session triple, if one has been drawn.
func (p *Policy) Session() (Offsets, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == nil {
		return Offsets{}, false
	}
	return *p.session, true
}

// AudioNoise returns the session audio delta in [-0.00005, 0.00005).
func (p *Policy) AudioNoise() float32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio == nil {
		v := p.rng.Float64()*0.0001 - 0.00005
		p.audio = &v
	}
	return float32(*p.audio)
}

func (p *Policy) randomLocked() Offsets {
	return Offsets{R: p.sign(), G: p.sign(), B: p.sign()}
}

func (p *Policy) sign() int {
	if p.rng.IntN(2) == 0 {
		return -1
	}
	return 1
}

// MaxOffset bounds a fixed channel offset; anything larger already saturates
// every sample.
const MaxOffset = 255

// parseOffset coerces a configured channel offset. Malformed input yields 0,
// fractional input truncates toward zero and the result is clamped to
// [-MaxOffset, MaxOffset].
func parseOffset(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return min(max(n, -MaxOffset), MaxOffset)
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0
	}
	if math.IsNaN(f) {
		return 0
	}
	return int(math.Trunc(min(max(f, -MaxOffset), MaxOffset)))
}
