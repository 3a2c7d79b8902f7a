package engine

import (
	"github.com/stupside/veil/internal/noise"
	"github.com/stupside/veil/internal/port"
	"github.com/stupside/veil/internal/surface"
)

type audioKey struct {
	handle  surface.Handle
	channel int
}

// PerturbAudio adds the session audio noise to samples, the live data of one
// channel of buf. Each channel is perturbed once for the buffer's lifetime;
// the change is permanent.
func (e *Engine) PerturbAudio(buf *surface.AudioBuffer, channel int, samples []float32) {
	e.port.Dispatch(port.EventManipulate)

	k := audioKey{handle: buf.Handle(), channel: channel}

	e.mu.Lock()
	if _, done := e.poisoned[k]; done {
		e.mu.Unlock()
		return
	}
	e.poisoned[k] = struct{}{}
	e.mu.Unlock()

	noise.ApplyAudio(samples, e.policy.AudioNoise())
}

// PerturbFrequency adds the session audio noise to analyser output, either
// decibel bins ([]float32) or byte bins ([]byte). Other types are ignored.
func (e *Engine) PerturbFrequency(bins any) {
	e.port.Dispatch(port.EventManipulate)

	switch b := bins.(type) {
	case []float32:
		noise.ApplyFrequency(b, e.policy.AudioNoise())
	case []byte:
		noise.ApplyByteFrequency(b, e.policy.AudioNoise())
	}
}
