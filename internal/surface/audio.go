package surface

import "fmt"

// AudioBuffer holds rendered audio as one float32 slice per channel.
type AudioBuffer struct {
	handle     Handle
	arena      *Arena
	channels   [][]float32
	sampleRate float64
}

// NewAudioBuffer allocates a silent buffer.
func NewAudioBuffer(arena *Arena, channels, length int, sampleRate float64) *AudioBuffer {
	data := make([][]float32, channels)
	for i := range data {
		data[i] = make([]float32, length)
	}
	return &AudioBuffer{
		handle:     arena.Allocate(),
		arena:      arena,
		channels:   data,
		sampleRate: sampleRate,
	}
}

func (b *AudioBuffer) Handle() Handle { return b.handle }

func (b *AudioBuffer) NumberOfChannels() int { return len(b.channels) }

func (b *AudioBuffer) SampleRate() float64 { return b.sampleRate }

// Channel returns the live sample slice for channel i. Writes through the
// returned slice mutate the buffer.
func (b *AudioBuffer) Channel(i int) ([]float32, error) {
	if i < 0 || i >= len(b.channels) {
		return nil, fmt.Errorf("channel %d out of range [0, %d)", i, len(b.channels))
	}
	return b.channels[i], nil
}

// Destroy releases the buffer handle.
func (b *AudioBuffer) Destroy() {
	b.arena.Destroy(b.handle)
}
