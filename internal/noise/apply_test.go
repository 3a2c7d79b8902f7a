package noise

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stupside/veil/internal/port"
)

func TestApplyStrideIndexes(t *testing.T) {
	for _, size := range []int{0, 4, 256, 1024, 4096, 37 * 4 * 3} {
		buf := bytes.Repeat([]byte{100}, size)
		orig := bytes.Clone(buf)

		touched := Apply(buf, Offsets{R: 1, G: 1, B: 1})

		var want []int
		for i := 0; i < size; i++ {
			if i%37 == 0 && i%4 == 0 {
				want = append(want, i)
			}
		}
		assert.Equal(t, want, touched, "size %d", size)

		changed := map[int]bool{}
		for _, i := range touched {
			changed[i], changed[i+1], changed[i+2] = true, true, true
		}
		for i := range buf {
			if changed[i] {
				assert.Equal(t, orig[i]+1, buf[i], "index %d", i)
			} else {
				assert.Equal(t, orig[i], buf[i], "index %d must not change", i)
			}
		}
	}
}

func TestApplyLeavesAlpha(t *testing.T) {
	buf := bytes.Repeat([]byte{100}, 8*8*4)

	touched := Apply(buf, Offsets{R: 2, G: -1, B: 0})

	// 148 is 4*37, the second hit inside an 8x8 buffer.
	assert.Equal(t, []int{0, 148}, touched)
	assert.Equal(t, []byte{102, 99, 100, 100}, buf[:4])
	assert.Equal(t, []byte{102, 99, 100, 100}, buf[148:152])
	assert.Equal(t, bytes.Repeat([]byte{100}, 144), buf[4:148])
}

func TestApplySaturates(t *testing.T) {
	buf := []byte{255, 0, 254, 255}

	Apply(buf, Offsets{R: 5, G: -3, B: 9})

	assert.Equal(t, []byte{255, 0, 255, 255}, buf)
}

func TestApplyShortTrailingPixel(t *testing.T) {
	buf := bytes.Repeat([]byte{10}, 150)

	var touched []int
	assert.NotPanics(t, func() { touched = Apply(buf, Offsets{R: 1, G: 1, B: 1}) })
	assert.Equal(t, []int{0}, touched)
	assert.Equal(t, byte(10), buf[148], "partial pixel at the tail is skipped")
}

func TestApplyAudio(t *testing.T) {
	samples := make([]float32, 120)

	ApplyAudio(samples, 0.25)

	for i, s := range samples {
		if i%AudioStride == 0 {
			assert.Equal(t, float32(0.25), s)
		} else {
			assert.Zero(t, s)
		}
	}
}

func TestApplyExtremeFixedOffsetSaturates(t *testing.T) {
	p := NewPolicy(nil)
	o := p.Offsets(port.Snapshot{Mode: "fixed", Red: "9223372036854775807", Green: "-9223372036854775808"})

	buf := []byte{200, 200, 200, 255}
	Apply(buf, o)
	assert.Equal(t, []byte{255, 0, 200, 255}, buf)
}

func TestApplyFrequency(t *testing.T) {
	bins := make([]float32, 45)
	ApplyFrequency(bins, 0.5)

	for i, v := range bins {
		if i%FrequencyStride == 0 {
			assert.Equal(t, float32(0.5), v, "bin %d", i)
		} else {
			assert.Zero(t, v, "bin %d", i)
		}
	}
}

func TestApplyByteFrequency(t *testing.T) {
	tests := []struct {
		name  string
		delta float32
		in    byte
		want  byte
	}{
		{"negative noise floors to minus one", -0.00003, 10, 9},
		{"positive noise floors to zero", 0.00003, 10, 10},
		{"saturates at zero", -0.00003, 0, 0},
		{"large delta saturates high", 2, 250, 255},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bins := bytes.Repeat([]byte{tt.in}, 41)
			ApplyByteFrequency(bins, tt.delta)
			assert.Equal(t, tt.want, bins[0])
			assert.Equal(t, tt.want, bins[20])
			assert.Equal(t, tt.want, bins[40])
			assert.Equal(t, tt.in, bins[1])
		})
	}
}
