package noise

import "math"

// Stride is the sample step used when walking a pixel buffer. Only steps
// landing on a red sample perturb a pixel.
const Stride = 37

// AudioStride is the sample step used for audio channel data.
const AudioStride = 50

// FrequencyStride is the bin step used for analyser frequency data.
const FrequencyStride = 20

// Apply adds o to the red, green and blue samples of every pixel whose red
// offset is visited by a stride walk over buf. Alpha is untouched and results
// saturate at the bounds of 8-bit storage. It returns the visited pixel
// offsets.
func Apply(buf []byte, o Offsets) []int {
	var touched []int
	for i := 0; i < len(buf); i += Stride {
		if i%4 != 0 || i+2 >= len(buf) {
			continue
		}
		buf[i] = saturate(int(buf[i]) + o.R)
		buf[i+1] = saturate(int(buf[i+1]) + o.G)
		buf[i+2] = saturate(int(buf[i+2]) + o.B)
		touched = append(touched, i)
	}
	return touched
}

// ApplyAudio adds delta to every AudioStride-th sample.
func ApplyAudio(samples []float32, delta float32) {
	for i := 0; i < len(samples); i += AudioStride {
		samples[i] += delta
	}
}

// ApplyFrequency adds delta to every FrequencyStride-th decibel bin.
func ApplyFrequency(bins []float32, delta float32) {
	for i := 0; i < len(bins); i += FrequencyStride {
		bins[i] += delta
	}
}

// ApplyByteFrequency adds delta, scaled onto the byte range and floored, to
// every FrequencyStride-th byte bin. Results saturate.
func ApplyByteFrequency(bins []byte, delta float32) {
	d := int(math.Floor(float64(delta) * 255))
	for i := 0; i < len(bins); i += FrequencyStride {
		bins[i] = saturate(int(bins[i]) + d)
	}
}

func saturate(v int) byte {
	return byte(min(max(v, 0), 255))
}
