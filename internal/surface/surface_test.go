package surface

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArenaLifecycle(t *testing.T) {
	a := NewArena()

	h1 := a.Allocate()
	h2 := a.Allocate()
	assert.NotEqual(t, h1, h2)
	assert.Equal(t, 2, a.Len())

	var destroyed []Handle
	a.OnDestroy(func(h Handle) { destroyed = append(destroyed, h) })

	a.Destroy(h1)
	a.Destroy(h1)
	a.Destroy(Handle(999))

	assert.Equal(t, []Handle{h1}, destroyed)
	assert.False(t, a.Alive(h1))
	assert.True(t, a.Alive(h2))
	assert.Equal(t, 1, a.Len())
}

func TestCanvasPixelsRoundTrip(t *testing.T) {
	c := NewCanvas(NewArena(), 8, 8)
	c.Fill(color.NRGBA{100, 100, 100, 100})

	pix, err := c.Pixels()
	require.NoError(t, err)
	require.Len(t, pix, 256)
	assert.Equal(t, bytes.Repeat([]byte{100}, 256), pix)

	pix[0] = 7
	assert.Equal(t, uint8(100), c.At(0, 0).R, "Pixels must return a copy")

	require.NoError(t, c.PutPixels(pix))
	assert.Equal(t, uint8(7), c.At(0, 0).R)

	assert.Error(t, c.PutPixels(pix[:10]))
}

func TestCanvasImageData(t *testing.T) {
	c := NewCanvas(NewArena(), 4, 4)
	c.FillRect(image.Rect(1, 1, 3, 3), color.NRGBA{255, 0, 0, 255})

	d, err := c.ImageData(1, 1, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, d.Width)
	assert.Equal(t, bytes.Repeat([]byte{255, 0, 0, 255}, 4), d.Data)

	_, err = c.ImageData(3, 3, 2, 2)
	assert.ErrorIs(t, err, ErrOutOfBounds)

	_, err = c.ImageData(0, 0, 0, 1)
	assert.ErrorIs(t, err, ErrOutOfBounds)
}

func TestCanvasDataURL(t *testing.T) {
	c := NewCanvas(NewArena(), 3, 2)
	c.Fill(color.NRGBA{10, 20, 30, 255})

	url, err := c.DataURL("", 0)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "data:image/png;base64,"))

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(url, "data:image/png;base64,"))
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	r, g, b, _ := img.At(2, 1).RGBA()
	assert.Equal(t, []uint32{10, 20, 30}, []uint32{r >> 8, g >> 8, b >> 8})

	jpg, err := c.DataURL(MIMEJPEG, 0.5)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(jpg, "data:image/jpeg;base64,"))

	fallback, err := c.DataURL("image/x-unknown", 0)
	require.NoError(t, err)
	assert.Equal(t, url, fallback)

	empty := NewCanvas(NewArena(), 0, 0)
	got, err := empty.DataURL("", 0)
	require.NoError(t, err)
	assert.Equal(t, "data:,", got)
}

func TestCanvasBlobMatchesDataURL(t *testing.T) {
	c := NewCanvas(NewArena(), 2, 2)
	c.Fill(color.NRGBA{1, 2, 3, 4})

	blob, err := c.Blob(MIMEPNG, 0)
	require.NoError(t, err)
	url, err := c.DataURL(MIMEPNG, 0)
	require.NoError(t, err)

	assert.Equal(t, "data:image/png;base64,"+base64.StdEncoding.EncodeToString(blob), url)
}

func TestCanvasContext(t *testing.T) {
	c := NewCanvas(NewArena(), 1, 1)
	yes := true

	ctx := c.Context("2d", ContextOptions{WillReadFrequently: &yes})
	require.NotNil(t, ctx)
	assert.Same(t, ctx, c.Context("2d", ContextOptions{}))
	assert.True(t, *ctx.Options.WillReadFrequently)
	assert.Nil(t, c.Context("webgl", ContextOptions{}))
}

func TestCanvasDestroyReleasesHandle(t *testing.T) {
	a := NewArena()
	c := NewCanvas(a, 1, 1)
	require.True(t, a.Alive(c.Handle()))

	c.Destroy()
	assert.False(t, a.Alive(c.Handle()))
}

func TestAudioBufferChannels(t *testing.T) {
	b := NewAudioBuffer(NewArena(), 2, 16, 44100)
	assert.Equal(t, 2, b.NumberOfChannels())
	assert.Equal(t, 44100.0, b.SampleRate())

	ch, err := b.Channel(1)
	require.NoError(t, err)
	ch[3] = 0.5

	again, err := b.Channel(1)
	require.NoError(t, err)
	assert.Equal(t, float32(0.5), again[3])

	_, err = b.Channel(2)
	assert.Error(t, err)
}

func TestAnalyserFrequencyData(t *testing.T) {
	a := NewAnalyser(NewArena(), 4)
	assert.Equal(t, 4, a.FrequencyBinCount())

	silent := make([]byte, 4)
	a.ByteFrequencyData(silent)
	assert.Equal(t, []byte{0, 0, 0, 0}, silent)

	a.SetFrequencyData([]float32{-100, -65, -30, 0})

	db := make([]float32, 6)
	a.FloatFrequencyData(db)
	assert.Equal(t, []float32{-100, -65, -30, 0, 0, 0}, db)

	out := make([]byte, 3)
	a.ByteFrequencyData(out)
	assert.Equal(t, []byte{0, 127, 255}, out)

	out = make([]byte, 4)
	a.ByteFrequencyData(out)
	assert.Equal(t, byte(255), out[3], "values above the range clamp")
}
