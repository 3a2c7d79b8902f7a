package surface

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"sync"
)

const (
	MIMEPNG  = "image/png"
	MIMEJPEG = "image/jpeg"

	// defaultJPEGQuality matches the host default when quality is omitted or
	// outside (0, 1].
	defaultJPEGQuality = 92
)

// Canvas is an in-memory RGBA surface with non-premultiplied samples.
type Canvas struct {
	handle Handle
	arena  *Arena

	mu  sync.Mutex
	img *image.NRGBA
	ctx *Context
}

// NewCanvas allocates a width x height canvas, fully transparent.
func NewCanvas(arena *Arena, width, height int) *Canvas {
	return &Canvas{
		handle: arena.Allocate(),
		arena:  arena,
		img:    image.NewNRGBA(image.Rect(0, 0, width, height)),
	}
}

func (c *Canvas) Handle() Handle { return c.handle }

func (c *Canvas) Size() (int, int) {
	b := c.img.Bounds()
	return b.Dx(), b.Dy()
}

// Pixels returns a copy of the full buffer.
func (c *Canvas) Pixels() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return bytes.Clone(c.img.Pix), nil
}

// PutPixels replaces the full buffer.
func (c *Canvas) PutPixels(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(data) != len(c.img.Pix) {
		return fmt.Errorf("pixel buffer length %d, want %d", len(data), len(c.img.Pix))
	}
	copy(c.img.Pix, data)
	return nil
}

// Fill paints the whole canvas with col.
func (c *Canvas) Fill(col color.NRGBA) {
	c.FillRect(c.img.Bounds(), col)
}

// FillRect paints r with col, clipped to the canvas.
func (c *Canvas) FillRect(r image.Rectangle, col color.NRGBA) {
	c.mu.Lock()
	defer c.mu.Unlock()
	draw.Draw(c.img, r, image.NewUniform(col), image.Point{}, draw.Src)
}

// At returns the pixel at (x, y).
func (c *Canvas) At(x, y int) color.NRGBA {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.img.NRGBAAt(x, y)
}

// ImageData reads back a region.
func (c *Canvas) ImageData(x, y, width, height int) (*ImageData, error) {
	r := image.Rect(x, y, x+width, y+height)
	if width <= 0 || height <= 0 || !r.In(c.img.Bounds()) {
		return nil, fmt.Errorf("%w: %v", ErrOutOfBounds, r)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	out := &ImageData{Width: width, Height: height, Data: make([]byte, 0, width*height*4)}
	for row := y; row < y+height; row++ {
		start := c.img.PixOffset(x, row)
		out.Data = append(out.Data, c.img.Pix[start:start+width*4]...)
	}
	return out, nil
}

// DataURL encodes the canvas as a data URL. Unknown types fall back to PNG;
// an empty canvas yields "data:,".
func (c *Canvas) DataURL(mimeType string, quality float64) (string, error) {
	w, h := c.Size()
	if w == 0 || h == 0 {
		return "data:,", nil
	}
	data, mimeType, err := c.encode(mimeType, quality)
	if err != nil {
		return "", err
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// Blob encodes the canvas as raw image bytes.
func (c *Canvas) Blob(mimeType string, quality float64) ([]byte, error) {
	data, _, err := c.encode(mimeType, quality)
	return data, err
}

func (c *Canvas) encode(mimeType string, quality float64) ([]byte, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var buf bytes.Buffer
	switch mimeType {
	case MIMEJPEG:
		q := defaultJPEGQuality
		if quality > 0 && quality <= 1 {
			q = int(quality * 100)
		}
		if err := jpeg.Encode(&buf, c.img, &jpeg.Options{Quality: q}); err != nil {
			return nil, "", fmt.Errorf("encoding jpeg: %w", err)
		}
		return buf.Bytes(), MIMEJPEG, nil
	default:
		if err := png.Encode(&buf, c.img); err != nil {
			return nil, "", fmt.Errorf("encoding png: %w", err)
		}
		return buf.Bytes(), MIMEPNG, nil
	}
}

// Context returns the canvas' drawing context of the given kind. The first
// call fixes kind and options; later calls for the same kind return the same
// context and a different kind returns nil.
func (c *Canvas) Context(kind string, opts ContextOptions) *Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ctx == nil {
		c.ctx = &Context{Kind: kind, Surface: c, Options: opts}
	}
	if c.ctx.Kind != kind {
		return nil
	}
	return c.ctx
}

// Destroy releases the canvas handle.
func (c *Canvas) Destroy() {
	c.arena.Destroy(c.handle)
}
