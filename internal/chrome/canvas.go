package chrome

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/chromedp/chromedp"

	"github.com/stupside/veil/internal/surface"
)

// Canvas is a 2d canvas living in the session's page. Every pixel access
// round-trips through the page as base64.
type Canvas struct {
	sess   *Session
	arena  *surface.Arena
	handle surface.Handle
	id     string
	width  int
	height int

	mu  sync.Mutex
	ctx *surface.Context
}

// Canvas creates a canvas of the given size in the page and draws the
// fingerprint scene onto it.
func (s *Session) Canvas(arena *surface.Arena, width, height int) (*Canvas, error) {
	h := arena.Allocate()
	c := &Canvas{
		sess:   s,
		arena:  arena,
		handle: h,
		id:     "veil-" + strconv.FormatUint(uint64(h), 10),
		width:  width,
		height: height,
	}

	if err := c.call(nil, "create", c.id, width, height); err != nil {
		arena.Destroy(h)
		return nil, fmt.Errorf("creating canvas: %w", err)
	}

	slog.Debug("canvas created", "id", c.id, "width", width, "height", height)
	return c, nil
}

func (c *Canvas) Handle() surface.Handle { return c.handle }

func (c *Canvas) Size() (int, int) { return c.width, c.height }

// Pixels reads the whole canvas.
func (c *Canvas) Pixels() ([]byte, error) {
	img, err := c.read(0, 0, c.width, c.height)
	if err != nil {
		return nil, err
	}
	return img.Data, nil
}

// PutPixels writes a full RGBA buffer back into the page.
func (c *Canvas) PutPixels(data []byte) error {
	if want := c.width * c.height * 4; len(data) != want {
		return fmt.Errorf("pixel buffer has %d bytes, want %d", len(data), want)
	}
	return c.call(nil, "write", c.id, base64.StdEncoding.EncodeToString(data))
}

// ImageData reads back a region.
func (c *Canvas) ImageData(x, y, width, height int) (*surface.ImageData, error) {
	if x < 0 || y < 0 || width < 0 || height < 0 || x+width > c.width || y+height > c.height {
		return nil, surface.ErrOutOfBounds
	}
	return c.read(x, y, width, height)
}

func (c *Canvas) read(x, y, width, height int) (*surface.ImageData, error) {
	var b64 string
	if err := c.call(&b64, "read", c.id, x, y, width, height); err != nil {
		return nil, fmt.Errorf("reading pixels: %w", err)
	}
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("decoding pixels: %w", err)
	}
	return &surface.ImageData{Width: width, Height: height, Data: data}, nil
}

// DataURL encodes the canvas in the page.
func (c *Canvas) DataURL(mimeType string, quality float64) (string, error) {
	var url string
	if err := c.call(&url, "dataURL", c.id, mimeType, quality); err != nil {
		return "", fmt.Errorf("encoding canvas: %w", err)
	}
	return url, nil
}

// Blob encodes the canvas and returns the raw image bytes.
func (c *Canvas) Blob(mimeType string, quality float64) ([]byte, error) {
	url, err := c.DataURL(mimeType, quality)
	if err != nil {
		return nil, err
	}
	return decodeDataURL(url)
}

// Context returns the canvas' drawing context. The page canvas is created
// with a 2d context, so any other kind returns nil.
func (c *Canvas) Context(kind string, opts surface.ContextOptions) *surface.Context {
	if kind != "2d" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ctx == nil {
		c.ctx = &surface.Context{Kind: kind, Surface: c, Options: opts}
	}
	return c.ctx
}

// Destroy removes the canvas from the page and releases its handle.
func (c *Canvas) Destroy() {
	if err := c.call(nil, "remove", c.id); err != nil {
		slog.Debug("canvas remove failed", "id", c.id, "error", err)
	}
	c.arena.Destroy(c.handle)
}

// call invokes a bridge method in the page. A nil res discards the result.
func (c *Canvas) call(res any, method string, args ...any) error {
	expr, err := bridgeCall(method, args...)
	if err != nil {
		return err
	}
	if res == nil {
		var ok bool
		res = &ok
	}
	return c.sess.run(chromedp.Evaluate(expr, res))
}

// bridgeCall renders a call to the page-side bridge with JSON-encoded
// arguments.
func bridgeCall(method string, args ...any) (string, error) {
	parts := make([]string, len(args))
	for i, a := range args {
		b, err := json.Marshal(a)
		if err != nil {
			return "", fmt.Errorf("encoding argument %d of %s: %w", i, method, err)
		}
		parts[i] = string(b)
	}
	return "window.__veil." + method + "(" + strings.Join(parts, ", ") + ")", nil
}

// decodeDataURL extracts the payload of a base64 data URL.
func decodeDataURL(url string) ([]byte, error) {
	if url == "data:," {
		return nil, nil
	}
	_, payload, ok := strings.Cut(url, ";base64,")
	if !ok || !strings.HasPrefix(url, "data:") {
		return nil, fmt.Errorf("not a base64 data URL: %.32q", url)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decoding data URL: %w", err)
	}
	return data, nil
}
