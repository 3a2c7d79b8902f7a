package surface

import "errors"

// ErrOutOfBounds is returned for region reads that fall outside a surface.
var ErrOutOfBounds = errors.New("region outside surface bounds")

// Handle is the stable identity of a surface for its whole lifetime.
type Handle uint64

// Surface is a pixel-bearing drawing target. Pixels returns the full RGBA
// buffer, PutPixels writes one of identical length back.
type Surface interface {
	Handle() Handle
	Size() (width, height int)
	Pixels() ([]byte, error)
	PutPixels(data []byte) error
}

// Exporter encodes a surface for export.
type Exporter interface {
	DataURL(mimeType string, quality float64) (string, error)
	Blob(mimeType string, quality float64) ([]byte, error)
}

// Reader reads back a rectangular region.
type Reader interface {
	ImageData(x, y, width, height int) (*ImageData, error)
}

// ImageData is a readback of a region as interleaved RGBA samples.
type ImageData struct {
	Width  int
	Height int
	Data   []byte
}

// ContextOptions are the creation attributes of a drawing context. A nil
// WillReadFrequently means the caller left it unspecified.
type ContextOptions struct {
	WillReadFrequently *bool
}

// Context is a drawing context bound to its surface.
type Context struct {
	Kind    string
	Surface Surface
	Options ContextOptions
}
