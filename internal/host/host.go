// Package host provides the unwrapped host entry points every realm starts
// with, and typed helpers for calling through a realm's current table.
package host

import (
	"fmt"

	"github.com/stupside/veil/internal/intercept"
	"github.com/stupside/veil/internal/surface"
)

// Prototypes returns a fresh table of original host methods.
func Prototypes() map[intercept.Key]intercept.Method {
	return map[intercept.Key]intercept.Method{
		intercept.ToDataURL:      toDataURL,
		intercept.ToBlob:         toBlob,
		intercept.GetContext:     getContext,
		intercept.GetImageData:   getImageData,
		intercept.ReadPixels:     readPixels,
		intercept.GetChannelData: getChannelData,

		intercept.GetFloatFrequencyData: getFloatFrequencyData,
		intercept.GetByteFrequencyData:  getByteFrequencyData,
	}
}

type contexter interface {
	Context(kind string, opts surface.ContextOptions) *surface.Context
}

func toDataURL(call intercept.Call) (any, error) {
	e, ok := call.Target.(surface.Exporter)
	if !ok {
		return nil, illegal(call.Target)
	}
	mime, _ := call.Arg(0).(string)
	quality, _ := call.Arg(1).(float64)
	return e.DataURL(mime, quality)
}

func toBlob(call intercept.Call) (any, error) {
	e, ok := call.Target.(surface.Exporter)
	if !ok {
		return nil, illegal(call.Target)
	}
	mime, _ := call.Arg(0).(string)
	quality, _ := call.Arg(1).(float64)
	return e.Blob(mime, quality)
}

func getContext(call intercept.Call) (any, error) {
	c, ok := call.Target.(contexter)
	if !ok {
		return nil, illegal(call.Target)
	}
	kind, ok := call.Arg(0).(string)
	if !ok {
		return nil, fmt.Errorf("%w: context kind must be a string", intercept.ErrIllegalInvocation)
	}

	var opts surface.ContextOptions
	switch o := call.Arg(1).(type) {
	case surface.ContextOptions:
		opts = o
	case *surface.ContextOptions:
		if o != nil {
			opts = *o
		}
	}
	return c.Context(kind, opts), nil
}

func getImageData(call intercept.Call) (any, error) {
	r, err := readerOf(call.Target)
	if err != nil {
		return nil, err
	}
	x, y, w, h, err := rect(call)
	if err != nil {
		return nil, err
	}
	return r.ImageData(x, y, w, h)
}

func readPixels(call intercept.Call) (any, error) {
	r, err := readerOf(call.Target)
	if err != nil {
		return nil, err
	}
	x, y, w, h, err := rect(call)
	if err != nil {
		return nil, err
	}
	dst, ok := call.Arg(4).([]byte)
	if !ok {
		return nil, fmt.Errorf("%w: readPixels needs a destination buffer", intercept.ErrIllegalInvocation)
	}

	d, err := r.ImageData(x, y, w, h)
	if err != nil {
		return nil, err
	}
	if len(dst) < len(d.Data) {
		return nil, fmt.Errorf("%w: destination holds %d bytes, need %d", intercept.ErrIllegalInvocation, len(dst), len(d.Data))
	}
	copy(dst, d.Data)
	return nil, nil
}

func getChannelData(call intercept.Call) (any, error) {
	b, ok := call.Target.(*surface.AudioBuffer)
	if !ok {
		return nil, illegal(call.Target)
	}
	ch, ok := call.Arg(0).(int)
	if !ok {
		return nil, fmt.Errorf("%w: channel must be an int", intercept.ErrIllegalInvocation)
	}
	return b.Channel(ch)
}

func getFloatFrequencyData(call intercept.Call) (any, error) {
	a, ok := call.Target.(*surface.Analyser)
	if !ok {
		return nil, illegal(call.Target)
	}
	dst, ok := call.Arg(0).([]float32)
	if !ok {
		return nil, fmt.Errorf("%w: getFloatFrequencyData needs a []float32", intercept.ErrIllegalInvocation)
	}
	a.FloatFrequencyData(dst)
	return nil, nil
}

func getByteFrequencyData(call intercept.Call) (any, error) {
	a, ok := call.Target.(*surface.Analyser)
	if !ok {
		return nil, illegal(call.Target)
	}
	dst, ok := call.Arg(0).([]byte)
	if !ok {
		return nil, fmt.Errorf("%w: getByteFrequencyData needs a []byte", intercept.ErrIllegalInvocation)
	}
	a.ByteFrequencyData(dst)
	return nil, nil
}

func readerOf(target any) (surface.Reader, error) {
	s, err := intercept.SurfaceOf(target)
	if err != nil {
		return nil, err
	}
	r, ok := s.(surface.Reader)
	if !ok {
		return nil, illegal(s)
	}
	return r, nil
}

func rect(call intercept.Call) (x, y, w, h int, err error) {
	vals := make([]int, 4)
	for i := range vals {
		v, ok := call.Arg(i).(int)
		if !ok {
			return 0, 0, 0, 0, fmt.Errorf("%w: argument %d must be an int", intercept.ErrIllegalInvocation, i)
		}
		vals[i] = v
	}
	return vals[0], vals[1], vals[2], vals[3], nil
}

func illegal(target any) error {
	return fmt.Errorf("%w: unexpected receiver %T", intercept.ErrIllegalInvocation, target)
}
