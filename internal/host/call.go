package host

import (
	"fmt"

	"github.com/stupside/veil/internal/intercept"
	"github.com/stupside/veil/internal/surface"
)

// Invoker dispatches a call through a realm's current method table.
type Invoker interface {
	Invoke(key intercept.Key, target any, args ...any) (any, error)
}

// ToDataURL calls HTMLCanvasElement.toDataURL.
func ToDataURL(in Invoker, s surface.Surface, mimeType string) (string, error) {
	res, err := in.Invoke(intercept.ToDataURL, s, mimeType)
	if err != nil {
		return "", err
	}
	return as[string](intercept.ToDataURL, res)
}

// ToBlob calls HTMLCanvasElement.toBlob.
func ToBlob(in Invoker, s surface.Surface, mimeType string) ([]byte, error) {
	res, err := in.Invoke(intercept.ToBlob, s, mimeType)
	if err != nil {
		return nil, err
	}
	return as[[]byte](intercept.ToBlob, res)
}

// GetContext calls HTMLCanvasElement.getContext. A nil context means the
// surface already carries a context of another kind.
func GetContext(in Invoker, s surface.Surface, kind string, opts *surface.ContextOptions) (*surface.Context, error) {
	var arg any
	if opts != nil {
		arg = *opts
	}
	res, err := in.Invoke(intercept.GetContext, s, kind, arg)
	if err != nil {
		return nil, err
	}
	return as[*surface.Context](intercept.GetContext, res)
}

// GetImageData calls CanvasRenderingContext2D.getImageData.
func GetImageData(in Invoker, ctx *surface.Context, x, y, width, height int) (*surface.ImageData, error) {
	res, err := in.Invoke(intercept.GetImageData, ctx, x, y, width, height)
	if err != nil {
		return nil, err
	}
	return as[*surface.ImageData](intercept.GetImageData, res)
}

// ReadPixels calls WebGLRenderingContext.readPixels into dst.
func ReadPixels(in Invoker, ctx *surface.Context, x, y, width, height int, dst []byte) error {
	_, err := in.Invoke(intercept.ReadPixels, ctx, x, y, width, height, dst)
	return err
}

// GetChannelData calls AudioBuffer.getChannelData.
func GetChannelData(in Invoker, buf *surface.AudioBuffer, channel int) ([]float32, error) {
	res, err := in.Invoke(intercept.GetChannelData, buf, channel)
	if err != nil {
		return nil, err
	}
	return as[[]float32](intercept.GetChannelData, res)
}

// GetFloatFrequencyData calls AnalyserNode.getFloatFrequencyData into dst.
func GetFloatFrequencyData(in Invoker, a *surface.Analyser, dst []float32) error {
	_, err := in.Invoke(intercept.GetFloatFrequencyData, a, dst)
	return err
}

// GetByteFrequencyData calls AnalyserNode.getByteFrequencyData into dst.
func GetByteFrequencyData(in Invoker, a *surface.Analyser, dst []byte) error {
	_, err := in.Invoke(intercept.GetByteFrequencyData, a, dst)
	return err
}

func as[T any](key intercept.Key, v any) (T, error) {
	t, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s returned %T", key, v)
	}
	return t, nil
}
