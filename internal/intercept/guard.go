package intercept

import (
	"fmt"
	"log/slog"

	"github.com/stupside/veil/internal/port"
	"github.com/stupside/veil/internal/surface"
)

// Perturber is the noise engine as seen by the wrappers.
type Perturber interface {
	Perturb(s surface.Surface) error
	PerturbAudio(buf *surface.AudioBuffer, channel int, samples []float32)
	PerturbFrequency(bins any)
}

// Guard builds the wrappers installed over host entry points. A wrapper never
// lets a perturbation failure reach the caller: the original method always
// runs with the caller's arguments and its result is returned unchanged.
type Guard struct {
	port   *port.Port
	engine Perturber
}

// NewGuard returns a guard reading its switch from p.
func NewGuard(p *port.Port, engine Perturber) *Guard {
	return &Guard{port: p, engine: engine}
}

// Export wraps a pixel export or readback entry point so the target surface
// is perturbed before the original runs.
func (g *Guard) Export(original Method) Method {
	return func(call Call) (any, error) {
		if g.port.Enabled() {
			g.perturb(call.Target)
		}
		return original(call)
	}
}

// Context wraps context acquisition so 2d contexts are created with the
// frequent-readback hint unless the caller chose one.
func (g *Guard) Context(original Method) Method {
	return func(call Call) (any, error) {
		if !g.port.Enabled() || call.Arg(0) != "2d" {
			return original(call)
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
		if opts.WillReadFrequently == nil {
			yes := true
			opts.WillReadFrequently = &yes
		}

		args := make([]any, max(len(call.Args), 2))
		copy(args, call.Args)
		args[1] = opts
		return original(Call{Target: call.Target, Args: args})
	}
}

// ChannelData wraps audio readback: the original runs first, then the
// returned samples receive the session audio noise.
func (g *Guard) ChannelData(original Method) Method {
	return func(call Call) (any, error) {
		res, err := original(call)
		if err != nil || !g.port.Enabled() {
			return res, err
		}

		buf, ok := call.Target.(*surface.AudioBuffer)
		samples, isSamples := res.([]float32)
		channel, isChannel := call.Arg(0).(int)
		if !ok || !isSamples || !isChannel {
			return res, err
		}

		func() {
			defer func() {
				if r := recover(); r != nil {
					slog.Debug("audio perturbation panicked", "panic", r)
				}
			}()
			g.engine.PerturbAudio(buf, channel, samples)
		}()
		return res, err
	}
}

// FrequencyData wraps analyser readback: the original fills the caller's
// array, then the array receives the session audio noise. Every call is
// noised since each fills a fresh array.
func (g *Guard) FrequencyData(original Method) Method {
	return func(call Call) (any, error) {
		res, err := original(call)
		if err != nil || !g.port.Enabled() {
			return res, err
		}
		if _, ok := call.Target.(*surface.Analyser); !ok {
			return res, err
		}

		func() {
			defer func() {
				if r := recover(); r != nil {
					slog.Debug("frequency perturbation panicked", "panic", r)
				}
			}()
			g.engine.PerturbFrequency(call.Arg(0))
		}()
		return res, err
	}
}

func (g *Guard) perturb(target any) {
	defer func() {
		if r := recover(); r != nil {
			slog.Debug("perturbation panicked", "panic", r)
		}
	}()

	s, err := SurfaceOf(target)
	if err != nil {
		slog.Debug("perturbation skipped", "error", err)
		return
	}
	if err := g.engine.Perturb(s); err != nil {
		slog.Debug("perturbation failed", "handle", s.Handle(), "error", err)
	}
}

// SurfaceOf resolves the surface behind a call target: either the surface
// itself or a context bound to it.
func SurfaceOf(target any) (surface.Surface, error) {
	switch t := target.(type) {
	case *surface.Context:
		if t != nil && t.Surface != nil {
			return t.Surface, nil
		}
	case surface.Surface:
		if t != nil {
			return t, nil
		}
	}
	return nil, fmt.Errorf("%w: target %T has no surface", ErrIllegalInvocation, target)
}

// InstallAll installs every wrapper the guard provides.
func InstallAll(r *Registry, g *Guard) error {
	wrappers := []struct {
		key  Key
		wrap func(Method) Method
	}{
		{ToDataURL, g.Export},
		{ToBlob, g.Export},
		{GetImageData, g.Export},
		{ReadPixels, g.Export},
		{GetContext, g.Context},
		{GetChannelData, g.ChannelData},
		{GetFloatFrequencyData, g.FrequencyData},
		{GetByteFrequencyData, g.FrequencyData},
	}
	for _, w := range wrappers {
		if err := r.Install(w.key, w.wrap); err != nil {
			return err
		}
	}
	return nil
}
