package intercept

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stupside/veil/internal/port"
	"github.com/stupside/veil/internal/surface"
)

type mapTable struct {
	methods map[Key]Method
	denied  bool
}

func (m *mapTable) Lookup(k Key) (Method, bool) {
	f, ok := m.methods[k]
	return f, ok
}

func (m *mapTable) Define(k Key, f Method) error {
	if m.denied {
		return errors.New("read-only")
	}
	m.methods[k] = f
	return nil
}

func constant(v string) Method {
	return func(Call) (any, error) { return v, nil }
}

func suffix(s string) func(Method) Method {
	return func(orig Method) Method {
		return func(c Call) (any, error) {
			v, err := orig(c)
			return v.(string) + s, err
		}
	}
}

func TestRegistryInstallAndTeardown(t *testing.T) {
	table := &mapTable{methods: map[Key]Method{ToDataURL: constant("orig")}}
	r := NewRegistry(table)

	require.NoError(t, r.Install(ToDataURL, suffix("+w")))
	require.NoError(t, r.Install(ToDataURL, suffix("+again")))

	got, err := table.methods[ToDataURL](Call{})
	require.NoError(t, err)
	assert.Equal(t, "orig+w", got, "second install is a no-op")
	assert.True(t, r.Installed(ToDataURL))

	orig, ok := r.Original(ToDataURL)
	require.True(t, ok)
	v, _ := orig(Call{})
	assert.Equal(t, "orig", v)

	require.NoError(t, r.Teardown())
	got, _ = table.methods[ToDataURL](Call{})
	assert.Equal(t, "orig", got)
	assert.False(t, r.Installed(ToDataURL))
}

func TestRegistryInstallMissingMethod(t *testing.T) {
	r := NewRegistry(&mapTable{methods: map[Key]Method{}})
	assert.Error(t, r.Install(ToBlob, suffix("x")))
	assert.False(t, r.Installed(ToBlob))
}

func TestRegistryInstallDenied(t *testing.T) {
	table := &mapTable{methods: map[Key]Method{ToBlob: constant("b")}, denied: true}
	r := NewRegistry(table)
	assert.Error(t, r.Install(ToBlob, suffix("x")))
	assert.False(t, r.Installed(ToBlob))
}

func TestRegistryCapabilitiesSkipGetContext(t *testing.T) {
	table := &mapTable{methods: map[Key]Method{
		ToDataURL:    constant("a"),
		ToBlob:       constant("b"),
		GetImageData: constant("c"),
		GetContext:   constant("d"),
	}}
	r := NewRegistry(table)
	for k := range table.methods {
		require.NoError(t, r.Install(k, suffix("!")))
	}

	caps := r.Capabilities()
	assert.Equal(t, []Key{GetImageData, ToBlob, ToDataURL}, caps.Keys())

	v, err := caps[ToBlob](Call{})
	require.NoError(t, err)
	assert.Equal(t, "b!", v)
}

func TestCallArg(t *testing.T) {
	c := Call{Args: []any{"2d"}}
	assert.Equal(t, "2d", c.Arg(0))
	assert.Nil(t, c.Arg(1))
	assert.Nil(t, c.Arg(-1))
}

type stubEngine struct {
	perturbed []surface.Handle
	frequency []any
	err       error
}

func (s *stubEngine) Perturb(sf surface.Surface) error {
	s.perturbed = append(s.perturbed, sf.Handle())
	return s.err
}

func (s *stubEngine) PerturbAudio(*surface.AudioBuffer, int, []float32) {}

func (s *stubEngine) PerturbFrequency(bins any) {
	if s.err != nil {
		panic(s.err)
	}
	s.frequency = append(s.frequency, bins)
}

func TestGuardExportDelegatesOriginalArguments(t *testing.T) {
	p := port.New()
	p.Set(port.AttrEnabled, "true")
	eng := &stubEngine{err: errors.New("ignored")}
	g := NewGuard(p, eng)

	c := surface.NewCanvas(surface.NewArena(), 1, 1)
	var seen Call
	wrapped := g.Export(func(call Call) (any, error) {
		seen = call
		return "result", nil
	})

	got, err := wrapped(Call{Target: c, Args: []any{"image/png", 0.5}})
	require.NoError(t, err)
	assert.Equal(t, "result", got)
	assert.Equal(t, []any{"image/png", 0.5}, seen.Args)
	assert.Same(t, c, seen.Target)
	assert.Equal(t, []surface.Handle{c.Handle()}, eng.perturbed)
}

func TestGuardExportSkipsUnknownTargets(t *testing.T) {
	p := port.New()
	p.Set(port.AttrEnabled, "true")
	eng := &stubEngine{}
	g := NewGuard(p, eng)

	got, err := g.Export(constant("ok"))(Call{Target: 42})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Empty(t, eng.perturbed)
}

func TestGuardContextKeepsCallerArgs(t *testing.T) {
	p := port.New()
	p.Set(port.AttrEnabled, "true")
	g := NewGuard(p, &stubEngine{})

	var seen Call
	wrapped := g.Context(func(call Call) (any, error) {
		seen = call
		return nil, nil
	})

	args := []any{"2d"}
	_, err := wrapped(Call{Args: args})
	require.NoError(t, err)

	require.Len(t, seen.Args, 2)
	opts, ok := seen.Args[1].(surface.ContextOptions)
	require.True(t, ok)
	require.NotNil(t, opts.WillReadFrequently)
	assert.True(t, *opts.WillReadFrequently)
	assert.Equal(t, []any{"2d"}, args, "caller's slice is not mutated")
}

func TestSurfaceOf(t *testing.T) {
	c := surface.NewCanvas(surface.NewArena(), 1, 1)

	s, err := SurfaceOf(c)
	require.NoError(t, err)
	assert.Same(t, c, s)

	s, err = SurfaceOf(&surface.Context{Kind: "2d", Surface: c})
	require.NoError(t, err)
	assert.Same(t, c, s)

	_, err = SurfaceOf(&surface.Context{})
	assert.ErrorIs(t, err, ErrIllegalInvocation)
	_, err = SurfaceOf(nil)
	assert.ErrorIs(t, err, ErrIllegalInvocation)
}

func TestGuardFrequencyData(t *testing.T) {
	p := port.New()
	eng := &stubEngine{}
	g := NewGuard(p, eng)
	a := surface.NewAnalyser(surface.NewArena(), 4)

	var calls int
	wrapped := g.FrequencyData(func(Call) (any, error) {
		calls++
		return nil, nil
	})

	dst := make([]byte, 4)
	_, err := wrapped(Call{Target: a, Args: []any{dst}})
	require.NoError(t, err)
	assert.Empty(t, eng.frequency, "disabled port passes through")

	p.Set(port.AttrEnabled, "true")
	_, err = wrapped(Call{Target: a, Args: []any{dst}})
	require.NoError(t, err)
	_, err = wrapped(Call{Target: "not an analyser", Args: []any{dst}})
	require.NoError(t, err)
	assert.Equal(t, []any{dst}, eng.frequency)
	assert.Equal(t, 3, calls)

	eng.err = errors.New("boom")
	assert.NotPanics(t, func() {
		_, err = wrapped(Call{Target: a, Args: []any{dst}})
	})
	assert.NoError(t, err)
}

func TestGuardFrequencyDataKeepsOriginalError(t *testing.T) {
	p := port.New()
	p.Set(port.AttrEnabled, "true")
	eng := &stubEngine{}
	g := NewGuard(p, eng)

	_, err := g.FrequencyData(func(Call) (any, error) {
		return nil, ErrIllegalInvocation
	})(Call{Target: surface.NewAnalyser(surface.NewArena(), 1)})
	assert.ErrorIs(t, err, ErrIllegalInvocation)
	assert.Empty(t, eng.frequency)
}
