// Package shield assembles the noise engine, the interception layer and the
// cross-realm propagator around one top-level realm.
package shield

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/stupside/veil/internal/engine"
	"github.com/stupside/veil/internal/intercept"
	"github.com/stupside/veil/internal/loop"
	"github.com/stupside/veil/internal/noise"
	"github.com/stupside/veil/internal/port"
	"github.com/stupside/veil/internal/propagate"
	"github.com/stupside/veil/internal/realm"
	"github.com/stupside/veil/internal/surface"
)

// Options tune a Shield. The zero value is usable.
type Options struct {
	// RealmID names the top-level realm. Defaults to "top".
	RealmID string
	// Source seeds the perturbation policy; nil draws a fresh seed.
	Source rand.Source
	// Port is shared with the configuration collaborator; nil creates one.
	Port *port.Port
	// Loop runs deferred restores and message delivery; nil creates one.
	Loop *loop.Loop
}

// Shield is a fully wired interception stack.
type Shield struct {
	Port       *port.Port
	Loop       *loop.Loop
	Arena      *surface.Arena
	Engine     *engine.Engine
	Realm      *realm.Realm
	Registry   *intercept.Registry
	Propagator *propagate.Propagator
}

// New wires a shield and installs the wrappers into its top-level realm.
func New(opts Options) (*Shield, error) {
	if opts.RealmID == "" {
		opts.RealmID = "top"
	}
	if opts.Port == nil {
		opts.Port = port.New()
	}
	if opts.Loop == nil {
		opts.Loop = loop.New()
	}

	arena := surface.NewArena()
	eng := engine.New(opts.Port, noise.NewPolicy(opts.Source), opts.Loop, arena)
	top := realm.New(opts.RealmID, opts.Loop)
	reg := intercept.NewRegistry(top)

	if err := intercept.InstallAll(reg, intercept.NewGuard(opts.Port, eng)); err != nil {
		return nil, fmt.Errorf("installing wrappers: %w", err)
	}

	prop := propagate.New(opts.Port, reg)
	prop.Attach(top)

	return &Shield{
		Port:       opts.Port,
		Loop:       opts.Loop,
		Arena:      arena,
		Engine:     eng,
		Realm:      top,
		Registry:   reg,
		Propagator: prop,
	}, nil
}

// Canvas allocates an in-memory canvas in the shield's arena.
func (s *Shield) Canvas(width, height int) *surface.Canvas {
	return surface.NewCanvas(s.Arena, width, height)
}

// AudioBuffer allocates an audio buffer in the shield's arena.
func (s *Shield) AudioBuffer(channels, length int, sampleRate float64) *surface.AudioBuffer {
	return surface.NewAudioBuffer(s.Arena, channels, length, sampleRate)
}

// Analyser allocates an analyser in the shield's arena.
func (s *Shield) Analyser(binCount int) *surface.Analyser {
	return surface.NewAnalyser(s.Arena, binCount)
}

// Teardown restores the original entry points of the top-level realm and of
// every realm the wrappers were propagated into, and raises dirty.
func (s *Shield) Teardown() error {
	err := errors.Join(s.Propagator.Teardown(), s.Registry.Teardown())
	s.Port.SetDirty(true)
	return err
}
