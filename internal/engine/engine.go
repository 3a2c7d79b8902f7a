package engine

import (
	"bytes"
	"fmt"
	"log/slog"
	"sync"

	"github.com/stupside/veil/internal/noise"
	"github.com/stupside/veil/internal/port"
	"github.com/stupside/veil/internal/surface"
)

// Scheduler defers work to a later turn.
type Scheduler interface {
	Post(task func())
}

// Engine perturbs a surface's pixels ahead of an export and restores the
// pristine buffer on the next scheduler turn.
//
// At most one pristine snapshot exists per surface. While one is pending,
// further perturbations of that surface are no-ops, so re-entrant exports
// never compound noise.
type Engine struct {
	port      *port.Port
	policy    *noise.Policy
	scheduler Scheduler

	mu        sync.Mutex
	snapshots map[surface.Handle][]byte // nil value: perturbation in flight
	poisoned  map[audioKey]struct{}
}

// New creates an engine. When arena is non-nil, destroyed handles are dropped
// from the engine's tables.
func New(p *port.Port, policy *noise.Policy, scheduler Scheduler, arena *surface.Arena) *Engine {
	e := &Engine{
		port:      p,
		policy:    policy,
		scheduler: scheduler,
		snapshots: make(map[surface.Handle][]byte),
		poisoned:  make(map[audioKey]struct{}),
	}
	if arena != nil {
		arena.OnDestroy(e.Forget)
	}
	return e
}

// Perturb applies the policy's offsets to s and schedules its restoration.
// The engine lock is never held across surface reads or writes; a pending
// entry reserves the handle while the pixels are in flight.
func (e *Engine) Perturb(s surface.Surface) error {
	e.port.Dispatch(port.EventManipulate)

	h := s.Handle()

	e.mu.Lock()
	if _, pending := e.snapshots[h]; pending {
		e.mu.Unlock()
		return nil
	}
	e.snapshots[h] = nil
	e.mu.Unlock()

	committed := false
	defer func() {
		if !committed {
			e.mu.Lock()
			delete(e.snapshots, h)
			e.mu.Unlock()
		}
	}()

	pix, err := s.Pixels()
	if err != nil {
		return fmt.Errorf("reading pixels: %w", err)
	}
	pristine := bytes.Clone(pix)
	if pristine == nil {
		pristine = []byte{}
	}

	offsets := e.policy.Offsets(e.port.Snapshot())
	touched := noise.Apply(pix, offsets)

	if err := s.PutPixels(pix); err != nil {
		return fmt.Errorf("writing perturbed pixels: %w", err)
	}

	e.mu.Lock()
	_, reserved := e.snapshots[h]
	if reserved {
		e.snapshots[h] = pristine
	}
	e.mu.Unlock()
	committed = true

	if !reserved {
		// Forgotten while in flight: the surface is gone.
		return nil
	}

	slog.Debug("surface perturbed", "handle", h, "offsets", offsets, "pixels", len(touched))

	e.scheduler.Post(func() {
		if err := e.Restore(s); err != nil {
			slog.Debug("surface restore failed", "handle", h, "error", err)
		}
	})
	return nil
}

// Restore writes the pristine snapshot of s back and forgets it. Without a
// snapshot, or while a perturbation is still in flight, it does nothing.
func (e *Engine) Restore(s surface.Surface) error {
	h := s.Handle()

	e.mu.Lock()
	pristine := e.snapshots[h]
	if pristine != nil {
		delete(e.snapshots, h)
	}
	e.mu.Unlock()

	if pristine == nil {
		return nil
	}

	cur, err := s.Pixels()
	if err != nil {
		return fmt.Errorf("reading pixels: %w", err)
	}
	copy(cur, pristine)

	if err := s.PutPixels(cur); err != nil {
		return fmt.Errorf("writing pristine pixels: %w", err)
	}
	return nil
}

// Pending reports whether h has a perturbation awaiting restore.
func (e *Engine) Pending(h surface.Handle) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.snapshots[h]
	return ok
}

// Forget drops every entry held for h. A restore that fires later becomes a
// no-op.
func (e *Engine) Forget(h surface.Handle) {
	e.mu.Lock()
	delete(e.snapshots, h)
	for k := range e.poisoned {
		if k.handle == h {
			delete(e.poisoned, k)
		}
	}
	e.mu.Unlock()
}
