package surface

import (
	"sync"
	"sync/atomic"
)

// Arena hands out handles and tracks which ones are still alive. Subscribers
// are told when a handle is destroyed so they can drop per-surface state.
type Arena struct {
	next atomic.Uint64

	mu        sync.Mutex
	live      map[Handle]struct{}
	onDestroy []func(Handle)
}

// NewArena returns an empty arena.
func NewArena() *Arena {
	return &Arena{live: make(map[Handle]struct{})}
}

// Allocate returns a fresh handle. Handles are never reused.
func (a *Arena) Allocate() Handle {
	h := Handle(a.next.Add(1))
	a.mu.Lock()
	a.live[h] = struct{}{}
	a.mu.Unlock()
	return h
}

// Alive reports whether h has been allocated and not destroyed.
func (a *Arena) Alive(h Handle) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.live[h]
	return ok
}

// Len returns the number of live handles.
func (a *Arena) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.live)
}

// OnDestroy subscribes fn to destroy notifications.
func (a *Arena) OnDestroy(fn func(Handle)) {
	a.mu.Lock()
	a.onDestroy = append(a.onDestroy, fn)
	a.mu.Unlock()
}

// Destroy releases h and notifies subscribers. Destroying an unknown or
// already destroyed handle does nothing.
func (a *Arena) Destroy(h Handle) {
	a.mu.Lock()
	if _, ok := a.live[h]; !ok {
		a.mu.Unlock()
		return
	}
	delete(a.live, h)
	fns := append([]func(Handle){}, a.onDestroy...)
	a.mu.Unlock()

	for _, fn := range fns {
		fn(h)
	}
}
