package port

import (
	"maps"
	"sync"
	"sync/atomic"
)

// Attribute names carried by the port.
const (
	AttrEnabled = "enabled"
	AttrMode    = "mode"
	AttrRed     = "red"
	AttrGreen   = "green"
	AttrBlue    = "blue"
	AttrDirty   = "dirty"
)

// EventManipulate is dispatched every time an export is intercepted.
const EventManipulate = "manipulate"

// Snapshot is the raw configuration as last written by the configuration
// collaborator. Values are untyped; consumers do their own coercion.
type Snapshot struct {
	Enabled string
	Mode    string
	Red     string
	Green   string
	Blue    string
}

// Port is the shared coordination node. It holds string attributes written
// from outside and relays zero-payload events to subscribers. It has no
// behavior of its own.
type Port struct {
	mu        sync.RWMutex
	attrs     map[string]string
	listeners map[string][]func()

	manipulations atomic.Uint64
}

// New returns a port with the dirty flag raised and no configuration, which
// reads as disabled.
func New() *Port {
	return &Port{
		attrs:     map[string]string{AttrDirty: "true"},
		listeners: make(map[string][]func()),
	}
}

// Get returns an attribute, or "" when unset.
func (p *Port) Get(name string) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.attrs[name]
}

// Set writes a single attribute.
func (p *Port) Set(name, value string) {
	p.mu.Lock()
	p.attrs[name] = value
	p.mu.Unlock()
}

// SetAll writes every attribute in attrs, leaving others untouched.
func (p *Port) SetAll(attrs map[string]string) {
	p.mu.Lock()
	maps.Copy(p.attrs, attrs)
	p.mu.Unlock()
}

// Snapshot returns the current configuration attributes.
func (p *Port) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return Snapshot{
		Enabled: p.attrs[AttrEnabled],
		Mode:    p.attrs[AttrMode],
		Red:     p.attrs[AttrRed],
		Green:   p.attrs[AttrGreen],
		Blue:    p.attrs[AttrBlue],
	}
}

// Enabled reports whether interception is switched on. Only the literal
// "true" enables it.
func (p *Port) Enabled() bool {
	return p.Get(AttrEnabled) == "true"
}

// Dirty reports whether the patch has not yet been confirmed installed.
func (p *Port) Dirty() bool {
	return p.Get(AttrDirty) == "true"
}

// SetDirty raises or clears the dirty flag.
func (p *Port) SetDirty(dirty bool) {
	if dirty {
		p.Set(AttrDirty, "true")
		return
	}
	p.Set(AttrDirty, "false")
}

// On subscribes fn to the named event.
func (p *Port) On(event string, fn func()) {
	p.mu.Lock()
	p.listeners[event] = append(p.listeners[event], fn)
	p.mu.Unlock()
}

// Dispatch raises the named event. Listeners run synchronously on the
// caller's goroutine, outside the port lock.
func (p *Port) Dispatch(event string) {
	if event == EventManipulate {
		p.manipulations.Add(1)
	}

	p.mu.RLock()
	fns := append([]func(){}, p.listeners[event]...)
	p.mu.RUnlock()

	for _, fn := range fns {
		fn()
	}
}

// Manipulations returns how many times EventManipulate was dispatched.
func (p *Port) Manipulations() uint64 {
	return p.manipulations.Load()
}
