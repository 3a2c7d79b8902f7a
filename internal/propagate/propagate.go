package propagate

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/stupside/veil/internal/host"
	"github.com/stupside/veil/internal/intercept"
	"github.com/stupside/veil/internal/port"
	"github.com/stupside/veil/internal/realm"
)

// HandshakeToken is the message a realm posts to ask for the wrappers.
const HandshakeToken = "inject-script-into-source"

// CapabilitySource provides the entry points handed to foreign realms.
type CapabilitySource interface {
	Capabilities() intercept.Capabilities
}

// Propagator answers handshakes by installing the wrappers into the realm that
// sent them, then listens on that realm so it can relay handshakes from realms
// nested further down.
type Propagator struct {
	port   *port.Port
	source CapabilitySource

	mu        sync.Mutex
	attached  map[*realm.Realm]struct{}
	installed map[*realm.Realm]map[intercept.Key]struct{}
}

// New returns a propagator handing out source's capabilities.
func New(p *port.Port, source CapabilitySource) *Propagator {
	return &Propagator{
		port:     p,
		source:   source,
		attached:  make(map[*realm.Realm]struct{}),
		installed: make(map[*realm.Realm]map[intercept.Key]struct{}),
	}
}

// Attach starts listening for handshakes posted to r. Attaching the same
// realm twice does nothing.
func (p *Propagator) Attach(r *realm.Realm) {
	p.mu.Lock()
	if _, ok := p.attached[r]; ok {
		p.mu.Unlock()
		return
	}
	p.attached[r] = struct{}{}
	p.mu.Unlock()

	r.AddListener(p.observe)
}

// Attached reports whether r is being listened on.
func (p *Propagator) Attached(r *realm.Realm) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.attached[r]
	return ok
}

func (p *Propagator) observe(ev realm.MessageEvent) {
	if ev.Source == nil || ev.Data != HandshakeToken {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Warn("cannot propagate interception", "realm", ev.Source.ID(), "panic", r)
		}
	}()

	caps := p.source.Capabilities()
	if len(caps) == 0 {
		slog.Debug("nothing to propagate", "realm", ev.Source.ID())
		return
	}
	if err := ev.Source.Install(caps); err != nil {
		slog.Warn("cannot propagate interception", "realm", ev.Source.ID(), "error", err)
		return
	}
	p.record(ev.Source, caps)

	p.Attach(ev.Source)
	p.port.SetDirty(false)

	slog.Debug("interception propagated", "realm", ev.Source.ID(), "methods", len(caps))
}

func (p *Propagator) record(r *realm.Realm, caps intercept.Capabilities) {
	p.mu.Lock()
	defer p.mu.Unlock()
	keys, ok := p.installed[r]
	if !ok {
		keys = make(map[intercept.Key]struct{}, len(caps))
		p.installed[r] = keys
	}
	for k := range caps {
		keys[k] = struct{}{}
	}
}

// Installed reports whether wrappers were propagated into r and not yet torn
// down.
func (p *Propagator) Installed(r *realm.Realm) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.installed[r]
	return ok
}

// Teardown puts the pristine host methods back into every realm the
// propagator installed into. Listeners stay attached; with the source torn
// down, later handshakes install nothing.
func (p *Propagator) Teardown() error {
	p.mu.Lock()
	installed := p.installed
	p.installed = make(map[*realm.Realm]map[intercept.Key]struct{})
	p.mu.Unlock()

	var errs []error
	for r, keys := range installed {
		originals := host.Prototypes()
		for k := range keys {
			if err := r.Define(k, originals[k]); err != nil {
				errs = append(errs, fmt.Errorf("realm %q: restoring %s: %w", r.ID(), k, err))
			}
		}
	}
	return errors.Join(errs...)
}
