package realm

import (
	"errors"
	"fmt"
	"sync"

	"github.com/stupside/veil/internal/host"
	"github.com/stupside/veil/internal/intercept"
)

// ErrAccessDenied is returned when another realm tries to install entry
// points into a sandboxed realm.
var ErrAccessDenied = errors.New("cross-realm access denied")

// Scheduler defers work to a later turn.
type Scheduler interface {
	Post(task func())
}

// MessageEvent is a message delivered to a realm's listeners.
type MessageEvent struct {
	Data   string
	Source *Realm
	Target *Realm
}

// Listener receives message events.
type Listener func(MessageEvent)

// Realm is an isolated execution context with its own copy of the host
// entry points and its own message listeners.
type Realm struct {
	id        string
	parent    *Realm
	sandboxed bool
	scheduler Scheduler

	mu        sync.RWMutex
	protos    map[intercept.Key]intercept.Method
	listeners []Listener
	children  []*Realm
}

// New returns a top-level realm with pristine host entry points.
func New(id string, scheduler Scheduler) *Realm {
	return &Realm{
		id:        id,
		scheduler: scheduler,
		protos:    host.Prototypes(),
	}
}

// Embed creates a nested realm, such as a frame, with its own pristine host
// entry points. A sandboxed realm refuses installs from other realms.
func (r *Realm) Embed(id string, sandboxed bool) *Realm {
	child := &Realm{
		id:        id,
		parent:    r,
		sandboxed: sandboxed,
		scheduler: r.scheduler,
		protos:    host.Prototypes(),
	}
	r.mu.Lock()
	r.children = append(r.children, child)
	r.mu.Unlock()
	return child
}

func (r *Realm) ID() string      { return r.id }
func (r *Realm) Parent() *Realm  { return r.parent }
func (r *Realm) Sandboxed() bool { return r.sandboxed }

// Children returns the realms embedded directly in r.
func (r *Realm) Children() []*Realm {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Realm(nil), r.children...)
}

// Lookup returns the realm's current method for key.
func (r *Realm) Lookup(key intercept.Key) (intercept.Method, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.protos[key]
	return m, ok
}

// Define replaces the realm's own method for key.
func (r *Realm) Define(key intercept.Key, m intercept.Method) error {
	if m == nil {
		return fmt.Errorf("defining %s: nil method", key)
	}
	r.mu.Lock()
	r.protos[key] = m
	r.mu.Unlock()
	return nil
}

// Install is the endpoint through which another realm injects entry points.
// Either every capability is installed or, on a sandboxed realm, none is.
func (r *Realm) Install(caps intercept.Capabilities) error {
	if r.sandboxed {
		return fmt.Errorf("realm %q: %w", r.id, ErrAccessDenied)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range caps.Keys() {
		r.protos[k] = caps[k]
	}
	return nil
}

// Invoke calls the realm's current method for key.
func (r *Realm) Invoke(key intercept.Key, target any, args ...any) (any, error) {
	m, ok := r.Lookup(key)
	if !ok {
		return nil, fmt.Errorf("realm %q: no method %s", r.id, key)
	}
	return m(intercept.Call{Target: target, Args: args})
}

// AddListener subscribes l to messages posted to r.
func (r *Realm) AddListener(l Listener) {
	r.mu.Lock()
	r.listeners = append(r.listeners, l)
	r.mu.Unlock()
}

// PostMessage queues data for r's listeners. Delivery happens on a later
// scheduler turn, never inline.
func (r *Realm) PostMessage(data string, source *Realm) {
	r.scheduler.Post(func() {
		r.mu.RLock()
		ls := append([]Listener(nil), r.listeners...)
		r.mu.RUnlock()

		ev := MessageEvent{Data: data, Source: source, Target: r}
		for _, l := range ls {
			l(ev)
		}
	})
}
