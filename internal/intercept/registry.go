package intercept

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
)

// ErrIllegalInvocation is returned when a method is called on a target of the
// wrong type or with malformed arguments.
var ErrIllegalInvocation = errors.New("illegal invocation")

// Host type names.
const (
	TypeCanvas      = "HTMLCanvasElement"
	TypeContext2D   = "CanvasRenderingContext2D"
	TypeWebGL       = "WebGLRenderingContext"
	TypeAudioBuffer = "AudioBuffer"
	TypeAnalyser    = "AnalyserNode"
)

// Key names one method on one host type.
type Key struct {
	Type   string
	Method string
}

func (k Key) String() string { return k.Type + "." + k.Method }

var (
	ToDataURL      = Key{TypeCanvas, "toDataURL"}
	ToBlob         = Key{TypeCanvas, "toBlob"}
	GetContext     = Key{TypeCanvas, "getContext"}
	GetImageData   = Key{TypeContext2D, "getImageData"}
	ReadPixels     = Key{TypeWebGL, "readPixels"}
	GetChannelData = Key{TypeAudioBuffer, "getChannelData"}

	GetFloatFrequencyData = Key{TypeAnalyser, "getFloatFrequencyData"}
	GetByteFrequencyData  = Key{TypeAnalyser, "getByteFrequencyData"}
)

// Call is one invocation: the receiver and its positional arguments.
type Call struct {
	Target any
	Args   []any
}

// Arg returns the i-th argument, or nil when absent.
func (c Call) Arg(i int) any {
	if i < 0 || i >= len(c.Args) {
		return nil
	}
	return c.Args[i]
}

// Method is a host entry point.
type Method func(call Call) (any, error)

// Capabilities is a described set of entry points handed to another realm.
type Capabilities map[Key]Method

// Keys returns the capability keys in a stable order.
func (c Capabilities) Keys() []Key {
	return slices.SortedFunc(maps.Keys(c), func(a, b Key) int {
		return strings.Compare(a.String(), b.String())
	})
}

// Table is a mutable set of host entry points, such as a realm's prototypes.
type Table interface {
	Lookup(key Key) (Method, bool)
	Define(key Key, m Method) error
}

type entry struct {
	original Method
	wrapped  Method
}

// Registry records every wrapper installed into a table so it can be
// inspected, copied to other realms and torn down.
type Registry struct {
	table Table

	mu      sync.Mutex
	entries map[Key]entry
}

// NewRegistry returns a registry patching table.
func NewRegistry(table Table) *Registry {
	return &Registry{table: table, entries: make(map[Key]entry)}
}

// Install wraps the table's current method for key. Installing an already
// installed key does nothing, so a wrapper is never wrapped twice.
func (r *Registry) Install(key Key, wrap func(Method) Method) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[key]; ok {
		return nil
	}

	original, ok := r.table.Lookup(key)
	if !ok {
		return fmt.Errorf("no host method %s", key)
	}

	wrapped := wrap(original)
	if err := r.table.Define(key, wrapped); err != nil {
		return fmt.Errorf("installing %s: %w", key, err)
	}

	r.entries[key] = entry{original: original, wrapped: wrapped}
	return nil
}

// Installed reports whether key currently carries a wrapper.
func (r *Registry) Installed(key Key) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[key]
	return ok
}

// Original returns the method that was in place before key was wrapped.
func (r *Registry) Original(key Key) (Method, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	return e.original, ok
}

// Capabilities returns the installed export wrappers. Context acquisition is
// left out; only readback entry points travel across realms.
func (r *Registry) Capabilities() Capabilities {
	r.mu.Lock()
	defer r.mu.Unlock()

	caps := make(Capabilities, len(r.entries))
	for k, e := range r.entries {
		if k == GetContext {
			continue
		}
		caps[k] = e.wrapped
	}
	return caps
}

// Teardown puts every original back and forgets the wrappers. It returns the
// joined errors of any restores that failed.
func (r *Registry) Teardown() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for k, e := range r.entries {
		if err := r.table.Define(k, e.original); err != nil {
			errs = append(errs, fmt.Errorf("restoring %s: %w", k, err))
			continue
		}
		delete(r.entries, k)
	}
	return errors.Join(errs...)
}
