package generator

import (
	"fmt"
	"sort"
	"sync"
)

// MarkerFamily separates identifier generator markers from general value generator markers
type MarkerFamily int

const (
	FamilyIDGenerator MarkerFamily = iota + 1
	FamilyValueGenerator
)

func (f MarkerFamily) String() string {
	switch f {
	case FamilyIDGenerator:
		return "id-generator"
	case FamilyValueGenerator:
		return "value-generator"
	default:
		return "unknown"
	}
}

// Marker is a declarative marker on a property that selects a generator
type Marker interface {
	MarkerName() string
}

// MarkerFactory builds the generator for one marker type. Constructors are tried in
// field order and the first one set is used.
type MarkerFactory struct {
	Family      MarkerFamily
	WithContext func(m Marker, member Member, cc CreationContext) (Generator, error)
	WithMarker  func(m Marker) (Generator, error)
	NoArg       func() (Generator, error)
}

func (f MarkerFactory) instantiate(m Marker, cc CreationContext) (gen Generator, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil {
			err = NewConfigurationErrorf("INSTANTIATION_FAILED", "could not instantiate generator for marker %q on %s",
				fmt.Errorf("%w: %v", ErrInstantiation, err), m.MarkerName(), cc.Member.Key())
		}
	}()

	switch {
	case f.WithContext != nil:
		gen, err = f.WithContext(m, cc.Member, cc)
	case f.WithMarker != nil:
		gen, err = f.WithMarker(m)
	case f.NoArg != nil:
		gen, err = f.NoArg()
	default:
		return nil, fmt.Errorf("factory has no constructor")
	}
	if err == nil && gen == nil {
		err = fmt.Errorf("constructor returned no generator")
	}
	return gen, err
}

// MarkerRegistry maps marker names to factories
type MarkerRegistry struct {
	mu        sync.RWMutex
	factories map[string]MarkerFactory
}

// NewMarkerRegistry creates a registry holding the built-in markers
func NewMarkerRegistry() *MarkerRegistry {
	r := &MarkerRegistry{factories: make(map[string]MarkerFactory)}
	registerBuiltinMarkers(r)
	return r
}

// Register adds or replaces the factory for a marker name
func (r *MarkerRegistry) Register(name string, f MarkerFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Lookup returns the factory for a marker name
func (r *MarkerRegistry) Lookup(name string) (MarkerFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[name]
	return f, ok
}

// Names lists the registered marker names
func (r *MarkerRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
