package generator

import (
	"sort"
	"strings"
	"sync"
)

// Strategy identifiers of the built-in generators
const (
	StrategyAssigned      = "assigned"
	StrategyIdentity      = "identity"
	StrategySequence      = "sequence"
	StrategyTable         = "table"
	StrategyUUID          = "uuid"
	StrategyXID           = "xid"
	StrategyRedisSequence = "redis-sequence"
)

// Constructor creates an unconfigured generator
type Constructor func() Generator

// StrategyRegistry maps strategy identifiers and their aliases to constructors
type StrategyRegistry struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
	aliases      map[string]string
}

// NewStrategyRegistry creates a registry holding the built-in strategies
func NewStrategyRegistry() *StrategyRegistry {
	r := &StrategyRegistry{
		constructors: make(map[string]Constructor),
		aliases:      make(map[string]string),
	}
	r.Register(StrategyAssigned, func() Generator { return &Assigned{} }, "generator.Assigned")
	r.Register(StrategyIdentity, func() Generator { return &Identity{} }, "native-identity")
	r.Register(StrategySequence, func() Generator { return &SequenceStyle{} }, "enhanced-sequence", "sequence-style")
	r.Register(StrategyTable, func() Generator { return &SequenceStyle{forceTable: true} }, "enhanced-table")
	r.Register(StrategyUUID, func() Generator { return &UUID{} }, "uuid2", "guid")
	r.Register(StrategyXID, func() Generator { return &XID{} })
	r.Register(StrategyRedisSequence, func() Generator { return &RedisSequence{} }, "redis")
	return r
}

// Register adds or replaces a strategy
func (r *StrategyRegistry) Register(name string, ctor Constructor, aliases ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name = normalizeStrategy(name)
	r.constructors[name] = ctor
	r.aliases[name] = name
	for _, a := range aliases {
		r.aliases[normalizeStrategy(a)] = name
	}
}

// Canonical resolves an identifier or alias to the registered strategy name
func (r *StrategyRegistry) Canonical(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	canonical, ok := r.aliases[normalizeStrategy(name)]
	return canonical, ok
}

// Constructor returns the constructor registered for an identifier or alias
func (r *StrategyRegistry) Constructor(name string) (Constructor, bool) {
	canonical, ok := r.Canonical(name)
	if !ok {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	ctor, ok := r.constructors[canonical]
	return ctor, ok
}

// Names lists the canonical strategy names
func (r *StrategyRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalizeStrategy(name string) string {
	name = strings.TrimSpace(name)
	// type-name aliases keep their case
	if strings.Contains(name, ".") {
		return name
	}
	return strings.ToLower(name)
}

// InstanceProvider supplies generator instances managed outside this package
type InstanceProvider interface {
	Instance(strategy string, construct Constructor) (Generator, error)
}

// DirectProvider calls the constructor
type DirectProvider struct{}

func (DirectProvider) Instance(_ string, construct Constructor) (Generator, error) {
	return construct(), nil
}
