// Package optimizer provides block allocation policies that decide how many identifier values one counter fetch yields
package optimizer

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// AccessCallback fetches the next raw source value from a counter backend.
// One callback is bound to one unit of work.
type AccessCallback interface {
	NextValue(ctx context.Context) (int64, error)
	TenantIdentifier() string
}

// Kind names an optimizer policy
type Kind string

const (
	KindNone       Kind = "none"
	KindHiLo       Kind = "hilo"
	KindLegacyHiLo Kind = "legacy-hilo"
	KindPooled     Kind = "pooled"
	KindPooledLo   Kind = "pooled-lo"
)

// Block is a contiguous run of logical values derived from one raw source value
type Block struct {
	First int64
	Size  int64
}

// Value returns the nth value of the block, zero based
func (b Block) Value(n int64) int64 { return b.First + n }

// Last returns the highest value of the block
func (b Block) Last() int64 { return b.First + b.Size - 1 }

// Contains reports whether v falls inside the block
func (b Block) Contains(v int64) bool { return v >= b.First && v <= b.Last() }

// Optimizer turns raw source values into identifier values
type Optimizer interface {
	Kind() Kind
	// Generate returns the next identifier, fetching from the callback only when the current block is exhausted
	Generate(ctx context.Context, cb AccessCallback) (int64, error)
	IncrementSize() int64
	// AppliesIncrementToSourceValues is true when the counter must be advanced by the whole increment per fetch
	AppliesIncrementToSourceValues() bool
	// Interpret maps one raw source value to the block of values it represents
	Interpret(raw int64) Block
	// LastSourceValue returns the last raw value fetched for a tenant
	LastSourceValue(tenant string) (int64, bool)
}

// ParseKind normalizes an optimizer name
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none", "noop":
		return KindNone, nil
	case "hilo", "hi-lo":
		return KindHiLo, nil
	case "legacy-hilo", "legacy_hilo":
		return KindLegacyHiLo, nil
	case "pooled", "pooled-hi":
		return KindPooled, nil
	case "pooled-lo", "pooled_lo":
		return KindPooledLo, nil
	default:
		return "", fmt.Errorf("unknown optimizer %q", name)
	}
}

// ImplicitKind picks an optimizer when none is configured
func ImplicitKind(incrementSize int64, preferred Kind) Kind {
	if incrementSize <= 1 {
		return KindNone
	}
	if preferred == KindPooled || preferred == KindPooledLo {
		return preferred
	}
	return KindPooled
}

// Build creates an optimizer. initialValue is only consulted by the pooled optimizer; pass -1 when unknown.
func Build(kind Kind, incrementSize, initialValue int64) (Optimizer, error) {
	if kind != KindNone && incrementSize < 1 {
		return nil, fmt.Errorf("optimizer %s: increment size cannot be less than 1, got %d", kind, incrementSize)
	}
	switch kind {
	case KindNone:
		return &noop{tenantStates{incrementSize: incrementSize}}, nil
	case KindHiLo:
		return &hiLo{tenantStates{incrementSize: incrementSize}}, nil
	case KindLegacyHiLo:
		return &legacyHiLo{tenantStates{incrementSize: incrementSize}}, nil
	case KindPooled:
		return &pooled{tenantStates: tenantStates{incrementSize: incrementSize}, initialValue: initialValue}, nil
	case KindPooledLo:
		return &pooledLo{tenantStates{incrementSize: incrementSize}}, nil
	default:
		return nil, fmt.Errorf("unknown optimizer %q", kind)
	}
}

// state is the in-memory position inside the current block for one tenant
type state struct {
	lastSource int64
	fetched    bool
	next       int64
	// upper is exclusive
	upper int64
}

type tenantStates struct {
	mu            sync.Mutex
	incrementSize int64
	states        map[string]*state
}

func (t *tenantStates) IncrementSize() int64 { return t.incrementSize }

// stateFor must be called with mu held
func (t *tenantStates) stateFor(tenant string) *state {
	if t.states == nil {
		t.states = make(map[string]*state)
	}
	s, ok := t.states[tenant]
	if !ok {
		s = &state{}
		t.states[tenant] = s
	}
	return s
}

func (t *tenantStates) LastSourceValue(tenant string) (int64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.states[tenant]
	if !ok || !s.fetched {
		return 0, false
	}
	return s.lastSource, true
}

func (t *tenantStates) fetch(ctx context.Context, cb AccessCallback, s *state) (int64, error) {
	v, err := cb.NextValue(ctx)
	if err != nil {
		return 0, err
	}
	s.lastSource = v
	s.fetched = true
	return v, nil
}

// noop hands out every raw value as is
type noop struct {
	tenantStates
}

func (o *noop) Kind() Kind { return KindNone }

func (o *noop) AppliesIncrementToSourceValues() bool {
	return o.incrementSize > 1
}

func (o *noop) Interpret(raw int64) Block { return Block{First: raw, Size: 1} }

func (o *noop) Generate(ctx context.Context, cb AccessCallback) (int64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.fetch(ctx, cb, o.stateFor(cb.TenantIdentifier()))
}

// hiLo treats the raw value as a "hi" counter advanced by one; each hi yields incrementSize values
type hiLo struct {
	tenantStates
}

func (o *hiLo) Kind() Kind                           { return KindHiLo }
func (o *hiLo) AppliesIncrementToSourceValues() bool { return false }

func (o *hiLo) Interpret(hi int64) Block {
	return Block{First: (hi-1)*o.incrementSize + 1, Size: o.incrementSize}
}

func (o *hiLo) Generate(ctx context.Context, cb AccessCallback) (int64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	s := o.stateFor(cb.TenantIdentifier())
	if !s.fetched || s.next >= s.upper {
		hi, err := o.fetch(ctx, cb, s)
		if err != nil {
			return 0, err
		}
		for hi < 1 {
			if hi, err = o.fetch(ctx, cb, s); err != nil {
				return 0, err
			}
		}
		b := o.Interpret(hi)
		s.next, s.upper = b.First, b.First+b.Size
	}
	v := s.next
	s.next++
	return v, nil
}

// legacyHiLo reproduces the original hi/lo scheme: values hi*(maxLo+1)+lo with lo in [0, maxLo]
type legacyHiLo struct {
	tenantStates
}

func (o *legacyHiLo) Kind() Kind                           { return KindLegacyHiLo }
func (o *legacyHiLo) AppliesIncrementToSourceValues() bool { return false }

func (o *legacyHiLo) Interpret(hi int64) Block {
	span := o.incrementSize + 1
	if hi == 0 {
		// zero is never handed out
		return Block{First: 1, Size: span - 1}
	}
	return Block{First: hi * span, Size: span}
}

func (o *legacyHiLo) Generate(ctx context.Context, cb AccessCallback) (int64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	s := o.stateFor(cb.TenantIdentifier())
	if !s.fetched || s.next >= s.upper {
		hi, err := o.fetch(ctx, cb, s)
		if err != nil {
			return 0, err
		}
		b := o.Interpret(hi)
		s.next, s.upper = b.First, b.First+b.Size
	}
	v := s.next
	s.next++
	return v, nil
}

// pooled treats the raw value as the high end of its block; the counter is advanced by the increment
type pooled struct {
	tenantStates
	initialValue int64
}

func (o *pooled) Kind() Kind                           { return KindPooled }
func (o *pooled) AppliesIncrementToSourceValues() bool { return true }

func (o *pooled) Interpret(hi int64) Block {
	return Block{First: hi - o.incrementSize + 1, Size: o.incrementSize}
}

// floor is the lowest value the counter ever hands out
func (o *pooled) floor() int64 {
	if o.initialValue < 1 {
		return 1
	}
	return o.initialValue
}

// Generate clips each block to the floor. A block read right after seeding owns only the
// seed value; the values below it were never written to the counter by anyone.
func (o *pooled) Generate(ctx context.Context, cb AccessCallback) (int64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	s := o.stateFor(cb.TenantIdentifier())
	for !s.fetched || s.next >= s.upper {
		hi, err := o.fetch(ctx, cb, s)
		if err != nil {
			return 0, err
		}
		b := o.Interpret(hi)
		s.next, s.upper = max(b.First, o.floor()), b.First+b.Size
	}
	v := s.next
	s.next++
	return v, nil
}

// pooledLo treats the raw value as the low end of its block
type pooledLo struct {
	tenantStates
}

func (o *pooledLo) Kind() Kind                           { return KindPooledLo }
func (o *pooledLo) AppliesIncrementToSourceValues() bool { return true }

func (o *pooledLo) Interpret(lo int64) Block {
	return Block{First: lo, Size: o.incrementSize}
}

func (o *pooledLo) Generate(ctx context.Context, cb AccessCallback) (int64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	s := o.stateFor(cb.TenantIdentifier())
	if !s.fetched || s.next >= s.upper {
		lo, err := o.fetch(ctx, cb, s)
		if err != nil {
			return 0, err
		}
		b := o.Interpret(lo)
		s.next, s.upper = b.First, b.First+b.Size
		// stores whose sequences start below one
		for s.next < 1 && s.next < s.upper {
			s.next++
		}
	}
	v := s.next
	s.next++
	return v, nil
}
