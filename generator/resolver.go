package generator

import (
	"fmt"
	"log"
)

// GenerationKind is the coarse kind carried by an implicit generated value marker
type GenerationKind string

const (
	KindAuto     GenerationKind = "auto"
	KindIdentity GenerationKind = "identity"
	KindSequence GenerationKind = "sequence"
	KindTable    GenerationKind = "table"
	KindUUID     GenerationKind = "uuid"
)

var implicitStrategies = map[GenerationKind]string{
	KindAuto:     StrategySequence,
	KindIdentity: StrategyIdentity,
	KindSequence: StrategySequence,
	KindTable:    StrategyTable,
	KindUUID:     StrategyUUID,
}

// Property is the normalized declarative configuration of one property
type Property struct {
	Member

	// GeneratorName references a local or global definition
	GeneratorName string
	// Strategy is an explicitly requested strategy identifier
	Strategy string
	// Kind is set when the property carries an implicit generated value marker
	Kind       GenerationKind
	Parameters map[string]string
	Local      Definitions
	Markers    []Marker
}

// Creator builds the generator of a resolved property. It is invoked once during wiring.
type Creator func(cc CreationContext) (Generator, error)

// Resolution is the outcome of resolving one property
type Resolution struct {
	Config *Configuration
	// Family is zero for strategy resolved generators
	Family  MarkerFamily
	Creator Creator
}

// Resolver turns property configuration into generator creators
type Resolver struct {
	globals    Definitions
	defaults   map[string]string
	strategies *StrategyRegistry
	markers    *MarkerRegistry
	logger     *log.Logger
}

// NewResolver creates a resolver. defaults are the lowest precedence parameters; nil registries get the built-ins.
func NewResolver(globals Definitions, defaults map[string]string, strategies *StrategyRegistry, markers *MarkerRegistry, logger *log.Logger) *Resolver {
	if strategies == nil {
		strategies = NewStrategyRegistry()
	}
	if markers == nil {
		markers = NewMarkerRegistry()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Resolver{
		globals:    globals,
		defaults:   defaults,
		strategies: strategies,
		markers:    markers,
		logger:     logger,
	}
}

// Resolve picks the strategy and merged parameters for p
func (r *Resolver) Resolve(p Property) (*Resolution, error) {
	switch len(p.Markers) {
	case 0:
	case 1:
		return r.resolveMarker(p)
	default:
		return nil, NewConfigurationErrorf("TOO_MANY_MARKERS", "property %s carries %d generator markers", ErrTooManyMarkers, p.Key(), len(p.Markers))
	}

	requested, err := requestedStrategy(p)
	if err != nil {
		return nil, err
	}

	var (
		strategy string
		params   map[string]string
	)
	if p.GeneratorName != "" {
		def, ok := p.Local.Lookup(p.GeneratorName)
		if !ok {
			def, ok = r.globals.Lookup(p.GeneratorName)
		}
		if !ok {
			return nil, NewConfigurationErrorf("GENERATOR_NOT_FOUND", "property %s references generator %q", ErrGeneratorNotFound, p.Key(), p.GeneratorName)
		}
		strategy = def.Strategy
		// a named identity definition is never overridden by a requested strategy
		if requested != "" && !r.isIdentity(def.Strategy) {
			strategy = requested
		}
		params = def.Parameters
	} else {
		strategy = requested
		if strategy == "" {
			strategy = StrategyAssigned
		}
	}

	canonical, ok := r.strategies.Canonical(strategy)
	if !ok {
		return nil, NewConfigurationErrorf("UNKNOWN_STRATEGY", "property %s uses strategy %q", ErrUnknownStrategy, p.Key(), strategy)
	}

	cfg := newConfiguration(canonical)
	cfg.merge(r.defaults)
	cfg.merge(params)
	cfg.merge(p.Parameters)
	r.applyOwner(cfg, p)

	r.logger.Printf("generator: resolved %s to strategy %s", p.Key(), canonical)
	return &Resolution{Config: cfg, Creator: r.strategyCreator(cfg, p.Member)}, nil
}

// requestedStrategy is the explicit strategy or the one implied by the generation kind.
// With a named generator, auto is not a request.
func requestedStrategy(p Property) (string, error) {
	if p.Strategy != "" {
		return p.Strategy, nil
	}
	if p.Kind == "" || (p.Kind == KindAuto && p.GeneratorName != "") {
		return "", nil
	}
	strategy, ok := implicitStrategies[p.Kind]
	if !ok {
		return "", NewConfigurationErrorf("UNKNOWN_KIND", "property %s has generation kind %q", ErrUnknownStrategy, p.Key(), p.Kind)
	}
	return strategy, nil
}

func (r *Resolver) isIdentity(strategy string) bool {
	canonical, ok := r.strategies.Canonical(strategy)
	return ok && canonical == StrategyIdentity
}

func (r *Resolver) applyOwner(cfg *Configuration, p Property) {
	cfg.GeneratorName = p.GeneratorName
	cfg.OwnerTable = p.Table
	cfg.OwnerColumn = p.Column
	if p.Table != "" {
		cfg.Parameters[ParamTargetTable] = p.Table
	}
	if p.Column != "" {
		cfg.Parameters[ParamTargetColumn] = p.Column
	}
	if p.GeneratorName != "" {
		cfg.Parameters[ParamGeneratorName] = p.GeneratorName
	}
}

func (r *Resolver) strategyCreator(cfg *Configuration, member Member) Creator {
	return func(cc CreationContext) (Generator, error) {
		cc.Member = member
		if cfg.Strategy == StrategyAssigned {
			gen := &Assigned{}
			return gen, validate(gen, member, 0)
		}

		ctor, ok := r.strategies.Constructor(cfg.Strategy)
		if !ok {
			return nil, NewConfigurationErrorf("UNKNOWN_STRATEGY", "property %s uses strategy %q", ErrUnknownStrategy, member.Key(), cfg.Strategy)
		}
		provider := cc.Provider
		if provider == nil {
			provider = DirectProvider{}
		}
		gen, err := provider.Instance(cfg.Strategy, ctor)
		if err == nil && gen == nil {
			err = fmt.Errorf("provider returned no generator")
		}
		if err != nil {
			return nil, NewConfigurationErrorf("INSTANTIATION_FAILED", "could not instantiate strategy %s for %s",
				fmt.Errorf("%w: %v", ErrInstantiation, err), cfg.Strategy, member.Key())
		}

		if idg, ok := gen.(IdentifierGenerator); ok {
			if err := idg.Configure(cfg, cc); err != nil {
				return nil, err
			}
		}
		if err := validate(gen, member, 0); err != nil {
			return nil, err
		}
		return gen, nil
	}
}

func (r *Resolver) resolveMarker(p Property) (*Resolution, error) {
	m := p.Markers[0]
	f, ok := r.markers.Lookup(m.MarkerName())
	if !ok {
		return nil, NewConfigurationErrorf("UNKNOWN_MARKER", "property %s carries marker %q", ErrUnknownMarker, p.Key(), m.MarkerName())
	}

	cfg := newConfiguration(m.MarkerName())
	cfg.merge(p.Parameters)
	r.applyOwner(cfg, p)

	member := p.Member
	creator := func(cc CreationContext) (Generator, error) {
		cc.Member = member
		gen, err := f.instantiate(m, cc)
		if err != nil {
			return nil, err
		}
		if err := validate(gen, member, f.Family); err != nil {
			return nil, err
		}
		return gen, nil
	}

	r.logger.Printf("generator: resolved %s to %s marker %s", p.Key(), f.Family, m.MarkerName())
	return &Resolution{Config: cfg, Family: f.Family, Creator: creator}, nil
}

// validate applies the capability rules to a constructed generator
func validate(gen Generator, member Member, family MarkerFamily) error {
	_, before := gen.(BeforeExecutionGenerator)
	_, onExecution := gen.(OnExecutionGenerator)
	if !before && !onExecution {
		return NewConfigurationErrorf("MISSING_CAPABILITY", "generator %T on %s", ErrMissingCapability, gen, member.Key())
	}

	events := gen.EventTypes()
	if member.Version && (!events.Contains(EventInsert) || !events.Contains(EventUpdate)) {
		return NewConfigurationErrorf("VERSION_EVENTS", "generator %T on version property %s generates on %s", ErrVersionEvents, gen, member.Key(), events)
	}

	switch family {
	case FamilyIDGenerator:
		if !events.Contains(EventInsert) || events.Contains(EventUpdate) {
			return NewConfigurationErrorf("ID_GENERATOR_EVENTS", "generator %T on %s generates on %s", ErrIDGeneratorEvents, gen, member.Key(), events)
		}
	case FamilyValueGenerator:
		_, legacy := gen.(IdentifierGenerator)
		_, exportable := gen.(ExportableProducer)
		if legacy || exportable {
			return NewConfigurationErrorf("CAPABILITY_MIX", "generator %T on %s", ErrCapabilityMix, gen, member.Key())
		}
	}
	return nil
}
