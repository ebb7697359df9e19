package generator

import (
	"context"

	"github.com/amirphl/orochi-idgen/counter"
	"github.com/amirphl/orochi-idgen/optimizer"
	"github.com/amirphl/orochi-idgen/schema"
	"github.com/amirphl/orochi-idgen/session"
)

// Defaults of the sequence style generator
const (
	DefaultValueColumn    = "next_val"
	DefaultSequenceSuffix = "_seq"
	DefaultSequenceName   = "id_sequence"
)

// SequenceStyle hands out numbers from a native sequence, or from a single-row table
// where sequences are unavailable or table use is forced, through an optimizer.
type SequenceStyle struct {
	forceTable bool
	structure  counter.DatabaseStructure
	optimizer  optimizer.Optimizer
}

func (*SequenceStyle) EventTypes() EventTypeSet { return InsertOnly }

// Configure builds the optimizer and the counter structure
func (g *SequenceStyle) Configure(cfg *Configuration, cc CreationContext) error {
	incrementSize, err := cfg.Int64(ParamIncrementSize, 1)
	if err != nil {
		return err
	}
	initialValue, err := cfg.Int64(ParamInitialValue, 1)
	if err != nil {
		return err
	}
	force, err := cfg.Bool(ParamForceTableUse, false)
	if err != nil {
		return err
	}
	g.forceTable = g.forceTable || force

	kind, err := optimizerKind(cfg, incrementSize)
	if err != nil {
		return err
	}
	opt, err := optimizer.Build(kind, incrementSize, initialValue)
	if err != nil {
		return NewConfigurationErrorf("INVALID_PARAMETER", "generator for %s", err, cc.Member.Key())
	}
	g.optimizer = opt

	structureIncrement := int64(1)
	if opt.AppliesIncrementToSourceValues() {
		structureIncrement = incrementSize
	}

	name := schema.ParseQualifiedName(g.sequenceName(cfg))
	if !g.forceTable && cc.Dialect != nil && cc.Dialect.SupportsSequences() {
		g.structure = counter.NewSequenceStructure(counter.SequenceConfig{
			Name:          name,
			InitialValue:  initialValue,
			IncrementSize: structureIncrement,
			Logger:        cc.Logger,
		})
	} else {
		g.structure = counter.NewTableStructure(counter.TableConfig{
			Name:          name,
			ValueColumn:   cfg.String(ParamValueColumn, DefaultValueColumn),
			InitialValue:  initialValue,
			IncrementSize: structureIncrement,
			Options:       cfg.String(ParamOptions, ""),
			Comment:       cfg.String(ParamTableComment, ""),
			Logger:        cc.Logger,
		})
	}
	cc.logger().Printf("generator: %s uses %s %s with optimizer %s (increment %d)",
		cc.Member.Key(), g.structure.Snapshot().Kind, name.Render(), opt.Kind(), incrementSize)
	return nil
}

func optimizerKind(cfg *Configuration, incrementSize int64) (optimizer.Kind, error) {
	if cfg.Has(ParamOptimizer) {
		kind, err := optimizer.ParseKind(cfg.String(ParamOptimizer, ""))
		if err != nil {
			return "", NewConfigurationErrorf("INVALID_PARAMETER", "parameter %s", err, ParamOptimizer)
		}
		return kind, nil
	}
	var preferred optimizer.Kind
	if cfg.Has(ParamPreferredPooled) {
		p, err := optimizer.ParseKind(cfg.String(ParamPreferredPooled, ""))
		if err != nil {
			return "", NewConfigurationErrorf("INVALID_PARAMETER", "parameter %s", err, ParamPreferredPooled)
		}
		preferred = p
	}
	return optimizer.ImplicitKind(incrementSize, preferred), nil
}

// sequenceName prefers an explicit name, then the generator name, then one derived from the owning table
func (g *SequenceStyle) sequenceName(cfg *Configuration) string {
	if name := cfg.String(ParamSequenceName, ""); name != "" {
		return name
	}
	if g.forceTable {
		if name := cfg.String(ParamTableName, ""); name != "" {
			return name
		}
	}
	if name := cfg.String(ParamGeneratorName, ""); name != "" {
		return name
	}
	if table := cfg.String(ParamTargetTable, ""); table != "" {
		return table + cfg.String(ParamSequenceSuffix, DefaultSequenceSuffix)
	}
	return cfg.String(ParamDefaultSequence, DefaultSequenceName)
}

func (g *SequenceStyle) RegisterExportables(db *schema.Database) error {
	return g.structure.RegisterExportables(db)
}

func (g *SequenceStyle) Initialize(sqlCtx schema.SQLContext) error {
	return g.structure.Initialize(sqlCtx)
}

func (g *SequenceStyle) Generate(ctx context.Context, sess session.Session, _ any, _ any, _ EventType) (any, error) {
	return g.optimizer.Generate(ctx, g.structure.BuildCallback(sess))
}

// Structure returns the counter backing the generator; nil before Configure
func (g *SequenceStyle) Structure() counter.DatabaseStructure { return g.structure }

// Optimizer returns the optimizer; nil before Configure
func (g *SequenceStyle) Optimizer() optimizer.Optimizer { return g.optimizer }
