package generator

import (
	"context"
	"fmt"
	"sync"

	"github.com/amirphl/orochi-idgen/optimizer"
	"github.com/amirphl/orochi-idgen/session"
)

// DefaultRedisKeyPrefix is prepended to the generator name to form the counter key
const DefaultRedisKeyPrefix = "idgen:"

// RedisSequence hands out numbers from an INCRBY counter. Each increment reserves a block
// whose low end is the value before the increment.
type RedisSequence struct {
	client        RedisCounter
	key           string
	initialValue  int64
	incrementSize int64
	optimizer     optimizer.Optimizer

	seedMu sync.Mutex
	seeded bool
}

func (*RedisSequence) EventTypes() EventTypeSet { return InsertOnly }

func (g *RedisSequence) Configure(cfg *Configuration, cc CreationContext) error {
	if cc.Redis == nil {
		return NewConfigurationErrorf("MISSING_BACKING", "generator for %s needs a redis client", ErrMissingBacking, cc.Member.Key())
	}
	incrementSize, err := cfg.Int64(ParamIncrementSize, 1)
	if err != nil {
		return err
	}
	initialValue, err := cfg.Int64(ParamInitialValue, 1)
	if err != nil {
		return err
	}

	kind := optimizer.ImplicitKind(incrementSize, optimizer.KindPooledLo)
	opt, err := optimizer.Build(kind, incrementSize, initialValue)
	if err != nil {
		return NewConfigurationErrorf("INVALID_PARAMETER", "generator for %s", err, cc.Member.Key())
	}

	name := cfg.String(ParamGeneratorName, "")
	if name == "" {
		name = cfg.String(ParamTargetTable, DefaultSequenceName)
	}

	g.client = cc.Redis
	g.key = cfg.String(ParamRedisKeyPrefix, DefaultRedisKeyPrefix) + name
	g.initialValue = initialValue
	g.incrementSize = incrementSize
	g.optimizer = opt
	return nil
}

func (g *RedisSequence) Generate(ctx context.Context, sess session.Session, _ any, _ any, _ EventType) (any, error) {
	return g.optimizer.Generate(ctx, &redisCallback{gen: g, tenant: sess.TenantIdentifier()})
}

// Key returns the redis key holding the counter
func (g *RedisSequence) Key() string { return g.key }

func (g *RedisSequence) seed(ctx context.Context) error {
	g.seedMu.Lock()
	defer g.seedMu.Unlock()
	if g.seeded {
		return nil
	}
	// the first INCRBY then returns the initial value
	if err := g.client.SetNX(ctx, g.key, g.initialValue-g.incrementSize, 0).Err(); err != nil {
		return fmt.Errorf("failed to seed redis counter %s: %w", g.key, err)
	}
	g.seeded = true
	return nil
}

type redisCallback struct {
	gen    *RedisSequence
	tenant string
}

func (c *redisCallback) NextValue(ctx context.Context) (int64, error) {
	if err := c.gen.seed(ctx); err != nil {
		return 0, err
	}
	v, err := c.gen.client.IncrBy(ctx, c.gen.key, c.gen.incrementSize).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment redis counter %s: %w", c.gen.key, err)
	}
	return v, nil
}

func (c *redisCallback) TenantIdentifier() string { return c.tenant }
