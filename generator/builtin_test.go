package generator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	testutil "github.com/amirphl/orochi-idgen/testing"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestDefinitions(t *testing.T) {
	defs, err := NewDefinitions(
		Definition{Name: "b", Strategy: StrategyUUID},
		Definition{Name: "a", Strategy: StrategySequence},
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, defs.Names())

	_, err = NewDefinitions(Definition{Name: "a", Strategy: "uuid"}, Definition{Name: "a", Strategy: "xid"})
	assert.ErrorIs(t, err, ErrInvalidDefinition)

	_, err = NewDefinitions(Definition{Name: "nameless"})
	assert.ErrorIs(t, err, ErrInvalidDefinition)

	var empty Definitions
	_, ok := empty.Lookup("a")
	assert.False(t, ok)
}

func TestConfigurationGetters(t *testing.T) {
	cfg := newConfiguration(StrategySequence)
	cfg.merge(map[string]string{"n": " 12 ", "flag": "true", "blank": " ", "bad": "x"})
	cfg.Parameters["typed"] = int64(7)

	n, err := cfg.Int64("n", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(12), n)

	n, err = cfg.Int64("typed", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)

	n, err = cfg.Int64("blank", 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	_, err = cfg.Int64("bad", 0)
	assert.ErrorIs(t, err, ErrInvalidParameter)
	_, err = cfg.Bool("bad", false)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	b, err := cfg.Bool("flag", false)
	require.NoError(t, err)
	assert.True(t, b)

	assert.Equal(t, "fallback", cfg.String("blank", "fallback"))
	assert.Equal(t, "fallback", cfg.String("missing", "fallback"))
	assert.False(t, cfg.Has("missing"))
}

func TestEventTypeSet(t *testing.T) {
	set, ok := ParseEventTypeSet("insert, UPDATE")
	require.True(t, ok)
	assert.Equal(t, InsertAndUpdate, set)
	assert.Equal(t, "insert,update", set.String())

	set, ok = ParseEventTypeSet("update")
	require.True(t, ok)
	assert.False(t, set.Contains(EventInsert))

	_, ok = ParseEventTypeSet("delete")
	assert.False(t, ok)
	_, ok = ParseEventTypeSet("")
	assert.False(t, ok)
	assert.Equal(t, "none", EventTypeSet(0).String())
}

func TestUUIDAndXID(t *testing.T) {
	ctx := context.Background()

	random := &UUID{}
	require.NoError(t, random.Configure(newConfiguration(StrategyUUID), creationContext()))
	v, err := random.Generate(ctx, tenantSession(""), nil, nil, EventInsert)
	require.NoError(t, err)
	id, err := uuid.Parse(v.(string))
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(4), id.Version())

	cfg := newConfiguration(StrategyUUID)
	cfg.Parameters[ParamUUIDStyle] = "bogus"
	assert.ErrorIs(t, (&UUID{}).Configure(cfg, creationContext()), ErrInvalidParameter)

	first, err := (&XID{}).Generate(ctx, tenantSession(""), nil, nil, EventInsert)
	require.NoError(t, err)
	second, err := (&XID{}).Generate(ctx, tenantSession(""), nil, nil, EventInsert)
	require.NoError(t, err)
	assert.Len(t, first.(string), 20)
	assert.NotEqual(t, first, second)
}

// fakeRedis keeps counters in memory with INCRBY and SETNX semantics
type fakeRedis struct {
	mu      sync.Mutex
	values  map[string]int64
	setnx   int
	incrs   int
	seedErr error
}

func (f *fakeRedis) SetNX(_ context.Context, key string, value interface{}, _ time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setnx++
	if f.seedErr != nil {
		err := f.seedErr
		f.seedErr = nil
		return redis.NewBoolResult(false, err)
	}
	if _, ok := f.values[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.values[key] = value.(int64)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) IncrBy(_ context.Context, key string, value int64) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.incrs++
	f.values[key] += value
	return redis.NewIntResult(f.values[key], nil)
}

func redisSequence(t *testing.T, client RedisCounter, params map[string]string) *RedisSequence {
	t.Helper()
	cfg := newConfiguration(StrategyRedisSequence)
	cfg.merge(params)
	cc := creationContext()
	cc.Member = orderID()
	cc.Redis = client
	g := &RedisSequence{}
	require.NoError(t, g.Configure(cfg, cc))
	return g
}

func generateInts(t *testing.T, g BeforeExecutionGenerator, sess tenantSession, n int) []int64 {
	t.Helper()
	out := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		v, err := g.Generate(context.Background(), sess, nil, nil, EventInsert)
		require.NoError(t, err)
		out = append(out, v.(int64))
	}
	return out
}

func TestRedisSequence(t *testing.T) {
	t.Run("BlocksOfIncrement", func(t *testing.T) {
		client := &fakeRedis{values: map[string]int64{}}
		g := redisSequence(t, client, map[string]string{ParamGeneratorName: "orders", ParamIncrementSize: "10"})
		assert.Equal(t, "idgen:orders", g.Key())

		values := generateInts(t, g, "", 12)
		assert.Equal(t, []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, values)
		assert.Equal(t, 1, client.setnx)
		assert.Equal(t, 2, client.incrs)
		assert.Equal(t, int64(11), client.values["idgen:orders"])
	})

	t.Run("ExistingCounterIsNotReseeded", func(t *testing.T) {
		client := &fakeRedis{values: map[string]int64{"ids:orders": 41}}
		g := redisSequence(t, client, map[string]string{ParamTargetTable: "orders", ParamRedisKeyPrefix: "ids:"})
		assert.Equal(t, []int64{42, 43}, generateInts(t, g, "", 2))
	})

	t.Run("SeedFailureIsRetried", func(t *testing.T) {
		client := &fakeRedis{values: map[string]int64{}, seedErr: errors.New("connection refused")}
		g := redisSequence(t, client, nil)

		_, err := g.Generate(context.Background(), tenantSession(""), nil, nil, EventInsert)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")

		assert.Equal(t, []int64{1}, generateInts(t, g, "", 1))
		assert.Equal(t, 2, client.setnx)
	})

	t.Run("NeedsClient", func(t *testing.T) {
		err := (&RedisSequence{}).Configure(newConfiguration(StrategyRedisSequence), creationContext())
		assert.ErrorIs(t, err, ErrMissingBacking)
	})
}

func TestSequenceStyleAgainstStore(t *testing.T) {
	db, err := testutil.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.TeardownTestDB() })
	fixtures := testutil.NewTestFixtures(db)
	ctx := context.Background()

	res, err := quietResolver(nil, nil).Resolve(Property{
		Member: orderID(),
		Kind:   KindTable,
		Parameters: map[string]string{
			ParamTableName:     "order_blocks",
			ParamIncrementSize: "3",
			ParamOptimizer:     "pooled-lo",
		},
	})
	require.NoError(t, err)
	cc := creationContext()
	cc.Dialect = db.Dialect
	gen, err := res.Creator(cc)
	require.NoError(t, err)

	seq := gen.(*SequenceStyle)
	require.NoError(t, seq.RegisterExportables(fixtures.Database))
	require.NoError(t, fixtures.Export(ctx))
	require.NoError(t, seq.Initialize(fixtures.SQLContext()))

	sess := fixtures.Session("")
	var (
		mu   sync.Mutex
		seen = make(map[int64]bool)
		g    errgroup.Group
	)
	for w := 0; w < 4; w++ {
		g.Go(func() error {
			for i := 0; i < 6; i++ {
				v, err := seq.Generate(ctx, sess, nil, nil, EventInsert)
				if err != nil {
					return err
				}
				mu.Lock()
				if seen[v.(int64)] {
					mu.Unlock()
					return errors.New("duplicate identifier")
				}
				seen[v.(int64)] = true
				mu.Unlock()
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Len(t, seen, 24)
	for v := int64(1); v <= 24; v++ {
		assert.True(t, seen[v], "missing %d", v)
	}
	assert.Equal(t, int64(8), seq.Structure().TimesAccessed())

	stored, err := fixtures.StoredValue(seq.Structure().PhysicalName(), DefaultValueColumn)
	require.NoError(t, err)
	assert.Equal(t, int64(25), stored)
}
