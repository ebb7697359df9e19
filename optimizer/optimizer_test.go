package optimizer

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memorySource behaves like the counter row: it returns the stored value and advances it by step
type memorySource struct {
	mu      sync.Mutex
	value   int64
	step    int64
	fetches int
	tenant  string
	err     error
}

func (m *memorySource) NextValue(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	m.fetches++
	v := m.value
	m.value += m.step
	return v, nil
}

func (m *memorySource) TenantIdentifier() string { return m.tenant }

func sourceFor(o Optimizer, initial int64) *memorySource {
	step := int64(1)
	if o.AppliesIncrementToSourceValues() {
		step = o.IncrementSize()
	}
	return &memorySource{value: initial, step: step}
}

func generateN(t *testing.T, o Optimizer, cb AccessCallback, n int) []int64 {
	t.Helper()
	out := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		v, err := o.Generate(context.Background(), cb)
		require.NoError(t, err)
		out = append(out, v)
	}
	return out
}

func TestParseKind(t *testing.T) {
	tests := map[string]Kind{
		"":            KindNone,
		"noop":        KindNone,
		"HILO":        KindHiLo,
		"pooled-hi":   KindPooled,
		"pooled_lo":   KindPooledLo,
		"legacy-hilo": KindLegacyHiLo,
	}
	for in, want := range tests {
		got, err := ParseKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseKind("fancy")
	assert.Error(t, err)
}

func TestImplicitKind(t *testing.T) {
	assert.Equal(t, KindNone, ImplicitKind(1, KindPooledLo))
	assert.Equal(t, KindPooled, ImplicitKind(10, ""))
	assert.Equal(t, KindPooledLo, ImplicitKind(10, KindPooledLo))
	assert.Equal(t, KindPooled, ImplicitKind(10, KindHiLo))
}

func TestBuildRejectsIncrementBelowOne(t *testing.T) {
	_, err := Build(KindPooled, 0, 1)
	assert.Error(t, err)

	_, err = Build(KindNone, 0, 1)
	assert.NoError(t, err)
}

func TestNoop(t *testing.T) {
	o, err := Build(KindNone, 1, 1)
	require.NoError(t, err)
	assert.False(t, o.AppliesIncrementToSourceValues())

	src := sourceFor(o, 1)
	assert.Equal(t, []int64{1, 2, 3}, generateN(t, o, src, 3))
	assert.Equal(t, 3, src.fetches)

	last, ok := o.LastSourceValue("")
	assert.True(t, ok)
	assert.Equal(t, int64(3), last)

	wide, err := Build(KindNone, 10, 1)
	require.NoError(t, err)
	assert.True(t, wide.AppliesIncrementToSourceValues())
}

func TestPooledLoBlockAccounting(t *testing.T) {
	o, err := Build(KindPooledLo, 5, 1)
	require.NoError(t, err)
	require.True(t, o.AppliesIncrementToSourceValues())

	src := sourceFor(o, 1)
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, generateN(t, o, src, 5))
	assert.Equal(t, 1, src.fetches)

	assert.Equal(t, []int64{6, 7}, generateN(t, o, src, 2))
	assert.Equal(t, 2, src.fetches)
	assert.Equal(t, Block{First: 6, Size: 5}, o.Interpret(6))
}

func TestHiLo(t *testing.T) {
	o, err := Build(KindHiLo, 3, 1)
	require.NoError(t, err)
	require.False(t, o.AppliesIncrementToSourceValues())

	src := sourceFor(o, 1)
	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6, 7}, generateN(t, o, src, 7))
	assert.Equal(t, 3, src.fetches)
	assert.Equal(t, int64(4), src.value)
}

func TestHiLoSkipsHiBelowOne(t *testing.T) {
	o, err := Build(KindHiLo, 2, 0)
	require.NoError(t, err)

	src := sourceFor(o, 0)
	assert.Equal(t, []int64{1, 2}, generateN(t, o, src, 2))
	assert.Equal(t, 2, src.fetches)
}

func TestLegacyHiLo(t *testing.T) {
	o, err := Build(KindLegacyHiLo, 2, 0)
	require.NoError(t, err)

	src := sourceFor(o, 0)
	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6}, generateN(t, o, src, 6))
	assert.Equal(t, 3, src.fetches)
}

func TestPooled(t *testing.T) {
	t.Run("FreshCounterReadsTwice", func(t *testing.T) {
		o, err := Build(KindPooled, 5, 1)
		require.NoError(t, err)

		src := sourceFor(o, 1)
		assert.Equal(t, []int64{1, 2, 3, 4, 5, 6}, generateN(t, o, src, 6))
		assert.Equal(t, 2, src.fetches)

		assert.Equal(t, []int64{7, 8, 9, 10, 11}, generateN(t, o, src, 5))
		assert.Equal(t, 3, src.fetches)
	})

	t.Run("AdvancedCounterReadsOnce", func(t *testing.T) {
		o, err := Build(KindPooled, 5, 1)
		require.NoError(t, err)

		src := sourceFor(o, 21)
		assert.Equal(t, []int64{17, 18, 19, 20, 21}, generateN(t, o, src, 5))
		assert.Equal(t, 1, src.fetches)
	})
}

func TestPooledInstancesSharingFreshCounter(t *testing.T) {
	a, err := Build(KindPooled, 5, 1)
	require.NoError(t, err)
	b, err := Build(KindPooled, 5, 1)
	require.NoError(t, err)
	shared := &memorySource{value: 1, step: 5}

	var got []int64
	// a reads the seed, b reads 6, then a reads 11
	got = append(got, generateN(t, a, shared, 1)...)
	got = append(got, generateN(t, b, shared, 5)...)
	got = append(got, generateN(t, a, shared, 5)...)
	got = append(got, generateN(t, b, shared, 5)...)

	seen := make(map[int64]bool, len(got))
	for _, v := range got {
		assert.False(t, seen[v], "value %d handed out twice", v)
		seen[v] = true
	}
	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}, got)
	assert.Equal(t, 4, shared.fetches)
}

func TestTenantsHaveSeparateBlocks(t *testing.T) {
	o, err := Build(KindPooledLo, 10, 1)
	require.NoError(t, err)

	a := &memorySource{value: 1, step: 10, tenant: "a"}
	b := &memorySource{value: 100, step: 10, tenant: "b"}

	assert.Equal(t, []int64{1, 2}, generateN(t, o, a, 2))
	assert.Equal(t, []int64{100, 101}, generateN(t, o, b, 2))
	assert.Equal(t, []int64{3}, generateN(t, o, a, 1))

	_, ok := o.LastSourceValue("c")
	assert.False(t, ok)
}

func TestGenerateReturnsSourceError(t *testing.T) {
	o, err := Build(KindPooledLo, 10, 1)
	require.NoError(t, err)

	boom := errors.New("store down")
	_, err = o.Generate(context.Background(), &memorySource{err: boom})
	assert.ErrorIs(t, err, boom)
}

func TestConcurrentGenerateIsUnique(t *testing.T) {
	for _, kind := range []Kind{KindNone, KindHiLo, KindPooled, KindPooledLo, KindLegacyHiLo} {
		t.Run(string(kind), func(t *testing.T) {
			o, err := Build(kind, 7, 1)
			require.NoError(t, err)
			src := sourceFor(o, 1)

			var mu sync.Mutex
			seen := make(map[int64]bool)
			var wg sync.WaitGroup
			for i := 0; i < 50; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for j := 0; j < 10; j++ {
						v, err := o.Generate(context.Background(), src)
						if !assert.NoError(t, err) {
							return
						}
						mu.Lock()
						assert.False(t, seen[v], "duplicate %d", v)
						seen[v] = true
						mu.Unlock()
					}
				}()
			}
			wg.Wait()
			assert.Len(t, seen, 500)
		})
	}
}
