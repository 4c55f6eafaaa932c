package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memTier is an in-memory Tier for exercising the manager's ordering.
type memTier struct {
	name string
	data map[string][]byte
	sets int
}

func newMemTier(name string) *memTier {
	return &memTier{name: name, data: make(map[string][]byte)}
}

func (m *memTier) Name() string { return m.name }

func (m *memTier) Get(ctx context.Context, key Key) ([]byte, bool) {
	payload, ok := m.data[key.String()]
	return payload, ok
}

func (m *memTier) Set(ctx context.Context, key Key, payload []byte, ttl time.Duration) {
	m.sets++
	m.data[key.String()] = payload
}

func (m *memTier) Delete(ctx context.Context, key Key) {
	delete(m.data, key.String())
}

func testPolicy() TTLPolicy {
	return TTLPolicy{
		QuoteFast: 30 * time.Second,
		Intraday:  time.Minute,
		Hourly:    5 * time.Minute,
		Daily:     time.Hour,
		PerProvider: map[string]time.Duration{
			"tushare": 10 * time.Minute,
		},
	}
}

func TestTTLPolicyFor(t *testing.T) {
	p := testPolicy()
	assert.Equal(t, 30*time.Second, p.For("yahoo", "30s"))
	assert.Equal(t, time.Minute, p.For("yahoo", "15m"))
	assert.Equal(t, 5*time.Minute, p.For("yahoo", "1h"))
	assert.Equal(t, time.Hour, p.For("yahoo", "1d"))
	// per-provider override beats the interval class
	assert.Equal(t, 10*time.Minute, p.For("tushare", "1d"))
	assert.Equal(t, 10*time.Minute, p.For("tushare", "1m"))
}

func TestManagerStoreAndLoadWriteThrough(t *testing.T) {
	ctx := context.Background()
	fast := newMemTier("fast")
	file := NewFileTier(t.TempDir())
	m := NewManager([]Tier{fast, file}, file, testPolicy())
	key := NewKey("yahoo", "AAPL", "1d")

	m.Store(ctx, key, sampleTable())

	// both tiers got the write
	assert.Equal(t, 1, fast.sets)
	_, ok := file.Get(ctx, key)
	assert.True(t, ok)

	got, meta, ok := m.Load(ctx, key)
	require.True(t, ok)
	assert.Equal(t, 2, got.Len())
	assert.Equal(t, "yahoo", meta.Provider)
}

func TestManagerBackfillsUpperTiers(t *testing.T) {
	ctx := context.Background()
	fast := newMemTier("fast")
	file := NewFileTier(t.TempDir())
	m := NewManager([]Tier{fast, file}, file, testPolicy())
	key := NewKey("yahoo", "AAPL", "1d")

	// entry exists only in the bottom tier
	file.Set(ctx, key, Encode(sampleTable(), time.Now()), 0)
	require.Equal(t, 0, fast.sets)

	_, _, ok := m.Load(ctx, key)
	require.True(t, ok)
	assert.Equal(t, 1, fast.sets, "lower-tier hit should backfill the tier above")

	_, ok = fast.Get(ctx, key)
	assert.True(t, ok)
}

func TestManagerCorruptUpperTierFallsThrough(t *testing.T) {
	ctx := context.Background()
	fast := newMemTier("fast")
	file := NewFileTier(t.TempDir())
	m := NewManager([]Tier{fast, file}, file, testPolicy())
	key := NewKey("yahoo", "AAPL", "1d")

	fast.data[key.String()] = []byte("corrupt")
	file.Set(ctx, key, Encode(sampleTable(), time.Now()), 0)

	got, _, ok := m.Load(ctx, key)
	require.True(t, ok)
	assert.Equal(t, 2, got.Len())
}

func TestManagerFresh(t *testing.T) {
	file := NewFileTier(t.TempDir())
	m := NewManager([]Tier{file}, file, testPolicy())
	now := time.Unix(1700000000, 0)
	m.now = func() time.Time { return now }
	key := NewKey("yahoo", "AAPL", "1d")

	assert.True(t, m.Fresh(key, Meta{CachedAt: now.Add(-30 * time.Minute).Unix()}))
	assert.False(t, m.Fresh(key, Meta{CachedAt: now.Add(-2 * time.Hour).Unix()}))

	// zero TTL never counts as fresh
	zero := NewManager([]Tier{file}, file, TTLPolicy{})
	assert.False(t, zero.Fresh(key, Meta{CachedAt: now.Unix()}))
}

func TestManagerDisabled(t *testing.T) {
	ctx := context.Background()
	fast := newMemTier("fast")
	file := NewFileTier(t.TempDir())
	m := NewManager([]Tier{fast, file}, file, testPolicy())
	m.enabled = false
	key := NewKey("yahoo", "AAPL", "1d")

	m.Store(ctx, key, sampleTable())
	assert.Equal(t, 0, fast.sets)

	_, _, ok := m.Load(ctx, key)
	assert.False(t, ok)
}

func TestManagerClear(t *testing.T) {
	ctx := context.Background()
	fast := newMemTier("fast")
	file := NewFileTier(t.TempDir())
	m := NewManager([]Tier{fast, file}, file, testPolicy())
	key := NewKey("yahoo", "AAPL", "1d")

	m.Store(ctx, key, sampleTable())
	m.Clear(ctx, key)

	_, _, ok := m.Load(ctx, key)
	assert.False(t, ok)
}

func TestManagerSkipsEmptyTables(t *testing.T) {
	ctx := context.Background()
	fast := newMemTier("fast")
	file := NewFileTier(t.TempDir())
	m := NewManager([]Tier{fast, file}, file, testPolicy())

	m.Store(ctx, NewKey("yahoo", "AAPL", "1d"), sampleTable().Clip(time.Now(), time.Now()))
	assert.Equal(t, 0, fast.sets)
}
