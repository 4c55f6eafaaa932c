package provider

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"candlehub/internal/market"
)

type stubProvider struct{ name string }

func (s *stubProvider) Name() string                  { return s.name }
func (s *stubProvider) Supports(interval string) bool { return true }
func (s *stubProvider) Fetch(ctx context.Context, instrument string, start, end time.Time, interval string) (market.Table, error) {
	return market.Table{}, nil
}

func TestRegistryPreservesOrderAndDropsDuplicates(t *testing.T) {
	r := NewRegistry(
		&stubProvider{name: "sina"},
		&stubProvider{name: "yahoo"},
		nil,
		&stubProvider{name: "sina"}, // duplicate name, first wins
	)

	require.Equal(t, 2, r.Len())
	assert.Equal(t, []string{"sina", "yahoo"}, r.Names())

	p, ok := r.Get("yahoo")
	require.True(t, ok)
	assert.Equal(t, "yahoo", p.Name())

	_, ok = r.Get("stooq")
	assert.False(t, ok)

	all := r.All()
	require.Len(t, all, 2)
	assert.Equal(t, "sina", all[0].Name())
}

func TestIsNoData(t *testing.T) {
	assert.True(t, IsNoData(noDataErr("yahoo", "AAPL", "empty")))
	assert.False(t, IsNoData(remoteErr("yahoo", "AAPL", assert.AnError)))
	assert.False(t, IsNoData(assert.AnError))
	assert.False(t, IsNoData(nil))
}
