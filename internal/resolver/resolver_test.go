package resolver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"candlehub/internal/config"
	"candlehub/internal/market"
	"candlehub/internal/provider"
)

type fakeProvider struct {
	name      string
	intervals map[string]bool
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Supports(interval string) bool {
	if f.intervals == nil {
		return true
	}
	return f.intervals[interval]
}

func (f *fakeProvider) Fetch(ctx context.Context, instrument string, start, end time.Time, interval string) (market.Table, error) {
	return market.Table{Source: f.name}, nil
}

func TestClassify(t *testing.T) {
	cases := []struct {
		in   string
		want MarketClass
	}{
		{"600519", MarketCN},
		{"000001", MarketCN},
		{"600519.SS", MarketCN},
		{"600519.SH", MarketCN},
		{"000001.SZ", MarketCN},
		{"830799.BJ", MarketCN},
		{"sh600519", MarketCN},
		{"SZ000001", MarketCN},
		{"0700.HK", MarketHK},
		{"9988.HK", MarketHK},
		{"BTCUSDT", MarketCrypto},
		{"BTC/USDT", MarketCrypto},
		{"ETH-USD", MarketCrypto},
		{"SOL_USDC", MarketCrypto},
		{"AAPL", MarketUS},
		{"BRK.B", MarketUS},
		{"SPY", MarketUS},
		{"", MarketUS},
		{"ABCDEF.HK", MarketUS}, // non-numeric base
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(tc.in), "input %q", tc.in)
	}
}

func testConfig() *config.Config {
	return &config.Config{Markets: config.MarketsConfig{
		CN:     "sina,tushare",
		US:     "yahoo,stooq",
		HK:     "yahoo",
		Crypto: "binance,yahoo",
	}}
}

func testRegistry() *provider.Registry {
	return provider.NewRegistry(
		&fakeProvider{name: "sina", intervals: map[string]bool{"1d": true, "5m": true}},
		&fakeProvider{name: "tushare", intervals: map[string]bool{"1d": true, "1m": true}},
		&fakeProvider{name: "yahoo"},
		&fakeProvider{name: "stooq", intervals: map[string]bool{"1d": true}},
		&fakeProvider{name: "binance", intervals: map[string]bool{"1d": true, "1h": true}},
	)
}

func names(ps []provider.Provider) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.Name())
	}
	return out
}

func TestResolveByMarket(t *testing.T) {
	r := New(testRegistry(), testConfig())

	// CN daily: preferred order first, then every other supporting provider
	got := names(r.Resolve("600519", "1d", nil))
	require.GreaterOrEqual(t, len(got), 2)
	assert.Equal(t, []string{"sina", "tushare"}, got[:2])
	assert.Contains(t, got, "yahoo")

	got = names(r.Resolve("AAPL", "1d", nil))
	assert.Equal(t, []string{"yahoo", "stooq"}, got[:2])

	got = names(r.Resolve("BTCUSDT", "1d", nil))
	assert.Equal(t, []string{"binance", "yahoo"}, got[:2])
}

func TestResolveFiltersByInterval(t *testing.T) {
	r := New(testRegistry(), testConfig())

	// stooq is daily-only and must not appear for hourly requests
	got := names(r.Resolve("AAPL", "1h", nil))
	assert.NotContains(t, got, "stooq")
	assert.Contains(t, got, "yahoo")
}

func TestResolveExplicitListWins(t *testing.T) {
	r := New(testRegistry(), testConfig())

	got := names(r.Resolve("600519", "1d", []string{"Stooq", "yahoo"}))
	assert.Equal(t, []string{"stooq", "yahoo"}, got)

	// unknown names are skipped, not fatal
	got = names(r.Resolve("600519", "1d", []string{"nope", "yahoo"}))
	assert.Equal(t, []string{"yahoo"}, got)

	// duplicates collapse
	got = names(r.Resolve("600519", "1d", []string{"yahoo", "yahoo"}))
	assert.Equal(t, []string{"yahoo"}, got)
}

func TestResolvePadsWithRemainingProviders(t *testing.T) {
	r := New(testRegistry(), testConfig())

	// only yahoo accepts 1mo; the CN preferred order contributes nothing
	got := names(r.Resolve("600519", "1mo", nil))
	assert.Equal(t, []string{"yahoo"}, got)
}

func TestResolveUniversalFallback(t *testing.T) {
	// no provider supports the interval: the universal default is returned
	// alone as a last resort
	reg := provider.NewRegistry(
		&fakeProvider{name: "yahoo", intervals: map[string]bool{"1d": true}},
		&fakeProvider{name: "stooq", intervals: map[string]bool{"1d": true}},
	)
	r := New(reg, testConfig())
	got := names(r.Resolve("AAPL", "45m", nil))
	assert.Equal(t, []string{"yahoo"}, got)
}

func TestResolveEmptyWhenNothingRegistered(t *testing.T) {
	r := New(provider.NewRegistry(), testConfig())
	assert.Empty(t, r.Resolve("AAPL", "1d", nil))
}
