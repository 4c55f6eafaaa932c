package fetcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"candlehub/internal/market"
)

func TestNeedsRefresh(t *testing.T) {
	now := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	tableEndingAt := func(ts time.Time) market.Table {
		return market.Table{Rows: []market.Candle{{Time: ts}}}
	}

	// empty table always refreshes
	assert.True(t, needsRefresh(market.Table{}, "1d", time.Time{}, now))

	// last bar within twice the spacing of now: current
	assert.False(t, needsRefresh(tableEndingAt(now.Add(-12*time.Hour)), "1d", time.Time{}, now))
	assert.False(t, needsRefresh(tableEndingAt(now.Add(-47*time.Hour)), "1d", time.Time{}, now))
	assert.True(t, needsRefresh(tableEndingAt(now.Add(-49*time.Hour)), "1d", time.Time{}, now))

	// a bounded request is satisfied once the last bar covers end
	end := now.Add(-30 * 24 * time.Hour)
	assert.False(t, needsRefresh(tableEndingAt(end.Add(-12*time.Hour)), "1d", end, now))
	assert.True(t, needsRefresh(tableEndingAt(end.Add(-3*24*time.Hour)), "1d", end, now))

	// intraday spacing is much tighter
	assert.False(t, needsRefresh(tableEndingAt(now.Add(-5*time.Minute)), "5m", time.Time{}, now))
	assert.True(t, needsRefresh(tableEndingAt(now.Add(-time.Hour)), "5m", time.Time{}, now))
}
