package fetcher

import (
	"time"

	"candlehub/internal/market"
)

// needsRefresh decides whether a cached table warrants a network call. The
// entry is considered current when its last bar already covers the requested
// end, or when the last bar is within twice the interval's expected spacing
// of now.
func needsRefresh(t market.Table, interval string, end time.Time, now time.Time) bool {
	last, ok := t.Last()
	if !ok {
		return true
	}
	spacing, ok := market.ParseInterval(interval)
	if !ok {
		spacing = 24 * time.Hour
	}
	if !end.IsZero() && !last.Time.Before(end.Add(-spacing)) {
		return false
	}
	return now.Sub(last.Time) > 2*spacing
}
