package provider

import (
	"context"
	"time"

	"candlehub/internal/market"
)

// Provider wraps exactly one upstream market-data source. Implementations
// normalize the requested instrument into the source's own symbol format and
// return candles already in canonical Table shape (UTC, sorted, deduped).
// All network I/O must respect ctx.
type Provider interface {
	Name() string
	Supports(interval string) bool
	Fetch(ctx context.Context, instrument string, start, end time.Time, interval string) (market.Table, error)
}
