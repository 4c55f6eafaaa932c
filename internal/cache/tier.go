// Package cache stores serialized candle tables across an ordered stack of
// tiers: redis (fast shared, optional), mongo (document store with TTL,
// optional) and a mandatory local file hierarchy. Entries are keyed by
// (provider, instrument, interval) and are always re-derivable from a
// provider call, so concurrent writers racing on a key are last-write-wins.
package cache

import (
	"context"
	"strings"
	"time"
)

type Key struct {
	Provider   string
	Instrument string
	Interval   string
}

// NewKey normalizes the key parts: provider and interval lower-case,
// instrument upper-case.
func NewKey(provider, instrument, interval string) Key {
	return Key{
		Provider:   strings.ToLower(strings.TrimSpace(provider)),
		Instrument: strings.ToUpper(strings.TrimSpace(instrument)),
		Interval:   strings.ToLower(strings.TrimSpace(interval)),
	}
}

func (k Key) String() string {
	return k.Provider + "::" + k.Instrument + "::" + k.Interval
}

// Tier is one cache layer. Get returns (nil, false) on miss and on any
// tier-local failure; tiers log their own trouble and never surface errors.
type Tier interface {
	Name() string
	Get(ctx context.Context, key Key) ([]byte, bool)
	Set(ctx context.Context, key Key, payload []byte, ttl time.Duration)
	Delete(ctx context.Context, key Key)
}
