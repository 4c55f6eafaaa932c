// Package fetcher is the single entry point for candle retrieval. It
// sequences resolver -> cache lookup -> freshness check -> rate-limited
// provider call -> merge/persist, degrading to stale cache on provider
// failure and fanning out across instruments with bounded parallelism.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"candlehub/internal/cache"
	"candlehub/internal/logger"
	"candlehub/internal/market"
	"candlehub/internal/provider"
	"candlehub/internal/ratelimit"
	"candlehub/internal/resolver"
)

// ErrNoData signals that every attempted provider answered and none has
// candles for the instrument/interval. Transient trouble (network failures
// with no cache to degrade to) surfaces as a different, joined error.
var ErrNoData = errors.New("no candle data available")

type Request struct {
	Instrument   string
	Interval     string
	Start, End   time.Time
	ForceRefresh bool
	// Providers overrides resolution with an explicit ordered name list.
	Providers []string
}

// Result is a candle table plus where it came from. Stale is set when the
// table was served from cache after the owning provider failed.
type Result struct {
	Table  market.Table
	Source string
	Stale  bool
}

type Fetcher struct {
	resolver *resolver.Resolver
	cache    *cache.Manager
	limits   *ratelimit.Limiter
	now      func() time.Time
}

func New(res *resolver.Resolver, cacheMgr *cache.Manager, limits *ratelimit.Limiter) *Fetcher {
	return &Fetcher{resolver: res, cache: cacheMgr, limits: limits, now: time.Now}
}

// Fetch walks the resolved provider list in order. For each provider it
// consults the cache, skips the network entirely while the entry is fresh,
// otherwise performs a rate-limited fetch, merges with whatever was cached
// (keep-last on duplicate instants) and writes through all tiers. A provider
// failure degrades to the stale cached entry when one exists, else falls
// through to the next provider.
func (f *Fetcher) Fetch(ctx context.Context, req Request) (*Result, error) {
	interval := req.Interval
	if interval == "" {
		interval = "1d"
	}

	candidates := f.resolver.Resolve(req.Instrument, interval, req.Providers)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%s/%s: no provider available: %w", req.Instrument, interval, ErrNoData)
	}

	var failures []error
	allNoData := true
	for _, p := range candidates {
		key := cache.NewKey(p.Name(), req.Instrument, interval)
		cached, meta, haveCache := f.cache.Load(ctx, key)

		if haveCache && !req.ForceRefresh && f.cache.Fresh(key, meta) &&
			!needsRefresh(cached, interval, req.End, f.now()) {
			return &Result{Table: cached.Clip(req.Start, req.End), Source: p.Name()}, nil
		}

		fresh, err := f.fetchLimited(ctx, p, req.Instrument, req.Start, req.End, interval)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if !provider.IsNoData(err) {
				allNoData = false
			}
			failures = append(failures, err)
			if haveCache {
				// Degrade: a stale table beats no table.
				logger.Warnf("fetch %s/%s: %s failed, serving stale cache: %v", req.Instrument, interval, p.Name(), err)
				return &Result{Table: cached.Clip(req.Start, req.End), Source: p.Name(), Stale: true}, nil
			}
			logger.Debugf("fetch %s/%s: %s failed, trying next provider: %v", req.Instrument, interval, p.Name(), err)
			continue
		}

		merged := fresh
		if haveCache {
			merged = cached.Merge(fresh)
		}
		merged.Source = p.Name()
		f.cache.Store(ctx, key, merged)
		return &Result{Table: merged.Clip(req.Start, req.End), Source: p.Name()}, nil
	}

	if allNoData {
		return nil, fmt.Errorf("%s/%s: %w", req.Instrument, interval, ErrNoData)
	}
	return nil, fmt.Errorf("%s/%s: all providers failed: %w", req.Instrument, interval, errors.Join(failures...))
}

func (f *Fetcher) fetchLimited(ctx context.Context, p provider.Provider, instrument string, start, end time.Time, interval string) (market.Table, error) {
	if err := f.limits.Acquire(ctx, p.Name()); err != nil {
		return market.Table{}, err
	}
	if err := f.limits.Wait(ctx, p.Name(), instrument); err != nil {
		return market.Table{}, err
	}
	return p.Fetch(ctx, instrument, start, end, interval)
}
