package cache

import (
	"context"
	"time"

	"candlehub/internal/config"
	"candlehub/internal/logger"
	"candlehub/internal/market"
)

// TTLPolicy maps an interval class to a TTL, with optional per-provider
// overrides taking precedence.
type TTLPolicy struct {
	QuoteFast   time.Duration
	Intraday    time.Duration
	Hourly      time.Duration
	Daily       time.Duration
	PerProvider map[string]time.Duration
}

func (p TTLPolicy) For(providerName, interval string) time.Duration {
	if ttl, ok := p.PerProvider[providerName]; ok && ttl > 0 {
		return ttl
	}
	switch market.ClassOf(interval) {
	case market.ClassSubMinute:
		return p.QuoteFast
	case market.ClassIntraday:
		return p.Intraday
	case market.ClassHourly:
		return p.Hourly
	default:
		return p.Daily
	}
}

// Manager reads tiers in order (first hit wins, backfilling higher tiers)
// and writes through every enabled tier. A corrupt entry in any tier is a
// miss, never an error.
type Manager struct {
	tiers   []Tier
	file    *FileTier
	policy  TTLPolicy
	enabled bool
	now     func() time.Time
}

func NewManager(tiers []Tier, file *FileTier, policy TTLPolicy) *Manager {
	return &Manager{tiers: tiers, file: file, policy: policy, enabled: true, now: time.Now}
}

// Build wires the tier stack from configuration. Optional tiers that cannot
// connect are skipped with a warning; the file tier is always present.
func Build(cfg *config.Config) *Manager {
	var tiers []Tier
	if cfg.Cache.Redis.Enabled {
		if t, err := NewRedisTier(cfg.Cache.Redis); err != nil {
			logger.Warnf("cache: redis tier disabled: %v", err)
		} else {
			tiers = append(tiers, t)
		}
	}
	if cfg.Cache.Mongo.Enabled {
		if t, err := NewMongoTier(cfg.Cache.Mongo); err != nil {
			logger.Warnf("cache: mongo tier disabled: %v", err)
		} else {
			tiers = append(tiers, t)
		}
	}
	file := NewFileTier(cfg.Cache.Dir)
	tiers = append(tiers, file)

	overrides := make(map[string]time.Duration)
	for name, secs := range cfg.ProviderTTLOverrides() {
		overrides[name] = time.Duration(secs) * time.Second
	}
	policy := TTLPolicy{
		QuoteFast:   time.Duration(cfg.Cache.TTL.QuoteFast) * time.Second,
		Intraday:    time.Duration(cfg.Cache.TTL.Intraday) * time.Second,
		Hourly:      time.Duration(cfg.Cache.TTL.Hourly) * time.Second,
		Daily:       time.Duration(cfg.Cache.TTL.Daily) * time.Second,
		PerProvider: overrides,
	}
	m := NewManager(tiers, file, policy)
	m.enabled = cfg.Cache.Enabled
	return m
}

// Load returns the cached table and its metadata, normalized, from the
// fastest tier that has it. A hit found only in a lower tier is backfilled
// into the tiers above it.
func (m *Manager) Load(ctx context.Context, key Key) (market.Table, Meta, bool) {
	if !m.enabled {
		return market.Table{}, Meta{}, false
	}
	for i, tier := range m.tiers {
		payload, ok := tier.Get(ctx, key)
		if !ok {
			continue
		}
		t, meta, err := Decode(payload)
		if err != nil {
			logger.Warnf("cache: corrupt entry in %s tier for %s: %v", tier.Name(), key, err)
			continue
		}
		if i > 0 {
			ttl := m.policy.For(key.Provider, key.Interval)
			for _, upper := range m.tiers[:i] {
				upper.Set(ctx, key, payload, ttl)
			}
		}
		return t.Normalize(), meta, true
	}
	return market.Table{}, Meta{}, false
}

// Store writes the table through every enabled tier, stamping cached-at now.
func (m *Manager) Store(ctx context.Context, key Key, t market.Table) {
	if !m.enabled || t.Empty() {
		return
	}
	payload := Encode(t, m.now())
	ttl := m.policy.For(key.Provider, key.Interval)
	for _, tier := range m.tiers {
		tier.Set(ctx, key, payload, ttl)
	}
}

// Fresh reports whether a cached-at stamp is still within the TTL window
// for this key.
func (m *Manager) Fresh(key Key, meta Meta) bool {
	ttl := m.policy.For(key.Provider, key.Interval)
	if ttl <= 0 {
		return false
	}
	age := m.now().Sub(time.Unix(meta.CachedAt, 0))
	return age < ttl
}

// Clear removes the entry from every tier.
func (m *Manager) Clear(ctx context.Context, key Key) {
	for _, tier := range m.tiers {
		tier.Delete(ctx, key)
	}
}

// TTLFor exposes the effective TTL for a key, mainly for logging and tests.
func (m *Manager) TTLFor(key Key) time.Duration {
	return m.policy.For(key.Provider, key.Interval)
}
