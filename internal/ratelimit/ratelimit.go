// Package ratelimit caps aggregate outbound throughput per provider. One
// Limiter is built from configuration at startup and shared by every
// concurrent caller; that sharing is what enforces the quota regardless of
// caller-side concurrency.
package ratelimit

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"candlehub/internal/config"
)

type Config struct {
	RPM               int
	PerSymbolInterval time.Duration
}

func (c Config) enabled() bool { return c.RPM > 0 }

// Limiter holds a token bucket per provider (capacity = RPM, refill RPM/60
// per second) plus an optional per-(provider, instrument) minimum-interval
// gate. Acquire and Wait only ever delay; they fail only on ctx cancellation.
type Limiter struct {
	mu      sync.Mutex
	configs map[string]Config
	buckets map[string]*rate.Limiter
	gates   map[string]*symbolGate
}

func New(configs map[string]Config) *Limiter {
	l := &Limiter{
		configs: make(map[string]Config, len(configs)),
		buckets: make(map[string]*rate.Limiter, len(configs)),
		gates:   make(map[string]*symbolGate, len(configs)),
	}
	for name, cfg := range configs {
		l.configs[strings.ToLower(name)] = cfg
	}
	return l
}

// FromConfig converts the process configuration into a shared Limiter.
func FromConfig(cfg *config.Config) *Limiter {
	configs := make(map[string]Config, len(cfg.Limits))
	for name, lim := range cfg.Limits {
		configs[name] = Config{
			RPM:               lim.RPM,
			PerSymbolInterval: time.Duration(lim.PerSymbolInterval * float64(time.Second)),
		}
	}
	return New(configs)
}

// Acquire consumes one token from the provider's bucket, suspending until
// one is available. Providers without a configured limit pass through.
func (l *Limiter) Acquire(ctx context.Context, providerName string) error {
	bucket := l.bucketFor(providerName)
	if bucket == nil {
		return nil
	}
	return bucket.Wait(ctx)
}

// Wait enforces the per-(provider, instrument) minimum call interval.
// A zero configured interval makes it a no-op.
func (l *Limiter) Wait(ctx context.Context, providerName, instrument string) error {
	gate := l.gateFor(providerName)
	if gate == nil {
		return nil
	}
	key := strings.ToLower(providerName) + ":" + strings.ToUpper(strings.TrimSpace(instrument))
	return gate.wait(ctx, key)
}

func (l *Limiter) bucketFor(providerName string) *rate.Limiter {
	name := strings.ToLower(providerName)
	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok := l.buckets[name]; ok {
		return b
	}
	cfg, ok := l.configs[name]
	if !ok || !cfg.enabled() {
		return nil
	}
	burst := cfg.RPM
	if burst < 1 {
		burst = 1
	}
	b := rate.NewLimiter(rate.Limit(float64(cfg.RPM)/60.0), burst)
	l.buckets[name] = b
	return b
}

func (l *Limiter) gateFor(providerName string) *symbolGate {
	name := strings.ToLower(providerName)
	l.mu.Lock()
	defer l.mu.Unlock()
	if g, ok := l.gates[name]; ok {
		return g
	}
	cfg, ok := l.configs[name]
	if !ok || cfg.PerSymbolInterval <= 0 {
		return nil
	}
	g := newSymbolGate(cfg.PerSymbolInterval)
	l.gates[name] = g
	return g
}

// symbolGate spaces out calls for the same (provider, instrument) pair.
type symbolGate struct {
	min  time.Duration
	mu   sync.Mutex
	last map[string]time.Time
}

func newSymbolGate(min time.Duration) *symbolGate {
	return &symbolGate{min: min, last: make(map[string]time.Time)}
}

// maxGateSleep bounds a single suspension so cancellation stays responsive.
const maxGateSleep = 5 * time.Second

func (g *symbolGate) wait(ctx context.Context, key string) error {
	for {
		g.mu.Lock()
		now := time.Now()
		last, seen := g.last[key]
		if !seen || now.Sub(last) >= g.min {
			g.last[key] = now
			g.mu.Unlock()
			return nil
		}
		remaining := g.min - now.Sub(last)
		g.mu.Unlock()

		if remaining > maxGateSleep {
			remaining = maxGateSleep
		}
		timer := time.NewTimer(remaining)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
