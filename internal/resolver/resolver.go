// Package resolver orders the providers worth trying for a given
// instrument/interval: explicit caller choice first, otherwise a
// market-classification heuristic with configurable preferred orderings,
// always padded with every remaining registered provider so the list is
// never empty while anything supports the interval.
package resolver

import (
	"strings"

	"candlehub/internal/config"
	"candlehub/internal/logger"
	"candlehub/internal/provider"
)

// MarketClass is the instrument's home market, judged from the identifier's
// lexical shape alone.
type MarketClass string

const (
	MarketCN     MarketClass = "cn"
	MarketHK     MarketClass = "hk"
	MarketCrypto MarketClass = "crypto"
	MarketUS     MarketClass = "us"
)

// Classify guesses the home market. 6-digit codes (optionally with CN
// exchange suffixes/prefixes) are mainland A-shares, short numeric .HK codes
// are Hong Kong, recognizable pair spellings are crypto, everything else
// defaults to the US/global bucket.
func Classify(instrument string) MarketClass {
	sym := strings.ToUpper(strings.TrimSpace(instrument))
	if sym == "" {
		return MarketUS
	}
	if base, suffix, ok := strings.Cut(sym, "."); ok {
		switch suffix {
		case "SS", "SH", "SZ", "BJ":
			if len(base) == 6 && isDigits(base) {
				return MarketCN
			}
		case "HK":
			if len(base) >= 1 && len(base) <= 5 && isDigits(base) {
				return MarketHK
			}
		}
		return MarketUS
	}
	if len(sym) == 8 && isDigits(sym[2:]) {
		switch sym[:2] {
		case "SH", "SZ", "BJ":
			return MarketCN
		}
	}
	if len(sym) == 6 && isDigits(sym) {
		return MarketCN
	}
	if isCryptoPair(sym) {
		return MarketCrypto
	}
	return MarketUS
}

var cryptoQuotes = []string{"USDT", "USDC", "BTC", "ETH", "BUSD"}

func isCryptoPair(sym string) bool {
	compact := strings.NewReplacer("/", "", "-", "", "_", "").Replace(sym)
	if compact != sym && len(compact) >= 5 {
		// explicit pair separator, e.g. BTC/USDT or ETH-USD
		for _, q := range append(cryptoQuotes, "USD") {
			if strings.HasSuffix(compact, q) {
				return true
			}
		}
		return false
	}
	for _, q := range cryptoQuotes {
		if strings.HasSuffix(sym, q) && len(sym) > len(q)+1 {
			return true
		}
	}
	return false
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}

// Resolver turns an instrument and interval into an ordered candidate list.
type Resolver struct {
	registry *provider.Registry
	orders   map[MarketClass][]string
	// universal is the last-resort provider known to support all intervals.
	universal string
}

func New(registry *provider.Registry, cfg *config.Config) *Resolver {
	orders := map[MarketClass][]string{
		MarketCN:     cfg.MarketOrder("cn"),
		MarketUS:     cfg.MarketOrder("us"),
		MarketHK:     cfg.MarketOrder("hk"),
		MarketCrypto: cfg.MarketOrder("crypto"),
	}
	return &Resolver{registry: registry, orders: orders, universal: "yahoo"}
}

// Resolve returns the providers to attempt, in order. An explicit name list
// wins verbatim (unknown names skipped with a warning); otherwise the home
// market's preferred ordering is used, padded with every remaining
// registered provider. Everything is filtered by interval support. When no
// registered provider supports the interval the universal default is
// returned alone, if registered.
func (r *Resolver) Resolve(instrument, interval string, explicit []string) []provider.Provider {
	if len(explicit) > 0 {
		return r.fromNames(explicit, interval, true)
	}

	preferred := r.orders[Classify(instrument)]
	out := r.fromNames(preferred, interval, false)
	seen := make(map[string]bool, len(out))
	for _, p := range out {
		seen[p.Name()] = true
	}
	for _, p := range r.registry.All() {
		if seen[p.Name()] || !p.Supports(interval) {
			continue
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		if p, ok := r.registry.Get(r.universal); ok {
			logger.Warnf("resolver: no provider supports interval %q, falling back to %s", interval, r.universal)
			out = append(out, p)
		}
	}
	return out
}

func (r *Resolver) fromNames(names []string, interval string, warnUnknown bool) []provider.Provider {
	out := make([]provider.Provider, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		p, ok := r.registry.Get(name)
		if !ok {
			if warnUnknown {
				logger.Warnf("resolver: unknown provider %q requested, skipping", name)
			}
			continue
		}
		if !p.Supports(interval) {
			continue
		}
		out = append(out, p)
	}
	return out
}
