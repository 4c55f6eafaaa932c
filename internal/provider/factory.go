package provider

import (
	"candlehub/internal/config"
	"candlehub/internal/logger"
)

// BuildRegistry constructs every provider enabled by configuration.
// Providers with missing credentials are excluded here, at startup, so a
// per-call ProviderUnavailable condition never exists. Registration order is
// the generic fallback order used by the resolver.
func BuildRegistry(cfg *config.Config) *Registry {
	var providers []Provider

	if cfg.Providers.SinaDisable {
		logger.Infof("provider sina disabled by configuration")
	} else {
		providers = append(providers, NewSina())
	}

	if tokens := cfg.TushareTokens(); len(tokens) == 0 {
		logger.Warnf("provider tushare excluded: no TUSHARE_TOKEN configured")
	} else {
		providers = append(providers, NewTushare(tokens))
	}

	if cfg.Providers.YahooDisable {
		logger.Infof("provider yahoo disabled by configuration")
	} else {
		providers = append(providers, NewYahoo())
	}

	if cfg.Providers.StooqDisable {
		logger.Infof("provider stooq disabled by configuration")
	} else {
		providers = append(providers, NewStooq())
	}

	if cfg.Providers.BinanceEnabled {
		providers = append(providers, NewBinance())
	}

	reg := NewRegistry(providers...)
	logger.Infof("provider registry ready: %v", reg.Names())
	return reg
}
