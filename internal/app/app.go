// Package app assembles the process-wide singletons — provider registry,
// rate limiter, cache tiers, resolver, fetcher — explicitly, once, so tests
// can build the same graph with fresh state.
package app

import (
	"candlehub/internal/cache"
	"candlehub/internal/config"
	"candlehub/internal/fetcher"
	"candlehub/internal/provider"
	"candlehub/internal/ratelimit"
	"candlehub/internal/resolver"
)

type App struct {
	Config   *config.Config
	Registry *provider.Registry
	Limits   *ratelimit.Limiter
	Cache    *cache.Manager
	Resolver *resolver.Resolver
	Fetcher  *fetcher.Fetcher
}

func New(cfg *config.Config) *App {
	registry := provider.BuildRegistry(cfg)
	limits := ratelimit.FromConfig(cfg)
	cacheMgr := cache.Build(cfg)
	res := resolver.New(registry, cfg)
	return &App{
		Config:   cfg,
		Registry: registry,
		Limits:   limits,
		Cache:    cacheMgr,
		Resolver: res,
		Fetcher:  fetcher.New(res, cacheMgr, limits),
	}
}
