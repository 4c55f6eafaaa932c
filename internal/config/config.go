// Package config reads the process configuration from environment-style
// key/value pairs, consumed once at startup. A .env file is honored when
// present. Malformed values fall back to their documented defaults with a
// warning; loading never aborts the process.
package config

import (
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"candlehub/internal/logger"
)

type Config struct {
	LogLevel  string                 `mapstructure:"log_level"`
	Watchlist string                 `mapstructure:"watchlist"`
	Batch     BatchConfig            `mapstructure:"batch"`
	Cache     CacheConfig            `mapstructure:"cache"`
	Providers ProvidersConfig        `mapstructure:"providers"`
	Limits    map[string]LimitConfig `mapstructure:"limits"`
	Markets   MarketsConfig          `mapstructure:"markets"`
}

type BatchConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

type CacheConfig struct {
	Enabled bool        `mapstructure:"enabled"`
	Dir     string      `mapstructure:"dir"`
	Redis   RedisConfig `mapstructure:"redis"`
	Mongo   MongoConfig `mapstructure:"mongo"`
	TTL     TTLConfig   `mapstructure:"ttl"`
}

type RedisConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	DB      int    `mapstructure:"db"`
}

type MongoConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

// TTLConfig holds TTL seconds per interval class plus raw per-provider
// overrides in "sina=120,tushare=600" form.
type TTLConfig struct {
	QuoteFast    int    `mapstructure:"quote_fast"`
	Intraday     int    `mapstructure:"intraday"`
	Hourly       int    `mapstructure:"hourly"`
	Daily        int    `mapstructure:"daily"`
	RawOverrides string `mapstructure:"provider_overrides"`
}

type ProvidersConfig struct {
	YahooDisable   bool   `mapstructure:"yahoo_disable"`
	SinaDisable    bool   `mapstructure:"sina_disable"`
	StooqDisable   bool   `mapstructure:"stooq_disable"`
	TushareToken   string `mapstructure:"tushare_token"`
	BinanceEnabled bool   `mapstructure:"binance_enabled"`
}

type LimitConfig struct {
	RPM               int     `mapstructure:"rpm"`
	PerSymbolInterval float64 `mapstructure:"min_interval"` // seconds
}

// MarketsConfig carries the preferred provider ordering per home market as
// raw comma-separated lists.
type MarketsConfig struct {
	CN     string `mapstructure:"cn"`
	US     string `mapstructure:"us"`
	HK     string `mapstructure:"hk"`
	Crypto string `mapstructure:"crypto"`
}

type binding struct {
	key     string
	env     string
	def     any
	numeric bool
}

var bindings = []binding{
	{"log_level", "LOG_LEVEL", "info", false},
	{"watchlist", "WATCHLIST_PATH", "data/watchlist.json", false},
	{"batch.concurrency", "BATCH_CONCURRENCY", 8, true},

	{"cache.enabled", "CACHE_ENABLED", true, false},
	{"cache.dir", "CACHE_DIR", "./cache", false},
	{"cache.redis.enabled", "REDIS_ENABLED", false, false},
	{"cache.redis.host", "REDIS_HOST", "127.0.0.1", false},
	{"cache.redis.port", "REDIS_PORT", 6379, true},
	{"cache.redis.db", "REDIS_DB", 0, true},
	{"cache.mongo.enabled", "MONGO_ENABLED", false, false},
	{"cache.mongo.uri", "MONGO_URI", "mongodb://localhost:27017", false},
	{"cache.mongo.database", "MONGO_DB", "candlehub_cache", false},
	{"cache.mongo.collection", "MONGO_COLLECTION", "timeseries_cache", false},
	{"cache.ttl.quote_fast", "TTL_QUOTE_FAST", 30, true},
	{"cache.ttl.intraday", "TTL_INTRADAY", 60, true},
	{"cache.ttl.hourly", "TTL_HOURLY", 300, true},
	{"cache.ttl.daily", "TTL_DAILY", 3600, true},
	{"cache.ttl.provider_overrides", "TTL_PROVIDER_OVERRIDES", "", false},

	{"providers.yahoo_disable", "YAHOO_DISABLE", false, false},
	{"providers.sina_disable", "SINA_DISABLE", false, false},
	{"providers.stooq_disable", "STOOQ_DISABLE", false, false},
	{"providers.tushare_token", "TUSHARE_TOKEN", "", false},
	{"providers.binance_enabled", "BINANCE_ENABLED", false, false},

	{"limits.yahoo.rpm", "YAHOO_MAX_RPM", 30, true},
	{"limits.yahoo.min_interval", "YAHOO_PER_SYMBOL_MIN_INTERVAL", 10.0, true},
	{"limits.sina.rpm", "SINA_MAX_RPM", 20, true},
	{"limits.sina.min_interval", "SINA_PER_SYMBOL_MIN_INTERVAL", 3.0, true},
	{"limits.stooq.rpm", "STOOQ_MAX_RPM", 20, true},
	{"limits.stooq.min_interval", "STOOQ_PER_SYMBOL_MIN_INTERVAL", 5.0, true},
	{"limits.tushare.rpm", "TUSHARE_MAX_RPM", 450, true},
	{"limits.tushare.min_interval", "TUSHARE_PER_SYMBOL_MIN_INTERVAL", 2.0, true},
	{"limits.binance.rpm", "BINANCE_MAX_RPM", 1100, true},
	{"limits.binance.min_interval", "BINANCE_PER_SYMBOL_MIN_INTERVAL", 0.0, true},

	{"markets.cn", "CN_PROVIDER_ORDER", "sina,tushare", false},
	{"markets.us", "US_PROVIDER_ORDER", "yahoo,stooq", false},
	{"markets.hk", "HK_PROVIDER_ORDER", "yahoo", false},
	{"markets.crypto", "CRYPTO_PROVIDER_ORDER", "binance,yahoo", false},
}

// Load builds the Config from the environment. It never returns an error:
// undecodable values revert to defaults and are logged.
func Load() *Config {
	_ = godotenv.Load()

	v := viper.New()
	for _, b := range bindings {
		v.SetDefault(b.key, b.def)
		_ = v.BindEnv(b.key, b.env)
		if b.numeric {
			raw := strings.TrimSpace(v.GetString(b.key))
			if raw == "" {
				continue
			}
			if _, err := strconv.ParseFloat(raw, 64); err != nil {
				logger.Warnf("config: %s=%q is not numeric, using default %v", b.env, raw, b.def)
				v.Set(b.key, b.def)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
	}); err != nil {
		logger.Errorf("config: decode failed, falling back to defaults: %v", err)
		cfg = defaultConfig()
	}
	cfg.clamp()
	return &cfg
}

func defaultConfig() Config {
	v := viper.New()
	for _, b := range bindings {
		v.SetDefault(b.key, b.def)
	}
	var cfg Config
	_ = v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
	})
	return cfg
}

func (c *Config) clamp() {
	if c.Batch.Concurrency <= 0 {
		c.Batch.Concurrency = 8
	}
	if c.Cache.Dir == "" {
		c.Cache.Dir = "./cache"
	}
	for name, lim := range c.Limits {
		if lim.RPM < 0 {
			lim.RPM = 0
		}
		if lim.PerSymbolInterval < 0 {
			lim.PerSymbolInterval = 0
		}
		c.Limits[name] = lim
	}
}

// TushareTokens splits the configured token pool.
func (c *Config) TushareTokens() []string {
	return splitList(c.Providers.TushareToken)
}

// MarketOrder returns the configured preferred provider ordering for a home
// market ("cn", "us", "hk", "crypto").
func (c *Config) MarketOrder(marketName string) []string {
	switch strings.ToLower(marketName) {
	case "cn":
		return splitList(c.Markets.CN)
	case "us":
		return splitList(c.Markets.US)
	case "hk":
		return splitList(c.Markets.HK)
	case "crypto":
		return splitList(c.Markets.Crypto)
	}
	return nil
}

// ProviderTTLOverrides parses "sina=120,tushare=600" into per-provider TTL
// seconds. Malformed entries are skipped with a warning.
func (c *Config) ProviderTTLOverrides() map[string]int {
	out := make(map[string]int)
	for _, part := range splitList(c.Cache.TTL.RawOverrides) {
		name, val, ok := strings.Cut(part, "=")
		if !ok {
			logger.Warnf("config: ignoring malformed TTL override %q", part)
			continue
		}
		secs, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil || secs <= 0 {
			logger.Warnf("config: ignoring malformed TTL override %q", part)
			continue
		}
		out[strings.ToLower(strings.TrimSpace(name))] = secs
	}
	return out
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
