package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"candlehub/internal/config"
)

func TestBuildRegistryDefaults(t *testing.T) {
	reg := BuildRegistry(&config.Config{})

	// no tushare token, binance opt-in: only the three open sources
	assert.Equal(t, []string{"sina", "yahoo", "stooq"}, reg.Names())
}

func TestBuildRegistryWithTokenAndBinance(t *testing.T) {
	cfg := &config.Config{}
	cfg.Providers.TushareToken = "tok1,tok2"
	cfg.Providers.BinanceEnabled = true

	reg := BuildRegistry(cfg)
	assert.Equal(t, []string{"sina", "tushare", "yahoo", "stooq", "binance"}, reg.Names())
}

func TestBuildRegistryDisables(t *testing.T) {
	cfg := &config.Config{}
	cfg.Providers.SinaDisable = true
	cfg.Providers.YahooDisable = true
	cfg.Providers.StooqDisable = true

	reg := BuildRegistry(cfg)
	assert.Equal(t, 0, reg.Len())
}
