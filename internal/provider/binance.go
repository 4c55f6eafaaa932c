package provider

import (
	"context"
	"strconv"
	"strings"
	"time"

	gobinance "github.com/adshao/go-binance/v2"

	"candlehub/internal/market"
)

// Binance is an optional crypto source built on the go-binance SDK. It is
// registered only when enabled in configuration.
type Binance struct {
	client *gobinance.Client
}

const binanceName = "binance"

var binanceIntervals = map[string]string{
	"1m": "1m", "3m": "3m", "5m": "5m", "15m": "15m", "30m": "30m",
	"1h": "1h", "2h": "2h", "4h": "4h", "6h": "6h", "12h": "12h",
	"1d": "1d", "3d": "3d", "1w": "1w",
}

func NewBinance() *Binance {
	return &Binance{client: gobinance.NewClient("", "")}
}

func (b *Binance) Name() string { return binanceName }

func (b *Binance) Supports(interval string) bool {
	_, ok := binanceIntervals[strings.ToLower(strings.TrimSpace(interval))]
	return ok
}

// binanceSymbol strips pair separators and maps bare USD quotes to USDT,
// so BTC/USDT, BTC-USD and btcusdt all resolve to BTCUSDT.
func binanceSymbol(instrument string) string {
	sym := strings.ToUpper(strings.TrimSpace(instrument))
	sym = strings.NewReplacer("/", "", "-", "", "_", "").Replace(sym)
	if strings.HasSuffix(sym, "USD") {
		sym += "T"
	}
	return sym
}

func (b *Binance) Fetch(ctx context.Context, instrument string, start, end time.Time, interval string) (market.Table, error) {
	iv, ok := binanceIntervals[strings.ToLower(strings.TrimSpace(interval))]
	if !ok {
		return market.Table{}, noDataErr(binanceName, instrument, "unsupported interval "+interval)
	}
	svc := b.client.NewKlinesService().Symbol(binanceSymbol(instrument)).Interval(iv).Limit(1000)
	if !start.IsZero() {
		svc = svc.StartTime(start.UnixMilli())
	}
	if !end.IsZero() {
		svc = svc.EndTime(end.UnixMilli())
	}
	kls, err := svc.Do(ctx)
	if err != nil {
		return market.Table{}, remoteErr(binanceName, instrument, err)
	}
	rows := make([]market.Candle, 0, len(kls))
	for _, kl := range kls {
		if kl == nil {
			continue
		}
		rows = append(rows, market.Candle{
			Time:   time.UnixMilli(kl.OpenTime).UTC(),
			Open:   parseFloat(kl.Open),
			High:   parseFloat(kl.High),
			Low:    parseFloat(kl.Low),
			Close:  parseFloat(kl.Close),
			Volume: parseFloat(kl.Volume),
		})
	}
	if len(rows) == 0 {
		return market.Table{}, noDataErr(binanceName, instrument, "empty kline response")
	}
	return market.Table{Source: binanceName, Rows: rows}.Normalize(), nil
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}
