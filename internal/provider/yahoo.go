package provider

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"candlehub/internal/market"
)

// Yahoo is the broad-coverage global source (Yahoo Finance v8 chart API).
// It accepts every interval and serves as the universal fallback.
type Yahoo struct {
	BaseURL string
	Client  *http.Client
}

const yahooName = "yahoo"

var yahooIntervals = map[string]string{
	"1m": "1m", "2m": "2m", "5m": "5m", "15m": "15m", "30m": "30m",
	"1h": "60m", "90m": "90m", "1d": "1d", "5d": "5d", "1w": "1wk", "1mo": "1mo",
}

func NewYahoo() *Yahoo {
	return &Yahoo{
		BaseURL: "https://query1.finance.yahoo.com",
		Client:  &http.Client{Timeout: 20 * time.Second},
	}
}

func (y *Yahoo) Name() string { return yahooName }

func (y *Yahoo) Supports(interval string) bool {
	_, ok := yahooIntervals[strings.ToLower(strings.TrimSpace(interval))]
	return ok
}

// yahooSymbol maps generic tickers to Yahoo's exchange suffixes. Shanghai
// listings use .SS on Yahoo, not the .SH form common elsewhere.
func yahooSymbol(instrument string) string {
	sym := strings.ToUpper(strings.TrimSpace(instrument))
	if strings.HasSuffix(sym, ".SH") {
		return strings.TrimSuffix(sym, ".SH") + ".SS"
	}
	return sym
}

func (y *Yahoo) Fetch(ctx context.Context, instrument string, start, end time.Time, interval string) (market.Table, error) {
	iv, ok := yahooIntervals[strings.ToLower(strings.TrimSpace(interval))]
	if !ok {
		return market.Table{}, noDataErr(yahooName, instrument, "unsupported interval "+interval)
	}
	if end.IsZero() {
		end = time.Now().UTC()
	}
	if start.IsZero() {
		start = end.Add(-defaultLookback(interval))
	}

	q := url.Values{}
	q.Set("interval", iv)
	q.Set("period1", fmt.Sprintf("%d", start.Unix()))
	q.Set("period2", fmt.Sprintf("%d", end.Unix()))
	q.Set("events", "history")
	u := fmt.Sprintf("%s/v8/finance/chart/%s?%s", y.BaseURL, url.PathEscape(yahooSymbol(instrument)), q.Encode())

	body, err := httpGet(ctx, y.Client, u)
	if err != nil {
		return market.Table{}, remoteErr(yahooName, instrument, err)
	}

	root := gjson.ParseBytes(body)
	if desc := root.Get("chart.error.description"); desc.Exists() && desc.String() != "" {
		return market.Table{}, noDataErr(yahooName, instrument, desc.String())
	}
	result := root.Get("chart.result.0")
	if !result.Exists() {
		return market.Table{}, noDataErr(yahooName, instrument, "empty chart result")
	}

	stamps := result.Get("timestamp").Array()
	quote := result.Get("indicators.quote.0")
	opens := quote.Get("open").Array()
	highs := quote.Get("high").Array()
	lows := quote.Get("low").Array()
	closes := quote.Get("close").Array()
	volumes := quote.Get("volume").Array()

	rows := make([]market.Candle, 0, len(stamps))
	for i, ts := range stamps {
		if i >= len(opens) || i >= len(highs) || i >= len(lows) || i >= len(closes) {
			break
		}
		// Yahoo pads unfilled buckets with nulls.
		if opens[i].Type == gjson.Null || closes[i].Type == gjson.Null {
			continue
		}
		vol := math.NaN()
		if i < len(volumes) && volumes[i].Type != gjson.Null {
			vol = volumes[i].Float()
		}
		rows = append(rows, market.Candle{
			Time:   time.Unix(ts.Int(), 0).UTC(),
			Open:   opens[i].Float(),
			High:   highs[i].Float(),
			Low:    lows[i].Float(),
			Close:  closes[i].Float(),
			Volume: vol,
		})
	}
	if len(rows) == 0 {
		return market.Table{}, noDataErr(yahooName, instrument, "no rows in range")
	}
	return market.Table{Source: yahooName, Rows: rows}.Normalize(), nil
}

func defaultLookback(interval string) time.Duration {
	switch market.ClassOf(interval) {
	case market.ClassSubMinute, market.ClassIntraday:
		return 7 * 24 * time.Hour
	case market.ClassHourly:
		return 60 * 24 * time.Hour
	default:
		return 2 * 365 * 24 * time.Hour
	}
}

func httpGet(ctx context.Context, client *http.Client, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; candlehub/1.0)")
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(body), 160))
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
