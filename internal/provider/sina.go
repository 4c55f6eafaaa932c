package provider

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"candlehub/internal/market"
)

// Sina serves mainland A-share quotes from Sina's CN_MarketDataService kline
// endpoint, with daily and intraday bars. Daily data uses scale 240 (one
// mainland trading day is 240 minutes).
type Sina struct {
	BaseURL string
	Client  *http.Client
}

const sinaName = "sina"

var sinaScales = map[string]int{
	"5m": 5, "15m": 15, "30m": 30, "1h": 60, "1d": 240,
}

const sinaMaxRows = 1023

func NewSina() *Sina {
	return &Sina{
		BaseURL: "https://quotes.sina.cn",
		Client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *Sina) Name() string { return sinaName }

func (s *Sina) Supports(interval string) bool {
	_, ok := sinaScales[strings.ToLower(strings.TrimSpace(interval))]
	return ok
}

// SinaSymbol converts the accepted A-share spellings (600519.SS, 600519.SH,
// SZ000001, bare 6-digit codes...) into Sina's exchange-prefixed lower-case
// form. Bare codes classify by leading digit: 5/6/9 Shanghai, 4/8 Beijing,
// otherwise Shenzhen.
func SinaSymbol(instrument string) (string, error) {
	sym := strings.ToLower(strings.TrimSpace(instrument))
	if len(sym) == 8 && (strings.HasPrefix(sym, "sh") || strings.HasPrefix(sym, "sz") || strings.HasPrefix(sym, "bj")) {
		return sym, nil
	}
	if base, suffix, ok := strings.Cut(sym, "."); ok && len(base) == 6 {
		switch suffix {
		case "ss", "sh":
			return "sh" + base, nil
		case "sz":
			return "sz" + base, nil
		case "bj":
			return "bj" + base, nil
		}
	}
	if len(sym) == 6 && isDigits(sym) {
		switch sym[0] {
		case '5', '6', '9':
			return "sh" + sym, nil
		case '4', '8':
			return "bj" + sym, nil
		default:
			return "sz" + sym, nil
		}
	}
	return "", fmt.Errorf("not an A-share code: %q", instrument)
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}

var (
	shanghaiOnce sync.Once
	shanghaiLoc  *time.Location
)

func shanghai() *time.Location {
	shanghaiOnce.Do(func() {
		loc, err := time.LoadLocation("Asia/Shanghai")
		if err != nil {
			loc = time.FixedZone("CST", 8*3600)
		}
		shanghaiLoc = loc
	})
	return shanghaiLoc
}

func (s *Sina) Fetch(ctx context.Context, instrument string, start, end time.Time, interval string) (market.Table, error) {
	scale, ok := sinaScales[strings.ToLower(strings.TrimSpace(interval))]
	if !ok {
		return market.Table{}, noDataErr(sinaName, instrument, "unsupported interval "+interval)
	}
	symbol, err := SinaSymbol(instrument)
	if err != nil {
		return market.Table{}, noDataErr(sinaName, instrument, err.Error())
	}

	u := fmt.Sprintf(
		"%s/cn/api/json_v2.php/CN_MarketDataService.getKLineData?symbol=%s&scale=%d&ma=no&datalen=%d",
		s.BaseURL, symbol, scale, sinaRowCount(start, end, interval),
	)
	body, err := httpGet(ctx, s.Client, u)
	if err != nil {
		return market.Table{}, remoteErr(sinaName, instrument, err)
	}

	arr := gjson.ParseBytes(body)
	if !arr.IsArray() {
		return market.Table{}, remoteErr(sinaName, instrument, fmt.Errorf("unexpected payload: %s", truncate(string(body), 120)))
	}
	loc := shanghai()
	rows := make([]market.Candle, 0, len(arr.Array()))
	for _, item := range arr.Array() {
		ts, err := parseSinaDay(item.Get("day").String(), loc)
		if err != nil {
			continue
		}
		vol := math.NaN()
		if v := item.Get("volume"); v.Exists() && v.String() != "" {
			vol = v.Float()
		}
		rows = append(rows, market.Candle{
			Time:   ts,
			Open:   item.Get("open").Float(),
			High:   item.Get("high").Float(),
			Low:    item.Get("low").Float(),
			Close:  item.Get("close").Float(),
			Volume: vol,
		})
	}
	if len(rows) == 0 {
		return market.Table{}, noDataErr(sinaName, instrument, "empty kline payload")
	}
	t := market.Table{Source: sinaName, Rows: rows}.Normalize().Clip(start, end)
	if t.Empty() {
		return market.Table{}, noDataErr(sinaName, instrument, "no rows in range")
	}
	return t, nil
}

// parseSinaDay handles both "2024-01-02" (daily) and "2024-01-02 10:35:00"
// (minute) stamps, which Sina reports in exchange-local time.
func parseSinaDay(raw string, loc *time.Location) (time.Time, error) {
	layout := "2006-01-02"
	if strings.Contains(raw, ":") {
		layout = "2006-01-02 15:04:05"
	}
	ts, err := time.ParseInLocation(layout, raw, loc)
	if err != nil {
		return time.Time{}, err
	}
	return ts.UTC(), nil
}

func sinaRowCount(start, end time.Time, interval string) int {
	spacing, _ := market.ParseInterval(interval)
	if start.IsZero() || spacing <= 0 {
		if market.ClassOf(interval) == market.ClassDaily {
			return 250
		}
		return sinaMaxRows
	}
	if end.IsZero() {
		end = time.Now().UTC()
	}
	n := int(end.Sub(start)/spacing) + 5
	if n < 1 {
		n = 1
	}
	if n > sinaMaxRows {
		n = sinaMaxRows
	}
	return n
}
