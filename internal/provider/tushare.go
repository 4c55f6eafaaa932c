package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"candlehub/internal/logger"
	"candlehub/internal/market"
)

// Tushare is the licensed feed (api.tushare.pro). It supports daily bars plus
// minute-level intraday data and keeps a rotating pool of access tokens,
// advancing to the next token when a response smells like a quota rejection.
type Tushare struct {
	BaseURL string
	Client  *http.Client

	mu     sync.Mutex
	tokens []string
	cur    int
}

const tushareName = "tushare"

var tushareFreqs = map[string]string{
	"1m": "1min", "5m": "5min", "15m": "15min", "30m": "30min", "1h": "60min", "1d": "",
}

func NewTushare(tokens []string) *Tushare {
	pool := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t = strings.TrimSpace(t); t != "" {
			pool = append(pool, t)
		}
	}
	return &Tushare{
		BaseURL: "https://api.tushare.pro",
		Client:  &http.Client{Timeout: 20 * time.Second},
		tokens:  pool,
	}
}

func (t *Tushare) Name() string { return tushareName }

func (t *Tushare) Supports(interval string) bool {
	_, ok := tushareFreqs[strings.ToLower(strings.TrimSpace(interval))]
	return ok
}

func (t *Tushare) token() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.tokens) == 0 {
		return "", false
	}
	return t.tokens[t.cur%len(t.tokens)], true
}

func (t *Tushare) rotate() {
	t.mu.Lock()
	t.cur++
	logger.Warnf("tushare: quota response detected, rotating to token %d/%d", t.cur%len(t.tokens)+1, len(t.tokens))
	t.mu.Unlock()
}

// isQuotaMessage matches the human-readable phrasing tushare uses for
// per-minute and point quotas. Substring matching is fragile but the API
// reports these as code 0/-1 with free text, so there is nothing structured
// to key off.
func isQuotaMessage(msg string) bool {
	for _, needle := range []string{"每分钟", "访问频率", "积分", "最多访问"} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}

// TsCode converts the accepted A-share spellings into tushare's 600519.SH
// form. Bare 6-digit codes classify by leading digit: 0/2/3 Shenzhen,
// 6/9 Shanghai, 4/8 Beijing.
func TsCode(instrument string) string {
	raw := strings.ToUpper(strings.TrimSpace(instrument))
	if base, suffix, ok := strings.Cut(raw, "."); ok {
		if suffix == "SS" {
			suffix = "SH"
		}
		return base + "." + suffix
	}
	if len(raw) == 8 && (strings.HasPrefix(raw, "SH") || strings.HasPrefix(raw, "SZ") || strings.HasPrefix(raw, "BJ")) {
		return raw[2:] + "." + raw[:2]
	}
	if len(raw) == 6 && isDigits(raw) {
		switch raw[0] {
		case '0', '2', '3':
			return raw + ".SZ"
		case '6', '9':
			return raw + ".SH"
		case '4', '8':
			return raw + ".BJ"
		}
	}
	return raw
}

func (t *Tushare) Fetch(ctx context.Context, instrument string, start, end time.Time, interval string) (market.Table, error) {
	freq, ok := tushareFreqs[strings.ToLower(strings.TrimSpace(interval))]
	if !ok {
		return market.Table{}, noDataErr(tushareName, instrument, "unsupported interval "+interval)
	}
	if _, ok := t.token(); !ok {
		return market.Table{}, remoteErr(tushareName, instrument, fmt.Errorf("no token configured"))
	}

	loc := shanghai()
	params := map[string]any{"ts_code": TsCode(instrument)}
	apiName := "daily"
	if freq != "" {
		apiName = "stk_mins"
		params["freq"] = freq
		if !start.IsZero() {
			params["start_date"] = start.In(loc).Format("2006-01-02 15:04:05")
		}
		if !end.IsZero() {
			params["end_date"] = end.In(loc).Format("2006-01-02 15:04:05")
		}
	} else {
		if !start.IsZero() {
			params["start_date"] = start.In(loc).Format("20060102")
		}
		if !end.IsZero() {
			params["end_date"] = end.In(loc).Format("20060102")
		}
	}

	// One attempt per token in the pool; quota rejections advance the pool.
	attempts := len(t.tokens)
	var lastMsg string
	for i := 0; i < attempts; i++ {
		token, _ := t.token()
		data, msg, err := t.call(ctx, apiName, token, params)
		if err != nil {
			return market.Table{}, remoteErr(tushareName, instrument, err)
		}
		if msg != "" {
			lastMsg = msg
			if isQuotaMessage(msg) {
				t.rotate()
				continue
			}
			return market.Table{}, remoteErr(tushareName, instrument, fmt.Errorf("api error: %s", msg))
		}
		return t.decode(instrument, data, start, end)
	}
	return market.Table{}, remoteErr(tushareName, instrument, fmt.Errorf("all tokens exhausted: %s", lastMsg))
}

func (t *Tushare) call(ctx context.Context, apiName, token string, params map[string]any) (gjson.Result, string, error) {
	payload, err := json.Marshal(map[string]any{
		"api_name": apiName,
		"token":    token,
		"params":   params,
		"fields":   "",
	})
	if err != nil {
		return gjson.Result{}, "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return gjson.Result{}, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := t.Client.Do(req)
	if err != nil {
		return gjson.Result{}, "", err
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return gjson.Result{}, "", err
	}
	if resp.StatusCode != http.StatusOK {
		return gjson.Result{}, "", fmt.Errorf("status %d: %s", resp.StatusCode, truncate(buf.String(), 160))
	}
	root := gjson.ParseBytes(buf.Bytes())
	if root.Get("code").Int() != 0 {
		return gjson.Result{}, root.Get("msg").String(), nil
	}
	return root.Get("data"), "", nil
}

func (t *Tushare) decode(instrument string, data gjson.Result, start, end time.Time) (market.Table, error) {
	fields := data.Get("fields").Array()
	idx := make(map[string]int, len(fields))
	for i, f := range fields {
		idx[f.String()] = i
	}
	timeCol, hasTime := pickTimeColumn(idx)
	if !hasTime {
		return market.Table{}, remoteErr(tushareName, instrument, fmt.Errorf("response missing time column"))
	}

	loc := shanghai()
	items := data.Get("items").Array()
	rows := make([]market.Candle, 0, len(items))
	for _, item := range items {
		cols := item.Array()
		ts, err := parseTushareTime(col(cols, idx, timeCol).String(), loc)
		if err != nil {
			continue
		}
		vol := math.NaN()
		if v := col(cols, idx, "vol"); v.Exists() && v.Type != gjson.Null {
			vol = v.Float()
		}
		rows = append(rows, market.Candle{
			Time:   ts,
			Open:   col(cols, idx, "open").Float(),
			High:   col(cols, idx, "high").Float(),
			Low:    col(cols, idx, "low").Float(),
			Close:  col(cols, idx, "close").Float(),
			Volume: vol,
		})
	}
	if len(rows) == 0 {
		return market.Table{}, noDataErr(tushareName, instrument, "empty item list")
	}
	out := market.Table{Source: tushareName, Rows: rows}.Normalize().Clip(start, end)
	if out.Empty() {
		return market.Table{}, noDataErr(tushareName, instrument, "no rows in range")
	}
	return out, nil
}

func pickTimeColumn(idx map[string]int) (string, bool) {
	for _, name := range []string{"trade_time", "trade_date"} {
		if _, ok := idx[name]; ok {
			return name, true
		}
	}
	return "", false
}

func col(cols []gjson.Result, idx map[string]int, name string) gjson.Result {
	i, ok := idx[name]
	if !ok || i >= len(cols) {
		return gjson.Result{}
	}
	return cols[i]
}

func parseTushareTime(raw string, loc *time.Location) (time.Time, error) {
	layout := "20060102"
	if strings.Contains(raw, ":") {
		layout = "2006-01-02 15:04:05"
	}
	ts, err := time.ParseInLocation(layout, raw, loc)
	if err != nil {
		return time.Time{}, err
	}
	return ts.UTC(), nil
}
