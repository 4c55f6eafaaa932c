package provider

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"candlehub/internal/market"
)

// Stooq is the secondary international fallback (stooq.com daily CSV export).
// Daily bars only.
type Stooq struct {
	BaseURL string
	Client  *http.Client
}

const stooqName = "stooq"

func NewStooq() *Stooq {
	return &Stooq{
		BaseURL: "https://stooq.com",
		Client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *Stooq) Name() string { return stooqName }

func (s *Stooq) Supports(interval string) bool {
	return strings.ToLower(strings.TrimSpace(interval)) == "1d"
}

// stooqSymbol lower-cases and qualifies bare tickers with the .us market
// suffix stooq expects.
func stooqSymbol(instrument string) string {
	sym := strings.ToLower(strings.TrimSpace(instrument))
	if strings.Contains(sym, ".") {
		return sym
	}
	return sym + ".us"
}

func (s *Stooq) Fetch(ctx context.Context, instrument string, start, end time.Time, interval string) (market.Table, error) {
	if !s.Supports(interval) {
		return market.Table{}, noDataErr(stooqName, instrument, "daily bars only")
	}
	q := url.Values{}
	q.Set("s", stooqSymbol(instrument))
	q.Set("i", "d")
	if !start.IsZero() {
		q.Set("d1", start.UTC().Format("20060102"))
	}
	if !end.IsZero() {
		q.Set("d2", end.UTC().Format("20060102"))
	}
	u := fmt.Sprintf("%s/q/d/l/?%s", s.BaseURL, q.Encode())

	body, err := httpGet(ctx, s.Client, u)
	if err != nil {
		return market.Table{}, remoteErr(stooqName, instrument, err)
	}
	if len(bytes.TrimSpace(body)) == 0 || bytes.HasPrefix(bytes.TrimSpace(body), []byte("No data")) {
		return market.Table{}, noDataErr(stooqName, instrument, "no data for symbol")
	}

	records, err := csv.NewReader(bytes.NewReader(body)).ReadAll()
	if err != nil {
		return market.Table{}, remoteErr(stooqName, instrument, fmt.Errorf("decode csv: %w", err))
	}
	rows := make([]market.Candle, 0, len(records))
	for i, rec := range records {
		if i == 0 || len(rec) < 5 {
			// header row: Date,Open,High,Low,Close,Volume
			continue
		}
		ts, err := time.ParseInLocation("2006-01-02", rec[0], time.UTC)
		if err != nil {
			continue
		}
		open, err1 := strconv.ParseFloat(rec[1], 64)
		high, err2 := strconv.ParseFloat(rec[2], 64)
		low, err3 := strconv.ParseFloat(rec[3], 64)
		cls, err4 := strconv.ParseFloat(rec[4], 64)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			continue
		}
		vol := math.NaN()
		if len(rec) > 5 && rec[5] != "" {
			if v, err := strconv.ParseFloat(rec[5], 64); err == nil {
				vol = v
			}
		}
		rows = append(rows, market.Candle{Time: ts, Open: open, High: high, Low: low, Close: cls, Volume: vol})
	}
	if len(rows) == 0 {
		return market.Table{}, noDataErr(stooqName, instrument, "empty csv payload")
	}
	return market.Table{Source: stooqName, Rows: rows}.Normalize(), nil
}
