package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStooqSymbol(t *testing.T) {
	assert.Equal(t, "aapl.us", stooqSymbol("AAPL"))
	assert.Equal(t, "spy.us", stooqSymbol(" spy "))
	assert.Equal(t, "btc.v", stooqSymbol("BTC.V"))
}

func TestStooqSupportsDailyOnly(t *testing.T) {
	s := NewStooq()
	assert.True(t, s.Supports("1d"))
	assert.False(t, s.Supports("1h"))
	assert.False(t, s.Supports("5m"))
}

func TestStooqFetch(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte("Date,Open,High,Low,Close,Volume\n2024-03-01,10,11,9,10.5,1000\n2024-03-04,10.5,12,10,11.5,\n"))
	}))
	defer srv.Close()

	s := NewStooq()
	s.BaseURL = srv.URL

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	tbl, err := s.Fetch(context.Background(), "AAPL", start, end, "1d")
	require.NoError(t, err)
	assert.Contains(t, gotQuery, "s=aapl.us")
	assert.Contains(t, gotQuery, "d1=20240301")
	assert.Contains(t, gotQuery, "d2=20240305")

	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, "stooq", tbl.Source)
	assert.Equal(t, 10.5, tbl.Rows[0].Close)
	assert.False(t, tbl.Rows[1].HasVolume())
}

func TestStooqFetchNoDataBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("No data\n"))
	}))
	defer srv.Close()

	s := NewStooq()
	s.BaseURL = srv.URL

	_, err := s.Fetch(context.Background(), "NOPE", time.Time{}, time.Time{}, "1d")
	assert.True(t, IsNoData(err))
}

func TestStooqFetchRejectsIntraday(t *testing.T) {
	s := NewStooq()
	_, err := s.Fetch(context.Background(), "AAPL", time.Time{}, time.Time{}, "5m")
	assert.True(t, IsNoData(err))
}
