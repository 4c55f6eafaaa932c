package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInterval(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"30s", 30 * time.Second, true},
		{"1m", time.Minute, true},
		{"15m", 15 * time.Minute, true},
		{"1h", time.Hour, true},
		{"4h", 4 * time.Hour, true},
		{"1d", 24 * time.Hour, true},
		{"1w", 7 * 24 * time.Hour, true},
		{" 1D ", 24 * time.Hour, true},
		{"", 0, false},
		{"d", 0, false},
		{"0m", 0, false},
		{"-5m", 0, false},
		{"1x", 0, false},
		{"abc", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseInterval(tc.in)
		require.Equal(t, tc.ok, ok, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}
}

func TestClassOf(t *testing.T) {
	assert.Equal(t, ClassSubMinute, ClassOf("30s"))
	assert.Equal(t, ClassIntraday, ClassOf("1m"))
	assert.Equal(t, ClassIntraday, ClassOf("30m"))
	assert.Equal(t, ClassHourly, ClassOf("1h"))
	assert.Equal(t, ClassHourly, ClassOf("12h"))
	assert.Equal(t, ClassDaily, ClassOf("1d"))
	assert.Equal(t, ClassDaily, ClassOf("1w"))
	// unknown intervals fall in the most conservative bucket
	assert.Equal(t, ClassDaily, ClassOf("garbage"))
}
