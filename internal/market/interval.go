package market

import (
	"strconv"
	"strings"
	"time"
)

// IntervalClass buckets intervals for TTL selection.
type IntervalClass int

const (
	ClassSubMinute IntervalClass = iota
	ClassIntraday
	ClassHourly
	ClassDaily
)

// ParseInterval parses "30s", "15m", "1h", "1d", "1w" into the expected bar
// spacing. Returns (0, false) on invalid input.
func ParseInterval(interval string) (time.Duration, bool) {
	interval = strings.ToLower(strings.TrimSpace(interval))
	if interval == "" {
		return 0, false
	}
	unit := interval[len(interval)-1]
	numStr := strings.TrimSpace(interval[:len(interval)-1])
	if numStr == "" {
		return 0, false
	}
	n, err := strconv.Atoi(numStr)
	if err != nil || n <= 0 {
		return 0, false
	}
	switch unit {
	case 's':
		return time.Duration(n) * time.Second, true
	case 'm':
		return time.Duration(n) * time.Minute, true
	case 'h':
		return time.Duration(n) * time.Hour, true
	case 'd':
		return time.Duration(n) * 24 * time.Hour, true
	case 'w':
		return time.Duration(n) * 7 * 24 * time.Hour, true
	default:
		return 0, false
	}
}

// ClassOf buckets an interval. Unknown intervals classify as daily, the most
// conservative TTL bucket.
func ClassOf(interval string) IntervalClass {
	d, ok := ParseInterval(interval)
	if !ok {
		return ClassDaily
	}
	switch {
	case d < time.Minute:
		return ClassSubMinute
	case d < time.Hour:
		return ClassIntraday
	case d < 24*time.Hour:
		return ClassHourly
	default:
		return ClassDaily
	}
}
