package market

import (
	"math"
	"time"
)

// Candle is one time-bucketed price bar. Time is always UTC.
// Volume is NaN when the source does not report it.
type Candle struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

func (c Candle) HasVolume() bool {
	return !math.IsNaN(c.Volume)
}
