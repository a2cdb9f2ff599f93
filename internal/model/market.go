package model

import "time"

// OHLCV represents a single daily candlestick bar.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// MarketSnapshot holds the index state for one tick. Indicator fields are
// nil when the available history is too short to compute them; rules must
// treat a nil required field as "cannot fire", never as zero.
type MarketSnapshot struct {
	Date      time.Time
	LastPrice float64

	IntradayHigh  *float64
	PrevClose     *float64
	Close3BarsAgo *float64
	RollingHigh3  *float64

	MA20    *float64
	MA200   *float64
	RSI14   *float64
	BBUpper *float64
	BBLower *float64

	Volume      *float64
	AvgVolume20 *float64
	// RecentChanges holds up to the last 3 daily close-over-close
	// percentage changes, oldest first.
	RecentChanges []float64

	// Degraded marks a snapshot built from fewer than 200 bars; MA200 and
	// anything derived from it is unreliable or absent.
	Degraded bool
}

// VolatilityInputs holds the implied-volatility proxy readings used by the
// panic and sizing analysis.
type VolatilityInputs struct {
	Last      float64
	PrevClose float64
	Avg20     float64
}
