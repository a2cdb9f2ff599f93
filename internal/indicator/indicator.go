// Package indicator turns an ascending daily price series into a
// MarketSnapshot of moving averages, bands, and oscillators.
package indicator

import (
	"errors"
	"time"

	"gonum.org/v1/gonum/stat"

	"OptionSentinel/internal/model"
)

// degradedBelow is the sample count under which MA200 and derived
// signals are unreliable.
const degradedBelow = 200

// SMA computes the simple moving average of the last period closes.
func SMA(closes []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(closes) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	return stat.Mean(closes[len(closes)-period:], nil), nil
}

// Bollinger computes the 2-sigma bands around the period moving average,
// using the sample standard deviation of the last period closes.
func Bollinger(closes []float64, period int) (upper, lower float64, err error) {
	ma, err := SMA(closes, period)
	if err != nil {
		return 0, 0, err
	}
	sigma := stat.StdDev(closes[len(closes)-period:], nil)
	return ma + 2*sigma, ma - 2*sigma, nil
}

// RSI computes the Wilder-smoothed RSI over the given period. Requires
// at least period+1 closes. Saturates at 100 when the smoothed loss is 0.
func RSI(closes []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(closes) < period+1 {
		return 0, errors.New("not enough data for RSI calculation")
	}

	// Initial average gain/loss over the first `period` changes
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	// Wilder smoothing for remaining bars
	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return 100.0, nil
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs), nil
}

// Snapshot builds the per-tick market snapshot from the daily series and
// the live quote. Any indicator the history cannot support is left nil.
// The series must be ascending by date and have at least one bar.
func Snapshot(bars []model.OHLCV, lastPrice float64, intradayHigh *float64, date time.Time) *model.MarketSnapshot {
	snap := &model.MarketSnapshot{
		Date:         date,
		LastPrice:    lastPrice,
		IntradayHigh: intradayHigh,
		Degraded:     len(bars) < degradedBelow,
	}
	if len(bars) == 0 {
		return snap
	}

	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	n := len(closes)

	// Reference points are read by position, not recomputed. The
	// offsets (-2 and -4 from the latest bar) and their short-history
	// fallbacks must match exactly for entry-rule reproducibility.
	if n >= 2 {
		snap.PrevClose = ptr(closes[n-2])
	} else {
		snap.PrevClose = ptr(closes[n-1])
	}
	if n >= 4 {
		snap.Close3BarsAgo = ptr(closes[n-4])
	} else {
		snap.Close3BarsAgo = ptr(closes[0])
	}

	if n >= 3 {
		high := bars[n-3].High
		for _, b := range bars[n-2:] {
			if b.High > high {
				high = b.High
			}
		}
		snap.RollingHigh3 = ptr(high)
	}

	if ma, err := SMA(closes, 20); err == nil {
		snap.MA20 = ptr(ma)
	}
	if ma, err := SMA(closes, 200); err == nil {
		snap.MA200 = ptr(ma)
	}
	if upper, lower, err := Bollinger(closes, 20); err == nil {
		snap.BBUpper = ptr(upper)
		snap.BBLower = ptr(lower)
	}
	if rsi, err := RSI(closes, 14); err == nil {
		snap.RSI14 = ptr(rsi)
	}

	snap.Volume = ptr(bars[n-1].Volume)
	if len(bars) >= 20 {
		vols := make([]float64, 20)
		for i, b := range bars[n-20:] {
			vols[i] = b.Volume
		}
		snap.AvgVolume20 = ptr(stat.Mean(vols, nil))
	}

	// Up to the last 3 daily percentage changes, oldest first.
	for i := n - 3; i < n; i++ {
		if i < 1 {
			continue
		}
		if closes[i-1] != 0 {
			snap.RecentChanges = append(snap.RecentChanges, (closes[i]-closes[i-1])/closes[i-1]*100)
		}
	}

	return snap
}

func ptr(v float64) *float64 { return &v }
