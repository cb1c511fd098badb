// Package atr implements the ATR Engine: daily candles to ATR(14) plus a
// stop-loss percentage.
//
// Every public function returns a *float64 that is nil on insufficient data
// rather than erroring, so callers treat absence as a missing input without
// a type switch.
package atr

import (
	"github.com/markcheno/go-talib"
)

// DefaultPeriod is the ATR lookback window.
const DefaultPeriod = 14

// Result is one ATR Engine output.
type Result struct {
	ATR          float64
	ATRPct       float64
	StopLossPct  float64
	CurrentPrice float64
}

// Candle is the minimal daily-candle shape the engine needs.
type Candle struct {
	High  float64
	Low   float64
	Close float64
}

// Compute reads period+1 daily candles (oldest first) and returns the ATR
// result, or nil if fewer rows exist than period+1.
//
// True Range per day is max(high-low, |high-prevClose|, |low-prevClose|);
// ATR is the arithmetic mean of the TR series over the most recent period
// days — not Wilder's smoothed average, so go-talib's Trange is used for
// the per-day True Range only, and the mean is taken explicitly here.
func Compute(candles []Candle, period int) *Result {
	if period <= 0 {
		period = DefaultPeriod
	}
	if len(candles) < period+1 {
		return nil
	}

	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	closes := make([]float64, len(candles))
	for i, c := range candles {
		highs[i] = c.High
		lows[i] = c.Low
		closes[i] = c.Close
	}

	tr := talib.Trange(highs, lows, closes)
	// tr[0] is always 0 (no previous close); average the last `period`
	// valid values.
	window := tr[len(tr)-period:]
	var sum float64
	for _, v := range window {
		sum += v
	}
	atrValue := sum / float64(period)

	currentPrice := closes[len(closes)-1]
	if currentPrice == 0 {
		return nil
	}
	atrPct := atrValue / currentPrice * 100
	stopLossPct := atrPct * 1.5

	return &Result{
		ATR:          atrValue,
		ATRPct:       atrPct,
		StopLossPct:  stopLossPct,
		CurrentPrice: currentPrice,
	}
}
