// Package threshold implements the Dynamic Threshold engine: liquidation
// pressure over the last hour, normalized by open interest and by a
// 30-day volume coefficient, emitting a cascade trigger + direction.
package threshold

import "gonum.org/v1/gonum/stat"

const (
	windowSeconds  = 3600
	volumeLookback = 30
)

// Result is one Dynamic Threshold engine output.
type Result struct {
	ThresholdValue float64
	LiqAmount1h    float64
	CurrentOI      float64
	LiquidityCoeff float64
	TriggerActive  bool
	Direction      string // "LONG_CASCADE", "SHORT_CASCADE", or "" when not triggered
}

// WindowSeconds is the liquidation lookback window.
const WindowSeconds = windowSeconds

// Compute evaluates the Dynamic Threshold given:
//   - buyLiqUSD, sellLiqUSD: sum(price*qty) over the trailing hour, by side
//   - currentOI: latest open-interest snapshot (base units)
//   - currentPrice: latest daily close, used as the USD reference
//   - todayVolume, recentDailyVolumes: today's volume and up to the last
//     30 daily volumes, for the liquidity coefficient
//
// Returns nil only when currentOI or currentPrice is unavailable (zero),
// propagating as "no row" to the caller.
func Compute(buyLiqUSD, sellLiqUSD, currentOI, currentPrice, todayVolume float64, recentDailyVolumes []float64) *Result {
	if currentOI <= 0 || currentPrice <= 0 {
		return nil
	}

	oiUSD := currentOI * currentPrice
	liq1h := buyLiqUSD + sellLiqUSD

	liquidityCoeff := 1.0
	if len(recentDailyVolumes) > 0 {
		mean := stat.Mean(recentDailyVolumes, nil)
		if mean > 0 {
			liquidityCoeff = todayVolume / mean
		}
	}
	liquidityCoeff = clamp(liquidityCoeff, 0.1, 10)

	thresholdValue := (liq1h / oiUSD) * liquidityCoeff
	triggerActive := liq1h > oiUSD*0.01

	direction := ""
	if triggerActive {
		if buyLiqUSD > sellLiqUSD {
			direction = "SHORT_CASCADE"
		} else {
			direction = "LONG_CASCADE"
		}
	}

	return &Result{
		ThresholdValue: thresholdValue,
		LiqAmount1h:    liq1h,
		CurrentOI:      currentOI,
		LiquidityCoeff: liquidityCoeff,
		TriggerActive:  triggerActive,
		Direction:      direction,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
