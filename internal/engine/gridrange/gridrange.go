// Package gridrange implements the Grid Range engine: spoof-filtered
// order-book walls reduced to a grid {lower, upper, count, spacing},
// falling back to an ATR-based range when walls are insufficient.
package gridrange

import (
	"math"
	"sort"
)

const (
	confirmTolerancePct = 0.001 // ±0.1%
	topN                = 10
	fallbackATRMultiple = 2.0
	fallbackGridCount   = 12
	minGridCount        = 10
	maxGridCount        = 15
)

// Wall is the minimal order-book wall shape the engine needs.
type Wall struct {
	Side     string // "BID" or "ASK"
	Price    float64
	Quantity float64
}

// Result is one Grid Range engine output.
type Result struct {
	LowerBound       float64
	UpperBound       float64
	GridCount        int
	GridSpacing      float64
	GridSpacingPct   float64
	SpoofingFiltered int // -1 = filter disabled (only one scan available)
}

// Compute reduces the latest and previous scans' walls to a grid.
// previousScanWalls may be nil when only one scan exists, in which case the
// spoofing filter is disabled (spoofing_filtered = -1) and every latest-scan
// wall is treated as confirmed.
func Compute(latestScanWalls, previousScanWalls []Wall, currentPrice, atrValue float64) Result {
	var confirmed []Wall
	spoofingFiltered := 0

	if previousScanWalls == nil {
		confirmed = latestScanWalls
		spoofingFiltered = -1
	} else {
		for _, w := range latestScanWalls {
			if hasNearbyMatch(w, previousScanWalls) {
				confirmed = append(confirmed, w)
			} else {
				spoofingFiltered++
			}
		}
	}

	lower, lowerOK := weightedTop(confirmed, "BID")
	upper, upperOK := weightedTop(confirmed, "ASK")

	if !lowerOK || !upperOK || lower >= upper {
		return atrFallback(currentPrice, atrValue, spoofingFiltered)
	}

	rangeSize := upper - lower
	gridCount := fallbackGridCount
	if atrValue > 0 {
		gridCount = clampInt(int(math.Round(rangeSize/atrValue)), minGridCount, maxGridCount)
	}
	spacing := rangeSize / float64(gridCount)
	spacingPct := 0.0
	if currentPrice > 0 {
		spacingPct = spacing / currentPrice * 100
	}

	return Result{
		LowerBound:       lower,
		UpperBound:       upper,
		GridCount:        gridCount,
		GridSpacing:      spacing,
		GridSpacingPct:   spacingPct,
		SpoofingFiltered: spoofingFiltered,
	}
}

func atrFallback(currentPrice, atrValue float64, spoofingFiltered int) Result {
	lower := currentPrice - fallbackATRMultiple*atrValue
	upper := currentPrice + fallbackATRMultiple*atrValue
	spacing := (upper - lower) / fallbackGridCount
	spacingPct := 0.0
	if currentPrice > 0 {
		spacingPct = spacing / currentPrice * 100
	}
	return Result{
		LowerBound:       lower,
		UpperBound:       upper,
		GridCount:        fallbackGridCount,
		GridSpacing:      spacing,
		GridSpacingPct:   spacingPct,
		SpoofingFiltered: spoofingFiltered,
	}
}

// hasNearbyMatch reports whether prev contains a same-side wall within
// confirmTolerancePct of w's price.
func hasNearbyMatch(w Wall, prev []Wall) bool {
	for _, p := range prev {
		if p.Side != w.Side {
			continue
		}
		if p.Price == 0 {
			continue
		}
		diff := math.Abs(w.Price-p.Price) / p.Price
		if diff <= confirmTolerancePct {
			return true
		}
	}
	return false
}

// weightedTop sorts confirmed walls of the given side by quantity
// descending, takes the top N, and returns their quantity-weighted mean
// price.
func weightedTop(walls []Wall, side string) (float64, bool) {
	var sideWalls []Wall
	for _, w := range walls {
		if w.Side == side {
			sideWalls = append(sideWalls, w)
		}
	}
	if len(sideWalls) == 0 {
		return 0, false
	}
	sort.Slice(sideWalls, func(i, j int) bool { return sideWalls[i].Quantity > sideWalls[j].Quantity })
	if len(sideWalls) > topN {
		sideWalls = sideWalls[:topN]
	}

	var weightedSum, totalQty float64
	for _, w := range sideWalls {
		weightedSum += w.Price * w.Quantity
		totalQty += w.Quantity
	}
	if totalQty == 0 {
		return 0, false
	}
	return weightedSum / totalQty, true
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
