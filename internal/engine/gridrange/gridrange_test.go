package gridrange

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompute_SingleScanDisablesSpoofingFilter(t *testing.T) {
	latest := []Wall{
		{Side: "BID", Price: 95, Quantity: 10},
		{Side: "ASK", Price: 105, Quantity: 10},
	}
	result := Compute(latest, nil, 100, 1)
	assert.Equal(t, -1, result.SpoofingFiltered)
	assert.Equal(t, 95.0, result.LowerBound)
	assert.Equal(t, 105.0, result.UpperBound)
}

func TestCompute_UnconfirmedWallsAreFiltered(t *testing.T) {
	latest := []Wall{
		{Side: "BID", Price: 95, Quantity: 10},  // confirmed below
		{Side: "BID", Price: 50, Quantity: 999}, // no match in previous scan -> filtered
		{Side: "ASK", Price: 105, Quantity: 10},
	}
	previous := []Wall{
		{Side: "BID", Price: 95.05, Quantity: 8}, // within 0.1% of 95
		{Side: "ASK", Price: 105.02, Quantity: 8},
	}
	result := Compute(latest, previous, 100, 1)
	assert.Equal(t, 1, result.SpoofingFiltered)
	assert.Equal(t, 95.0, result.LowerBound)
	assert.Equal(t, 105.0, result.UpperBound)
}

func TestCompute_FallsBackToATRWhenOneSideEmpty(t *testing.T) {
	latest := []Wall{{Side: "BID", Price: 95, Quantity: 10}}
	result := Compute(latest, nil, 100, 2)
	assert.Equal(t, fallbackGridCount, result.GridCount)
	assert.InDelta(t, 96, result.LowerBound, 1e-9)
	assert.InDelta(t, 104, result.UpperBound, 1e-9)
}

func TestCompute_FallsBackWhenBoundsCross(t *testing.T) {
	latest := []Wall{
		{Side: "BID", Price: 110, Quantity: 10},
		{Side: "ASK", Price: 90, Quantity: 10},
	}
	result := Compute(latest, nil, 100, 2)
	assert.Equal(t, fallbackGridCount, result.GridCount)
	assert.InDelta(t, 96, result.LowerBound, 1e-9)
	assert.InDelta(t, 104, result.UpperBound, 1e-9)
}

func TestCompute_GridCountClampedToRange(t *testing.T) {
	latest := []Wall{
		{Side: "BID", Price: 90, Quantity: 10},
		{Side: "ASK", Price: 110, Quantity: 10},
	}
	// range=20, atr=0.5 -> round(40)=40, clamped to maxGridCount
	result := Compute(latest, nil, 100, 0.5)
	assert.Equal(t, maxGridCount, result.GridCount)
	assert.InDelta(t, 20.0/float64(maxGridCount), result.GridSpacing, 1e-9)
}

func TestCompute_ValidBoundsZeroATRUsesFallbackGridCount(t *testing.T) {
	latest := []Wall{
		{Side: "BID", Price: 90, Quantity: 10},
		{Side: "ASK", Price: 110, Quantity: 10},
	}
	result := Compute(latest, nil, 100, 0)
	assert.Equal(t, fallbackGridCount, result.GridCount)
	assert.InDelta(t, 20.0/float64(fallbackGridCount), result.GridSpacing, 1e-9)
}

func TestCompute_TopNByQuantityOnly(t *testing.T) {
	var latest []Wall
	for i := 0; i < 12; i++ {
		latest = append(latest, Wall{Side: "BID", Price: 90, Quantity: 1})
	}
	latest = append(latest, Wall{Side: "BID", Price: 80, Quantity: 0.5}) // excluded by topN cut
	latest = append(latest, Wall{Side: "ASK", Price: 110, Quantity: 1})
	result := Compute(latest, nil, 100, 1)
	assert.Equal(t, 90.0, result.LowerBound)
}
