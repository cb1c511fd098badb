package threshold

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute_InputAbsentWithoutOI(t *testing.T) {
	assert.Nil(t, Compute(100, 50, 0, 100, 1000, nil))
}

func TestCompute_ShortCascadeWhenBuyDominates(t *testing.T) {
	// currentOI=1000, price=100 -> oiUSD=100000; liq1h must exceed 1% (1000) to trigger.
	result := Compute(2000, 500, 1000, 100, 1000, []float64{1000, 1000, 1000})
	require.NotNil(t, result)
	assert.True(t, result.TriggerActive)
	assert.Equal(t, "SHORT_CASCADE", result.Direction)
	assert.InDelta(t, 2500, result.LiqAmount1h, 1e-9)
}

func TestCompute_LongCascadeWhenSellDominates(t *testing.T) {
	result := Compute(500, 2000, 1000, 100, 1000, []float64{1000})
	require.NotNil(t, result)
	assert.True(t, result.TriggerActive)
	assert.Equal(t, "LONG_CASCADE", result.Direction)
}

func TestCompute_NoTriggerBelowOnePercent(t *testing.T) {
	result := Compute(300, 300, 1000, 100, 1000, []float64{1000})
	require.NotNil(t, result)
	assert.False(t, result.TriggerActive)
	assert.Equal(t, "", result.Direction)
}

func TestCompute_LiquidityCoeffClamped(t *testing.T) {
	result := Compute(0, 0, 1000, 100, 100000, []float64{1})
	require.NotNil(t, result)
	assert.Equal(t, 10.0, result.LiquidityCoeff)

	result = Compute(0, 0, 1000, 100, 1, []float64{100000})
	require.NotNil(t, result)
	assert.Equal(t, 0.1, result.LiquidityCoeff)
}
