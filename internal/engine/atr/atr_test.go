package atr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flatCandles(n int, high, low, close float64) []Candle {
	out := make([]Candle, n)
	for i := range out {
		out[i] = Candle{High: high, Low: low, Close: close}
	}
	return out
}

func TestCompute_InsufficientData(t *testing.T) {
	result := Compute(flatCandles(DefaultPeriod, 101, 99, 100), DefaultPeriod)
	assert.Nil(t, result, "fewer than period+1 rows must yield no row")
}

func TestCompute_ConstantRange(t *testing.T) {
	candles := flatCandles(DefaultPeriod+1, 102, 98, 100)
	result := Compute(candles, DefaultPeriod)
	require.NotNil(t, result)
	assert.InDelta(t, 4.0, result.ATR, 1e-9)
	assert.InDelta(t, 4.0, result.ATRPct, 1e-9)
	assert.InDelta(t, 6.0, result.StopLossPct, 1e-9) // atr_pct * 1.5
	assert.Equal(t, 100.0, result.CurrentPrice)
}

func TestCompute_DefaultPeriodWhenZero(t *testing.T) {
	candles := flatCandles(DefaultPeriod+1, 102, 98, 100)
	result := Compute(candles, 0)
	require.NotNil(t, result)
}
