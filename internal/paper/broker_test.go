package paper

import (
	"testing"

	"github.com/aristath/cryptostrat/internal/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplySignal_Step1OpensTrade(t *testing.T) {
	sig := SignalView{
		SignalType: strategy.SignalL2Step1, Direction: "LONG",
		Details: map[string]any{"price": 62500.0, "stop_price": 62050.0, "entry_pct": 0.30},
	}
	effect := ApplySignal(nil, sig)
	require.NotNil(t, effect.OpenTrade)
	assert.Equal(t, 1, effect.OpenTrade.L2Step)
	assert.Equal(t, 0.30, effect.OpenTrade.EntryPct)
	assert.Equal(t, 62500.0, effect.OpenTrade.AvgEntryPrice)
}

func TestApplySignal_Step2WithoutOpenTradeIsNoop(t *testing.T) {
	sig := SignalView{SignalType: strategy.SignalL2Step2, Details: map[string]any{}}
	effect := ApplySignal(nil, sig)
	assert.Nil(t, effect.OpenTrade)
	assert.Nil(t, effect.Close)
}

func TestApplySignal_ExitProducesCloseResult(t *testing.T) {
	open := &OpenTrade{Direction: "LONG", L2Step: 3, EntryPct: 0.30, AvgEntryPrice: 62500}
	sig := SignalView{
		SignalType: strategy.SignalL2Exit,
		Details: map[string]any{
			"reason": "stop_loss", "exit_price": 61900.0,
			"pnl_pct": -0.96, "pnl_weighted": -0.288,
		},
	}
	effect := ApplySignal(open, sig)
	require.NotNil(t, effect.Close)
	assert.Equal(t, "stop_loss", effect.Close.ExitReason)
	assert.InDelta(t, -0.96, effect.Close.PnLPct, 1e-9)
	assert.InDelta(t, -0.288, effect.Close.PnLWeighted, 1e-9)
}

func TestApplyFunding_CollapsesToZeroOnL2Short(t *testing.T) {
	result := ApplyFunding(6e-4, true, "SHORT")
	assert.Equal(t, 0.0, result.PnLPct)
	assert.True(t, result.L2Conflict)
}

func TestApplyFunding_NormalWhenNotShort(t *testing.T) {
	result := ApplyFunding(6e-4, false, "")
	assert.InDelta(t, 0.06, result.PnLPct, 1e-9)
	assert.False(t, result.L2Conflict)

	result = ApplyFunding(6e-4, true, "LONG")
	assert.InDelta(t, 0.06, result.PnLPct, 1e-9)
	assert.False(t, result.L2Conflict)
}

func TestGridFill_UpwardSells(t *testing.T) {
	side, pnl, ok := GridFill(60000, 62000, 12, 3, 4)
	require.True(t, ok)
	assert.Equal(t, "SELL", side)
	assert.InDelta(t, (62000-60000)/60000.0*100/12, pnl, 1e-9)
}

func TestGridFill_DownwardBuysAtZero(t *testing.T) {
	side, pnl, ok := GridFill(60000, 62000, 12, 4, 3)
	require.True(t, ok)
	assert.Equal(t, "BUY", side)
	assert.Equal(t, 0.0, pnl)
}

func TestGridFill_NoTransitionIsNoop(t *testing.T) {
	_, _, ok := GridFill(60000, 62000, 12, 4, 4)
	assert.False(t, ok)
}
