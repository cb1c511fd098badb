package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fp(v float64) *float64 { return &v }
func bp(v bool) *bool       { return &v }

func baseState() State {
	return State{
		Symbol:          "BTCUSDT",
		StateName:       stateA,
		L4Active:        true,
		L4GridConfigID:  1,
		L2LastResetDate: "2026-01-01",
	}
}

func activationGrid() *Grid {
	return &Grid{ID: 1, LowerBound: 60000, UpperBound: 62000}
}

// Scenario 1: long breakout happy path through step3.
func TestDecide_LongBreakoutHappyPath(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	state := baseState()

	out := decide(state, Inputs{
		Now:            now,
		CurrentPrice:   62500,
		LatestGrid:     activationGrid(),
		ActivationGrid: activationGrid(),
		ATR:            fp(300),
		SSMTotal:       3.2,
	})
	require.Len(t, out.Signals, 2)
	assert.Equal(t, SignalL2Step1, out.Signals[0].SignalType)
	assert.Equal(t, "LONG", out.Signals[0].Direction)
	assert.InDelta(t, 62050, out.Signals[0].Details["stop_price"], 1e-9)
	assert.Equal(t, SignalL4Pause, out.Signals[1].SignalType)
	assert.Equal(t, stateB, out.Next.StateName)
	assert.Equal(t, 1, out.Next.L2Step)

	state = out.Next
	now = now.Add(900 * time.Second)
	out = decide(state, Inputs{Now: now, CurrentPrice: 62800, TrendUp: bp(true)})
	require.Len(t, out.Signals, 1)
	assert.Equal(t, SignalL2Step2, out.Signals[0].SignalType)
	assert.InDelta(t, 62650, out.Next.L2AvgEntryPrice, 1e-9)
	assert.Equal(t, 0.60, out.Next.L2EntryPct)
	assert.Equal(t, 2, out.Next.L2Step)

	state = out.Next
	now = now.Add(900 * time.Second)
	out = decide(state, Inputs{Now: now, CurrentPrice: 62800, SSMTotal: 3.2})
	require.Len(t, out.Signals, 1)
	assert.Equal(t, SignalL2Step3, out.Signals[0].SignalType)
	assert.InDelta(t, 0.84, out.Next.L2EntryPct, 1e-9)
	assert.Equal(t, 3, out.Next.L2Step)
}

// Scenario 2: reversal before step2 — direction-change counter unchanged.
func TestDecide_ReversalBeforeStep2(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	state := baseState()

	out := decide(state, Inputs{
		Now: now, CurrentPrice: 62500, LatestGrid: activationGrid(), ActivationGrid: activationGrid(), ATR: fp(300),
	})
	state = out.Next

	now = now.Add(900 * time.Second)
	out = decide(state, Inputs{Now: now, CurrentPrice: 61900, TrendUp: bp(false), LatestGrid: activationGrid()})
	require.Len(t, out.Signals, 2)
	assert.Equal(t, SignalL2Exit, out.Signals[0].SignalType)
	assert.Equal(t, "price_reversal_step1", out.Signals[0].Details["reason"])
	assert.Equal(t, stateA, out.Next.StateName)
	assert.Equal(t, 0, out.Next.L2DirectionChangesToday)
}

// Scenario 3: stop-loss exit with literal pnl numbers.
func TestDecide_StopLossExit(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	state := baseState()
	state.StateName = stateB
	state.L2Active = true
	state.L2Direction = "LONG"
	state.L2Step = 3
	state.L2EntryPct = 0.30
	state.L2AvgEntryPrice = 62500
	state.L4Active = false

	out := decide(state, Inputs{
		Now: now, CurrentPrice: 61900, ATR: fp(300), StopLossPct: fp(0.9), LatestGrid: activationGrid(),
	})
	require.Len(t, out.Signals, 2)
	assert.Equal(t, SignalL2Exit, out.Signals[0].SignalType)
	assert.Equal(t, "stop_loss", out.Signals[0].Details["reason"])
	assert.InDelta(t, -0.96, out.Signals[0].Details["pnl_pct"].(float64), 1e-2)
	assert.InDelta(t, -0.288, out.Signals[0].Details["pnl_weighted"].(float64), 1e-2)
	assert.Equal(t, 1, out.Next.L2DirectionChangesToday)
	assert.Equal(t, SignalL4Resume, out.Signals[1].SignalType)
}

// Scenario 4: L1 enters on funding+long skew.
func TestDecide_L1Entry(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	state := baseState()

	out := decide(state, Inputs{
		Now: now, FundingRate: fp(6e-4), LongAccount: fp(0.70), LatestGrid: activationGrid(), ActivationGrid: activationGrid(),
	})
	require.Len(t, out.Signals, 1)
	assert.Equal(t, SignalL1Entry, out.Signals[0].SignalType)
	assert.True(t, out.Next.L1Active)
}

// Scenario 5: box-formation exit in step 3.
func TestDecide_BoxFormationExit(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	state := baseState()
	state.StateName = stateB
	state.L2Active = true
	state.L2Direction = "LONG"
	state.L2Step = 3
	state.L2EntryPct = 0.60
	state.L2AvgEntryPrice = 62000
	state.L4Active = false

	closes := make([]float64, 48)
	for i := range closes {
		closes[i] = 62000 + float64(i%3) // tight spread well under 2%
	}

	out := decide(state, Inputs{
		Now: now, CurrentPrice: 62100, ATR: fp(300),
		Last48Closes: closes, CurrentOI: 850, RecentOI: []float64{800, 900, 1000, 950, 870},
		LatestGrid: activationGrid(),
	})
	require.Len(t, out.Signals, 2)
	assert.Equal(t, SignalL2Exit, out.Signals[0].SignalType)
	assert.Equal(t, "new_box_formation", out.Signals[0].Details["reason"])
	assert.True(t, out.Next.L4Active)
	assert.Equal(t, SignalL4Resume, out.Signals[1].SignalType)
	assert.Equal(t, 1, out.Next.L2DirectionChangesToday)
}

// Scenario 6: macro block suppresses new L2 entries but state stays A.
func TestDecide_MacroBlockSuppressesEntry(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	state := baseState()
	state.MacroBlocked = true

	out := decide(state, Inputs{
		Now: now, CurrentPrice: 62500, LatestGrid: activationGrid(), ActivationGrid: activationGrid(), ATR: fp(300),
	})
	for _, s := range out.Signals {
		assert.NotEqual(t, SignalL2Step1, s.SignalType)
	}
	assert.Equal(t, stateA, out.Next.StateName)
}

// A new grid_configs row for the symbol does not reclassify price against
// the new grid while State A holds the original activation pin.
func TestDecide_GridActivationPinStability(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	state := baseState()

	newGrid := &Grid{ID: 2, LowerBound: 62600, UpperBound: 62900}
	// Price breaks the OLD pinned grid's upper bound but not the new one.
	out := decide(state, Inputs{
		Now: now, CurrentPrice: 62500, LatestGrid: newGrid, ActivationGrid: activationGrid(), ATR: fp(300),
	})
	assert.Equal(t, stateB, out.Next.StateName, "breakout must be judged against the pinned activation grid, not the latest one")
}

// Direction-change counter blocks a new L2 entry once the day's count reaches 2.
func TestDecide_DirectionChangeBudgetBlocksThirdEntry(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	state := baseState()
	state.L2DirectionChangesToday = 2

	out := decide(state, Inputs{
		Now: now, CurrentPrice: 62500, LatestGrid: activationGrid(), ActivationGrid: activationGrid(), ATR: fp(300),
	})
	for _, s := range out.Signals {
		assert.NotEqual(t, SignalL2Step1, s.SignalType)
	}
}

// Daily reset: date rollover zeroes the direction-change counter.
func TestDecide_DailyResetZeroesCounter(t *testing.T) {
	state := baseState()
	state.L2DirectionChangesToday = 2
	state.L2LastResetDate = "2026-01-01"

	out := decide(state, Inputs{Now: time.Date(2026, 1, 2, 0, 0, 1, 0, time.UTC)})
	assert.Equal(t, 0, out.Next.L2DirectionChangesToday)
	assert.Equal(t, "2026-01-02", out.Next.L2LastResetDate)
}
