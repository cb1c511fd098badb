// Package strategy implements the Strategy Manager: the
// per-symbol L1/L2/L4 state machine. decide.go holds the pure decision
// core (no I/O); manager.go wires it to the repository layer and engines.
package strategy

import (
	"math"
	"time"
)

// Signal types appended to signal_log.
const (
	SignalL1Entry    = "L1_ENTRY"
	SignalL1Exit     = "L1_EXIT"
	SignalL4GridSet  = "L4_GRID_SET"
	SignalL2Step1    = "L2_STEP1"
	SignalL2Step2    = "L2_STEP2"
	SignalL2Step3    = "L2_STEP3"
	SignalL2Exit     = "L2_EXIT"
	SignalL4Pause    = "L4_PAUSE"
	SignalL4Resume   = "L4_RESUME"
)

const (
	stateA = "A"
	stateB = "B"

	step1Wait = 900 * time.Second
	step2Wait = 1800 * time.Second

	defaultStopLossPct = 0.05
	atrStopMultiple    = 1.5

	fundingEnterThreshold = 5e-4
	fundingExitLow        = 0.0
	fundingExitNeutral    = 1e-4
	longAccountEnter      = 0.65
	longAccountNeutralTol = 0.05

	maxDirectionChangesPerDay = 2

	boxSpreadPct  = 0.02
	boxLiqCount   = 10
	boxOIFraction = 0.8
)

// State mirrors strategy_state's state vector, decoupled from the
// store package so decide() stays a pure function.
type State struct {
	Symbol                  string
	StateName               string // "A" or "B"
	L1Active                bool
	L1EntryReason           string
	L2Active                bool
	L2Direction             string // LONG, SHORT, or ""
	L2Step                  int
	L2EntryPct              float64
	L2AvgEntryPrice         float64
	L2Step1Time             time.Time
	L2ScoreAtEntry          float64
	L2DirectionChangesToday int
	L2LastResetDate         string // YYYY-MM-DD
	L4Active                bool
	L4GridConfigID          int64
	MacroBlocked            bool
	MacroBlockReason        string
}

// Default returns a fresh state for a symbol that has never ticked.
func Default(symbol string) State {
	return State{Symbol: symbol, StateName: stateA}
}

// Grid is the minimal grid shape decide() needs.
type Grid struct {
	ID         int64
	LowerBound float64
	UpperBound float64
}

// Signal is one emitted signal_log entry, pre-persistence.
type Signal struct {
	Symbol     string
	SignalType string
	Direction  string
	Details    map[string]any
	SSMScore   float64
}

// Inputs bundles every already-fetched upstream value a tick needs.
// Fields the caller could not ground are left at zero value; decide()
// degrades gracefully rather than erroring.
type Inputs struct {
	Now time.Time

	FundingRate  *float64
	LongAccount  *float64
	CurrentPrice float64
	LatestGrid   *Grid // most recent grid_configs row, used whenever L4 (re)activates
	ActivationGrid *Grid // the grid pinned by L4GridConfigID, used for breakout detection
	ATR          *float64
	StopLossPct  *float64 // ATR engine's stop-loss percentage, applied against the L2 average entry price
	SSMTotal     float64
	TrendUp      *bool // nil when neither 5m nor daily trend could be determined

	Last48Closes   []float64 // most recent 48 5m closes, oldest first
	LiqCountLastHr int
	CurrentOI      float64
	RecentOI       []float64 // up to last 5 OI snapshots
}

// Output is decide()'s result: the next state plus any signals to append.
type Output struct {
	Next    State
	Signals []Signal
}

// decide evaluates one tick. It never mutates prev; it returns the next
// state by value.
func decide(prev State, in Inputs) Output {
	next := prev
	var signals []Signal

	today := in.Now.Format("2006-01-02")
	if next.L2LastResetDate != today {
		next.L2DirectionChangesToday = 0
		next.L2LastResetDate = today
	}

	signals = append(signals, evaluateL1(&next, in)...)

	switch next.StateName {
	case stateA:
		signals = append(signals, evaluateStateA(&next, in)...)
	case stateB:
		signals = append(signals, evaluateStateB(&next, in)...)
	}

	return Output{Next: next, Signals: signals}
}

// Decide is the exported entry point; decide() stays unexported so tests
// within the package can call it directly without the wrapper.
func Decide(prev State, in Inputs) Output { return decide(prev, in) }

func evaluateL1(s *State, in Inputs) []Signal {
	if in.FundingRate == nil || in.LongAccount == nil {
		return nil
	}
	fundingRate := *in.FundingRate
	longAccount := *in.LongAccount

	if !s.L1Active && fundingRate >= fundingEnterThreshold && longAccount >= longAccountEnter {
		s.L1Active = true
		s.L1EntryReason = "funding_and_long_skew"
		return []Signal{{
			Symbol:     s.Symbol,
			SignalType: SignalL1Entry,
			Details:    map[string]any{"funding_rate": fundingRate, "long_account": longAccount},
		}}
	}

	if s.L1Active && (fundingRate < fundingExitLow || fundingRate <= fundingExitNeutral || math.Abs(longAccount-0.5) < longAccountNeutralTol) {
		s.L1Active = false
		s.L1EntryReason = ""
		return []Signal{{
			Symbol:     s.Symbol,
			SignalType: SignalL1Exit,
			Details:    map[string]any{"funding_rate": fundingRate, "long_account": longAccount},
		}}
	}

	return nil
}

func evaluateStateA(s *State, in Inputs) []Signal {
	var signals []Signal

	if !s.L4Active || s.L4GridConfigID == 0 {
		if in.LatestGrid == nil {
			return signals // no activation grid yet
		}
		s.L4Active = true
		s.L4GridConfigID = in.LatestGrid.ID
		signals = append(signals, Signal{
			Symbol:     s.Symbol,
			SignalType: SignalL4GridSet,
			Details:    map[string]any{"grid_config_id": in.LatestGrid.ID},
		})
	}

	activation := in.ActivationGrid
	if activation == nil || activation.ID != s.L4GridConfigID {
		// Activation grid pinning: breakout is evaluated against the
		// grid pinned at activation, never against whatever is latest.
		return signals
	}

	var direction string
	switch {
	case in.CurrentPrice <= 0:
		// No price this tick: no breakout is judged.
	case in.CurrentPrice > activation.UpperBound:
		direction = "LONG"
	case in.CurrentPrice < activation.LowerBound:
		direction = "SHORT"
	}
	if direction == "" {
		return signals
	}

	if s.MacroBlocked || s.L2DirectionChangesToday >= maxDirectionChangesPerDay {
		return signals
	}

	stopPrice := stopLossPrice(in.CurrentPrice, in.ATR, direction)

	s.StateName = stateB
	s.L2Active = true
	s.L2Direction = direction
	s.L2Step = 1
	s.L2EntryPct = 0.30
	s.L2AvgEntryPrice = in.CurrentPrice
	s.L2Step1Time = in.Now
	s.L2ScoreAtEntry = in.SSMTotal
	s.L4Active = false

	signals = append(signals,
		Signal{
			Symbol:     s.Symbol,
			SignalType: SignalL2Step1,
			Direction:  direction,
			SSMScore:   in.SSMTotal,
			Details: map[string]any{
				"price":      in.CurrentPrice,
				"stop_price": stopPrice,
				"entry_pct":  s.L2EntryPct,
			},
		},
		Signal{Symbol: s.Symbol, SignalType: SignalL4Pause},
	)
	return signals
}

func evaluateStateB(s *State, in Inputs) []Signal {
	switch s.L2Step {
	case 1:
		return evaluateStep1(s, in)
	case 2:
		return evaluateStep2(s, in)
	case 3:
		return evaluateStep3Monitor(s, in)
	}
	return nil
}

func evaluateStep1(s *State, in Inputs) []Signal {
	elapsed := in.Now.Sub(s.L2Step1Time)
	if elapsed < step1Wait {
		return nil
	}

	trendAgrees := in.TrendUp != nil && ((*in.TrendUp && s.L2Direction == "LONG") || (!*in.TrendUp && s.L2Direction == "SHORT"))
	if trendAgrees {
		priorAvg := s.L2AvgEntryPrice
		s.L2AvgEntryPrice = (priorAvg*0.30 + in.CurrentPrice*0.30) / 0.60
		s.L2EntryPct = 0.60
		s.L2Step = 2
		return []Signal{{
			Symbol:     s.Symbol,
			SignalType: SignalL2Step2,
			Direction:  s.L2Direction,
			Details:    map[string]any{"avg_entry_price": s.L2AvgEntryPrice, "entry_pct": s.L2EntryPct},
		}}
	}

	return exitL2(s, in, "price_reversal_step1", false)
}

func evaluateStep2(s *State, in Inputs) []Signal {
	elapsed := in.Now.Sub(s.L2Step1Time)
	if elapsed < step2Wait {
		return nil
	}

	if in.SSMTotal >= 2.0 {
		ratio := stepRatio(in.SSMTotal)
		increment := 0.40 * ratio
		priorWeight := 0.60
		priorAvg := s.L2AvgEntryPrice
		s.L2AvgEntryPrice = (priorAvg*priorWeight + in.CurrentPrice*increment) / (priorWeight + increment)
		s.L2EntryPct = 0.60 + increment
		s.L2Step = 3
		return []Signal{{
			Symbol:     s.Symbol,
			SignalType: SignalL2Step3,
			Direction:  s.L2Direction,
			Details: map[string]any{
				"avg_entry_price": s.L2AvgEntryPrice,
				"entry_pct":       s.L2EntryPct,
				"increment":       increment,
			},
		}}
	}

	// Freeze at 60%: step advances so the next tick starts monitoring for
	// exits, but no new entry is recorded.
	s.L2Step = 3
	return nil
}

func stepRatio(total float64) float64 {
	switch {
	case total >= 4.0:
		return 1.0
	case total >= 3.0:
		return 0.6
	default:
		return 0.3
	}
}

func evaluateStep3Monitor(s *State, in Inputs) []Signal {
	stopPrice := scaledStopLossPrice(s.L2AvgEntryPrice, in.StopLossPct, s.L2Direction)
	if stopTriggered(s.L2Direction, in.CurrentPrice, stopPrice) {
		return exitL2(s, in, "stop_loss", true)
	}

	if boxFormationDetected(in) {
		return exitL2(s, in, "new_box_formation", true)
	}

	return nil
}

func stopTriggered(direction string, price, stopPrice float64) bool {
	if direction == "LONG" {
		return price <= stopPrice
	}
	return price >= stopPrice
}

func boxFormationDetected(in Inputs) bool {
	met := 0
	if closesSpreadPct(in.Last48Closes) <= boxSpreadPct && len(in.Last48Closes) > 0 {
		met++
	}
	if in.LiqCountLastHr >= boxLiqCount {
		met++
	}
	if len(in.RecentOI) > 0 {
		max := in.RecentOI[0]
		for _, v := range in.RecentOI {
			if v > max {
				max = v
			}
		}
		if in.CurrentOI >= boxOIFraction*max {
			met++
		}
	}
	return met >= 2
}

func closesSpreadPct(closes []float64) float64 {
	if len(closes) == 0 {
		return math.Inf(1)
	}
	min, max := closes[0], closes[0]
	for _, c := range closes {
		if c < min {
			min = c
		}
		if c > max {
			max = c
		}
	}
	if min == 0 {
		return math.Inf(1)
	}
	return (max - min) / min
}

// exitL2 closes the L2 position, reactivates L4 against the latest grid,
// and — except for price-reversal exits, the one preserved quirk —
// increments the daily direction-change counter.
func exitL2(s *State, in Inputs, reason string, countsTowardChanges bool) []Signal {
	pnlPct := l2PnLPct(s.L2Direction, s.L2AvgEntryPrice, in.CurrentPrice)
	pnlWeighted := pnlPct * s.L2EntryPct

	signals := []Signal{{
		Symbol:     s.Symbol,
		SignalType: SignalL2Exit,
		Direction:  s.L2Direction,
		Details: map[string]any{
			"reason":       reason,
			"exit_price":   in.CurrentPrice,
			"pnl_pct":      pnlPct,
			"pnl_weighted": pnlWeighted,
		},
	}}

	s.StateName = stateA
	s.L2Active = false
	s.L2Direction = ""
	s.L2Step = 0
	s.L2EntryPct = 0
	s.L2AvgEntryPrice = 0

	if countsTowardChanges {
		s.L2DirectionChangesToday++
	}

	if in.LatestGrid != nil {
		s.L4Active = true
		s.L4GridConfigID = in.LatestGrid.ID
		signals = append(signals, Signal{Symbol: s.Symbol, SignalType: SignalL4Resume})
	}

	return signals
}

func l2PnLPct(direction string, avgEntry, exitPrice float64) float64 {
	if avgEntry == 0 {
		return 0
	}
	if direction == "LONG" {
		return (exitPrice - avgEntry) / avgEntry * 100
	}
	return (avgEntry - exitPrice) / avgEntry * 100
}

// stopLossPrice computes the absolute stop price at entry: entry +/- 1.5*ATR,
// or +/- 5% of entry when ATR is unavailable.
func stopLossPrice(entry float64, atr *float64, direction string) float64 {
	var distance float64
	if atr != nil && *atr > 0 {
		distance = *atr * atrStopMultiple
	} else {
		distance = entry * defaultStopLossPct
	}
	if direction == "LONG" {
		return entry - distance
	}
	return entry + distance
}

// scaledStopLossPrice computes the monitoring stop price against avg (the L2
// average entry price, which drifts away from the ATR engine's current price
// as steps 2 and 3 average in new fills): avg +/- avg*stopLossPct/100, or
// +/- 5% of avg when stopLossPct is unavailable.
func scaledStopLossPrice(avg float64, stopLossPct *float64, direction string) float64 {
	var pct float64
	if stopLossPct != nil && *stopLossPct > 0 {
		pct = *stopLossPct / 100
	} else {
		pct = defaultStopLossPct
	}
	distance := avg * pct
	if direction == "LONG" {
		return avg - distance
	}
	return avg + distance
}
