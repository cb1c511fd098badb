package strategy

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/aristath/cryptostrat/internal/clock"
	"github.com/aristath/cryptostrat/internal/engine/macroguard"
	"github.com/aristath/cryptostrat/internal/store"
)

// Manager runs one tick of the state machine per symbol, reading already-
// computed engine outputs and the raw series the state machine itself
// needs (funding, long/short ratio, klines, liquidations, OI), and
// persisting the resulting state + signals, the signal stream being the
// sole coupling to the Paper Trader.
type Manager struct {
	clock clock.Clock

	strategyRepo *store.StrategyStateRepository
	signalRepo   *store.SignalRepository

	atrRepo       *store.ATRRepository
	gridRepo      *store.GridRepository
	ssmRepo       *store.SSMRepository
	fundingRepo   *store.FundingRateRepository
	lsRatioRepo   *store.LongShortRatioRepository
	klineRepo     *store.KlineRepository
	liqRepo       *store.LiquidationRepository
	oiRepo        *store.OISnapshotRepository

	calendar []macroguard.Event
}

// NewManager wires a Manager from its repository and clock dependencies.
func NewManager(
	clk clock.Clock,
	strategyRepo *store.StrategyStateRepository,
	signalRepo *store.SignalRepository,
	atrRepo *store.ATRRepository,
	gridRepo *store.GridRepository,
	ssmRepo *store.SSMRepository,
	fundingRepo *store.FundingRateRepository,
	lsRatioRepo *store.LongShortRatioRepository,
	klineRepo *store.KlineRepository,
	liqRepo *store.LiquidationRepository,
	oiRepo *store.OISnapshotRepository,
) *Manager {
	return &Manager{
		clock: clk, strategyRepo: strategyRepo, signalRepo: signalRepo,
		atrRepo: atrRepo, gridRepo: gridRepo, ssmRepo: ssmRepo,
		fundingRepo: fundingRepo, lsRatioRepo: lsRatioRepo, klineRepo: klineRepo,
		liqRepo: liqRepo, oiRepo: oiRepo,
	}
}

// SetCalendar installs the macro-event calendar, already parsed into
// macroguard.Event by the caller.
func (m *Manager) SetCalendar(calendar []macroguard.Event) { m.calendar = calendar }

// Tick evaluates one symbol. Any engine input that could not be loaded is
// passed through as a zero value rather than failing the tick.
func (m *Manager) Tick(symbol string) error {
	now := m.clock.Now()

	prevRow, err := m.strategyRepo.Latest(symbol)
	if err != nil {
		return fmt.Errorf("load strategy state: %w", err)
	}
	prev := Default(symbol)
	if prevRow != nil {
		prev = fromRow(*prevRow)
	}

	in, err := m.gatherInputs(symbol, now, prev)
	if err != nil {
		return fmt.Errorf("gather tick inputs: %w", err)
	}

	guard := macroguard.Evaluate(now, m.calendar)
	prev.MacroBlocked = guard.Blocked
	prev.MacroBlockReason = guard.Reason

	out := decide(prev, in)

	for _, sig := range out.Signals {
		if err := m.appendSignal(sig, now); err != nil {
			return fmt.Errorf("append signal: %w", err)
		}
	}

	if _, err := m.strategyRepo.Insert(toRow(out.Next, now)); err != nil {
		return fmt.Errorf("persist strategy state: %w", err)
	}
	return nil
}

func (m *Manager) gatherInputs(symbol string, now time.Time, prev State) (Inputs, error) {
	in := Inputs{Now: now}

	if f, err := m.fundingRepo.Latest(symbol); err == nil && f != nil {
		in.FundingRate = &f.Rate
	}
	if l, err := m.lsRatioRepo.Latest(symbol); err == nil && l != nil {
		in.LongAccount = &l.LongAccount
	}

	if k, err := m.klineRepo.Latest(symbol, "5m"); err == nil && k != nil {
		in.CurrentPrice = k.Close
	} else if d, err := m.klineRepo.Latest(symbol, "1d"); err == nil && d != nil {
		in.CurrentPrice = d.Close
	}

	if grid, err := m.gridRepo.Latest(symbol); err == nil && grid != nil {
		in.LatestGrid = &Grid{ID: grid.ID, LowerBound: grid.LowerBound, UpperBound: grid.UpperBound}
	}
	if prev.L4GridConfigID != 0 {
		if grid, err := m.gridRepo.ByID(prev.L4GridConfigID); err == nil && grid != nil {
			in.ActivationGrid = &Grid{ID: grid.ID, LowerBound: grid.LowerBound, UpperBound: grid.UpperBound}
		}
	}

	if atr, err := m.atrRepo.Latest(symbol); err == nil && atr != nil {
		in.ATR = &atr.ATR
		in.StopLossPct = &atr.StopLossPct
	}
	if ssm, err := m.ssmRepo.Latest(symbol); err == nil && ssm != nil {
		in.SSMTotal = ssm.TotalScore
	}

	in.TrendUp = m.shortTermTrend(symbol)

	closes, err := m.klineRepo.RecentAsc(symbol, "5m", 48)
	if err == nil {
		in.Last48Closes = make([]float64, len(closes))
		for i, c := range closes {
			in.Last48Closes[i] = c.Close
		}
	}

	if cnt, err := m.liqRepo.CountSince(symbol, now.Add(-time.Hour).UnixMilli()); err == nil {
		in.LiqCountLastHr = cnt
	}
	if oiSnaps, err := m.oiRepo.RecentN(symbol, 5); err == nil {
		in.RecentOI = make([]float64, len(oiSnaps))
		for i, s := range oiSnaps {
			in.RecentOI[i] = s.OpenInterest
		}
	}
	if latestOI, err := m.oiRepo.Latest(symbol); err == nil && latestOI != nil {
		in.CurrentOI = latestOI.OpenInterest
	}

	return in, nil
}

// shortTermTrend compares the latest of 3 5m closes against the oldest of
// those 3; falls back to the daily close vs its predecessor when fewer
// than 3 5m candles exist.
func (m *Manager) shortTermTrend(symbol string) *bool {
	recent, err := m.klineRepo.RecentAsc(symbol, "5m", 3)
	if err == nil && len(recent) == 3 {
		up := recent[2].Close > recent[0].Close
		return &up
	}

	daily, err := m.klineRepo.RecentAsc(symbol, "1d", 2)
	if err == nil && len(daily) == 2 {
		up := daily[1].Close > daily[0].Close
		return &up
	}
	return nil
}

func (m *Manager) appendSignal(sig Signal, now time.Time) error {
	details, err := json.Marshal(sig.Details)
	if err != nil {
		return err
	}
	row := store.Signal{
		Symbol:     sig.Symbol,
		SignalType: sig.SignalType,
		Details:    string(details),
		SSMScore:   sig.SSMScore,
		CreatedAt:  now.Unix(),
	}
	if sig.Direction != "" {
		d := sig.Direction
		row.Direction = &d
	}
	_, err = m.signalRepo.Append(row)
	return err
}

func fromRow(s store.StrategyState) State {
	st := State{
		Symbol:                  s.Symbol,
		StateName:               s.State,
		L1Active:                s.L1Active,
		L2Active:                s.L2Active,
		L2Step:                  s.L2Step,
		L2EntryPct:              s.L2EntryPct,
		L2AvgEntryPrice:         s.L2AvgEntryPrice,
		L2ScoreAtEntry:          s.L2ScoreAtEntry,
		L2DirectionChangesToday: s.L2DirectionChangesToday,
		L2LastResetDate:         s.L2LastResetDate,
		L4Active:                s.L4Active,
		MacroBlocked:            s.MacroBlocked,
	}
	if s.L1EntryReason != nil {
		st.L1EntryReason = *s.L1EntryReason
	}
	if s.L2Direction != nil {
		st.L2Direction = *s.L2Direction
	}
	if s.L2Step1Time != nil {
		if t, err := time.Parse(time.RFC3339, *s.L2Step1Time); err == nil {
			st.L2Step1Time = t
		}
	}
	if s.L4GridConfigID != nil {
		st.L4GridConfigID = *s.L4GridConfigID
	}
	if s.MacroBlockReason != nil {
		st.MacroBlockReason = *s.MacroBlockReason
	}
	return st
}

func toRow(s State, now time.Time) store.StrategyState {
	row := store.StrategyState{
		Symbol:                  s.Symbol,
		State:                   s.StateName,
		L1Active:                s.L1Active,
		L2Active:                s.L2Active,
		L2Step:                  s.L2Step,
		L2EntryPct:              s.L2EntryPct,
		L2AvgEntryPrice:         s.L2AvgEntryPrice,
		L2ScoreAtEntry:          s.L2ScoreAtEntry,
		L2DirectionChangesToday: s.L2DirectionChangesToday,
		L2LastResetDate:         s.L2LastResetDate,
		L4Active:                s.L4Active,
		MacroBlocked:            s.MacroBlocked,
		UpdatedAt:               now.Unix(),
	}
	if s.L1EntryReason != "" {
		row.L1EntryReason = &s.L1EntryReason
	}
	if s.L2Direction != "" {
		row.L2Direction = &s.L2Direction
	}
	if !s.L2Step1Time.IsZero() {
		ts := s.L2Step1Time.Format(time.RFC3339)
		row.L2Step1Time = &ts
	}
	if s.L4GridConfigID != 0 {
		row.L4GridConfigID = &s.L4GridConfigID
	}
	if s.MacroBlockReason != "" {
		row.MacroBlockReason = &s.MacroBlockReason
	}
	return row
}
