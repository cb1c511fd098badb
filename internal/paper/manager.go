package paper

import (
	"fmt"
	"strconv"
	"time"

	"github.com/aristath/cryptostrat/internal/clock"
	"github.com/aristath/cryptostrat/internal/store"
)

const lastSignalIDKeyPrefix = "paper_trader:last_signal_id:"

// Manager drains signal_log for one symbol in strict id order and books
// paper PnL through the repository layer. The last_signal_id cursor in the
// settings table is written in a separate statement right after each
// signal's writes; the two do not share a transaction, so a failure
// between them leaves the signal applied with the cursor not advanced.
type Manager struct {
	clock clock.Clock

	signalRepo   *store.SignalRepository
	tradeRepo    *store.PaperTradeRepository
	fundingRepo  *store.PaperL1FundingRepository
	gridFillRepo *store.PaperL4GridRepository
	summaryRepo  *store.PaperSummaryRepository
	settingsRepo *store.SettingsRepository
	gridRepo     *store.GridRepository
	strategyRepo *store.StrategyStateRepository
}

func NewManager(
	clk clock.Clock,
	signalRepo *store.SignalRepository,
	tradeRepo *store.PaperTradeRepository,
	fundingRepo *store.PaperL1FundingRepository,
	gridFillRepo *store.PaperL4GridRepository,
	summaryRepo *store.PaperSummaryRepository,
	settingsRepo *store.SettingsRepository,
	gridRepo *store.GridRepository,
	strategyRepo *store.StrategyStateRepository,
) *Manager {
	return &Manager{
		clock: clk, signalRepo: signalRepo, tradeRepo: tradeRepo, fundingRepo: fundingRepo,
		gridFillRepo: gridFillRepo, summaryRepo: summaryRepo, settingsRepo: settingsRepo,
		gridRepo: gridRepo, strategyRepo: strategyRepo,
	}
}

// ConsumeSignals drains every signal for symbol with id > the persisted
// cursor (P2: monotone consumption) and applies each to the open trade.
func (m *Manager) ConsumeSignals(symbol string) error {
	lastID, err := m.lastSignalID(symbol)
	if err != nil {
		return err
	}

	signals, err := m.signalRepo.After(symbol, lastID)
	if err != nil {
		return fmt.Errorf("load signals after %d: %w", lastID, err)
	}

	for _, sig := range signals {
		if err := m.applyOne(symbol, sig); err != nil {
			return fmt.Errorf("apply signal %d: %w", sig.ID, err)
		}
		if err := m.setLastSignalID(symbol, sig.ID); err != nil {
			return fmt.Errorf("advance cursor to %d: %w", sig.ID, err)
		}
	}
	return nil
}

func (m *Manager) applyOne(symbol string, sig store.Signal) error {
	direction := ""
	if sig.Direction != nil {
		direction = *sig.Direction
	}
	view := SignalView{
		ID: sig.ID, SignalType: sig.SignalType, Direction: direction,
		Details: ParseSignalDetails(sig.Details), SSMScore: sig.SSMScore,
	}

	open, err := m.tradeRepo.OpenForSymbol(symbol)
	if err != nil {
		return err
	}
	var current *OpenTrade
	if open != nil {
		current = &OpenTrade{
			Direction: open.Direction, L2Step: open.L2Step, EntryPct: open.EntryPct,
			AvgEntryPrice: open.AvgEntryPrice, StopLossPrice: open.StopLossPrice, ScoreAtEntry: open.ScoreAtEntry,
		}
	}

	effect := ApplySignal(current, view)
	now := m.clock.Unix()

	switch {
	case effect.OpenTrade != nil && open == nil:
		_, err = m.tradeRepo.Insert(store.PaperTrade{
			Symbol: symbol, Status: "OPEN", Direction: effect.OpenTrade.Direction,
			L2Step: effect.OpenTrade.L2Step, EntryPct: effect.OpenTrade.EntryPct,
			AvgEntryPrice: effect.OpenTrade.AvgEntryPrice, StopLossPrice: effect.OpenTrade.StopLossPrice,
			ScoreAtEntry: effect.OpenTrade.ScoreAtEntry, OpenedAt: now,
		})
		return err

	case effect.OpenTrade != nil && open != nil:
		open.L2Step = effect.OpenTrade.L2Step
		open.EntryPct = effect.OpenTrade.EntryPct
		open.AvgEntryPrice = effect.OpenTrade.AvgEntryPrice
		return m.tradeRepo.Update(*open)

	case effect.Close != nil && open != nil:
		exitPrice := effect.Close.ExitPrice
		reason := effect.Close.ExitReason
		pnlPct := effect.Close.PnLPct
		pnlWeighted := effect.Close.PnLWeighted
		open.Status = "CLOSED"
		open.ExitPrice = &exitPrice
		open.ExitReason = &reason
		open.PnLPct = &pnlPct
		open.PnLWeighted = &pnlWeighted
		open.ClosedAt = &now
		if err := m.tradeRepo.Update(*open); err != nil {
			return err
		}
		date := time.Unix(now, 0).UTC().Format("2006-01-02")
		return m.summaryRepo.Upsert(symbol, date, pnlWeighted, pnlWeighted > 0, now)
	}

	return nil
}

// ApplyFundingTick books one L1 funding paper row for the latest funding
// observation; called by the scheduler on each funding-rate collection,
// not driven by signal_log — whenever l1_active is true and a new
// funding_rates.collected_at is observed.
func (m *Manager) ApplyFundingTick(symbol string, fundingRate float64) error {
	state, err := m.strategyRepo.Latest(symbol)
	if err != nil {
		return fmt.Errorf("load strategy state for funding tick: %w", err)
	}
	if state == nil || !state.L1Active {
		return nil
	}
	direction := ""
	if state.L2Direction != nil {
		direction = *state.L2Direction
	}
	result := ApplyFunding(fundingRate, state.L2Active, direction)
	return m.fundingRepo.Insert(store.PaperL1Funding{
		Symbol: symbol, FundingRate: fundingRate, PnLPct: result.PnLPct,
		L2Conflict: result.L2Conflict, RecordedAt: m.clock.Unix(),
	})
}

// ApplyGridTick checks the current price against the active grid and
// books an L4 fill on band-index transition.
func (m *Manager) ApplyGridTick(symbol string, gridConfigID int64, price float64) error {
	grid, err := m.gridRepo.ByID(gridConfigID)
	if err != nil || grid == nil {
		return err
	}
	if grid.GridSpacing <= 0 {
		return nil
	}
	newBand := int((price - grid.LowerBound) / grid.GridSpacing)

	prevBand, err := m.gridFillRepo.LastBandIndex(symbol, gridConfigID)
	if err != nil {
		return fmt.Errorf("last band index: %w", err)
	}
	if prevBand == -1 {
		// No fill yet on this grid: the first observed band is kept in
		// settings so the next transition away from it books a fill.
		key := fmt.Sprintf("paper_trader:first_band:%s:%d", symbol, gridConfigID)
		seen, err := m.settingsRepo.Get(key)
		if err != nil {
			return fmt.Errorf("first band index: %w", err)
		}
		if seen == nil {
			return m.settingsRepo.Set(key, strconv.Itoa(newBand), m.clock.Unix())
		}
		prevBand, _ = strconv.Atoi(*seen)
	}

	side, pnlPct, ok := GridFill(grid.LowerBound, grid.UpperBound, grid.GridCount, prevBand, newBand)
	if !ok {
		return nil
	}
	return m.gridFillRepo.Insert(store.PaperL4Grid{
		Symbol: symbol, GridConfigID: gridConfigID, Side: side, BandIndex: newBand,
		Price: price, PnLPct: pnlPct, RecordedAt: m.clock.Unix(),
	})
}

func (m *Manager) lastSignalID(symbol string) (int64, error) {
	v, err := m.settingsRepo.Get(lastSignalIDKeyPrefix + symbol)
	if err != nil {
		return 0, err
	}
	if v == nil {
		return 0, nil
	}
	id, err := strconv.ParseInt(*v, 10, 64)
	if err != nil {
		return 0, nil
	}
	return id, nil
}

func (m *Manager) setLastSignalID(symbol string, id int64) error {
	return m.settingsRepo.Set(lastSignalIDKeyPrefix+symbol, strconv.FormatInt(id, 10), m.clock.Unix())
}
