package backtest

import (
	"fmt"

	"github.com/aristath/cryptostrat/internal/store"
)

// EquitySnapshot is one point-in-time paper PnL read-out: L2 realized +
// unrealized, L1 funding carry, and L4 grid fills summed independently,
// then combined.
type EquitySnapshot struct {
	L2Realized   float64
	L2Unrealized float64
	L1PnL        float64
	L4PnL        float64
	Total        float64
}

// Equity computes symbol's current equity snapshot from the paper trader's
// tables. Grid and funding PnL are summed over the entire run so far, not a
// rolling window.
func Equity(
	trades *store.PaperTradeRepository,
	summaries *store.PaperSummaryRepository,
	funding *store.PaperL1FundingRepository,
	grid *store.PaperL4GridRepository,
	klines *store.KlineRepository,
	symbol string,
) (EquitySnapshot, error) {
	var snap EquitySnapshot

	daily, err := summaries.ForSymbol(symbol)
	if err != nil {
		return snap, fmt.Errorf("paper summaries: %w", err)
	}
	for _, d := range daily {
		snap.L2Realized += d.RealizedPnL
	}

	open, err := trades.OpenForSymbol(symbol)
	if err != nil {
		return snap, fmt.Errorf("open trade: %w", err)
	}
	if open != nil && open.AvgEntryPrice > 0 {
		price, err := klines.Latest(symbol, "5m")
		if err != nil {
			return snap, fmt.Errorf("latest price: %w", err)
		}
		if price != nil {
			if open.Direction == "LONG" {
				snap.L2Unrealized = (price.Close - open.AvgEntryPrice) / open.AvgEntryPrice * 100 * open.EntryPct
			} else {
				snap.L2Unrealized = (open.AvgEntryPrice - price.Close) / open.AvgEntryPrice * 100 * open.EntryPct
			}
		}
	}

	l1, err := funding.SumPnL(symbol)
	if err != nil {
		return snap, err
	}
	snap.L1PnL = l1

	l4, err := grid.SumSellPnL(symbol)
	if err != nil {
		return snap, err
	}
	snap.L4PnL = l4

	snap.Total = snap.L2Realized + snap.L2Unrealized + snap.L1PnL + snap.L4PnL
	return snap, nil
}
