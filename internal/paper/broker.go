// Package paper implements the Paper Trader: consumes signal_log in
// strict id order and books L1/L2/L4 paper PnL. broker.go holds the pure
// per-signal reducer; manager.go wires it to the repository layer.
package paper

import (
	"encoding/json"
	"strconv"

	"github.com/aristath/cryptostrat/internal/strategy"
)

const (
	l1EffectiveNone  = 0.0
	l1EffectiveFull  = 1.0
	gridPnLBuy       = 0.0
)

// OpenTrade mirrors the single OPEN paper_trades row for a symbol: at
// most one at a time.
type OpenTrade struct {
	Direction     string
	L2Step        int
	EntryPct      float64
	AvgEntryPrice float64
	StopLossPrice float64
	ScoreAtEntry  float64
}

// Effect is what one consumed signal produces: an optional open-trade
// mutation or closure, mirrored onto persistence by the Manager. ApplySignal
// never sets L1Funding; L1 funding comes from ApplyFunding and L4 grid
// fills from GridFill.
type Effect struct {
	OpenTrade  *OpenTrade // new/updated OPEN trade snapshot, nil when unaffected
	Close      *CloseResult
	L1Funding  *L1FundingResult
}

// CloseResult is emitted when a signal closes the open trade.
type CloseResult struct {
	ExitPrice   float64
	ExitReason  string
	PnLPct      float64
	PnLWeighted float64
}

// L1FundingResult is one L1 funding paper-PnL entry.
type L1FundingResult struct {
	PnLPct     float64
	L2Conflict bool
}

// ApplySignal reduces one signal_log row against the current open trade.
// L1 funding capture is not a signal type and is booked separately — see
// ApplyFunding.
func ApplySignal(open *OpenTrade, sig SignalView) Effect {
	switch sig.SignalType {
	case strategy.SignalL2Step1:
		price, stop, entryPct := detailFloat(sig.Details, "price"), detailFloat(sig.Details, "stop_price"), detailFloat(sig.Details, "entry_pct")
		return Effect{OpenTrade: &OpenTrade{
			Direction: sig.Direction, L2Step: 1, EntryPct: entryPct,
			AvgEntryPrice: price, StopLossPrice: stop, ScoreAtEntry: sig.SSMScore,
		}}

	case strategy.SignalL2Step2:
		if open == nil {
			return Effect{}
		}
		next := *open
		next.L2Step = 2
		next.EntryPct = detailFloat(sig.Details, "entry_pct")
		next.AvgEntryPrice = detailFloat(sig.Details, "avg_entry_price")
		return Effect{OpenTrade: &next}

	case strategy.SignalL2Step3:
		if open == nil {
			return Effect{}
		}
		next := *open
		next.L2Step = 3
		next.EntryPct = detailFloat(sig.Details, "entry_pct")
		next.AvgEntryPrice = detailFloat(sig.Details, "avg_entry_price")
		return Effect{OpenTrade: &next}

	case strategy.SignalL2Exit:
		if open == nil {
			return Effect{}
		}
		exitPrice := detailFloat(sig.Details, "exit_price")
		pnlPct := detailFloat(sig.Details, "pnl_pct")
		pnlWeighted := detailFloat(sig.Details, "pnl_weighted")
		reason, _ := sig.Details["reason"].(string)
		return Effect{Close: &CloseResult{ExitPrice: exitPrice, ExitReason: reason, PnLPct: pnlPct, PnLWeighted: pnlWeighted}}
	}

	return Effect{}
}

// ApplyFunding computes one L1 paper-funding row: pnl% = funding ×
// 100 × l1Effective, where l1Effective collapses to 0 — recording
// l2_conflict — when L2 is simultaneously SHORT (decision: keep the
// single-number collapse rather than splitting per conflicting leg).
func ApplyFunding(fundingRate float64, l2Active bool, l2Direction string) L1FundingResult {
	effective := l1EffectiveFull
	conflict := false
	if l2Active && l2Direction == "SHORT" {
		effective = l1EffectiveNone
		conflict = true
	}
	return L1FundingResult{PnLPct: fundingRate * 100 * effective, L2Conflict: conflict}
}

// GridFill computes one L4 grid paper fill on a band-index transition:
// upward crossing sells at a fixed per-grid-step return; downward
// crossing buys at zero pnl (a position entry, not a realization).
func GridFill(lower, upper float64, count int, prevBand, newBand int) (side string, pnlPct float64, ok bool) {
	if newBand == prevBand || count <= 0 {
		return "", 0, false
	}
	if newBand > prevBand {
		return "SELL", (upper - lower) / lower * 100 / float64(count), true
	}
	return "BUY", gridPnLBuy, true
}

// SignalView is the minimal signal_log shape the broker needs, decoupled
// from the store package's row type.
type SignalView struct {
	ID         int64
	SignalType string
	Direction  string
	Details    map[string]any
	SSMScore   float64
}

// ParseSignalDetails decodes the JSON details column into a map.
func ParseSignalDetails(raw string) map[string]any {
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return map[string]any{}
	}
	return out
}

func detailFloat(details map[string]any, key string) float64 {
	switch v := details[key].(type) {
	case float64:
		return v
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	default:
		return 0
	}
}
