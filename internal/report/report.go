// Package report builds the per-symbol performance summary a backtest run
// or the live status endpoint hands back: equity curve, win rate, max
// drawdown and a Sharpe-like ratio over closed paper trades, computed fresh
// on every call with no persisted report rows.
package report

import (
	"fmt"
	"math"

	"github.com/aristath/cryptostrat/internal/backtest"
	"github.com/aristath/cryptostrat/internal/store"
	"gonum.org/v1/gonum/stat"
)

// Summary is one symbol's performance report.
type Summary struct {
	Symbol       string
	ClosedTrades int
	WinRate      float64 // WinCount / ClosedTrades, 0 when no closed trades
	MaxDrawdown  float64 // most negative peak-to-trough equity move, in pnl_pct points
	SharpeLike   float64 // mean(returns) / stddev(returns) × sqrt(n), 0 when fewer than 2 trades
	Equity       backtest.EquitySnapshot
	EquityCurve  []float64 // cumulative pnl_pct after each closed trade, oldest first
}

// Generate builds the Summary for one symbol from its closed trades and
// current equity snapshot.
func Generate(
	trades *store.PaperTradeRepository,
	summaries *store.PaperSummaryRepository,
	funding *store.PaperL1FundingRepository,
	grid *store.PaperL4GridRepository,
	klines *store.KlineRepository,
	symbol string,
) (Summary, error) {
	closed, err := trades.ClosedForSymbol(symbol)
	if err != nil {
		return Summary{}, fmt.Errorf("load closed trades: %w", err)
	}

	equity, err := backtest.Equity(trades, summaries, funding, grid, klines, symbol)
	if err != nil {
		return Summary{}, fmt.Errorf("compute equity snapshot: %w", err)
	}

	s := Summary{Symbol: symbol, ClosedTrades: len(closed), Equity: equity}
	if len(closed) == 0 {
		return s, nil
	}

	returns := make([]float64, 0, len(closed))
	wins := 0
	cumulative := 0.0
	curve := make([]float64, 0, len(closed))
	peak := 0.0
	maxDrawdown := 0.0
	for _, t := range closed {
		pnl := 0.0
		if t.PnLPct != nil {
			pnl = *t.PnLPct
		}
		returns = append(returns, pnl)
		if pnl > 0 {
			wins++
		}
		cumulative += pnl
		curve = append(curve, cumulative)
		if cumulative > peak {
			peak = cumulative
		}
		if drawdown := cumulative - peak; drawdown < maxDrawdown {
			maxDrawdown = drawdown
		}
	}

	s.WinRate = float64(wins) / float64(len(closed))
	s.MaxDrawdown = maxDrawdown
	s.EquityCurve = curve
	if len(returns) >= 2 {
		mean := stat.Mean(returns, nil)
		stddev := stat.StdDev(returns, nil)
		if stddev > 0 {
			s.SharpeLike = mean / stddev * math.Sqrt(float64(len(returns)))
		}
	}
	return s, nil
}
