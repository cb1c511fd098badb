package store

import (
	"database/sql"
	"fmt"
)

// PaperTradeRepository owns paper_trades. The Paper Trader is its sole
// writer; at most one OPEN row may exist per symbol.
type PaperTradeRepository struct{ db *sql.DB }

func NewPaperTradeRepository(db *sql.DB) *PaperTradeRepository {
	return &PaperTradeRepository{db: db}
}

func (r *PaperTradeRepository) Insert(t PaperTrade) (int64, error) {
	res, err := r.db.Exec(
		`INSERT INTO paper_trades (symbol, status, direction, l2_step, entry_pct, avg_entry_price,
			stop_loss_price, exit_price, exit_reason, pnl_pct, pnl_weighted, score_at_entry, opened_at, closed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Symbol, t.Status, t.Direction, t.L2Step, t.EntryPct, t.AvgEntryPrice,
		t.StopLossPrice, t.ExitPrice, t.ExitReason, t.PnLPct, t.PnLWeighted, t.ScoreAtEntry, t.OpenedAt, t.ClosedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert paper trade: %w", err)
	}
	return res.LastInsertId()
}

func (r *PaperTradeRepository) Update(t PaperTrade) error {
	_, err := r.db.Exec(
		`UPDATE paper_trades SET status=?, direction=?, l2_step=?, entry_pct=?, avg_entry_price=?,
			stop_loss_price=?, exit_price=?, exit_reason=?, pnl_pct=?, pnl_weighted=?, closed_at=?
		 WHERE id = ?`,
		t.Status, t.Direction, t.L2Step, t.EntryPct, t.AvgEntryPrice,
		t.StopLossPrice, t.ExitPrice, t.ExitReason, t.PnLPct, t.PnLWeighted, t.ClosedAt, t.ID,
	)
	if err != nil {
		return fmt.Errorf("update paper trade: %w", err)
	}
	return nil
}

// OpenForSymbol returns the single OPEN trade for symbol, or nil.
func (r *PaperTradeRepository) OpenForSymbol(symbol string) (*PaperTrade, error) {
	var t PaperTrade
	err := r.db.QueryRow(
		`SELECT id, symbol, status, direction, l2_step, entry_pct, avg_entry_price, stop_loss_price,
			exit_price, exit_reason, pnl_pct, pnl_weighted, score_at_entry, opened_at, closed_at
		 FROM paper_trades WHERE symbol = ? AND status = 'OPEN' ORDER BY id DESC LIMIT 1`,
		symbol,
	).Scan(&t.ID, &t.Symbol, &t.Status, &t.Direction, &t.L2Step, &t.EntryPct, &t.AvgEntryPrice, &t.StopLossPrice,
		&t.ExitPrice, &t.ExitReason, &t.PnLPct, &t.PnLWeighted, &t.ScoreAtEntry, &t.OpenedAt, &t.ClosedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open trade for symbol: %w", err)
	}
	return &t, nil
}

// ClosedForSymbol returns every CLOSED trade for symbol, oldest first, the
// series a report's win rate and drawdown are computed over.
func (r *PaperTradeRepository) ClosedForSymbol(symbol string) ([]PaperTrade, error) {
	rows, err := r.db.Query(
		`SELECT id, symbol, status, direction, l2_step, entry_pct, avg_entry_price, stop_loss_price,
			exit_price, exit_reason, pnl_pct, pnl_weighted, score_at_entry, opened_at, closed_at
		 FROM paper_trades WHERE symbol = ? AND status = 'CLOSED' ORDER BY closed_at ASC`,
		symbol,
	)
	if err != nil {
		return nil, fmt.Errorf("closed trades for symbol: %w", err)
	}
	defer rows.Close()

	var trades []PaperTrade
	for rows.Next() {
		var t PaperTrade
		if err := rows.Scan(&t.ID, &t.Symbol, &t.Status, &t.Direction, &t.L2Step, &t.EntryPct, &t.AvgEntryPrice,
			&t.StopLossPrice, &t.ExitPrice, &t.ExitReason, &t.PnLPct, &t.PnLWeighted, &t.ScoreAtEntry,
			&t.OpenedAt, &t.ClosedAt); err != nil {
			return nil, fmt.Errorf("scan closed trade: %w", err)
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// CountOpen returns the number of OPEN trades for symbol.
func (r *PaperTradeRepository) CountOpen(symbol string) (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM paper_trades WHERE symbol = ? AND status = 'OPEN'`, symbol).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count open trades: %w", err)
	}
	return n, nil
}

// PaperL1FundingRepository owns paper_l1_funding.
type PaperL1FundingRepository struct{ db *sql.DB }

func NewPaperL1FundingRepository(db *sql.DB) *PaperL1FundingRepository {
	return &PaperL1FundingRepository{db: db}
}

// SumPnL sums every recorded L1 funding paper PnL, the funding-carry leg of
// an equity snapshot.
func (r *PaperL1FundingRepository) SumPnL(symbol string) (float64, error) {
	var total float64
	err := r.db.QueryRow(
		`SELECT COALESCE(SUM(pnl_pct), 0) FROM paper_l1_funding WHERE symbol = ?`,
		symbol,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum l1 funding pnl: %w", err)
	}
	return total, nil
}

func (r *PaperL1FundingRepository) Insert(f PaperL1Funding) error {
	_, err := r.db.Exec(
		`INSERT INTO paper_l1_funding (symbol, funding_rate, pnl_pct, l2_conflict, recorded_at) VALUES (?, ?, ?, ?, ?)`,
		f.Symbol, f.FundingRate, f.PnLPct, f.L2Conflict, f.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("insert paper l1 funding: %w", err)
	}
	return nil
}

// PaperL4GridRepository owns paper_l4_grid.
type PaperL4GridRepository struct{ db *sql.DB }

func NewPaperL4GridRepository(db *sql.DB) *PaperL4GridRepository {
	return &PaperL4GridRepository{db: db}
}

func (r *PaperL4GridRepository) Insert(g PaperL4Grid) error {
	_, err := r.db.Exec(
		`INSERT INTO paper_l4_grid (symbol, grid_config_id, side, band_index, price, pnl_pct, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		g.Symbol, g.GridConfigID, g.Side, g.BandIndex, g.Price, g.PnLPct, g.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("insert paper l4 grid fill: %w", err)
	}
	return nil
}

// SumSellPnL sums the SELL-side grid fills' pnl_pct, the grid engine's
// realized paper contribution to an equity snapshot.
func (r *PaperL4GridRepository) SumSellPnL(symbol string) (float64, error) {
	var total float64
	err := r.db.QueryRow(
		`SELECT COALESCE(SUM(pnl_pct), 0) FROM paper_l4_grid WHERE symbol = ? AND side = 'SELL'`,
		symbol,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum l4 grid pnl: %w", err)
	}
	return total, nil
}

// LastBandIndex returns the band index of the most recent fill for the
// given grid config, or -1 if none exists yet.
func (r *PaperL4GridRepository) LastBandIndex(symbol string, gridConfigID int64) (int, error) {
	var idx int
	err := r.db.QueryRow(
		`SELECT band_index FROM paper_l4_grid WHERE symbol = ? AND grid_config_id = ? ORDER BY id DESC LIMIT 1`,
		symbol, gridConfigID,
	).Scan(&idx)
	if err == sql.ErrNoRows {
		return -1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("last band index: %w", err)
	}
	return idx, nil
}

// PaperSummaryRepository owns paper_summary.
type PaperSummaryRepository struct{ db *sql.DB }

func NewPaperSummaryRepository(db *sql.DB) *PaperSummaryRepository {
	return &PaperSummaryRepository{db: db}
}

// Upsert adds deltaPnL to the day's realized PnL, one to its trade_count,
// and one to its win_count when won.
func (r *PaperSummaryRepository) Upsert(symbol, date string, deltaPnL float64, won bool, now int64) error {
	winDelta := 0
	if won {
		winDelta = 1
	}
	_, err := r.db.Exec(
		`INSERT INTO paper_summary (symbol, summary_date, realized_pnl, trade_count, win_count, updated_at)
		 VALUES (?, ?, ?, 1, ?, ?)
		 ON CONFLICT(symbol, summary_date) DO UPDATE SET
			realized_pnl = realized_pnl + excluded.realized_pnl,
			trade_count = trade_count + 1,
			win_count = win_count + excluded.win_count,
			updated_at = excluded.updated_at`,
		symbol, date, deltaPnL, winDelta, now,
	)
	if err != nil {
		return fmt.Errorf("upsert paper summary: %w", err)
	}
	return nil
}

// ForSymbol returns every daily summary row for symbol, ascending by date.
func (r *PaperSummaryRepository) ForSymbol(symbol string) ([]PaperSummary, error) {
	rows, err := r.db.Query(
		`SELECT id, symbol, summary_date, realized_pnl, trade_count, win_count, updated_at
		 FROM paper_summary WHERE symbol = ? ORDER BY summary_date ASC`,
		symbol,
	)
	if err != nil {
		return nil, fmt.Errorf("summaries for symbol: %w", err)
	}
	defer rows.Close()
	var out []PaperSummary
	for rows.Next() {
		var s PaperSummary
		if err := rows.Scan(&s.ID, &s.Symbol, &s.SummaryDate, &s.RealizedPnL, &s.TradeCount, &s.WinCount, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan paper summary: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
