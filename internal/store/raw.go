package store

import (
	"database/sql"
	"fmt"
)

// LiquidationRepository owns the liquidations table: the liquidation
// stream collector is its sole writer.
type LiquidationRepository struct{ db *sql.DB }

func NewLiquidationRepository(db *sql.DB) *LiquidationRepository {
	return &LiquidationRepository{db: db}
}

func (r *LiquidationRepository) Insert(l Liquidation) error {
	_, err := r.db.Exec(
		`INSERT INTO liquidations (symbol, side, price, qty, trade_time, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		l.Symbol, l.Side, l.Price, l.Qty, l.TradeTime, l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert liquidation: %w", err)
	}
	return nil
}

// SumSince returns sum(price*qty) for BUY-side and SELL-side liquidations
// with trade_time >= sinceMs, feeding Dynamic Threshold's liq_1h input.
func (r *LiquidationRepository) SumSince(symbol string, sinceMs int64) (buyUSD, sellUSD float64, err error) {
	rows, err := r.db.Query(
		`SELECT side, COALESCE(SUM(price*qty), 0) FROM liquidations WHERE symbol = ? AND trade_time >= ? GROUP BY side`,
		symbol, sinceMs,
	)
	if err != nil {
		return 0, 0, fmt.Errorf("sum liquidations since: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var side string
		var amount float64
		if err := rows.Scan(&side, &amount); err != nil {
			return 0, 0, fmt.Errorf("scan liquidation sum: %w", err)
		}
		if side == "BUY" {
			buyUSD = amount
		} else if side == "SELL" {
			sellUSD = amount
		}
	}
	return buyUSD, sellUSD, rows.Err()
}

// CountSince counts liquidations at or after sinceMs, feeding the box-
// formation exit condition.
func (r *LiquidationRepository) CountSince(symbol string, sinceMs int64) (int, error) {
	var n int
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM liquidations WHERE symbol = ? AND trade_time >= ?`,
		symbol, sinceMs,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count liquidations since: %w", err)
	}
	return n, nil
}

// OISnapshotRepository owns oi_snapshots.
type OISnapshotRepository struct{ db *sql.DB }

func NewOISnapshotRepository(db *sql.DB) *OISnapshotRepository {
	return &OISnapshotRepository{db: db}
}

func (r *OISnapshotRepository) Insert(s OISnapshot) error {
	_, err := r.db.Exec(
		`INSERT INTO oi_snapshots (symbol, open_interest, collected_at) VALUES (?, ?, ?)`,
		s.Symbol, s.OpenInterest, s.CollectedAt,
	)
	if err != nil {
		return fmt.Errorf("insert oi snapshot: %w", err)
	}
	return nil
}

// Latest returns the most recent open-interest reading, or nil if none
// exists.
func (r *OISnapshotRepository) Latest(symbol string) (*OISnapshot, error) {
	var s OISnapshot
	err := r.db.QueryRow(
		`SELECT id, symbol, open_interest, collected_at FROM oi_snapshots WHERE symbol = ? ORDER BY id DESC LIMIT 1`,
		symbol,
	).Scan(&s.ID, &s.Symbol, &s.OpenInterest, &s.CollectedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest oi snapshot: %w", err)
	}
	return &s, nil
}

// RecentN returns the n most recent snapshots, newest first, used for
// box-formation condition.
func (r *OISnapshotRepository) RecentN(symbol string, n int) ([]OISnapshot, error) {
	rows, err := r.db.Query(
		`SELECT id, symbol, open_interest, collected_at FROM oi_snapshots WHERE symbol = ? ORDER BY id DESC LIMIT ?`,
		symbol, n,
	)
	if err != nil {
		return nil, fmt.Errorf("recent oi snapshots: %w", err)
	}
	defer rows.Close()
	var out []OISnapshot
	for rows.Next() {
		var s OISnapshot
		if err := rows.Scan(&s.ID, &s.Symbol, &s.OpenInterest, &s.CollectedAt); err != nil {
			return nil, fmt.Errorf("scan oi snapshot: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// FundingRateRepository owns funding_rates.
type FundingRateRepository struct{ db *sql.DB }

func NewFundingRateRepository(db *sql.DB) *FundingRateRepository {
	return &FundingRateRepository{db: db}
}

func (r *FundingRateRepository) Insert(f FundingRate) error {
	_, err := r.db.Exec(
		`INSERT INTO funding_rates (symbol, rate, funding_time, collected_at) VALUES (?, ?, ?, ?)`,
		f.Symbol, f.Rate, f.FundingTime, f.CollectedAt,
	)
	if err != nil {
		return fmt.Errorf("insert funding rate: %w", err)
	}
	return nil
}

func (r *FundingRateRepository) Latest(symbol string) (*FundingRate, error) {
	var f FundingRate
	err := r.db.QueryRow(
		`SELECT id, symbol, rate, funding_time, collected_at FROM funding_rates WHERE symbol = ? ORDER BY id DESC LIMIT 1`,
		symbol,
	).Scan(&f.ID, &f.Symbol, &f.Rate, &f.FundingTime, &f.CollectedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest funding rate: %w", err)
	}
	return &f, nil
}

// LongShortRatioRepository owns long_short_ratios.
type LongShortRatioRepository struct{ db *sql.DB }

func NewLongShortRatioRepository(db *sql.DB) *LongShortRatioRepository {
	return &LongShortRatioRepository{db: db}
}

func (r *LongShortRatioRepository) Insert(l LongShortRatio) error {
	_, err := r.db.Exec(
		`INSERT INTO long_short_ratios (symbol, ratio, long_account, short_account, timestamp) VALUES (?, ?, ?, ?, ?)`,
		l.Symbol, l.Ratio, l.LongAccount, l.ShortAccount, l.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert long/short ratio: %w", err)
	}
	return nil
}

func (r *LongShortRatioRepository) Latest(symbol string) (*LongShortRatio, error) {
	var l LongShortRatio
	err := r.db.QueryRow(
		`SELECT id, symbol, ratio, long_account, short_account, timestamp FROM long_short_ratios WHERE symbol = ? ORDER BY id DESC LIMIT 1`,
		symbol,
	).Scan(&l.ID, &l.Symbol, &l.Ratio, &l.LongAccount, &l.ShortAccount, &l.Timestamp)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest long/short ratio: %w", err)
	}
	return &l, nil
}

// OrderbookWallRepository owns orderbook_walls. Walls are grouped by
// scan_id; Grid Range needs the two most recent scans to run its
// spoofing filter.
type OrderbookWallRepository struct{ db *sql.DB }

func NewOrderbookWallRepository(db *sql.DB) *OrderbookWallRepository {
	return &OrderbookWallRepository{db: db}
}

func (r *OrderbookWallRepository) Insert(w OrderbookWall) error {
	_, err := r.db.Exec(
		`INSERT INTO orderbook_walls (symbol, side, price, quantity, scan_id, collected_at) VALUES (?, ?, ?, ?, ?, ?)`,
		w.Symbol, w.Side, w.Price, w.Quantity, w.ScanID, w.CollectedAt,
	)
	if err != nil {
		return fmt.Errorf("insert orderbook wall: %w", err)
	}
	return nil
}

// RecentScanIDs returns up to n most recent distinct scan ids, newest first.
func (r *OrderbookWallRepository) RecentScanIDs(symbol string, n int) ([]string, error) {
	rows, err := r.db.Query(
		`SELECT scan_id FROM orderbook_walls WHERE symbol = ? GROUP BY scan_id ORDER BY MAX(collected_at) DESC LIMIT ?`,
		symbol, n,
	)
	if err != nil {
		return nil, fmt.Errorf("recent scan ids: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan scan_id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// WallsForScan returns every wall recorded under scanID.
func (r *OrderbookWallRepository) WallsForScan(symbol, scanID string) ([]OrderbookWall, error) {
	rows, err := r.db.Query(
		`SELECT id, symbol, side, price, quantity, scan_id, collected_at FROM orderbook_walls WHERE symbol = ? AND scan_id = ?`,
		symbol, scanID,
	)
	if err != nil {
		return nil, fmt.Errorf("walls for scan: %w", err)
	}
	defer rows.Close()
	var out []OrderbookWall
	for rows.Next() {
		var w OrderbookWall
		if err := rows.Scan(&w.ID, &w.Symbol, &w.Side, &w.Price, &w.Quantity, &w.ScanID, &w.CollectedAt); err != nil {
			return nil, fmt.Errorf("scan orderbook wall: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// KlineRepository owns klines.
type KlineRepository struct{ db *sql.DB }

func NewKlineRepository(db *sql.DB) *KlineRepository { return &KlineRepository{db: db} }

func (r *KlineRepository) Insert(k Kline) error {
	_, err := r.db.Exec(
		`INSERT INTO klines (symbol, interval, open_time, open, high, low, close, volume)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(symbol, interval, open_time) DO UPDATE SET
			open = excluded.open, high = excluded.high, low = excluded.low,
			close = excluded.close, volume = excluded.volume`,
		k.Symbol, k.Interval, k.OpenTime, k.Open, k.High, k.Low, k.Close, k.Volume,
	)
	if err != nil {
		return fmt.Errorf("insert kline: %w", err)
	}
	return nil
}

// RecentAsc returns the n most recent candles for interval, ascending by
// open_time (oldest first) — the order ATR and trend checks need.
func (r *KlineRepository) RecentAsc(symbol, interval string, n int) ([]Kline, error) {
	rows, err := r.db.Query(
		`SELECT id, symbol, interval, open_time, open, high, low, close, volume
		 FROM (SELECT * FROM klines WHERE symbol = ? AND interval = ? ORDER BY open_time DESC LIMIT ?)
		 ORDER BY open_time ASC`,
		symbol, interval, n,
	)
	if err != nil {
		return nil, fmt.Errorf("recent klines: %w", err)
	}
	defer rows.Close()
	var out []Kline
	for rows.Next() {
		var k Kline
		if err := rows.Scan(&k.ID, &k.Symbol, &k.Interval, &k.OpenTime, &k.Open, &k.High, &k.Low, &k.Close, &k.Volume); err != nil {
			return nil, fmt.Errorf("scan kline: %w", err)
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

func (r *KlineRepository) Latest(symbol, interval string) (*Kline, error) {
	var k Kline
	err := r.db.QueryRow(
		`SELECT id, symbol, interval, open_time, open, high, low, close, volume FROM klines WHERE symbol = ? AND interval = ? ORDER BY open_time DESC LIMIT 1`,
		symbol, interval,
	).Scan(&k.ID, &k.Symbol, &k.Interval, &k.OpenTime, &k.Open, &k.High, &k.Low, &k.Close, &k.Volume)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest kline: %w", err)
	}
	return &k, nil
}

// FearGreedRepository owns fear_greed.
type FearGreedRepository struct{ db *sql.DB }

func NewFearGreedRepository(db *sql.DB) *FearGreedRepository { return &FearGreedRepository{db: db} }

func (r *FearGreedRepository) Insert(f FearGreed) error {
	_, err := r.db.Exec(
		`INSERT INTO fear_greed (value, classification, fg_timestamp) VALUES (?, ?, ?)`,
		f.Value, f.Classification, f.FGTimestamp,
	)
	if err != nil {
		return fmt.Errorf("insert fear/greed: %w", err)
	}
	return nil
}

func (r *FearGreedRepository) Latest() (*FearGreed, error) {
	var f FearGreed
	err := r.db.QueryRow(
		`SELECT id, value, classification, fg_timestamp FROM fear_greed ORDER BY id DESC LIMIT 1`,
	).Scan(&f.ID, &f.Value, &f.Classification, &f.FGTimestamp)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest fear/greed: %w", err)
	}
	return &f, nil
}

// WhaleTransactionRepository owns whale_transactions.
type WhaleTransactionRepository struct{ db *sql.DB }

func NewWhaleTransactionRepository(db *sql.DB) *WhaleTransactionRepository {
	return &WhaleTransactionRepository{db: db}
}

func (r *WhaleTransactionRepository) Insert(w WhaleTransaction) error {
	_, err := r.db.Exec(
		`INSERT INTO whale_transactions (symbol, direction, inflow_usd, outflow_usd, tx_count, score, collected_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		w.Symbol, w.Direction, w.InflowUSD, w.OutflowUSD, w.TxCount, w.Score, w.CollectedAt,
	)
	if err != nil {
		return fmt.Errorf("insert whale transaction: %w", err)
	}
	return nil
}

func (r *WhaleTransactionRepository) Latest(symbol string) (*WhaleTransaction, error) {
	var w WhaleTransaction
	err := r.db.QueryRow(
		`SELECT id, symbol, direction, inflow_usd, outflow_usd, tx_count, score, collected_at
		 FROM whale_transactions WHERE symbol = ? ORDER BY id DESC LIMIT 1`,
		symbol,
	).Scan(&w.ID, &w.Symbol, &w.Direction, &w.InflowUSD, &w.OutflowUSD, &w.TxCount, &w.Score, &w.CollectedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest whale transaction: %w", err)
	}
	return &w, nil
}

// ExchangeNetflowRepository owns exchange_netflow.
type ExchangeNetflowRepository struct{ db *sql.DB }

func NewExchangeNetflowRepository(db *sql.DB) *ExchangeNetflowRepository {
	return &ExchangeNetflowRepository{db: db}
}

func (r *ExchangeNetflowRepository) Insert(n ExchangeNetflow) error {
	_, err := r.db.Exec(
		`INSERT INTO exchange_netflow (symbol, net_flow_usd, collected_at) VALUES (?, ?, ?)`,
		n.Symbol, n.NetFlowUSD, n.CollectedAt,
	)
	if err != nil {
		return fmt.Errorf("insert exchange netflow: %w", err)
	}
	return nil
}

func (r *ExchangeNetflowRepository) Latest(symbol string) (*ExchangeNetflow, error) {
	var n ExchangeNetflow
	err := r.db.QueryRow(
		`SELECT id, symbol, net_flow_usd, collected_at FROM exchange_netflow WHERE symbol = ? ORDER BY id DESC LIMIT 1`,
		symbol,
	).Scan(&n.ID, &n.Symbol, &n.NetFlowUSD, &n.CollectedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest exchange netflow: %w", err)
	}
	return &n, nil
}

// OnchainMetricRepository owns onchain_metrics (MVRV).
type OnchainMetricRepository struct{ db *sql.DB }

func NewOnchainMetricRepository(db *sql.DB) *OnchainMetricRepository {
	return &OnchainMetricRepository{db: db}
}

func (r *OnchainMetricRepository) Insert(m OnchainMetric) error {
	_, err := r.db.Exec(
		`INSERT INTO onchain_metrics (symbol, mvrv, signal, score, collected_at) VALUES (?, ?, ?, ?, ?)`,
		m.Symbol, m.MVRV, m.Signal, m.Score, m.CollectedAt,
	)
	if err != nil {
		return fmt.Errorf("insert onchain metric: %w", err)
	}
	return nil
}

func (r *OnchainMetricRepository) Latest(symbol string) (*OnchainMetric, error) {
	var m OnchainMetric
	err := r.db.QueryRow(
		`SELECT id, symbol, mvrv, signal, score, collected_at FROM onchain_metrics WHERE symbol = ? ORDER BY id DESC LIMIT 1`,
		symbol,
	).Scan(&m.ID, &m.Symbol, &m.MVRV, &m.Signal, &m.Score, &m.CollectedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest onchain metric: %w", err)
	}
	return &m, nil
}

// TakerRatioRepository owns taker_ratio.
type TakerRatioRepository struct{ db *sql.DB }

func NewTakerRatioRepository(db *sql.DB) *TakerRatioRepository {
	return &TakerRatioRepository{db: db}
}

func (r *TakerRatioRepository) Insert(t TakerRatio) error {
	_, err := r.db.Exec(
		`INSERT INTO taker_ratio (symbol, buy_sell_ratio, collected_at) VALUES (?, ?, ?)`,
		t.Symbol, t.BuySellRatio, t.CollectedAt,
	)
	if err != nil {
		return fmt.Errorf("insert taker ratio: %w", err)
	}
	return nil
}
