// Package backtest replays previously collected history through a virtual
// clock so every engine sees data in the same order, and no sooner, than it
// would have live. A Feeder loads a symbol's time-series tables into memory,
// clears them from the store, then inserts rows back in one at a time as the
// simulated clock passes each row's timestamp.
package backtest

import (
	"database/sql"
	"fmt"
	"sort"

	"github.com/aristath/cryptostrat/internal/store"
)

// series buffers one table's historical rows in memory, sorted by unix
// timestamp, and replays them into the live repository one drip() call at a
// time as the virtual clock advances.
type series[T any] struct {
	rows   []T
	ts     []int64
	cursor int
	insert func(T) error
}

func newSeries[T any](rows []T, tsOf func(T) int64, insert func(T) error) *series[T] {
	sort.Slice(rows, func(i, j int) bool { return tsOf(rows[i]) < tsOf(rows[j]) })
	ts := make([]int64, len(rows))
	for i, r := range rows {
		ts[i] = tsOf(r)
	}
	return &series[T]{rows: rows, ts: ts, insert: insert}
}

func (s *series[T]) drip(currentUnix int64) error {
	for s.cursor < len(s.rows) && s.ts[s.cursor] <= currentUnix {
		if err := s.insert(s.rows[s.cursor]); err != nil {
			return err
		}
		s.cursor++
	}
	return nil
}

func (s *series[T]) remaining() int { return len(s.rows) - s.cursor }

// dripper erases the element type so Feeder can hold every table's series
// in one slice and drip them together each step.
type dripper interface {
	drip(currentUnix int64) error
	remaining() int
}

// Feeder owns every time-series table's in-memory buffer for one symbol.
// Daily klines are intentionally excluded: ATR needs the full history
// available up front rather than drip-fed one row at a time.
type Feeder struct {
	series []dripper
}

// NewFeeder loads symbol's historical rows from every drip-fed table,
// deletes them from the live tables, and returns a Feeder ready to replay
// them through drip. Must run against a dedicated backtest database copy,
// never a live/production one, since it empties the source tables.
func NewFeeder(db *sql.DB, symbol string) (*Feeder, error) {
	f := &Feeder{}

	liqRepo := store.NewLiquidationRepository(db)
	liqRows, err := loadAndClear(db, symbol, "liquidations", "trade_time", scanLiquidation)
	if err != nil {
		return nil, err
	}
	f.series = append(f.series, newSeries(liqRows, func(l store.Liquidation) int64 { return l.TradeTime / 1000 }, liqRepo.Insert))

	oiRepo := store.NewOISnapshotRepository(db)
	oiRows, err := loadAndClear(db, symbol, "oi_snapshots", "collected_at", scanOI)
	if err != nil {
		return nil, err
	}
	f.series = append(f.series, newSeries(oiRows, func(s store.OISnapshot) int64 { return s.CollectedAt }, oiRepo.Insert))

	frRepo := store.NewFundingRateRepository(db)
	frRows, err := loadAndClear(db, symbol, "funding_rates", "collected_at", scanFunding)
	if err != nil {
		return nil, err
	}
	f.series = append(f.series, newSeries(frRows, func(r store.FundingRate) int64 { return r.CollectedAt }, frRepo.Insert))

	lsRepo := store.NewLongShortRatioRepository(db)
	lsRows, err := loadAndClear(db, symbol, "long_short_ratios", "timestamp", scanLS)
	if err != nil {
		return nil, err
	}
	f.series = append(f.series, newSeries(lsRows, func(l store.LongShortRatio) int64 { return l.Timestamp / 1000 }, lsRepo.Insert))

	trRepo := store.NewTakerRatioRepository(db)
	trRows, err := loadAndClear(db, symbol, "taker_ratio", "collected_at", scanTaker)
	if err != nil {
		return nil, err
	}
	f.series = append(f.series, newSeries(trRows, func(t store.TakerRatio) int64 { return t.CollectedAt }, trRepo.Insert))

	fgRepo := store.NewFearGreedRepository(db)
	fgRows, err := loadFearGreedAndClear(db)
	if err != nil {
		return nil, err
	}
	f.series = append(f.series, newSeries(fgRows, func(fg store.FearGreed) int64 { return fg.FGTimestamp }, fgRepo.Insert))

	klineRepo := store.NewKlineRepository(db)
	klineRows, err := loadAndClear(db, symbol, "klines", "open_time", scanKline, "interval = '5m'")
	if err != nil {
		return nil, err
	}
	f.series = append(f.series, newSeries(klineRows, func(k store.Kline) int64 { return k.OpenTime / 1000 }, klineRepo.Insert))

	wallRepo := store.NewOrderbookWallRepository(db)
	wallRows, err := loadAndClear(db, symbol, "orderbook_walls", "collected_at", scanWall)
	if err != nil {
		return nil, err
	}
	f.series = append(f.series, newSeries(wallRows, func(w store.OrderbookWall) int64 { return w.CollectedAt }, wallRepo.Insert))

	return f, nil
}

// Drip inserts every row due at or before currentUnix into the live tables.
func (f *Feeder) Drip(currentUnix int64) error {
	for _, s := range f.series {
		if err := s.drip(currentUnix); err != nil {
			return err
		}
	}
	return nil
}

// Remaining reports how many buffered rows, across every table, have not
// yet been dripped — used to print backtest progress.
func (f *Feeder) Remaining() int {
	total := 0
	for _, s := range f.series {
		total += s.remaining()
	}
	return total
}

func loadAndClear[T any](db *sql.DB, symbol, table, timeCol string, scan func(*sql.Rows) (T, error), extraWhere ...string) ([]T, error) {
	where := "symbol = ?"
	args := []any{symbol}
	for _, w := range extraWhere {
		where += " AND " + w
	}
	rows, err := db.Query(fmt.Sprintf("SELECT * FROM %s WHERE %s ORDER BY %s", table, where, timeCol), args...)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", table, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	delWhere := "symbol = ?"
	for _, w := range extraWhere {
		delWhere += " AND " + w
	}
	if _, err := db.Exec(fmt.Sprintf("DELETE FROM %s WHERE %s", table, delWhere), symbol); err != nil {
		return nil, fmt.Errorf("clear %s: %w", table, err)
	}
	return out, nil
}

// loadFearGreedAndClear has no symbol column (the index is market-wide).
func loadFearGreedAndClear(db *sql.DB) ([]store.FearGreed, error) {
	rows, err := db.Query(`SELECT id, value, classification, fg_timestamp FROM fear_greed ORDER BY fg_timestamp`)
	if err != nil {
		return nil, fmt.Errorf("load fear_greed: %w", err)
	}
	defer rows.Close()

	var out []store.FearGreed
	for rows.Next() {
		var fg store.FearGreed
		if err := rows.Scan(&fg.ID, &fg.Value, &fg.Classification, &fg.FGTimestamp); err != nil {
			return nil, fmt.Errorf("scan fear_greed: %w", err)
		}
		out = append(out, fg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if _, err := db.Exec(`DELETE FROM fear_greed`); err != nil {
		return nil, fmt.Errorf("clear fear_greed: %w", err)
	}
	return out, nil
}

func scanLiquidation(rows *sql.Rows) (store.Liquidation, error) {
	var l store.Liquidation
	err := rows.Scan(&l.ID, &l.Symbol, &l.Side, &l.Price, &l.Qty, &l.TradeTime, &l.CreatedAt)
	return l, err
}

func scanOI(rows *sql.Rows) (store.OISnapshot, error) {
	var s store.OISnapshot
	err := rows.Scan(&s.ID, &s.Symbol, &s.OpenInterest, &s.CollectedAt)
	return s, err
}

func scanFunding(rows *sql.Rows) (store.FundingRate, error) {
	var f store.FundingRate
	err := rows.Scan(&f.ID, &f.Symbol, &f.Rate, &f.FundingTime, &f.CollectedAt)
	return f, err
}

func scanLS(rows *sql.Rows) (store.LongShortRatio, error) {
	var l store.LongShortRatio
	err := rows.Scan(&l.ID, &l.Symbol, &l.Ratio, &l.LongAccount, &l.ShortAccount, &l.Timestamp)
	return l, err
}

func scanTaker(rows *sql.Rows) (store.TakerRatio, error) {
	var t store.TakerRatio
	err := rows.Scan(&t.ID, &t.Symbol, &t.BuySellRatio, &t.CollectedAt)
	return t, err
}

func scanKline(rows *sql.Rows) (store.Kline, error) {
	var k store.Kline
	err := rows.Scan(&k.ID, &k.Symbol, &k.Interval, &k.OpenTime, &k.Open, &k.High, &k.Low, &k.Close, &k.Volume)
	return k, err
}

func scanWall(rows *sql.Rows) (store.OrderbookWall, error) {
	var w store.OrderbookWall
	err := rows.Scan(&w.ID, &w.Symbol, &w.Side, &w.Price, &w.Quantity, &w.ScanID, &w.CollectedAt)
	return w, err
}
