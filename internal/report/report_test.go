package report

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/cryptostrat/internal/database"
	"github.com/aristath/cryptostrat/internal/store"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), "report_test.db"),
		Name:    "report_test",
		Profile: database.ProfileBacktest,
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })
	return db
}

func closedTrade(symbol string, pnlPct float64, closedAt int64) store.PaperTrade {
	exitPrice := 0.0
	exitReason := "TAKE_PROFIT"
	pnl := pnlPct
	return store.PaperTrade{
		Symbol:        symbol,
		Status:        "CLOSED",
		Direction:     "LONG",
		L2Step:        1,
		EntryPct:      0.5,
		AvgEntryPrice: 100,
		StopLossPrice: 95,
		ExitPrice:     &exitPrice,
		ExitReason:    &exitReason,
		PnLPct:        &pnl,
		ScoreAtEntry:  1,
		OpenedAt:      closedAt - 100,
		ClosedAt:      &closedAt,
	}
}

func TestGenerate_NoClosedTradesReturnsZeroSummary(t *testing.T) {
	db := openTestDB(t)
	trades := store.NewPaperTradeRepository(db.Conn())
	summaries := store.NewPaperSummaryRepository(db.Conn())
	funding := store.NewPaperL1FundingRepository(db.Conn())
	grid := store.NewPaperL4GridRepository(db.Conn())
	klines := store.NewKlineRepository(db.Conn())

	s, err := Generate(trades, summaries, funding, grid, klines, "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", s.Symbol)
	assert.Equal(t, 0, s.ClosedTrades)
	assert.Equal(t, 0.0, s.WinRate)
	assert.Equal(t, 0.0, s.MaxDrawdown)
	assert.Equal(t, 0.0, s.SharpeLike)
	assert.Nil(t, s.EquityCurve)
	assert.Equal(t, 0.0, s.Equity.Total)
}

func TestGenerate_WinRateAndDrawdownOverClosedTrades(t *testing.T) {
	db := openTestDB(t)
	trades := store.NewPaperTradeRepository(db.Conn())
	summaries := store.NewPaperSummaryRepository(db.Conn())
	funding := store.NewPaperL1FundingRepository(db.Conn())
	grid := store.NewPaperL4GridRepository(db.Conn())
	klines := store.NewKlineRepository(db.Conn())

	pnls := []float64{5, 3, -10, 2}
	for i, pnl := range pnls {
		_, err := trades.Insert(closedTrade("BTCUSDT", pnl, int64(1000+i)))
		require.NoError(t, err)
	}

	s, err := Generate(trades, summaries, funding, grid, klines, "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, 4, s.ClosedTrades)
	assert.Equal(t, 0.75, s.WinRate) // 3 wins out of 4

	// cumulative: 5, 8, -2, 0 -> peak 8, trough -2 -> drawdown -10
	require.Len(t, s.EquityCurve, 4)
	assert.Equal(t, []float64{5, 8, -2, 0}, s.EquityCurve)
	assert.InDelta(t, -10.0, s.MaxDrawdown, 0.0001)
	assert.NotEqual(t, 0.0, s.SharpeLike)
}

func TestGenerate_SingleClosedTradeLeavesSharpeLikeZero(t *testing.T) {
	db := openTestDB(t)
	trades := store.NewPaperTradeRepository(db.Conn())
	summaries := store.NewPaperSummaryRepository(db.Conn())
	funding := store.NewPaperL1FundingRepository(db.Conn())
	grid := store.NewPaperL4GridRepository(db.Conn())
	klines := store.NewKlineRepository(db.Conn())

	_, err := trades.Insert(closedTrade("ETHUSDT", 7, 1000))
	require.NoError(t, err)

	s, err := Generate(trades, summaries, funding, grid, klines, "ETHUSDT")
	require.NoError(t, err)
	assert.Equal(t, 1, s.ClosedTrades)
	assert.Equal(t, 1.0, s.WinRate)
	assert.Equal(t, 0.0, s.SharpeLike)
	assert.Equal(t, []float64{7}, s.EquityCurve)
}

func TestGenerate_IncludesFundingAndGridPnLInEquity(t *testing.T) {
	db := openTestDB(t)
	trades := store.NewPaperTradeRepository(db.Conn())
	summaries := store.NewPaperSummaryRepository(db.Conn())
	funding := store.NewPaperL1FundingRepository(db.Conn())
	grid := store.NewPaperL4GridRepository(db.Conn())
	klines := store.NewKlineRepository(db.Conn())

	require.NoError(t, funding.Insert(store.PaperL1Funding{
		Symbol: "BTCUSDT", FundingRate: 0.0001, PnLPct: 1.5, RecordedAt: 1000,
	}))
	require.NoError(t, grid.Insert(store.PaperL4Grid{
		Symbol: "BTCUSDT", GridConfigID: 1, Side: "SELL", BandIndex: 2, Price: 100, PnLPct: 2.5, RecordedAt: 1000,
	}))
	require.NoError(t, summaries.Upsert("BTCUSDT", "2024-01-01", 4.0, true, 1000))

	s, err := Generate(trades, summaries, funding, grid, klines, "BTCUSDT")
	require.NoError(t, err)
	assert.InDelta(t, 4.0, s.Equity.L2Realized, 0.0001)
	assert.InDelta(t, 1.5, s.Equity.L1PnL, 0.0001)
	assert.InDelta(t, 2.5, s.Equity.L4PnL, 0.0001)
	assert.InDelta(t, 8.0, s.Equity.Total, 0.0001)
}
