package backtest

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/cryptostrat/internal/database"
	"github.com/aristath/cryptostrat/internal/store"
)

func openSynthTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), "synth_test.db"),
		Name:    "synth_test",
		Profile: database.ProfileBacktest,
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })
	return db
}

// flatCandle is a quiet 5m candle with a fixed, narrow range.
func flatCandle(openTime int64) store.Kline {
	return store.Kline{
		Symbol: "BTCUSDT", Interval: "5m", OpenTime: openTime,
		Open: 100, High: 101, Low: 99, Close: 100, Volume: 10,
	}
}

func TestSynthesizeLiquidations_TooFewCandlesIsNoOp(t *testing.T) {
	db := openSynthTestDB(t)
	klines := store.NewKlineRepository(db.Conn())
	liqs := store.NewLiquidationRepository(db.Conn())

	for i := 0; i < synthWindow; i++ {
		require.NoError(t, klines.Insert(flatCandle(int64(i*300000))))
	}

	n, err := SynthesizeLiquidations(klines, liqs, "BTCUSDT", 1000)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSynthesizeLiquidations_NoSpikesInsertsNothing(t *testing.T) {
	db := openSynthTestDB(t)
	klines := store.NewKlineRepository(db.Conn())
	liqs := store.NewLiquidationRepository(db.Conn())

	for i := 0; i < synthWindow+5; i++ {
		require.NoError(t, klines.Insert(flatCandle(int64(i*300000))))
	}

	n, err := SynthesizeLiquidations(klines, liqs, "BTCUSDT", 1000)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	buy, sell, err := liqs.SumSince("BTCUSDT", 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, buy)
	assert.Equal(t, 0.0, sell)
}

func TestSynthesizeLiquidations_DownSpikeInsertsSellSide(t *testing.T) {
	db := openSynthTestDB(t)
	klines := store.NewKlineRepository(db.Conn())
	liqs := store.NewLiquidationRepository(db.Conn())

	for i := 0; i < synthWindow; i++ {
		require.NoError(t, klines.Insert(flatCandle(int64(i*300000))))
	}
	spikeTime := int64(synthWindow * 300000)
	require.NoError(t, klines.Insert(store.Kline{
		Symbol: "BTCUSDT", Interval: "5m", OpenTime: spikeTime,
		Open: 100, High: 101, Low: 80, Close: 82, Volume: 500,
	}))

	n, err := SynthesizeLiquidations(klines, liqs, "BTCUSDT", 1000)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	buy, sell, err := liqs.SumSince("BTCUSDT", 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, buy)
	assert.Greater(t, sell, 0.0)
}

func TestSynthesizeLiquidations_UpSpikeInsertsBuySide(t *testing.T) {
	db := openSynthTestDB(t)
	klines := store.NewKlineRepository(db.Conn())
	liqs := store.NewLiquidationRepository(db.Conn())

	for i := 0; i < synthWindow; i++ {
		require.NoError(t, klines.Insert(flatCandle(int64(i*300000))))
	}
	spikeTime := int64(synthWindow * 300000)
	require.NoError(t, klines.Insert(store.Kline{
		Symbol: "BTCUSDT", Interval: "5m", OpenTime: spikeTime,
		Open: 100, High: 122, Low: 99, Close: 120, Volume: 500,
	}))

	n, err := SynthesizeLiquidations(klines, liqs, "BTCUSDT", 1000)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	buy, sell, err := liqs.SumSince("BTCUSDT", 0)
	require.NoError(t, err)
	assert.Greater(t, buy, 0.0)
	assert.Equal(t, 0.0, sell)
}
