package collector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/cryptostrat/internal/clock"
	"github.com/aristath/cryptostrat/internal/store"
)

func TestBinanceCollectors_UnconfiguredKeyReturnsErrProviderUnconfigured(t *testing.T) {
	db := openTestDB(t)
	clk := clock.NewSystem()
	client := NewRESTClient("binance_test", 50)

	funding := NewFundingCollector("", "BTCUSDT", client, clk, store.NewFundingRateRepository(db.Conn()))
	assert.ErrorIs(t, funding.CollectOnce(context.Background()), ErrProviderUnconfigured)

	oi := NewOICollector("", "BTCUSDT", client, clk, store.NewOISnapshotRepository(db.Conn()))
	assert.ErrorIs(t, oi.CollectOnce(context.Background()), ErrProviderUnconfigured)

	ls := NewLongShortCollector("", "BTCUSDT", client, clk, store.NewLongShortRatioRepository(db.Conn()))
	assert.ErrorIs(t, ls.CollectOnce(context.Background()), ErrProviderUnconfigured)

	taker := NewTakerRatioCollector("", "BTCUSDT", client, clk, store.NewTakerRatioRepository(db.Conn()))
	assert.ErrorIs(t, taker.CollectOnce(context.Background()), ErrProviderUnconfigured)

	kline := NewKlineCollector("", "BTCUSDT", "5m", client, clk, store.NewKlineRepository(db.Conn()))
	assert.ErrorIs(t, kline.CollectOnce(context.Background()), ErrProviderUnconfigured)

	walls := NewOrderbookWallCollector("", "BTCUSDT", client, clk, store.NewOrderbookWallRepository(db.Conn()), NewScanID)
	assert.ErrorIs(t, walls.CollectOnce(context.Background()), ErrProviderUnconfigured)
}

func TestBinanceCollectors_Names(t *testing.T) {
	clk := clock.NewSystem()
	client := NewRESTClient("binance_test", 50)

	assert.Equal(t, "funding_rate:BTCUSDT", NewFundingCollector("k", "BTCUSDT", client, clk, nil).Name())
	assert.Equal(t, "open_interest:BTCUSDT", NewOICollector("k", "BTCUSDT", client, clk, nil).Name())
	assert.Equal(t, "long_short_ratio:BTCUSDT", NewLongShortCollector("k", "BTCUSDT", client, clk, nil).Name())
	assert.Equal(t, "taker_ratio:BTCUSDT", NewTakerRatioCollector("k", "BTCUSDT", client, clk, nil).Name())
	assert.Equal(t, "klines:5m:BTCUSDT", NewKlineCollector("k", "BTCUSDT", "5m", client, clk, nil).Name())
	assert.Equal(t, "orderbook_walls:BTCUSDT", NewOrderbookWallCollector("k", "BTCUSDT", client, clk, nil, NewScanID).Name())
}

func TestParseKline_ValidRow(t *testing.T) {
	row := []any{float64(1700000000000), "100.5", "105.0", "99.0", "103.2", "1234.5"}
	k, err := parseKline("BTCUSDT", "5m", row)
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", k.Symbol)
	assert.Equal(t, "5m", k.Interval)
	assert.Equal(t, int64(1700000000000), k.OpenTime)
	assert.Equal(t, 100.5, k.Open)
	assert.Equal(t, 105.0, k.High)
	assert.Equal(t, 99.0, k.Low)
	assert.Equal(t, 103.2, k.Close)
	assert.Equal(t, 1234.5, k.Volume)
}

func TestParseKline_MalformedRowIsError(t *testing.T) {
	_, err := parseKline("BTCUSDT", "5m", []any{float64(1), "1"})
	assert.Error(t, err)
}
