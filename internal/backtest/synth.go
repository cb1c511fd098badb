package backtest

import (
	"github.com/aristath/cryptostrat/internal/store"
	"gonum.org/v1/gonum/stat"
)

// synthSpikeMultiple is how far a candle's range must exceed the trailing
// average range before it stands in for a liquidation cascade.
const synthSpikeMultiple = 3.0

// synthWindow is the trailing window (in 5m candles) the average range is
// computed over.
const synthWindow = 48

// SynthesizeLiquidations derives liquidation events from 5-minute kline
// volatility spikes for a symbol with no collected liquidation history —
// the Binance futures REST surface has no liquidation-history endpoint, so
// a clean backtest replay window would otherwise starve Dynamic Threshold
// and the SSM Scorer of this input entirely. Inserted rows carry the plain
// Liquidation shape with no marker distinguishing them from collected ones.
func SynthesizeLiquidations(klines *store.KlineRepository, liquidations *store.LiquidationRepository, symbol string, lookbackCandles int) (int, error) {
	candles, err := klines.RecentAsc(symbol, "5m", lookbackCandles)
	if err != nil {
		return 0, err
	}
	if len(candles) <= synthWindow {
		return 0, nil
	}

	inserted := 0
	for i := synthWindow; i < len(candles); i++ {
		window := candles[i-synthWindow : i]
		ranges := make([]float64, len(window))
		for j, c := range window {
			ranges[j] = c.High - c.Low
		}
		avgRange := stat.Mean(ranges, nil)
		if avgRange <= 0 {
			continue
		}

		c := candles[i]
		candleRange := c.High - c.Low
		if candleRange < avgRange*synthSpikeMultiple {
			continue
		}

		side := "SELL" // down-spike liquidates longs
		if c.Close >= c.Open {
			side = "BUY" // up-spike liquidates shorts
		}
		qty := c.Volume * (candleRange / avgRange) / synthSpikeMultiple
		if err := liquidations.Insert(store.Liquidation{
			Symbol:    symbol,
			Side:      side,
			Price:     c.Close,
			Qty:       qty,
			TradeTime: c.OpenTime,
			CreatedAt: c.OpenTime / 1000,
		}); err != nil {
			return inserted, err
		}
		inserted++
	}
	return inserted, nil
}
