// Package pipeline wires the pure engine packages (atr, threshold,
// gridrange, scorer) to the repository layer, so both the live cron
// scheduler and the backtest runner drive identical logic at their own
// cadences: the backtest runner calls them in dependency order each step,
// while the live scheduler fires each on its own cron schedule.
package pipeline

import (
	"context"
	"fmt"

	"github.com/aristath/cryptostrat/internal/clock"
	"github.com/aristath/cryptostrat/internal/engine/atr"
	"github.com/aristath/cryptostrat/internal/engine/gridrange"
	"github.com/aristath/cryptostrat/internal/engine/scorer"
	"github.com/aristath/cryptostrat/internal/engine/threshold"
	"github.com/aristath/cryptostrat/internal/store"
)

// Pipeline bundles every repository an engine-runner needs. Built once per
// process and shared across symbols; safe for concurrent per-symbol calls
// since each repository method is its own statement.
type Pipeline struct {
	Clock clock.Clock

	ATR         *store.ATRRepository
	Threshold   *store.ThresholdRepository
	Grid        *store.GridRepository
	SSM         *store.SSMRepository
	Klines      *store.KlineRepository
	Liquidation *store.LiquidationRepository
	OI          *store.OISnapshotRepository
	Walls       *store.OrderbookWallRepository
	FundingRate *store.FundingRateRepository
	LSRatio     *store.LongShortRatioRepository
	FearGreed   *store.FearGreedRepository
	Whale       *store.WhaleTransactionRepository
	Netflow     *store.ExchangeNetflowRepository
	Onchain     *store.OnchainMetricRepository

	Sentiment scorer.SentimentClient
}

// RunATR computes ATR(14) from the last 15 daily candles and persists a
// new row, or silently skips when fewer rows exist than needed.
func (p *Pipeline) RunATR(symbol string) error {
	candles, err := p.Klines.RecentAsc(symbol, "1d", atr.DefaultPeriod+1)
	if err != nil {
		return fmt.Errorf("load daily candles: %w", err)
	}
	in := make([]atr.Candle, len(candles))
	for i, c := range candles {
		in[i] = atr.Candle{High: c.High, Low: c.Low, Close: c.Close}
	}
	result := atr.Compute(in, atr.DefaultPeriod)
	if result == nil {
		return nil
	}
	_, err = p.ATR.Insert(store.ATRValue{
		Symbol: symbol, ATR: result.ATR, ATRPct: result.ATRPct,
		StopLossPct: result.StopLossPct, CurrentPrice: result.CurrentPrice,
		ComputedAt: p.Clock.Unix(),
	})
	return err
}

// RunThreshold computes the Dynamic Threshold cascade trigger from the
// trailing hour of liquidations plus the latest OI/price/volume.
func (p *Pipeline) RunThreshold(symbol string) error {
	now := p.Clock.Unix()
	buyUSD, sellUSD, err := p.Liquidation.SumSince(symbol, (now-threshold.WindowSeconds)*1000)
	if err != nil {
		return fmt.Errorf("sum liquidations: %w", err)
	}

	oi, err := p.OI.Latest(symbol)
	if err != nil {
		return fmt.Errorf("latest oi: %w", err)
	}
	daily, err := p.Klines.RecentAsc(symbol, "1d", 31)
	if err != nil {
		return fmt.Errorf("load daily volumes: %w", err)
	}
	if oi == nil || len(daily) == 0 {
		return nil
	}

	todayVolume := daily[len(daily)-1].Volume
	var recent []float64
	for _, d := range daily[:len(daily)-1] {
		recent = append(recent, d.Volume)
	}
	currentPrice := daily[len(daily)-1].Close

	result := threshold.Compute(buyUSD, sellUSD, oi.OpenInterest, currentPrice, todayVolume, recent)
	if result == nil {
		return nil
	}

	var direction *string
	if result.Direction != "" {
		d := result.Direction
		direction = &d
	}
	_, err = p.Threshold.Insert(store.ThresholdSignal{
		Symbol: symbol, ThresholdValue: result.ThresholdValue, LiqAmount1h: result.LiqAmount1h,
		CurrentOI: result.CurrentOI, LiquidityCoeff: result.LiquidityCoeff,
		TriggerActive: result.TriggerActive, Direction: direction, ComputedAt: p.Clock.Unix(),
	})
	return err
}

// RunGrid computes the spoof-filtered Grid Range from the two most recent
// order-book scans, falling back to ATR when walls are insufficient.
func (p *Pipeline) RunGrid(symbol string) error {
	scanIDs, err := p.Walls.RecentScanIDs(symbol, 2)
	if err != nil {
		return fmt.Errorf("recent scan ids: %w", err)
	}
	if len(scanIDs) == 0 {
		return nil
	}

	latestWalls, err := p.Walls.WallsForScan(symbol, scanIDs[0])
	if err != nil {
		return fmt.Errorf("latest scan walls: %w", err)
	}

	var previousWalls []gridrange.Wall
	if len(scanIDs) > 1 {
		rows, err := p.Walls.WallsForScan(symbol, scanIDs[1])
		if err != nil {
			return fmt.Errorf("previous scan walls: %w", err)
		}
		previousWalls = toWalls(rows)
	}

	atrRow, err := p.ATR.Latest(symbol)
	if err != nil {
		return fmt.Errorf("latest atr: %w", err)
	}
	if atrRow == nil {
		return nil
	}

	result := gridrange.Compute(toWalls(latestWalls), previousWalls, atrRow.CurrentPrice, atrRow.ATR)

	_, err = p.Grid.Insert(store.GridConfig{
		Symbol: symbol, LowerBound: result.LowerBound, UpperBound: result.UpperBound,
		GridCount: result.GridCount, GridSpacing: result.GridSpacing, GridSpacingPct: result.GridSpacingPct,
		SpoofingFiltered: result.SpoofingFiltered, ComputedAt: p.Clock.Unix(),
	})
	return err
}

func toWalls(rows []store.OrderbookWall) []gridrange.Wall {
	out := make([]gridrange.Wall, len(rows))
	for i, r := range rows {
		out[i] = gridrange.Wall{Side: r.Side, Price: r.Price, Quantity: r.Quantity}
	}
	return out
}

// RunScore computes the SSM composite from every sub-signal source,
// calling out to the LLM sentiment client only when the Trigger gate is
// on.
func (p *Pipeline) RunScore(ctx context.Context, symbol string) error {
	thresholdRow, err := p.Threshold.Latest(symbol)
	if err != nil {
		return fmt.Errorf("latest threshold: %w", err)
	}
	triggerActive := thresholdRow != nil && thresholdRow.TriggerActive

	in := scorer.Inputs{TriggerActive: triggerActive}
	if thresholdRow != nil && thresholdRow.Direction != nil {
		if *thresholdRow.Direction == "SHORT_CASCADE" {
			in.CascadeDir = scorer.VoteBearish
		} else {
			in.CascadeDir = scorer.VoteBullish
		}
	}

	if whale, err := p.Whale.Latest(symbol); err == nil && whale != nil {
		net := whale.InflowUSD - whale.OutflowUSD
		in.WhaleNetFlow = &net
	}
	if netflow, err := p.Netflow.Latest(symbol); err == nil && netflow != nil {
		in.OnchainNetflow = &netflow.NetFlowUSD
	}
	if daily, err := p.Klines.RecentAsc(symbol, "1d", 31); err == nil && len(daily) > 1 {
		today := daily[len(daily)-1].Volume
		var sum float64
		for _, d := range daily[:len(daily)-1] {
			sum += d.Volume
		}
		avg := sum / float64(len(daily)-1)
		if avg > 0 {
			ratio := today / avg
			in.VolumeRatio = &ratio
		}
	}
	if fg, err := p.FearGreed.Latest(); err == nil && fg != nil {
		v := float64(fg.Value)
		in.FearGreedIndex = &v
	}
	if ls, err := p.LSRatio.Latest(symbol); err == nil && ls != nil {
		in.LongShortRatio = &ls.LongAccount
	}
	if oc, err := p.Onchain.Latest(symbol); err == nil && oc != nil {
		in.MVRV = &oc.MVRV
	}

	geminiCalls := 0
	if triggerActive && p.Sentiment != nil {
		result, err := p.Sentiment.Sentiment(ctx, symbol)
		if err == nil {
			in.StorySentiment = &result
			geminiCalls = result.CallsUsed
		}
	}

	result := scorer.Compute(in)

	var direction *string
	if result.Direction != "" {
		d := result.Direction
		direction = &d
	}
	_, err = p.SSM.Insert(store.SSMScore{
		Symbol: symbol, TriggerActive: result.Trigger, MomentumScore: result.Momentum,
		SentimentScore: result.Sentiment, StoryScore: result.Story, ValueScore: result.Value,
		TotalScore: result.Total, Direction: direction, ScoreDetail: "{}",
		GeminiCallsUsed: geminiCalls, ComputedAt: p.Clock.Unix(),
	})
	return err
}
