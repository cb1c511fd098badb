// Runner drives the virtual clock, drip feeder, and every engine at its own
// cadence: each step advances the clock, drips due history into the store,
// runs every engine whose interval has elapsed, and logs progress.
package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/cryptostrat/internal/clock"
	"github.com/aristath/cryptostrat/internal/paper"
	"github.com/aristath/cryptostrat/internal/pipeline"
	"github.com/aristath/cryptostrat/internal/store"
	"github.com/aristath/cryptostrat/internal/strategy"
	"github.com/rs/zerolog"
)

// StepSeconds is how far the virtual clock jumps each loop iteration: one
// simulated minute per step, the finest engine cadence below.
const StepSeconds = 60

var engineIntervals = map[string]int64{
	"atr":          86400,
	"threshold":    300,
	"grid":         14400,
	"score":        600,
	"strategy":     60,
	"paper_trader": 60,
}

// Runner owns one backtest run across a fixed symbol set.
type Runner struct {
	Clock    *clock.Virtual
	Feeders  map[string]*Feeder
	Pipeline *pipeline.Pipeline
	Strategy *strategy.Manager
	Paper    *paper.Manager
	Grid     *store.GridRepository
	Klines   *store.KlineRepository
	Symbols  []string
	Log      zerolog.Logger

	lastRun map[string]int64
}

// Run advances the virtual clock from start to end in StepSeconds
// increments, dripping historical data and running every due engine each
// step, and logs progress at the given interval.
func (r *Runner) Run(ctx context.Context, end time.Time, logInterval time.Duration) error {
	r.lastRun = make(map[string]int64)
	lastLog := r.Clock.Unix()

	for r.Clock.Now().Before(end) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		now := r.Clock.Advance(StepSeconds * time.Second)
		currentUnix := now.Unix()

		for _, sym := range r.Symbols {
			if err := r.Feeders[sym].Drip(currentUnix); err != nil {
				return fmt.Errorf("drip %s: %w", sym, err)
			}
		}

		r.runDue(ctx, "atr", currentUnix, func(sym string) error { return r.Pipeline.RunATR(sym) })
		r.runDue(ctx, "threshold", currentUnix, func(sym string) error { return r.Pipeline.RunThreshold(sym) })
		r.runDue(ctx, "grid", currentUnix, func(sym string) error { return r.Pipeline.RunGrid(sym) })
		r.runDue(ctx, "score", currentUnix, func(sym string) error { return r.Pipeline.RunScore(ctx, sym) })
		r.runDue(ctx, "strategy", currentUnix, func(sym string) error { return r.Strategy.Tick(sym) })
		r.runDue(ctx, "paper_trader", currentUnix, r.runPaperTrader)

		if currentUnix-lastLog >= int64(logInterval.Seconds()) {
			remaining := 0
			for _, f := range r.Feeders {
				remaining += f.Remaining()
			}
			r.Log.Info().Time("sim_time", now).Int("rows_remaining", remaining).Msg("backtest progress")
			lastLog = currentUnix
		}
	}
	return nil
}

// runDue invokes fn for every symbol once the named engine's interval has
// elapsed since its last run, logging and swallowing per-symbol errors so
// one symbol's missing-input skip never halts the others.
func (r *Runner) runDue(ctx context.Context, engine string, currentUnix int64, fn func(symbol string) error) {
	if currentUnix-r.lastRun[engine] < engineIntervals[engine] {
		return
	}
	for _, sym := range r.Symbols {
		if err := fn(sym); err != nil {
			r.Log.Warn().Err(err).Str("engine", engine).Str("symbol", sym).Msg("engine step failed")
		}
	}
	r.lastRun[engine] = currentUnix
}

func (r *Runner) runPaperTrader(symbol string) error {
	if err := r.Paper.ConsumeSignals(symbol); err != nil {
		return err
	}

	if fr, err := r.Pipeline.FundingRate.Latest(symbol); err == nil && fr != nil {
		if err := r.Paper.ApplyFundingTick(symbol, fr.Rate); err != nil {
			return err
		}
	}

	grid, err := r.Grid.Latest(symbol)
	if err != nil || grid == nil {
		return nil
	}
	kline, err := r.Klines.Latest(symbol, "5m")
	if err != nil || kline == nil {
		return nil
	}
	return r.Paper.ApplyGridTick(symbol, grid.ID, kline.Close)
}
