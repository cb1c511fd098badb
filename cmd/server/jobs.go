package main

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/cryptostrat/internal/clock"
	"github.com/aristath/cryptostrat/internal/collector"
	"github.com/aristath/cryptostrat/internal/config"
	"github.com/aristath/cryptostrat/internal/cron"
	"github.com/aristath/cryptostrat/internal/paper"
	"github.com/aristath/cryptostrat/internal/pipeline"
	"github.com/aristath/cryptostrat/internal/snapshot"
	"github.com/aristath/cryptostrat/internal/store"
	"github.com/aristath/cryptostrat/internal/strategy"
)

// registerEngineJobs wires one cron job per engine per symbol at the same
// cadences the backtest runner gates on (internal/backtest/runner.go's
// engineIntervals): atr daily, threshold every 5m, grid every 4h, score
// every 10m, strategy and paper_trader every minute.
func registerEngineJobs(
	s *cron.Scheduler,
	pl *pipeline.Pipeline,
	strategyMgr *strategy.Manager,
	paperMgr *paper.Manager,
	gridRepo *store.GridRepository,
	klineRepo *store.KlineRepository,
	fundingRepo *store.FundingRateRepository,
	symbols []string,
	log zerolog.Logger,
) {
	register := func(schedule, name string, fn func(symbol string) error) {
		for _, sym := range symbols {
			sym := sym
			if err := s.AddJob(schedule, cron.NewJob(name+":"+sym, func() error { return fn(sym) })); err != nil {
				log.Fatal().Err(err).Str("job", name).Str("symbol", sym).Msg("failed to register job")
			}
		}
	}

	register("0 0 0 * * *", "atr", pl.RunATR)
	register("0 */5 * * * *", "threshold", pl.RunThreshold)
	register("0 0 */4 * * *", "grid", pl.RunGrid)
	register("0 */10 * * * *", "score", func(symbol string) error {
		return pl.RunScore(context.Background(), symbol)
	})
	register("0 * * * * *", "strategy", strategyMgr.Tick)
	register("0 * * * * *", "paper_trader", func(symbol string) error {
		if err := paperMgr.ConsumeSignals(symbol); err != nil {
			return err
		}
		if fr, err := fundingRepo.Latest(symbol); err == nil && fr != nil {
			if err := paperMgr.ApplyFundingTick(symbol, fr.Rate); err != nil {
				return err
			}
		}
		grid, err := gridRepo.Latest(symbol)
		if err != nil || grid == nil {
			return nil
		}
		kline, err := klineRepo.Latest(symbol, "5m")
		if err != nil || kline == nil {
			return nil
		}
		return paperMgr.ApplyGridTick(symbol, grid.ID, kline.Close)
	})
}

type collectorRepos struct {
	funding   *store.FundingRateRepository
	oi        *store.OISnapshotRepository
	ls        *store.LongShortRatioRepository
	taker     *store.TakerRatioRepository
	kline     *store.KlineRepository
	wall      *store.OrderbookWallRepository
	fearGreed *store.FearGreedRepository
	whale     *store.WhaleTransactionRepository
	onchain   *store.OnchainMetricRepository
	netflow   *store.ExchangeNetflowRepository
}

// registerCollectorJobs wires every REST collector onto the scheduler at a
// cadence matched to how fast its series actually moves: 5-minute series
// (funding, OI, long/short, taker, 5m klines) poll every 5 minutes, the
// thinner order-book snapshot every minute, the slower-moving on-chain
// metrics once an hour, daily klines and the market-wide Fear & Greed index
// once a day. A collector missing its provider key still registers —
// CollectOnce just returns ErrProviderUnconfigured on every tick, which is
// skipped without logging, leaving the core running with stubbed outputs.
func registerCollectorJobs(s *cron.Scheduler, cfg *config.Config, clk clock.Clock, log zerolog.Logger, repos collectorRepos) {
	binanceClient := collector.NewRESTClient("binance", 10)
	arkhamClient := collector.NewRESTClient("arkham", 1)
	cryptoQuantClient := collector.NewRESTClient("cryptoquant", 1)
	fgClient := collector.NewRESTClient("feargreed", 0.5)

	runCollector := func(c collector.Collector) cron.Job {
		return cron.NewContextJob(c.Name(), context.Background(), func(ctx context.Context) error {
			err := c.CollectOnce(ctx)
			if err == collector.ErrProviderUnconfigured {
				return nil
			}
			return err
		})
	}

	add := func(schedule string, c collector.Collector) {
		if err := s.AddJob(schedule, runCollector(c)); err != nil {
			log.Fatal().Err(err).Str("collector", c.Name()).Msg("failed to register collector")
		}
	}

	for _, sym := range cfg.Symbols {
		add("0 */5 * * * *", collector.NewFundingCollector(cfg.BinanceAPIKey, sym, binanceClient, clk, repos.funding))
		add("0 */5 * * * *", collector.NewOICollector(cfg.BinanceAPIKey, sym, binanceClient, clk, repos.oi))
		add("0 */5 * * * *", collector.NewLongShortCollector(cfg.BinanceAPIKey, sym, binanceClient, clk, repos.ls))
		add("0 */5 * * * *", collector.NewTakerRatioCollector(cfg.BinanceAPIKey, sym, binanceClient, clk, repos.taker))
		add("0 */5 * * * *", collector.NewKlineCollector(cfg.BinanceAPIKey, sym, "5m", binanceClient, clk, repos.kline))
		add("0 0 0 * * *", collector.NewKlineCollector(cfg.BinanceAPIKey, sym, "1d", binanceClient, clk, repos.kline))
		add("0 * * * * *", collector.NewOrderbookWallCollector(cfg.BinanceAPIKey, sym, binanceClient, clk, repos.wall, collector.NewScanID))
		add("0 0 * * * *", collector.NewWhaleCollector(cfg.ArkhamAPIKey, sym, arkhamClient, clk, repos.whale))
		add("0 0 * * * *", collector.NewOnchainCollector(cfg.CryptoQuantAPIKey, sym, cryptoQuantClient, clk, repos.onchain))
		add("0 0 * * * *", collector.NewNetflowCollector(cfg.CryptoQuantAPIKey, sym, cryptoQuantClient, clk, repos.netflow))
	}
	add("0 0 0 * * *", collector.NewFearGreedCollector(fgClient, clk, repos.fearGreed))
}

// registerSnapshotJob wires a daily paper_summary/strategy_state export to
// S3-compatible storage when cfg.S3Bucket is configured; its absence just
// disables the job, the same optional-provider pattern every collector key
// already follows.
func registerSnapshotJob(
	s *cron.Scheduler,
	cfg *config.Config,
	summaries *store.PaperSummaryRepository,
	strategyRepo *store.StrategyStateRepository,
	log zerolog.Logger,
) {
	if cfg.S3Bucket == "" {
		log.Info().Msg("no backup s3 bucket configured, snapshot export disabled")
		return
	}

	exporter, err := snapshot.NewExporter(context.Background(), cfg.S3Bucket, cfg.S3Region,
		cfg.S3AccessKeyID, cfg.S3SecretAccessKey, log)
	if err != nil {
		log.Error().Err(err).Msg("failed to build snapshot exporter, snapshot export disabled")
		return
	}

	job := cron.NewContextJob("snapshot_export", context.Background(), func(ctx context.Context) error {
		return exporter.Export(ctx, cfg.Symbols, summaries, strategyRepo, time.Now())
	})
	if err := s.AddJob("0 0 3 * * *", job); err != nil {
		log.Fatal().Err(err).Msg("failed to register snapshot export job")
	}
}
