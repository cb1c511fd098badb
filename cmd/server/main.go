// Command server is the live-mode entrypoint: it loads configuration,
// opens the data store, wires the cron scheduler, starts the collectors,
// the status/report HTTP server and the websocket liquidation stream, then
// blocks until SIGINT/SIGTERM before shutting everything down in order.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/cryptostrat/internal/clock"
	"github.com/aristath/cryptostrat/internal/collector"
	"github.com/aristath/cryptostrat/internal/config"
	"github.com/aristath/cryptostrat/internal/cron"
	"github.com/aristath/cryptostrat/internal/database"
	"github.com/aristath/cryptostrat/internal/engine/scorer"
	"github.com/aristath/cryptostrat/internal/llm"
	"github.com/aristath/cryptostrat/internal/paper"
	"github.com/aristath/cryptostrat/internal/pipeline"
	"github.com/aristath/cryptostrat/internal/server"
	"github.com/aristath/cryptostrat/internal/store"
	"github.com/aristath/cryptostrat/internal/strategy"
	"github.com/aristath/cryptostrat/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Config{Level: "info", Pretty: true}).Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: true})
	log.Info().Msg("starting cryptostrat")

	db, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "live.db"),
		Name:    "live",
		Profile: database.ProfileLive,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open data store")
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate schema")
	}
	conn := db.Conn()

	settingsRepo := store.NewSettingsRepository(conn)
	if err := cfg.UpdateFromSettings(settingsRepo); err != nil {
		log.Warn().Err(err).Msg("failed to apply settings overrides")
	}

	sysClock := clock.NewSystem()

	atrRepo := store.NewATRRepository(conn)
	thresholdRepo := store.NewThresholdRepository(conn)
	gridRepo := store.NewGridRepository(conn)
	ssmRepo := store.NewSSMRepository(conn)
	klineRepo := store.NewKlineRepository(conn)
	liqRepo := store.NewLiquidationRepository(conn)
	oiRepo := store.NewOISnapshotRepository(conn)
	wallRepo := store.NewOrderbookWallRepository(conn)
	fundingRepo := store.NewFundingRateRepository(conn)
	lsRepo := store.NewLongShortRatioRepository(conn)
	takerRepo := store.NewTakerRatioRepository(conn)
	fgRepo := store.NewFearGreedRepository(conn)
	whaleRepo := store.NewWhaleTransactionRepository(conn)
	netflowRepo := store.NewExchangeNetflowRepository(conn)
	onchainRepo := store.NewOnchainMetricRepository(conn)
	strategyStateRepo := store.NewStrategyStateRepository(conn)
	signalRepo := store.NewSignalRepository(conn)
	paperTradeRepo := store.NewPaperTradeRepository(conn)
	paperFundingRepo := store.NewPaperL1FundingRepository(conn)
	paperGridRepo := store.NewPaperL4GridRepository(conn)
	paperSummaryRepo := store.NewPaperSummaryRepository(conn)
	geminiUsageRepo := store.NewGeminiUsageRepository(conn)

	sentiment := buildSentimentClient(cfg, geminiUsageRepo, sysClock, log)

	pl := &pipeline.Pipeline{
		Clock: sysClock, ATR: atrRepo, Threshold: thresholdRepo, Grid: gridRepo, SSM: ssmRepo,
		Klines: klineRepo, Liquidation: liqRepo, OI: oiRepo, Walls: wallRepo, FundingRate: fundingRepo,
		LSRatio: lsRepo, FearGreed: fgRepo, Whale: whaleRepo, Netflow: netflowRepo, Onchain: onchainRepo,
		Sentiment: sentiment,
	}

	strategyMgr := strategy.NewManager(sysClock, strategyStateRepo, signalRepo, atrRepo, gridRepo,
		ssmRepo, fundingRepo, lsRepo, klineRepo, liqRepo, oiRepo)

	paperMgr := paper.NewManager(sysClock, signalRepo, paperTradeRepo, paperFundingRepo, paperGridRepo,
		paperSummaryRepo, settingsRepo, gridRepo, strategyStateRepo)

	scheduler := cron.New(log)
	registerEngineJobs(scheduler, pl, strategyMgr, paperMgr, gridRepo, klineRepo, fundingRepo, cfg.Symbols, log)
	registerCollectorJobs(scheduler, cfg, sysClock, log, collectorRepos{
		funding: fundingRepo, oi: oiRepo, ls: lsRepo, taker: takerRepo, kline: klineRepo, wall: wallRepo,
		fearGreed: fgRepo, whale: whaleRepo, onchain: onchainRepo, netflow: netflowRepo,
	})
	registerSnapshotJob(scheduler, cfg, paperSummaryRepo, strategyStateRepo, log)
	scheduler.Start()

	liqStream := collector.NewLiquidationStream("", liqRepo, sysClock, log)
	streamCtx, cancelStream := context.WithCancel(context.Background())
	defer cancelStream()
	go func() {
		if err := liqStream.Run(streamCtx); err != nil && streamCtx.Err() == nil {
			log.Error().Err(err).Msg("liquidation stream terminated")
		}
	}()

	srv := server.New(server.Config{
		Log: log, Port: cfg.Port, Symbols: cfg.Symbols, StartedAt: time.Now(),
		Trades: paperTradeRepo, Summaries: paperSummaryRepo, Funding: paperFundingRepo, Grid: paperGridRepo,
		Klines: klineRepo, Strategy: strategyStateRepo, Usage: geminiUsageRepo,
	})
	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("status/report server failed")
		}
	}()
	log.Info().Int("port", cfg.Port).Msg("server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	cancelStream()
	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}
}

func buildSentimentClient(cfg *config.Config, usage *store.GeminiUsageRepository, clk clock.Clock, log zerolog.Logger) scorer.SentimentClient {
	if cfg.GeminiAPIKey == "" {
		log.Info().Msg("no gemini api key configured, scorer sentiment sub-score stubbed neutral")
		return llm.NeutralStub{}
	}
	return llm.NewClient(cfg.GeminiAPIKey, cfg.GeminiDailyBudget, usage, clk, log)
}
