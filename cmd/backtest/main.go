// Command run_backtest replays collected history through the virtual-clock
// engine pipeline and prints an equity report per symbol.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/aristath/cryptostrat/internal/backtest"
	"github.com/aristath/cryptostrat/internal/clock"
	"github.com/aristath/cryptostrat/internal/config"
	"github.com/aristath/cryptostrat/internal/database"
	"github.com/aristath/cryptostrat/internal/engine/macroguard"
	"github.com/aristath/cryptostrat/internal/llm"
	"github.com/aristath/cryptostrat/internal/paper"
	"github.com/aristath/cryptostrat/internal/pipeline"
	"github.com/aristath/cryptostrat/internal/report"
	"github.com/aristath/cryptostrat/internal/store"
	"github.com/aristath/cryptostrat/internal/strategy"
	"github.com/aristath/cryptostrat/pkg/logger"
)

var (
	days          int
	symbolsFlag   []string
	calendarPath  string
	downloadOnly  bool
	skipDownload  bool
	csvOutPath    string
)

var rootCmd = &cobra.Command{
	Use:   "run_backtest",
	Short: "Replay collected history through the engine pipeline",
	Long: `run_backtest drives every engine (ATR, Threshold, Grid, Scorer,
Strategy, Paper Trader) against a virtual clock over previously collected
history, so no engine ever sees a row stamped later than its simulated time.`,
	RunE: runBacktest,
}

func init() {
	rootCmd.Flags().IntVar(&days, "days", 7, "number of trailing days to simulate")
	rootCmd.Flags().StringSliceVar(&symbolsFlag, "symbol", nil, "symbols to simulate (defaults to config SYMBOLS)")
	rootCmd.Flags().StringVar(&calendarPath, "calendar", "", "optional macro calendar JSON file ([{name,timestamp,tier}])")
	rootCmd.Flags().BoolVar(&downloadOnly, "download-only", false, "exit without simulating; run_backtest has no download step of its own")
	rootCmd.Flags().BoolVar(&skipDownload, "skip-download", false, "assume the backtest database already has history and skip any collection step")
	rootCmd.Flags().StringVar(&csvOutPath, "csv", "", "optional path to write the per-symbol equity report as CSV")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: true})

	symbols := symbolsFlag
	if len(symbols) == 0 {
		symbols = cfg.Symbols
	}

	if downloadOnly {
		log.Info().Msg("download-only requested; collectors populate the backtest database separately, nothing to simulate")
		return nil
	}
	if !skipDownload {
		log.Warn().Msg("no collection step wired into run_backtest; assuming the backtest database already has history (pass --skip-download to silence this)")
	}

	dbPath := filepath.Join(cfg.DataDir, "backtest.db")
	db, err := database.New(database.Config{Path: dbPath, Name: "backtest", Profile: database.ProfileBacktest})
	if err != nil {
		return fmt.Errorf("open backtest database: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}

	conn := db.Conn()
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -days)
	virtualClock := clock.NewVirtual(start)

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
	settingsRepo := store.NewSettingsRepository(conn)

	pl := &pipeline.Pipeline{
		Clock: virtualClock, ATR: atrRepo, Threshold: thresholdRepo, Grid: gridRepo, SSM: ssmRepo,
		Klines: klineRepo, Liquidation: liqRepo, OI: oiRepo, Walls: wallRepo, FundingRate: fundingRepo,
		LSRatio: lsRepo, FearGreed: fgRepo, Whale: whaleRepo, Netflow: netflowRepo, Onchain: onchainRepo,
		Sentiment: llm.NeutralStub{},
	}

	strategyMgr := strategy.NewManager(virtualClock, strategyStateRepo, signalRepo, atrRepo, gridRepo,
		ssmRepo, fundingRepo, lsRepo, klineRepo, liqRepo, oiRepo)
	if calendarPath != "" {
		events, err := loadCalendar(calendarPath)
		if err != nil {
			return fmt.Errorf("load macro calendar: %w", err)
		}
		strategyMgr.SetCalendar(events)
	}

	paperMgr := paper.NewManager(virtualClock, signalRepo, paperTradeRepo, paperFundingRepo, paperGridRepo,
		paperSummaryRepo, settingsRepo, gridRepo, strategyStateRepo)

	for _, sym := range symbols {
		existing, err := liqRepo.CountSince(sym, 0)
		if err != nil {
			return fmt.Errorf("count liquidations for %s: %w", sym, err)
		}
		if existing > 0 {
			continue
		}
		n, err := backtest.SynthesizeLiquidations(klineRepo, liqRepo, sym, days*288)
		if err != nil {
			return fmt.Errorf("synthesize liquidations for %s: %w", sym, err)
		}
		if n > 0 {
			log.Info().Str("symbol", sym).Int("count", n).Msg("synthesized liquidation events from kline volatility spikes")
		}
	}

	feeders := make(map[string]*backtest.Feeder, len(symbols))
	for _, sym := range symbols {
		f, err := backtest.NewFeeder(conn, sym)
		if err != nil {
			return fmt.Errorf("build feeder for %s: %w", sym, err)
		}
		feeders[sym] = f
	}

	runner := &backtest.Runner{
		Clock: virtualClock, Feeders: feeders, Pipeline: pl, Strategy: strategyMgr, Paper: paperMgr,
		Grid: gridRepo, Klines: klineRepo, Symbols: symbols, Log: log,
	}

	log.Info().Time("start", start).Time("end", end).Strs("symbols", symbols).Msg("backtest starting")
	ctx := context.Background()
	if err := runner.Run(ctx, end, time.Hour); err != nil {
		return fmt.Errorf("run backtest: %w", err)
	}
	log.Info().Msg("backtest complete")

	return printReport(symbols, paperTradeRepo, paperSummaryRepo, paperFundingRepo, paperGridRepo, klineRepo)
}

func printReport(
	symbols []string,
	trades *store.PaperTradeRepository,
	summaries *store.PaperSummaryRepository,
	funding *store.PaperL1FundingRepository,
	grid *store.PaperL4GridRepository,
	klines *store.KlineRepository,
) error {
	var csvFile *os.File
	if csvOutPath != "" {
		f, err := os.Create(csvOutPath)
		if err != nil {
			return fmt.Errorf("create csv report: %w", err)
		}
		defer f.Close()
		csvFile = f
		fmt.Fprintln(csvFile, "symbol,closed_trades,win_rate,max_drawdown,sharpe_like,total_pnl")
	}

	fmt.Println("\nsymbol\tclosed\twin_rate\tmax_dd\tsharpe\ttotal_pnl")
	for _, sym := range symbols {
		summary, err := report.Generate(trades, summaries, funding, grid, klines, sym)
		if err != nil {
			return fmt.Errorf("report for %s: %w", sym, err)
		}
		fmt.Printf("%s\t%d\t%.4f\t%.4f\t%.4f\t%.4f\n", sym, summary.ClosedTrades, summary.WinRate,
			summary.MaxDrawdown, summary.SharpeLike, summary.Equity.Total)
		if csvFile != nil {
			fmt.Fprintf(csvFile, "%s,%d,%.4f,%.4f,%.4f,%.4f\n", sym, summary.ClosedTrades, summary.WinRate,
				summary.MaxDrawdown, summary.SharpeLike, summary.Equity.Total)
		}
	}
	return nil
}

func loadCalendar(path string) ([]macroguard.Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw []struct {
		Name      string `json:"name"`
		Timestamp int64  `json:"timestamp"`
		Tier      int    `json:"tier"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	events := make([]macroguard.Event, len(raw))
	for i, r := range raw {
		events[i] = macroguard.Event{Name: r.Name, Timestamp: time.Unix(r.Timestamp, 0).UTC(), Tier: r.Tier}
	}
	return events, nil
}
