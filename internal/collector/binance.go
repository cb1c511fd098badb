package collector

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aristath/cryptostrat/internal/clock"
	"github.com/aristath/cryptostrat/internal/store"
)

// binanceBase is shared by every collector sourced from Binance USD-M
// futures' public REST endpoints. All of them are gated on BinanceAPIKey
// even though the endpoints themselves are unauthenticated, because the
// configured key selects the account's request-weight tier, and its
// absence disables the respective collector.
type binanceBase struct {
	apiKey string
	symbol string
	client *RESTClient
	clock  clock.Clock
}

func (b binanceBase) checkConfigured() error {
	if b.apiKey == "" {
		return ErrProviderUnconfigured
	}
	return nil
}

const binanceFuturesBase = "https://fapi.binance.com"

// FundingCollector polls the current funding rate.
type FundingCollector struct {
	binanceBase
	repo *store.FundingRateRepository
}

func NewFundingCollector(apiKey, symbol string, client *RESTClient, clk clock.Clock, repo *store.FundingRateRepository) *FundingCollector {
	return &FundingCollector{binanceBase{apiKey, symbol, client, clk}, repo}
}

func (c *FundingCollector) Name() string { return "funding_rate:" + c.symbol }

func (c *FundingCollector) CollectOnce(ctx context.Context) error {
	if err := c.checkConfigured(); err != nil {
		return err
	}
	var resp struct {
		Symbol          string `json:"symbol"`
		FundingRate     string `json:"lastFundingRate"`
		FundingTime     int64  `json:"nextFundingTime"`
	}
	url := fmt.Sprintf("%s/fapi/v1/premiumIndex?symbol=%s", binanceFuturesBase, c.symbol)
	if err := c.client.GetJSON(ctx, url, &resp); err != nil {
		return fmt.Errorf("fetch funding rate: %w", err)
	}
	rate, err := strconv.ParseFloat(resp.FundingRate, 64)
	if err != nil {
		return fmt.Errorf("parse funding rate: %w", err)
	}
	return c.repo.Insert(store.FundingRate{
		Symbol: c.symbol, Rate: rate, FundingTime: resp.FundingTime, CollectedAt: c.clock.Unix(),
	})
}

// OICollector polls open interest.
type OICollector struct {
	binanceBase
	repo *store.OISnapshotRepository
}

func NewOICollector(apiKey, symbol string, client *RESTClient, clk clock.Clock, repo *store.OISnapshotRepository) *OICollector {
	return &OICollector{binanceBase{apiKey, symbol, client, clk}, repo}
}

func (c *OICollector) Name() string { return "open_interest:" + c.symbol }

func (c *OICollector) CollectOnce(ctx context.Context) error {
	if err := c.checkConfigured(); err != nil {
		return err
	}
	var resp struct {
		OpenInterest string `json:"openInterest"`
	}
	url := fmt.Sprintf("%s/fapi/v1/openInterest?symbol=%s", binanceFuturesBase, c.symbol)
	if err := c.client.GetJSON(ctx, url, &resp); err != nil {
		return fmt.Errorf("fetch open interest: %w", err)
	}
	oi, err := strconv.ParseFloat(resp.OpenInterest, 64)
	if err != nil {
		return fmt.Errorf("parse open interest: %w", err)
	}
	return c.repo.Insert(store.OISnapshot{Symbol: c.symbol, OpenInterest: oi, CollectedAt: c.clock.Unix()})
}

// LongShortCollector polls the top-trader long/short account ratio.
type LongShortCollector struct {
	binanceBase
	repo *store.LongShortRatioRepository
}

func NewLongShortCollector(apiKey, symbol string, client *RESTClient, clk clock.Clock, repo *store.LongShortRatioRepository) *LongShortCollector {
	return &LongShortCollector{binanceBase{apiKey, symbol, client, clk}, repo}
}

func (c *LongShortCollector) Name() string { return "long_short_ratio:" + c.symbol }

func (c *LongShortCollector) CollectOnce(ctx context.Context) error {
	if err := c.checkConfigured(); err != nil {
		return err
	}
	var resp []struct {
		LongAccount  string `json:"longAccount"`
		ShortAccount string `json:"shortAccount"`
		LongShortRatio string `json:"longShortRatio"`
		Timestamp    int64  `json:"timestamp"`
	}
	url := fmt.Sprintf("%s/futures/data/topLongShortAccountRatio?symbol=%s&period=5m&limit=1", binanceFuturesBase, c.symbol)
	if err := c.client.GetJSON(ctx, url, &resp); err != nil {
		return fmt.Errorf("fetch long/short ratio: %w", err)
	}
	if len(resp) == 0 {
		return nil
	}
	long, _ := strconv.ParseFloat(resp[0].LongAccount, 64)
	short, _ := strconv.ParseFloat(resp[0].ShortAccount, 64)
	ratio, _ := strconv.ParseFloat(resp[0].LongShortRatio, 64)
	return c.repo.Insert(store.LongShortRatio{
		Symbol: c.symbol, Ratio: ratio, LongAccount: long, ShortAccount: short, Timestamp: resp[0].Timestamp,
	})
}

// TakerRatioCollector polls the taker buy/sell volume ratio.
type TakerRatioCollector struct {
	binanceBase
	repo *store.TakerRatioRepository
}

func NewTakerRatioCollector(apiKey, symbol string, client *RESTClient, clk clock.Clock, repo *store.TakerRatioRepository) *TakerRatioCollector {
	return &TakerRatioCollector{binanceBase{apiKey, symbol, client, clk}, repo}
}

func (c *TakerRatioCollector) Name() string { return "taker_ratio:" + c.symbol }

func (c *TakerRatioCollector) CollectOnce(ctx context.Context) error {
	if err := c.checkConfigured(); err != nil {
		return err
	}
	var resp []struct {
		BuySellRatio string `json:"buySellRatio"`
	}
	url := fmt.Sprintf("%s/futures/data/takerlongshortRatio?symbol=%s&period=5m&limit=1", binanceFuturesBase, c.symbol)
	if err := c.client.GetJSON(ctx, url, &resp); err != nil {
		return fmt.Errorf("fetch taker ratio: %w", err)
	}
	if len(resp) == 0 {
		return nil
	}
	ratio, err := strconv.ParseFloat(resp[0].BuySellRatio, 64)
	if err != nil {
		return fmt.Errorf("parse taker ratio: %w", err)
	}
	return c.repo.Insert(store.TakerRatio{Symbol: c.symbol, BuySellRatio: ratio, CollectedAt: c.clock.Unix()})
}

// KlineCollector polls the most recent closed candle for one interval
// ("1d" or "5m").
type KlineCollector struct {
	binanceBase
	interval string
	repo     *store.KlineRepository
}

func NewKlineCollector(apiKey, symbol, interval string, client *RESTClient, clk clock.Clock, repo *store.KlineRepository) *KlineCollector {
	return &KlineCollector{binanceBase{apiKey, symbol, client, clk}, interval, repo}
}

func (c *KlineCollector) Name() string { return "klines:" + c.interval + ":" + c.symbol }

func (c *KlineCollector) CollectOnce(ctx context.Context) error {
	if err := c.checkConfigured(); err != nil {
		return err
	}
	var resp [][]any
	url := fmt.Sprintf("%s/fapi/v1/klines?symbol=%s&interval=%s&limit=2", binanceFuturesBase, c.symbol, c.interval)
	if err := c.client.GetJSON(ctx, url, &resp); err != nil {
		return fmt.Errorf("fetch klines: %w", err)
	}
	if len(resp) < 2 {
		return nil
	}
	closed := resp[len(resp)-2] // the most recent fully-closed candle, not the in-progress one
	k, err := parseKline(c.symbol, c.interval, closed)
	if err != nil {
		return err
	}
	return c.repo.Insert(k)
}

func parseKline(symbol, interval string, row []any) (store.Kline, error) {
	if len(row) < 6 {
		return store.Kline{}, fmt.Errorf("malformed kline row")
	}
	openTime, _ := row[0].(float64)
	open, _ := strconv.ParseFloat(row[1].(string), 64)
	high, _ := strconv.ParseFloat(row[2].(string), 64)
	low, _ := strconv.ParseFloat(row[3].(string), 64)
	closePx, _ := strconv.ParseFloat(row[4].(string), 64)
	volume, _ := strconv.ParseFloat(row[5].(string), 64)
	return store.Kline{
		Symbol: symbol, Interval: interval, OpenTime: int64(openTime),
		Open: open, High: high, Low: low, Close: closePx, Volume: volume,
	}, nil
}

// OrderbookWallCollector snapshots the top-of-book depth into one scan,
// tagged with a fresh scan id so the Grid Range engine can confirm walls
// across two consecutive scans.
type OrderbookWallCollector struct {
	binanceBase
	repo    *store.OrderbookWallRepository
	scanIDs func() string
}

func NewOrderbookWallCollector(apiKey, symbol string, client *RESTClient, clk clock.Clock, repo *store.OrderbookWallRepository, scanIDs func() string) *OrderbookWallCollector {
	return &OrderbookWallCollector{binanceBase{apiKey, symbol, client, clk}, repo, scanIDs}
}

func (c *OrderbookWallCollector) Name() string { return "orderbook_walls:" + c.symbol }

func (c *OrderbookWallCollector) CollectOnce(ctx context.Context) error {
	if err := c.checkConfigured(); err != nil {
		return err
	}
	var resp struct {
		Bids [][2]string `json:"bids"`
		Asks [][2]string `json:"asks"`
	}
	url := fmt.Sprintf("%s/fapi/v1/depth?symbol=%s&limit=100", binanceFuturesBase, c.symbol)
	if err := c.client.GetJSON(ctx, url, &resp); err != nil {
		return fmt.Errorf("fetch order book: %w", err)
	}

	scanID := c.scanIDs()
	now := c.clock.Unix()
	for _, level := range resp.Bids {
		if err := c.insertLevel("BID", level, scanID, now); err != nil {
			return err
		}
	}
	for _, level := range resp.Asks {
		if err := c.insertLevel("ASK", level, scanID, now); err != nil {
			return err
		}
	}
	return nil
}

func (c *OrderbookWallCollector) insertLevel(side string, level [2]string, scanID string, now int64) error {
	price, _ := strconv.ParseFloat(level[0], 64)
	qty, _ := strconv.ParseFloat(level[1], 64)
	return c.repo.Insert(store.OrderbookWall{
		Symbol: c.symbol, Side: side, Price: price, Quantity: qty, ScanID: scanID, CollectedAt: now,
	})
}
