package collector

import (
	"context"
	"fmt"

	"github.com/aristath/cryptostrat/internal/clock"
	"github.com/aristath/cryptostrat/internal/store"
)

// WhaleCollector polls Arkham Intelligence's whale-flow endpoint. Stubbed
// as ErrProviderUnconfigured without an Arkham key; the Momentum sub-score
// simply treats the row as absent.
type WhaleCollector struct {
	apiKey string
	symbol string
	client *RESTClient
	clock  clock.Clock
	repo   *store.WhaleTransactionRepository
}

func NewWhaleCollector(apiKey, symbol string, client *RESTClient, clk clock.Clock, repo *store.WhaleTransactionRepository) *WhaleCollector {
	return &WhaleCollector{apiKey, symbol, client, clk, repo}
}

func (c *WhaleCollector) Name() string { return "whale_transactions:" + c.symbol }

func (c *WhaleCollector) CollectOnce(ctx context.Context) error {
	if c.apiKey == "" {
		return ErrProviderUnconfigured
	}
	var resp struct {
		Direction  string  `json:"direction"`
		InflowUSD  float64 `json:"inflow_usd"`
		OutflowUSD float64 `json:"outflow_usd"`
		TxCount    int     `json:"tx_count"`
		Score      float64 `json:"score"`
	}
	url := fmt.Sprintf("https://api.arkhamintelligence.com/whale-flows?asset=%s&key=%s", c.symbol, c.apiKey)
	if err := c.client.GetJSON(ctx, url, &resp); err != nil {
		return fmt.Errorf("fetch whale flows: %w", err)
	}
	return c.repo.Insert(store.WhaleTransaction{
		Symbol: c.symbol, Direction: resp.Direction, InflowUSD: resp.InflowUSD,
		OutflowUSD: resp.OutflowUSD, TxCount: resp.TxCount, Score: resp.Score, CollectedAt: c.clock.Unix(),
	})
}

// OnchainCollector polls CryptoQuant's MVRV endpoint.
type OnchainCollector struct {
	apiKey string
	symbol string
	client *RESTClient
	clock  clock.Clock
	repo   *store.OnchainMetricRepository
}

func NewOnchainCollector(apiKey, symbol string, client *RESTClient, clk clock.Clock, repo *store.OnchainMetricRepository) *OnchainCollector {
	return &OnchainCollector{apiKey, symbol, client, clk, repo}
}

func (c *OnchainCollector) Name() string { return "onchain_metrics:" + c.symbol }

func (c *OnchainCollector) CollectOnce(ctx context.Context) error {
	if c.apiKey == "" {
		return ErrProviderUnconfigured
	}
	var resp struct {
		MVRV   float64 `json:"mvrv"`
		Signal string  `json:"signal"`
		Score  float64 `json:"score"`
	}
	url := fmt.Sprintf("https://api.cryptoquant.com/v1/mvrv?asset=%s&key=%s", c.symbol, c.apiKey)
	if err := c.client.GetJSON(ctx, url, &resp); err != nil {
		return fmt.Errorf("fetch mvrv: %w", err)
	}
	return c.repo.Insert(store.OnchainMetric{
		Symbol: c.symbol, MVRV: resp.MVRV, Signal: resp.Signal, Score: resp.Score, CollectedAt: c.clock.Unix(),
	})
}

// NetflowCollector polls CryptoQuant's exchange-netflow endpoint (the same
// provider key as OnchainCollector; a distinct metric).
type NetflowCollector struct {
	apiKey string
	symbol string
	client *RESTClient
	clock  clock.Clock
	repo   *store.ExchangeNetflowRepository
}

func NewNetflowCollector(apiKey, symbol string, client *RESTClient, clk clock.Clock, repo *store.ExchangeNetflowRepository) *NetflowCollector {
	return &NetflowCollector{apiKey, symbol, client, clk, repo}
}

func (c *NetflowCollector) Name() string { return "exchange_netflow:" + c.symbol }

func (c *NetflowCollector) CollectOnce(ctx context.Context) error {
	if c.apiKey == "" {
		return ErrProviderUnconfigured
	}
	var resp struct {
		NetFlowUSD float64 `json:"net_flow_usd"`
	}
	url := fmt.Sprintf("https://api.cryptoquant.com/v1/exchange-netflow?asset=%s&key=%s", c.symbol, c.apiKey)
	if err := c.client.GetJSON(ctx, url, &resp); err != nil {
		return fmt.Errorf("fetch exchange netflow: %w", err)
	}
	return c.repo.Insert(store.ExchangeNetflow{Symbol: c.symbol, NetFlowUSD: resp.NetFlowUSD, CollectedAt: c.clock.Unix()})
}
