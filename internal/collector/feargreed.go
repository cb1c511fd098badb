package collector

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aristath/cryptostrat/internal/clock"
	"github.com/aristath/cryptostrat/internal/store"
)

// FearGreedCollector polls the market-wide Fear & Greed Index
// (alternative.me's public endpoint; no API key required).
type FearGreedCollector struct {
	client *RESTClient
	clock  clock.Clock
	repo   *store.FearGreedRepository
}

func NewFearGreedCollector(client *RESTClient, clk clock.Clock, repo *store.FearGreedRepository) *FearGreedCollector {
	return &FearGreedCollector{client: client, clock: clk, repo: repo}
}

func (c *FearGreedCollector) Name() string { return "fear_greed" }

func (c *FearGreedCollector) CollectOnce(ctx context.Context) error {
	var resp struct {
		Data []struct {
			Value               string `json:"value"`
			ValueClassification string `json:"value_classification"`
			Timestamp           string `json:"timestamp"`
		} `json:"data"`
	}
	if err := c.client.GetJSON(ctx, "https://api.alternative.me/fng/?limit=1", &resp); err != nil {
		return fmt.Errorf("fetch fear & greed index: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil
	}
	value, err := strconv.Atoi(resp.Data[0].Value)
	if err != nil {
		return fmt.Errorf("parse fear & greed value: %w", err)
	}
	ts, err := strconv.ParseInt(resp.Data[0].Timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("parse fear & greed timestamp: %w", err)
	}
	return c.repo.Insert(store.FearGreed{Value: value, Classification: resp.Data[0].ValueClassification, FGTimestamp: ts})
}
