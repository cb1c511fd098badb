package collector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aristath/cryptostrat/internal/clock"
	"github.com/aristath/cryptostrat/internal/store"
)

func TestOnchainCollectors_UnconfiguredKeyReturnsErrProviderUnconfigured(t *testing.T) {
	db := openTestDB(t)
	clk := clock.NewSystem()
	client := NewRESTClient("onchain_test", 50)

	whale := NewWhaleCollector("", "BTCUSDT", client, clk, store.NewWhaleTransactionRepository(db.Conn()))
	assert.ErrorIs(t, whale.CollectOnce(context.Background()), ErrProviderUnconfigured)

	onchain := NewOnchainCollector("", "BTCUSDT", client, clk, store.NewOnchainMetricRepository(db.Conn()))
	assert.ErrorIs(t, onchain.CollectOnce(context.Background()), ErrProviderUnconfigured)

	netflow := NewNetflowCollector("", "BTCUSDT", client, clk, store.NewExchangeNetflowRepository(db.Conn()))
	assert.ErrorIs(t, netflow.CollectOnce(context.Background()), ErrProviderUnconfigured)
}

func TestOnchainCollectors_Names(t *testing.T) {
	clk := clock.NewSystem()
	client := NewRESTClient("onchain_test", 50)

	assert.Equal(t, "whale_transactions:BTCUSDT", NewWhaleCollector("k", "BTCUSDT", client, clk, nil).Name())
	assert.Equal(t, "onchain_metrics:BTCUSDT", NewOnchainCollector("k", "BTCUSDT", client, clk, nil).Name())
	assert.Equal(t, "exchange_netflow:BTCUSDT", NewNetflowCollector("k", "BTCUSDT", client, clk, nil).Name())
}
