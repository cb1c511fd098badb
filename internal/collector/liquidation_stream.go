package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/aristath/cryptostrat/internal/clock"
	"github.com/aristath/cryptostrat/internal/store"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
)

const (
	liquidationDialTimeout   = 30 * time.Second
	liquidationBaseReconnect = 5 * time.Second
	liquidationMaxReconnect  = 5 * time.Minute
)

// LiquidationStream is the one long-running collector: Binance's
// !forceOrder@arr stream, appended to `liquidations` as events arrive.
// Reconnects with exponential backoff on any read/dial failure, the way
// tradernet's MarketStatusWebSocket does, generalized to a single
// blocking Run instead of a background-goroutine-with-stop-channel shape,
// since its caller (cmd/server) already runs it in its own goroutine for
// the process lifetime.
type LiquidationStream struct {
	url   string
	repo  *store.LiquidationRepository
	clock clock.Clock
	log   zerolog.Logger
}

func NewLiquidationStream(url string, repo *store.LiquidationRepository, clk clock.Clock, log zerolog.Logger) *LiquidationStream {
	if url == "" {
		url = "wss://fstream.binance.com/ws/!forceOrder@arr"
	}
	return &LiquidationStream{url: url, repo: repo, clock: clk, log: log.With().Str("component", "liquidation_stream").Logger()}
}

// Run connects and reads forever, reconnecting with backoff, until ctx is
// canceled.
func (s *LiquidationStream) Run(ctx context.Context) error {
	delay := liquidationBaseReconnect
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := s.connectAndRead(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			s.log.Warn().Err(err).Dur("retry_in", delay).Msg("liquidation stream disconnected")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if delay > liquidationMaxReconnect {
			delay = liquidationMaxReconnect
		}
	}
}

func (s *LiquidationStream) connectAndRead(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, liquidationDialTimeout)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dial liquidation stream: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	s.log.Info().Str("url", s.url).Msg("liquidation stream connected")

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return fmt.Errorf("read liquidation stream: %w", err)
		}
		if err := s.handle(data); err != nil {
			s.log.Warn().Err(err).Msg("dropping malformed liquidation event")
		}
	}
}

type forceOrderEvent struct {
	Order struct {
		Symbol       string `json:"s"`
		Side         string `json:"S"`
		Price        string `json:"p"`
		Quantity     string `json:"q"`
		TradeTimeMs  int64  `json:"T"`
	} `json:"o"`
}

func (s *LiquidationStream) handle(data []byte) error {
	var evt forceOrderEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return fmt.Errorf("unmarshal force-order event: %w", err)
	}
	price, err := strconv.ParseFloat(evt.Order.Price, 64)
	if err != nil {
		return fmt.Errorf("parse liquidation price: %w", err)
	}
	qty, err := strconv.ParseFloat(evt.Order.Quantity, 64)
	if err != nil {
		return fmt.Errorf("parse liquidation quantity: %w", err)
	}
	return s.repo.Insert(store.Liquidation{
		Symbol: evt.Order.Symbol, Side: evt.Order.Side, Price: price, Qty: qty,
		TradeTime: evt.Order.TradeTimeMs, CreatedAt: s.clock.Unix(),
	})
}
