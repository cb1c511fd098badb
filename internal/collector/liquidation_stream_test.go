package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"github.com/aristath/cryptostrat/internal/clock"
	"github.com/aristath/cryptostrat/internal/store"
)

func TestLiquidationStream_HandleInsertsLiquidation(t *testing.T) {
	db := openTestDB(t)
	repo := store.NewLiquidationRepository(db.Conn())
	s := NewLiquidationStream("", repo, clock.NewSystem(), zerolog.Nop())

	payload := `{"o":{"s":"BTCUSDT","S":"SELL","p":"61000.50","q":"1.25","T":1700000000000}}`
	require.NoError(t, s.handle([]byte(payload)))

	buy, sell, err := repo.SumSince("BTCUSDT", 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, buy)
	assert.InDelta(t, 61000.50*1.25, sell, 0.001)
}

func TestLiquidationStream_HandleMalformedJSONIsError(t *testing.T) {
	db := openTestDB(t)
	repo := store.NewLiquidationRepository(db.Conn())
	s := NewLiquidationStream("", repo, clock.NewSystem(), zerolog.Nop())
	assert.Error(t, s.handle([]byte("not json")))
}

func TestLiquidationStream_HandleBadNumericFieldsIsError(t *testing.T) {
	db := openTestDB(t)
	repo := store.NewLiquidationRepository(db.Conn())
	s := NewLiquidationStream("", repo, clock.NewSystem(), zerolog.Nop())
	payload := `{"o":{"s":"BTCUSDT","S":"BUY","p":"not-a-number","q":"1","T":1}}`
	assert.Error(t, s.handle([]byte(payload)))
}

func TestNewLiquidationStream_DefaultsURLWhenEmpty(t *testing.T) {
	s := NewLiquidationStream("", nil, clock.NewSystem(), zerolog.Nop())
	assert.Contains(t, s.url, "fstream.binance.com")
}

func TestLiquidationStream_RunStoresEventsUntilContextDone(t *testing.T) {
	var accepts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&accepts, 1)
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		_ = c.Write(r.Context(), websocket.MessageText,
			[]byte(`{"o":{"s":"ETHUSDT","S":"BUY","p":"2500.0","q":"2.0","T":1700000001000}}`))
		c.Close(websocket.StatusNormalClosure, "")
	}))
	defer srv.Close()

	db := openTestDB(t)
	repo := store.NewLiquidationRepository(db.Conn())
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	s := NewLiquidationStream(wsURL, repo, clock.NewSystem(), zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	err := s.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&accepts), int32(1))

	buy, _, err := repo.SumSince("ETHUSDT", 0)
	require.NoError(t, err)
	assert.InDelta(t, 2500.0*2.0, buy, 0.001)
}
