package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/cryptostrat/internal/database"
	"github.com/aristath/cryptostrat/internal/store"
)

func newTestServer(t *testing.T) (*Server, *database.DB) {
	t.Helper()
	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), "server_test.db"),
		Name:    "server_test",
		Profile: database.ProfileBacktest,
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })

	s := New(Config{
		Log:       zerolog.Nop(),
		Port:      0,
		Symbols:   []string{"BTCUSDT"},
		StartedAt: time.Now().UTC().Add(-time.Minute),
		Trades:    store.NewPaperTradeRepository(db.Conn()),
		Summaries: store.NewPaperSummaryRepository(db.Conn()),
		Funding:   store.NewPaperL1FundingRepository(db.Conn()),
		Grid:      store.NewPaperL4GridRepository(db.Conn()),
		Klines:    store.NewKlineRepository(db.Conn()),
		Strategy:  store.NewStrategyStateRepository(db.Conn()),
		Usage:     store.NewGeminiUsageRepository(db.Conn()),
	})
	return s, db
}

func TestHandleHealth_ReturnsHealthyStatus(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "cryptostrat", body["service"])
}

func TestHandleStatus_ReturnsSeededStrategyState(t *testing.T) {
	s, db := newTestServer(t)
	strategy := store.NewStrategyStateRepository(db.Conn())
	_, err := strategy.Insert(store.StrategyState{
		Symbol: "BTCUSDT", State: "A", L2LastResetDate: "2024-01-01", UpdatedAt: 1000,
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/status/", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	symbols, ok := body["symbols"].(map[string]interface{})
	require.True(t, ok)
	btc, ok := symbols["BTCUSDT"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "A", btc["State"])
}

func TestHandleSymbolStatus_NotFoundForUnknownSymbol(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/status/ETHUSDT", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleSymbolStatus_ReturnsSeededState(t *testing.T) {
	s, db := newTestServer(t)
	strategy := store.NewStrategyStateRepository(db.Conn())
	_, err := strategy.Insert(store.StrategyState{
		Symbol: "BTCUSDT", State: "B", L2LastResetDate: "2024-01-01", UpdatedAt: 2000,
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/status/BTCUSDT", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var state store.StrategyState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.Equal(t, "B", state.State)
}

func TestHandleReport_ReturnsGeneratedSummary(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/report/BTCUSDT", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "BTCUSDT", body["Symbol"])
	assert.Equal(t, 0.0, body["ClosedTrades"])
}
