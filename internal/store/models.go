// Package store holds the per-table repositories over the shared schema.
// Each repository owns exactly the operations its table's declared owner
// needs; table ownership partitioning is enforced at the repository layer.
package store

// Liquidation is one force-order event.
type Liquidation struct {
	ID        int64
	Symbol    string
	Side      string // BUY = short liquidated, SELL = long liquidated
	Price     float64
	Qty       float64
	TradeTime int64 // epoch ms
	CreatedAt int64
}

// OISnapshot is one open-interest reading.
type OISnapshot struct {
	ID            int64
	Symbol        string
	OpenInterest  float64
	CollectedAt   int64
}

// FundingRate is one funding-rate reading.
type FundingRate struct {
	ID          int64
	Symbol      string
	Rate        float64
	FundingTime int64
	CollectedAt int64
}

// LongShortRatio is one long/short account ratio reading.
type LongShortRatio struct {
	ID           int64
	Symbol       string
	Ratio        float64
	LongAccount  float64
	ShortAccount float64
	Timestamp    int64
}

// OrderbookWall is one resting order-book level from a scan.
type OrderbookWall struct {
	ID          int64
	Symbol      string
	Side        string // BID or ASK
	Price       float64
	Quantity    float64
	ScanID      string
	CollectedAt int64
}

// Kline is one OHLCV candle.
type Kline struct {
	ID       int64
	Symbol   string
	Interval string // "5m" or "1d"
	OpenTime int64
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
}

// FearGreed is one Fear & Greed Index reading.
type FearGreed struct {
	ID             int64
	Value          int
	Classification string
	FGTimestamp    int64
}

// WhaleTransaction is one whale-flow provider reading.
type WhaleTransaction struct {
	ID          int64
	Symbol      string
	Direction   string // inflow, outflow, neutral
	InflowUSD   float64
	OutflowUSD  float64
	TxCount     int
	Score       float64
	CollectedAt int64
}

// ExchangeNetflow is one net exchange-flow reading (negative = net
// outflow from exchanges, the Momentum sub-score's bullish signal).
type ExchangeNetflow struct {
	ID          int64
	Symbol      string
	NetFlowUSD  float64
	CollectedAt int64
}

// OnchainMetric is one MVRV/on-chain provider reading.
type OnchainMetric struct {
	ID          int64
	Symbol      string
	MVRV        float64
	Signal      string // bullish, bearish, neutral
	Score       float64
	CollectedAt int64
}

// TakerRatio is one taker buy/sell ratio reading.
type TakerRatio struct {
	ID           int64
	Symbol       string
	BuySellRatio float64
	CollectedAt  int64
}

// ATRValue is one ATR engine output row.
type ATRValue struct {
	ID           int64
	Symbol       string
	ATR          float64
	ATRPct       float64
	StopLossPct  float64
	CurrentPrice float64
	ComputedAt   int64
}

// ThresholdSignal is one Dynamic Threshold engine output row.
type ThresholdSignal struct {
	ID             int64
	Symbol         string
	ThresholdValue float64
	LiqAmount1h    float64
	CurrentOI      float64
	LiquidityCoeff float64
	TriggerActive  bool
	Direction      *string // LONG_CASCADE, SHORT_CASCADE, or nil
	ComputedAt     int64
}

// GridConfig is one Grid Range engine output row.
type GridConfig struct {
	ID               int64
	Symbol           string
	LowerBound       float64
	UpperBound       float64
	GridCount        int
	GridSpacing      float64
	GridSpacingPct   float64
	SpoofingFiltered int
	ComputedAt       int64
}

// SSMScore is one SSM Scorer engine output row.
type SSMScore struct {
	ID              int64
	Symbol          string
	TriggerActive   bool
	MomentumScore   float64
	SentimentScore  float64
	StoryScore      float64
	ValueScore      float64
	TotalScore      float64
	Direction       *string
	ScoreDetail     string // JSON
	GeminiCallsUsed int
	ComputedAt      int64
}

// StrategyState is one versioned snapshot of a symbol's L1/L2/L4 state.
type StrategyState struct {
	ID                      int64
	Symbol                  string
	State                   string // "A" or "B"
	L1Active                bool
	L1EntryReason           *string
	L2Active                bool
	L2Direction             *string
	L2Step                  int
	L2EntryPct              float64
	L2AvgEntryPrice         float64
	L2Step1Time             *string
	L2ScoreAtEntry          float64
	L2DirectionChangesToday int
	L2LastResetDate         string
	L4Active                bool
	L4GridConfigID          *int64
	MacroBlocked            bool
	MacroBlockReason        *string
	UpdatedAt               int64
}

// Signal is one append-only signal_log row, the sole coupling between the
// Strategy Manager and the Paper Trader.
type Signal struct {
	ID         int64
	Symbol     string
	SignalType string // L1_ENTRY, L1_EXIT, L4_GRID_SET, L2_STEP1, L2_STEP2, L2_STEP3, L2_EXIT, L4_PAUSE, L4_RESUME
	Direction  *string
	Details    string // JSON
	SSMScore   float64
	CreatedAt  int64
}

// PaperTrade is one L2 paper position.
type PaperTrade struct {
	ID             int64
	Symbol         string
	Status         string // OPEN, CLOSED
	Direction      string // LONG, SHORT
	L2Step         int
	EntryPct       float64
	AvgEntryPrice  float64
	StopLossPrice  float64
	ExitPrice      *float64
	ExitReason     *string
	PnLPct         *float64
	PnLWeighted    *float64
	ScoreAtEntry   float64
	OpenedAt       int64
	ClosedAt       *int64
}

// PaperL1Funding is one L1 funding paper-PnL entry.
type PaperL1Funding struct {
	ID          int64
	Symbol      string
	FundingRate float64
	PnLPct      float64
	L2Conflict  bool
	RecordedAt  int64
}

// PaperL4Grid is one L4 grid paper fill.
type PaperL4Grid struct {
	ID           int64
	Symbol       string
	GridConfigID int64
	Side         string // BUY, SELL
	BandIndex    int
	Price        float64
	PnLPct       float64
	RecordedAt   int64
}

// PaperSummary is the daily rollup per symbol.
type PaperSummary struct {
	ID          int64
	Symbol      string
	SummaryDate string
	RealizedPnL float64
	TradeCount  int
	WinCount    int
	UpdatedAt   int64
}
