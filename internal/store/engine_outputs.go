package store

import (
	"database/sql"
	"fmt"
)

// ATRRepository owns atr_values, the ATR engine's sole writer.
type ATRRepository struct{ db *sql.DB }

func NewATRRepository(db *sql.DB) *ATRRepository { return &ATRRepository{db: db} }

func (r *ATRRepository) Insert(v ATRValue) (int64, error) {
	res, err := r.db.Exec(
		`INSERT INTO atr_values (symbol, atr, atr_pct, stop_loss_pct, current_price, computed_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		v.Symbol, v.ATR, v.ATRPct, v.StopLossPct, v.CurrentPrice, v.ComputedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert atr value: %w", err)
	}
	return res.LastInsertId()
}

func (r *ATRRepository) Latest(symbol string) (*ATRValue, error) {
	var v ATRValue
	err := r.db.QueryRow(
		`SELECT id, symbol, atr, atr_pct, stop_loss_pct, current_price, computed_at
		 FROM atr_values WHERE symbol = ? ORDER BY id DESC LIMIT 1`,
		symbol,
	).Scan(&v.ID, &v.Symbol, &v.ATR, &v.ATRPct, &v.StopLossPct, &v.CurrentPrice, &v.ComputedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest atr value: %w", err)
	}
	return &v, nil
}

// ThresholdRepository owns threshold_signals, the Dynamic Threshold engine's sole writer.
type ThresholdRepository struct{ db *sql.DB }

func NewThresholdRepository(db *sql.DB) *ThresholdRepository { return &ThresholdRepository{db: db} }

func (r *ThresholdRepository) Insert(v ThresholdSignal) (int64, error) {
	res, err := r.db.Exec(
		`INSERT INTO threshold_signals (symbol, threshold_value, liq_amount_1h, current_oi, liquidity_coeff, trigger_active, direction, computed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		v.Symbol, v.ThresholdValue, v.LiqAmount1h, v.CurrentOI, v.LiquidityCoeff, v.TriggerActive, v.Direction, v.ComputedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert threshold signal: %w", err)
	}
	return res.LastInsertId()
}

func (r *ThresholdRepository) Latest(symbol string) (*ThresholdSignal, error) {
	var v ThresholdSignal
	err := r.db.QueryRow(
		`SELECT id, symbol, threshold_value, liq_amount_1h, current_oi, liquidity_coeff, trigger_active, direction, computed_at
		 FROM threshold_signals WHERE symbol = ? ORDER BY id DESC LIMIT 1`,
		symbol,
	).Scan(&v.ID, &v.Symbol, &v.ThresholdValue, &v.LiqAmount1h, &v.CurrentOI, &v.LiquidityCoeff, &v.TriggerActive, &v.Direction, &v.ComputedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest threshold signal: %w", err)
	}
	return &v, nil
}

// GridRepository owns grid_configs, the Grid Range engine's sole writer.
type GridRepository struct{ db *sql.DB }

func NewGridRepository(db *sql.DB) *GridRepository { return &GridRepository{db: db} }

func (r *GridRepository) Insert(v GridConfig) (int64, error) {
	res, err := r.db.Exec(
		`INSERT INTO grid_configs (symbol, lower_bound, upper_bound, grid_count, grid_spacing, grid_spacing_pct, spoofing_filtered, computed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		v.Symbol, v.LowerBound, v.UpperBound, v.GridCount, v.GridSpacing, v.GridSpacingPct, v.SpoofingFiltered, v.ComputedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert grid config: %w", err)
	}
	return res.LastInsertId()
}

func (r *GridRepository) Latest(symbol string) (*GridConfig, error) {
	var v GridConfig
	err := r.db.QueryRow(
		`SELECT id, symbol, lower_bound, upper_bound, grid_count, grid_spacing, grid_spacing_pct, spoofing_filtered, computed_at
		 FROM grid_configs WHERE symbol = ? ORDER BY id DESC LIMIT 1`,
		symbol,
	).Scan(&v.ID, &v.Symbol, &v.LowerBound, &v.UpperBound, &v.GridCount, &v.GridSpacing, &v.GridSpacingPct, &v.SpoofingFiltered, &v.ComputedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest grid config: %w", err)
	}
	return &v, nil
}

// ByID fetches a specific grid config by id. The Strategy Manager uses this
// to re-read the activation-time grid rather than the latest one.
func (r *GridRepository) ByID(id int64) (*GridConfig, error) {
	var v GridConfig
	err := r.db.QueryRow(
		`SELECT id, symbol, lower_bound, upper_bound, grid_count, grid_spacing, grid_spacing_pct, spoofing_filtered, computed_at
		 FROM grid_configs WHERE id = ?`,
		id,
	).Scan(&v.ID, &v.Symbol, &v.LowerBound, &v.UpperBound, &v.GridCount, &v.GridSpacing, &v.GridSpacingPct, &v.SpoofingFiltered, &v.ComputedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("grid config by id: %w", err)
	}
	return &v, nil
}

// SSMRepository owns ssm_scores, the SSM Scorer engine's sole writer.
type SSMRepository struct{ db *sql.DB }

func NewSSMRepository(db *sql.DB) *SSMRepository { return &SSMRepository{db: db} }

func (r *SSMRepository) Insert(v SSMScore) (int64, error) {
	res, err := r.db.Exec(
		`INSERT INTO ssm_scores (symbol, trigger_active, momentum_score, sentiment_score, story_score, value_score, total_score, direction, score_detail, gemini_calls_used, computed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.Symbol, v.TriggerActive, v.MomentumScore, v.SentimentScore, v.StoryScore, v.ValueScore, v.TotalScore, v.Direction, v.ScoreDetail, v.GeminiCallsUsed, v.ComputedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert ssm score: %w", err)
	}
	return res.LastInsertId()
}

func (r *SSMRepository) Latest(symbol string) (*SSMScore, error) {
	var v SSMScore
	err := r.db.QueryRow(
		`SELECT id, symbol, trigger_active, momentum_score, sentiment_score, story_score, value_score, total_score, direction, score_detail, gemini_calls_used, computed_at
		 FROM ssm_scores WHERE symbol = ? ORDER BY id DESC LIMIT 1`,
		symbol,
	).Scan(&v.ID, &v.Symbol, &v.TriggerActive, &v.MomentumScore, &v.SentimentScore, &v.StoryScore, &v.ValueScore, &v.TotalScore, &v.Direction, &v.ScoreDetail, &v.GeminiCallsUsed, &v.ComputedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest ssm score: %w", err)
	}
	return &v, nil
}

// GeminiUsageRepository owns gemini_usage, the one non-owner-partitioned
// write: a per-date counter incremented by one upsert per call.
type GeminiUsageRepository struct{ db *sql.DB }

func NewGeminiUsageRepository(db *sql.DB) *GeminiUsageRepository {
	return &GeminiUsageRepository{db: db}
}

// IncrementAndGet bumps today's call counter and returns the new total.
func (r *GeminiUsageRepository) IncrementAndGet(date string) (int, error) {
	_, err := r.db.Exec(
		`INSERT INTO gemini_usage (usage_date, calls_used) VALUES (?, 1)
		 ON CONFLICT(usage_date) DO UPDATE SET calls_used = calls_used + 1`,
		date,
	)
	if err != nil {
		return 0, fmt.Errorf("increment gemini usage: %w", err)
	}
	var used int
	if err := r.db.QueryRow(`SELECT calls_used FROM gemini_usage WHERE usage_date = ?`, date).Scan(&used); err != nil {
		return 0, fmt.Errorf("read gemini usage: %w", err)
	}
	return used, nil
}

func (r *GeminiUsageRepository) Get(date string) (int, error) {
	var used int
	err := r.db.QueryRow(`SELECT calls_used FROM gemini_usage WHERE usage_date = ?`, date).Scan(&used)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get gemini usage: %w", err)
	}
	return used, nil
}
