package store

import (
	"database/sql"
	"fmt"
)

// StrategyStateRepository owns strategy_state. The Strategy Manager is its
// sole writer; every tick appends a new version, and "latest by id" is
// the current state.
type StrategyStateRepository struct{ db *sql.DB }

func NewStrategyStateRepository(db *sql.DB) *StrategyStateRepository {
	return &StrategyStateRepository{db: db}
}

func (r *StrategyStateRepository) Insert(s StrategyState) (int64, error) {
	res, err := r.db.Exec(
		`INSERT INTO strategy_state (
			symbol, state, l1_active, l1_entry_reason, l2_active, l2_direction, l2_step,
			l2_entry_pct, l2_avg_entry_price, l2_step1_time, l2_score_at_entry,
			l2_direction_changes_today, l2_last_reset_date, l4_active, l4_grid_config_id,
			macro_blocked, macro_block_reason, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.Symbol, s.State, s.L1Active, s.L1EntryReason, s.L2Active, s.L2Direction, s.L2Step,
		s.L2EntryPct, s.L2AvgEntryPrice, s.L2Step1Time, s.L2ScoreAtEntry,
		s.L2DirectionChangesToday, s.L2LastResetDate, s.L4Active, s.L4GridConfigID,
		s.MacroBlocked, s.MacroBlockReason, s.UpdatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert strategy state: %w", err)
	}
	return res.LastInsertId()
}

// Latest returns the most recent state version for symbol, or nil if the
// symbol has never ticked (the caller seeds a fresh default state).
func (r *StrategyStateRepository) Latest(symbol string) (*StrategyState, error) {
	var s StrategyState
	err := r.db.QueryRow(
		`SELECT id, symbol, state, l1_active, l1_entry_reason, l2_active, l2_direction, l2_step,
			l2_entry_pct, l2_avg_entry_price, l2_step1_time, l2_score_at_entry,
			l2_direction_changes_today, l2_last_reset_date, l4_active, l4_grid_config_id,
			macro_blocked, macro_block_reason, updated_at
		 FROM strategy_state WHERE symbol = ? ORDER BY id DESC LIMIT 1`,
		symbol,
	).Scan(
		&s.ID, &s.Symbol, &s.State, &s.L1Active, &s.L1EntryReason, &s.L2Active, &s.L2Direction, &s.L2Step,
		&s.L2EntryPct, &s.L2AvgEntryPrice, &s.L2Step1Time, &s.L2ScoreAtEntry,
		&s.L2DirectionChangesToday, &s.L2LastResetDate, &s.L4Active, &s.L4GridConfigID,
		&s.MacroBlocked, &s.MacroBlockReason, &s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest strategy state: %w", err)
	}
	return &s, nil
}

// SignalRepository owns signal_log. The Strategy Manager is its sole
// writer; the Paper Trader reads it by id > last_signal_id.
type SignalRepository struct{ db *sql.DB }

func NewSignalRepository(db *sql.DB) *SignalRepository { return &SignalRepository{db: db} }

func (r *SignalRepository) Append(s Signal) (int64, error) {
	res, err := r.db.Exec(
		`INSERT INTO signal_log (symbol, signal_type, direction, details, ssm_score, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		s.Symbol, s.SignalType, s.Direction, s.Details, s.SSMScore, s.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("append signal: %w", err)
	}
	return res.LastInsertId()
}

// After returns signals for symbol with id > afterID, in ascending id
// order — the Paper Trader's monotone consumption contract.
func (r *SignalRepository) After(symbol string, afterID int64) ([]Signal, error) {
	rows, err := r.db.Query(
		`SELECT id, symbol, signal_type, direction, details, ssm_score, created_at
		 FROM signal_log WHERE symbol = ? AND id > ? ORDER BY id ASC`,
		symbol, afterID,
	)
	if err != nil {
		return nil, fmt.Errorf("signals after: %w", err)
	}
	defer rows.Close()
	var out []Signal
	for rows.Next() {
		var s Signal
		if err := rows.Scan(&s.ID, &s.Symbol, &s.SignalType, &s.Direction, &s.Details, &s.SSMScore, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
