// Package store — settings.go is a narrow key/value repository shaped for
// config.Config.UpdateFromSettings.
package store

import (
	"database/sql"
	"fmt"
)

// SettingsRepository owns the settings table. Values here take precedence
// over environment variables (config.Config.UpdateFromSettings).
type SettingsRepository struct{ db *sql.DB }

func NewSettingsRepository(db *sql.DB) *SettingsRepository { return &SettingsRepository{db: db} }

// Get returns the value for key, or nil if unset.
func (r *SettingsRepository) Get(key string) (*string, error) {
	var value string
	err := r.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get setting %s: %w", key, err)
	}
	return &value, nil
}

// Set upserts key to value.
func (r *SettingsRepository) Set(key, value string, now int64) error {
	_, err := r.db.Exec(
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, now,
	)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}
