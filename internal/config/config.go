// Package config provides configuration management functionality.
//
// This package handles loading configuration from environment variables (.env
// file) and updating configuration from the settings database. Settings
// database values take precedence over environment variables.
//
// Configuration Loading Order:
// 1. Load from .env file (if exists)
// 2. Load from environment variables
// 3. Update from settings database (takes precedence)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	DataDir  string   // base directory for the live and backtest databases (always absolute)
	Symbols  []string // tracked symbols, e.g. ["BTCUSDT", "ETHUSDT"]
	LogLevel string   // debug, info, warn, error
	Port     int      // HTTP status/report server port

	BinanceAPIKey    string // optional; absence disables REST collectors that need it
	ArkhamAPIKey     string // whale-flow provider key
	CryptoQuantAPIKey string // MVRV provider key
	GeminiAPIKey     string // LLM sentiment client key
	GeminiDailyBudget int    // max Gemini calls per day across all symbols

	S3Bucket          string // optional snapshot-backup destination; empty disables the export job
	S3Region          string
	S3AccessKeyID     string // optional; empty falls back to the default AWS credential chain
	S3SecretAccessKey string
}

// Load reads configuration from environment variables.
func Load(dataDirOverride ...string) (*Config, error) {
	_ = godotenv.Load()

	var dataDir string
	if len(dataDirOverride) > 0 && dataDirOverride[0] != "" {
		dataDir = dataDirOverride[0]
	} else {
		dataDir = getEnv("ENGINE_DATA_DIR", "")
		if dataDir == "" {
			dataDir = "./data"
		}
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:           absDataDir,
		Symbols:           getEnvAsList("SYMBOLS", []string{"BTCUSDT"}),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		Port:              getEnvAsInt("PORT", 8090),
		BinanceAPIKey:     getEnv("BINANCE_API_KEY", ""),
		ArkhamAPIKey:      getEnv("ARKHAM_API_KEY", ""),
		CryptoQuantAPIKey: getEnv("CRYPTOQUANT_API_KEY", ""),
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		GeminiDailyBudget: getEnvAsInt("GEMINI_DAILY_BUDGET", 30),
		S3Bucket:          getEnv("BACKUP_S3_BUCKET", ""),
		S3Region:          getEnv("BACKUP_S3_REGION", "us-east-1"),
		S3AccessKeyID:     getEnv("BACKUP_S3_ACCESS_KEY_ID", ""),
		S3SecretAccessKey: getEnv("BACKUP_S3_SECRET_ACCESS_KEY", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SettingsRepository reads override values persisted by the settings table.
// Defined narrowly here to avoid a dependency cycle with internal/store.
type SettingsRepository interface {
	Get(key string) (*string, error)
}

// UpdateFromSettings overrides env-derived fields with settings-DB values
// when present. Settings DB values take precedence; an empty or missing
// settings value keeps the environment-derived default.
func (c *Config) UpdateFromSettings(settingsRepo SettingsRepository) error {
	if symbols, err := settingsRepo.Get("symbols"); err != nil {
		return fmt.Errorf("failed to get symbols from settings: %w", err)
	} else if symbols != nil && *symbols != "" {
		c.Symbols = strings.Split(*symbols, ",")
	}

	if budget, err := settingsRepo.Get("gemini_daily_budget"); err != nil {
		return fmt.Errorf("failed to get gemini_daily_budget from settings: %w", err)
	} else if budget != nil && *budget != "" {
		if n, err := strconv.Atoi(*budget); err == nil {
			c.GeminiDailyBudget = n
		}
	}

	return nil
}

// Validate checks required configuration. All provider keys are optional —
// their absence only disables the respective collector.
func (c *Config) Validate() error {
	if len(c.Symbols) == 0 {
		return fmt.Errorf("at least one symbol must be configured")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
