// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Store codecs
const (
	CodecJSON    = "json"
	CodecMsgpack = "msgpack"
)

// Cache fingerprint modes
const (
	FingerprintVersion = "version"
	FingerprintLegacy  = "legacy"
)

// Config holds application configuration
type Config struct {
	DataDir             string // Base directory for the SQLite file (always absolute)
	LogLevel            string
	LogPretty           bool
	StartingAccountSize float64 // Used when no settings have been persisted yet
	PersistDebounce     time.Duration
	StoreCodec          string // json or msgpack
	CacheFingerprint    string // version or legacy
	SnapshotSchedule    string // cron spec for account snapshots
	BackupRetention     int    // Daily backups to keep; 0 disables scheduled backups
	SnapshotRetention   int    // Days of account snapshots to keep; 0 keeps all
}

// BackupDir returns the directory daily database backups are written to
func (c *Config) BackupDir() string {
	return filepath.Join(c.DataDir, "backups")
}

// DatabasePath returns the path of the SQLite file inside DataDir
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "tradelog.db")
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("TRADELOG_DATA_DIR", "./data")

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:             absDataDir,
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogPretty:           getEnvAsBool("LOG_PRETTY", true),
		StartingAccountSize: getEnvAsFloat("STARTING_ACCOUNT_SIZE", 10000),
		PersistDebounce:     time.Duration(getEnvAsInt("PERSIST_DEBOUNCE_MS", 300)) * time.Millisecond,
		StoreCodec:          getEnv("STORE_CODEC", CodecJSON),
		CacheFingerprint:    getEnv("CACHE_FINGERPRINT", FingerprintVersion),
		SnapshotSchedule:    getEnv("SNAPSHOT_SCHEDULE", "@daily"),
		BackupRetention:     getEnvAsInt("BACKUP_RETENTION", 7),
		SnapshotRetention:   getEnvAsInt("SNAPSHOT_RETENTION_DAYS", 730),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that every configured value is usable
func (c *Config) Validate() error {
	if c.StartingAccountSize <= 0 {
		return fmt.Errorf("STARTING_ACCOUNT_SIZE must be positive, got %v", c.StartingAccountSize)
	}
	if c.PersistDebounce <= 0 {
		return fmt.Errorf("PERSIST_DEBOUNCE_MS must be positive, got %v", c.PersistDebounce)
	}
	switch c.StoreCodec {
	case CodecJSON, CodecMsgpack:
	default:
		return fmt.Errorf("unknown STORE_CODEC %q (want json or msgpack)", c.StoreCodec)
	}
	switch c.CacheFingerprint {
	case FingerprintVersion, FingerprintLegacy:
	default:
		return fmt.Errorf("unknown CACHE_FINGERPRINT %q (want version or legacy)", c.CacheFingerprint)
	}
	if c.SnapshotSchedule == "" {
		return fmt.Errorf("SNAPSHOT_SCHEDULE must not be empty")
	}
	if c.BackupRetention < 0 {
		return fmt.Errorf("BACKUP_RETENTION must not be negative, got %d", c.BackupRetention)
	}
	if c.SnapshotRetention < 0 {
		return fmt.Errorf("SNAPSHOT_RETENTION_DAYS must not be negative, got %d", c.SnapshotRetention)
	}
	return nil
}

// Helper functions
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
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
