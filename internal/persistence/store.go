// Package persistence writes ledger state to durable storage and restores it on startup.
//
// Only authoritative records are persisted: trades, cash flows and settings.
// Derived valuation is never stored.
package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/tradelog/internal/database"
	"github.com/rs/zerolog"
)

// Keys under which ledger state is stored
const (
	KeyTrades    = "trades"
	KeyCashFlows = "cash_flows"
	KeySettings  = "settings"
)

// Store is a key/value persistence backend
type Store interface {
	// Load returns the value for key; found is false when nothing was stored
	Load(ctx context.Context, key string) (value []byte, found bool, err error)
	// Save replaces the value for key
	Save(ctx context.Context, key string, value []byte) error
	// SaveBatch replaces every key in values, all or nothing
	SaveBatch(ctx context.Context, values map[string][]byte) error
}

// SQLiteStore keeps values in the kv_store table
type SQLiteStore struct {
	db        *database.DB
	codecName string // Recorded alongside each value for inspection
	log       zerolog.Logger
}

// Compile-time check that SQLiteStore implements Store
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a store over a migrated tradelog database
func NewSQLiteStore(db *database.DB, codecName string, log zerolog.Logger) *SQLiteStore {
	return &SQLiteStore{
		db:        db,
		codecName: codecName,
		log:       log.With().Str("repo", "kv_store").Logger(),
	}
}

// Load returns the stored value for key
func (s *SQLiteStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.Conn().QueryRowContext(ctx, "SELECT value FROM kv_store WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load %s: %w", key, err)
	}
	return value, true, nil
}

const upsertQuery = `
	INSERT INTO kv_store (key, value, codec, updated_at) VALUES (?, ?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, codec = excluded.codec, updated_at = excluded.updated_at
`

// Save upserts the value for key
func (s *SQLiteStore) Save(ctx context.Context, key string, value []byte) error {
	return s.SaveBatch(ctx, map[string][]byte{key: value})
}

// SaveBatch upserts every value in one transaction
func (s *SQLiteStore) SaveBatch(ctx context.Context, values map[string][]byte) error {
	now := time.Now().Unix()
	err := database.WithTransaction(s.db.Conn(), func(tx *sql.Tx) error {
		for key, value := range values {
			if _, err := tx.ExecContext(ctx, upsertQuery, key, value, s.codecName, now); err != nil {
				return fmt.Errorf("failed to save %s: %w", key, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	for key, value := range values {
		s.log.Debug().Str("key", key).Int("bytes", len(value)).Msg("Value saved")
	}
	return nil
}
