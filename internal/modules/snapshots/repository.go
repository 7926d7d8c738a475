// Package snapshots records the account size over time.
package snapshots

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/tradelog/internal/database"
	"github.com/rs/zerolog"
)

// AccountSnapshot is the account size at one point in time
type AccountSnapshot struct {
	TakenAt     time.Time `json:"taken_at"`
	ID          int64     `json:"id"`
	CurrentSize float64   `json:"current_size"`
	RealizedPnL float64   `json:"realized_pnl"`
	NetCashFlow float64   `json:"net_cash_flow"`
	OpenTrades  int       `json:"open_trades"` // Open and trimmed positions
}

// Repository stores snapshots in the account_snapshots table
type Repository struct {
	db  *database.DB
	log zerolog.Logger
}

// NewRepository creates a new snapshot repository
func NewRepository(db *database.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "account_snapshots").Logger(),
	}
}

// Insert records a snapshot and returns it with its id
func (r *Repository) Insert(ctx context.Context, snap AccountSnapshot) (AccountSnapshot, error) {
	if snap.TakenAt.IsZero() {
		snap.TakenAt = time.Now()
	}
	res, err := r.db.Conn().ExecContext(ctx, `
		INSERT INTO account_snapshots (taken_at, current_size, realized_pnl, net_cash_flow, open_trades)
		VALUES (?, ?, ?, ?, ?)
	`, snap.TakenAt.Unix(), snap.CurrentSize, snap.RealizedPnL, snap.NetCashFlow, snap.OpenTrades)
	if err != nil {
		return AccountSnapshot{}, fmt.Errorf("failed to insert account snapshot: %w", err)
	}
	snap.ID, err = res.LastInsertId()
	if err != nil {
		return AccountSnapshot{}, fmt.Errorf("failed to read snapshot id: %w", err)
	}
	return snap, nil
}

// List returns the most recent snapshots, newest first. limit <= 0 returns all.
func (r *Repository) List(ctx context.Context, limit int) ([]AccountSnapshot, error) {
	query := `SELECT id, taken_at, current_size, realized_pnl, net_cash_flow, open_trades
		FROM account_snapshots ORDER BY taken_at DESC, id DESC`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query account snapshots: %w", err)
	}
	defer rows.Close()

	var out []AccountSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate account snapshots: %w", err)
	}
	return out, nil
}

// DeleteBefore removes snapshots taken before cutoff and returns how many were removed
func (r *Repository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.Conn().ExecContext(ctx, `DELETE FROM account_snapshots WHERE taken_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete account snapshots: %w", err)
	}
	return res.RowsAffected()
}

// Latest returns the newest snapshot, or nil when none exist
func (r *Repository) Latest(ctx context.Context) (*AccountSnapshot, error) {
	row := r.db.Conn().QueryRowContext(ctx, `SELECT id, taken_at, current_size, realized_pnl, net_cash_flow, open_trades
		FROM account_snapshots ORDER BY taken_at DESC, id DESC LIMIT 1`)
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSnapshot(s scanner) (AccountSnapshot, error) {
	var snap AccountSnapshot
	var takenAt int64
	if err := s.Scan(&snap.ID, &takenAt, &snap.CurrentSize, &snap.RealizedPnL, &snap.NetCashFlow, &snap.OpenTrades); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return snap, err
		}
		return snap, fmt.Errorf("failed to scan account snapshot: %w", err)
	}
	snap.TakenAt = time.Unix(takenAt, 0).UTC()
	return snap, nil
}
