// Package cash_flows owns deposits into and withdrawals from the trading account.
// The ledger is read-only input to the valuation cache.
package cash_flows

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/aristath/tradelog/internal/domain"
	"github.com/aristath/tradelog/internal/events"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Compile-time check that Ledger can feed the valuation cache
var _ domain.CashFlowSource = (*Ledger)(nil)

// BalancePoint represents a point in net cash flow history.
// Used for account-size charts over time.
type BalancePoint struct {
	Timestamp  time.Time           `json:"timestamp"`
	CashFlowID string              `json:"cash_flow_id"`
	Type       domain.CashFlowType `json:"type"`
	Amount     float64             `json:"amount"`
	Balance    float64             `json:"balance"` // Starting balance plus net cash flow up to this point
}

// Ledger holds cash flow transactions ordered by timestamp.
//
// Mutations bump the version, invalidate the valuation cache and emit
// CASH_FLOW_ADDED or CASH_FLOW_DELETED, in that order.
type Ledger struct {
	mu          sync.RWMutex
	flows       []domain.CashFlowTransaction
	version     uint64
	invalidator domain.Invalidator
	events      *events.Manager
	now         func() time.Time
	log         zerolog.Logger
}

// NewLedger creates an empty cash flow ledger.
//
// Parameters:
//   - invalidator: Derived view dropped after every mutation (may be nil)
//   - eventManager: Event emission (may be nil)
//   - log: Structured logger
func NewLedger(invalidator domain.Invalidator, eventManager *events.Manager, log zerolog.Logger) *Ledger {
	if invalidator == nil {
		invalidator = domain.InvalidatorFunc(func() {})
	}
	return &Ledger{
		flows:       []domain.CashFlowTransaction{},
		invalidator: invalidator,
		events:      eventManager,
		now:         time.Now,
		log:         log.With().Str("repo", "cash_flows").Logger(),
	}
}

// SetInvalidator replaces the invalidation target
func (l *Ledger) SetInvalidator(invalidator domain.Invalidator) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.invalidator = invalidator
}

// Add records a deposit or withdrawal.
// An id is assigned when absent and a zero timestamp means now.
//
// Returns:
//   - domain.CashFlowTransaction: The stored transaction
//   - error: ErrInvalidInput for an unknown type or non-positive amount
func (l *Ledger) Add(tx domain.CashFlowTransaction) (domain.CashFlowTransaction, error) {
	if err := tx.Validate(); err != nil {
		return domain.CashFlowTransaction{}, fmt.Errorf("failed to add cash flow: %w", err)
	}
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.Timestamp.IsZero() {
		tx.Timestamp = l.now()
	}

	l.mu.Lock()
	for _, existing := range l.flows {
		if existing.ID == tx.ID {
			l.mu.Unlock()
			return domain.CashFlowTransaction{}, fmt.Errorf("failed to add cash flow: %w: duplicate id %s", domain.ErrInvalidInput, tx.ID)
		}
	}
	l.flows = append(l.flows, tx)
	sortByTimestamp(l.flows)
	l.version++
	l.mu.Unlock()

	l.log.Info().
		Str("cash_flow_id", tx.ID).
		Str("type", string(tx.Type)).
		Float64("amount", tx.Amount).
		Msg("Cash flow added")

	l.committed(events.CashFlowAdded, tx)
	return tx, nil
}

// Delete removes a transaction
func (l *Ledger) Delete(id string) error {
	l.mu.Lock()
	idx := -1
	for i, existing := range l.flows {
		if existing.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		l.mu.Unlock()
		return fmt.Errorf("failed to delete cash flow %s: %w", id, domain.ErrNotFound)
	}
	removed := l.flows[idx]
	l.flows = append(l.flows[:idx], l.flows[idx+1:]...)
	l.version++
	l.mu.Unlock()

	l.log.Info().Str("cash_flow_id", id).Msg("Cash flow deleted")

	l.committed(events.CashFlowDeleted, removed)
	return nil
}

// List returns all transactions ordered by timestamp
func (l *Ledger) List() []domain.CashFlowTransaction {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.CashFlowTransaction, len(l.flows))
	copy(out, l.flows)
	return out
}

// Count returns the number of recorded transactions
func (l *Ledger) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.flows)
}

// Version returns a counter that increases on every committed mutation
func (l *Ledger) Version() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.version
}

// Totals returns the sum of deposits and the sum of withdrawals.
// A non-finite sum is reported as an error so callers can fall back.
func (l *Ledger) Totals() (float64, float64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var deposits, withdrawals float64
	for _, tx := range l.flows {
		switch tx.Type {
		case domain.CashFlowDeposit:
			deposits += tx.Amount
		case domain.CashFlowWithdrawal:
			withdrawals += tx.Amount
		}
	}
	if math.IsInf(deposits, 0) || math.IsNaN(deposits) || math.IsInf(withdrawals, 0) || math.IsNaN(withdrawals) {
		return 0, 0, fmt.Errorf("cash flow totals are not finite")
	}
	return deposits, withdrawals, nil
}

// BalanceHistory returns the running balance after each transaction, starting from startingBalance
func (l *Ledger) BalanceHistory(startingBalance float64) []BalancePoint {
	l.mu.RLock()
	defer l.mu.RUnlock()

	points := make([]BalancePoint, 0, len(l.flows))
	balance := startingBalance
	for _, tx := range l.flows {
		if tx.Type == domain.CashFlowDeposit {
			balance += tx.Amount
		} else {
			balance -= tx.Amount
		}
		points = append(points, BalancePoint{
			Timestamp:  tx.Timestamp,
			CashFlowID: tx.ID,
			Type:       tx.Type,
			Amount:     tx.Amount,
			Balance:    balance,
		})
	}
	return points
}

// Restore replaces all transactions with persisted records.
// Every record is validated or nothing is replaced.
func (l *Ledger) Restore(flows []domain.CashFlowTransaction) error {
	seen := make(map[string]bool, len(flows))
	restored := make([]domain.CashFlowTransaction, 0, len(flows))
	for _, tx := range flows {
		if tx.ID == "" || seen[tx.ID] {
			return fmt.Errorf("failed to restore cash flows: %w: missing or duplicate id %q", domain.ErrInvalidState, tx.ID)
		}
		if err := tx.Validate(); err != nil {
			return fmt.Errorf("failed to restore cash flow %s: %w", tx.ID, err)
		}
		seen[tx.ID] = true
		restored = append(restored, tx)
	}
	sortByTimestamp(restored)

	l.mu.Lock()
	l.flows = restored
	l.version++
	invalidator := l.invalidator
	l.mu.Unlock()

	invalidator.Invalidate()
	l.log.Info().Int("count", len(restored)).Msg("Cash flows restored")
	return nil
}

func (l *Ledger) committed(eventType events.EventType, tx domain.CashFlowTransaction) {
	l.mu.RLock()
	invalidator := l.invalidator
	l.mu.RUnlock()

	invalidator.Invalidate()

	if l.events != nil {
		l.events.EmitTyped(eventType, "cash_flows", &events.CashFlowChangedData{
			Type:       eventType,
			CashFlowID: tx.ID,
			FlowType:   string(tx.Type),
		})
	}
}

func sortByTimestamp(flows []domain.CashFlowTransaction) {
	sort.SliceStable(flows, func(i, j int) bool {
		return flows[i].Timestamp.Before(flows[j].Timestamp)
	})
}
