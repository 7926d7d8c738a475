// Package domain provides core domain models and types.
package domain

import (
	"fmt"
	"math"
	"time"
)

// OptionContractMultiplier is the number of underlying shares one option contract controls
const OptionContractMultiplier = 100

// pnlTolerance is the relative tolerance used when reconciling realized P&L sums
const pnlTolerance = 1e-9

// AssetType represents the kind of instrument a trade holds
type AssetType string

const (
	AssetTypeStock  AssetType = "stock"
	AssetTypeOption AssetType = "option"
)

// Multiplier returns the P&L multiplier for the asset type (100 for options, 1 otherwise)
func (a AssetType) Multiplier() float64 {
	if a == AssetTypeOption {
		return OptionContractMultiplier
	}
	return 1
}

// Valid reports whether the asset type is known
func (a AssetType) Valid() bool {
	return a == AssetTypeStock || a == AssetTypeOption
}

// OptionType is the right carried by an option contract
type OptionType string

const (
	OptionTypeCall OptionType = "call"
	OptionTypePut  OptionType = "put"
)

// TradeStatus is the lifecycle state of a trade
type TradeStatus string

const (
	TradeStatusOpen    TradeStatus = "open"
	TradeStatusTrimmed TradeStatus = "trimmed"
	TradeStatusClosed  TradeStatus = "closed"
)

// TrimEvent is one exit from a position, partial or full.
// Shares, ExitPrice, Date and ID never change after creation; PnL and
// RMultiple are only rewritten when the position's entry terms are edited.
type TrimEvent struct {
	Date           time.Time `json:"date"`
	ID             string    `json:"id"`
	Shares         int       `json:"shares"`
	ExitPrice      float64   `json:"exit_price"`
	RMultiple      float64   `json:"r_multiple"`
	PnL            float64   `json:"pnl"`
	PercentTrimmed int       `json:"percent_trimmed"`
}

// Trade represents one position (stock or option) and its exit history
type Trade struct {
	EntryDate time.Time `json:"entry_date"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ID        string    `json:"id"`
	Ticker    string    `json:"ticker"`
	AssetType AssetType `json:"asset_type"`

	Entry        float64  `json:"entry"`
	OriginalStop float64  `json:"original_stop"` // Risk baseline for R-multiples
	CurrentStop  float64  `json:"current_stop"`
	Target       *float64 `json:"target,omitempty"`

	Shares          int `json:"shares"` // Size requested at entry
	OriginalShares  int `json:"original_shares"`
	RemainingShares int `json:"remaining_shares"`

	// Option contract terms
	Strike         *float64   `json:"strike,omitempty"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
	OptionType     OptionType `json:"option_type,omitempty"`

	Status           TradeStatus `json:"status"`
	TrimHistory      []TrimEvent `json:"trim_history"`
	TotalRealizedPnL float64     `json:"total_realized_pnl"`

	// Terminal fields, set only once the position is closed
	ExitPrice *float64   `json:"exit_price,omitempty"`
	ExitDate  *time.Time `json:"exit_date,omitempty"`
	PnL       *float64   `json:"pnl,omitempty"`
}

// Multiplier returns the contract multiplier applied to the trade's P&L math
func (t *Trade) Multiplier() float64 {
	return t.AssetType.Multiplier()
}

// IsOption reports whether the trade holds option contracts
func (t *Trade) IsOption() bool {
	return t.AssetType == AssetTypeOption
}

// TrimmedShares returns the number of shares already exited
func (t *Trade) TrimmedShares() int {
	total := 0
	for _, ev := range t.TrimHistory {
		total += ev.Shares
	}
	return total
}

// SumTrimPnL returns the sum of P&L over the trim history
func (t *Trade) SumTrimPnL() float64 {
	total := 0.0
	for _, ev := range t.TrimHistory {
		total += ev.PnL
	}
	return total
}

// RealizedContribution returns what this trade contributes to account realized P&L.
// Open trades contribute nothing; otherwise TotalRealizedPnL is used, falling back
// to the terminal PnL for records that predate trim tracking.
func (t *Trade) RealizedContribution() float64 {
	if t.Status != TradeStatusClosed && t.Status != TradeStatusTrimmed {
		return 0
	}
	// totalRealizedPnL ?? pnl ?? 0: a zero total with no trims means the total was never recorded
	if t.TotalRealizedPnL != 0 || len(t.TrimHistory) > 0 {
		return t.TotalRealizedPnL
	}
	if t.PnL != nil {
		return *t.PnL
	}
	return 0
}

// Clone returns a deep copy of the trade so callers can never alias ledger state
func (t Trade) Clone() Trade {
	out := t
	out.Target = cloneFloat(t.Target)
	out.Strike = cloneFloat(t.Strike)
	out.ExitPrice = cloneFloat(t.ExitPrice)
	out.PnL = cloneFloat(t.PnL)
	out.ExpirationDate = cloneTime(t.ExpirationDate)
	out.ExitDate = cloneTime(t.ExitDate)
	if t.TrimHistory != nil {
		out.TrimHistory = make([]TrimEvent, len(t.TrimHistory))
		copy(out.TrimHistory, t.TrimHistory)
	}
	return out
}

// ValidateEntryTerms checks the fields a caller supplies when opening or editing a position
func (t *Trade) ValidateEntryTerms() error {
	if !t.AssetType.Valid() {
		return fmt.Errorf("%w: unknown asset type %q", ErrInvalidInput, t.AssetType)
	}
	if !isPositive(t.Entry) {
		return fmt.Errorf("%w: entry must be positive", ErrInvalidInput)
	}
	if !isPositive(t.OriginalStop) {
		return fmt.Errorf("%w: original stop must be positive", ErrInvalidInput)
	}
	if !isPositive(t.CurrentStop) {
		return fmt.Errorf("%w: current stop must be positive", ErrInvalidInput)
	}
	if t.Target != nil && !(*t.Target > t.Entry) {
		return fmt.Errorf("%w: target %.4f must be above entry %.4f", ErrInvalidInput, *t.Target, t.Entry)
	}
	if t.IsOption() {
		if t.Strike == nil || !isPositive(*t.Strike) {
			return fmt.Errorf("%w: option strike must be positive", ErrInvalidInput)
		}
		if t.ExpirationDate == nil || t.ExpirationDate.IsZero() {
			return fmt.Errorf("%w: option expiration date is required", ErrInvalidInput)
		}
		if t.OptionType != OptionTypeCall && t.OptionType != OptionTypePut {
			return fmt.Errorf("%w: option type must be call or put", ErrInvalidInput)
		}
	}
	return nil
}

// CheckInvariants verifies the structural invariants every committed trade must satisfy
func (t *Trade) CheckInvariants() error {
	if t.ID == "" {
		return fmt.Errorf("%w: trade has no id", ErrInvalidState)
	}
	if t.OriginalShares <= 0 {
		return fmt.Errorf("%w: trade %s has non-positive original shares", ErrInvalidState, t.ID)
	}
	if t.RemainingShares < 0 || t.RemainingShares > t.OriginalShares {
		return fmt.Errorf("%w: trade %s remaining shares %d outside [0, %d]",
			ErrInvalidState, t.ID, t.RemainingShares, t.OriginalShares)
	}
	for _, ev := range t.TrimHistory {
		if ev.Shares <= 0 || !isPositive(ev.ExitPrice) {
			return fmt.Errorf("%w: trade %s has malformed trim event %s", ErrInvalidState, t.ID, ev.ID)
		}
	}
	if t.RemainingShares+t.TrimmedShares() != t.OriginalShares {
		return fmt.Errorf("%w: trade %s shares not conserved (remaining %d + trimmed %d != original %d)",
			ErrInvalidState, t.ID, t.RemainingShares, t.TrimmedShares(), t.OriginalShares)
	}
	if !PnLEqual(t.TotalRealizedPnL, t.SumTrimPnL()) {
		return fmt.Errorf("%w: trade %s realized P&L %.6f does not reconcile with trim history %.6f",
			ErrInvalidState, t.ID, t.TotalRealizedPnL, t.SumTrimPnL())
	}
	if want := ExpectedStatus(len(t.TrimHistory), t.RemainingShares); t.Status != want {
		return fmt.Errorf("%w: trade %s status %q, expected %q", ErrInvalidState, t.ID, t.Status, want)
	}
	if t.Status == TradeStatusClosed {
		if t.PnL == nil || !PnLEqual(*t.PnL, t.TotalRealizedPnL) {
			return fmt.Errorf("%w: closed trade %s terminal pnl does not match realized P&L", ErrInvalidState, t.ID)
		}
	}
	return nil
}

// ExpectedStatus derives the lifecycle state from the trim count and remaining shares
func ExpectedStatus(trims, remainingShares int) TradeStatus {
	switch {
	case trims == 0:
		return TradeStatusOpen
	case remainingShares == 0:
		return TradeStatusClosed
	default:
		return TradeStatusTrimmed
	}
}

// PnLEqual compares two P&L figures within a relative tolerance of 1e-9
func PnLEqual(a, b float64) bool {
	scale := math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
	return math.Abs(a-b) <= pnlTolerance*scale
}

// CashFlowType is the direction of an external cash movement
type CashFlowType string

const (
	CashFlowDeposit    CashFlowType = "deposit"
	CashFlowWithdrawal CashFlowType = "withdrawal"
)

// CashFlowTransaction is a deposit into or withdrawal from the trading account
type CashFlowTransaction struct {
	Timestamp time.Time    `json:"timestamp"`
	ID        string       `json:"id"`
	Type      CashFlowType `json:"type"`
	Note      string       `json:"note,omitempty"`
	Amount    float64      `json:"amount"` // Always positive; Type carries the sign
}

// Validate checks a cash flow before it is recorded
func (c *CashFlowTransaction) Validate() error {
	if c.Type != CashFlowDeposit && c.Type != CashFlowWithdrawal {
		return fmt.Errorf("%w: unknown cash flow type %q", ErrInvalidInput, c.Type)
	}
	if !isPositive(c.Amount) {
		return fmt.Errorf("%w: cash flow amount must be positive", ErrInvalidInput)
	}
	return nil
}

// AccountSettings holds the externally owned account configuration
type AccountSettings struct {
	StartingAccountSize float64 `json:"starting_account_size"`
}

// Validate checks the account settings
func (s AccountSettings) Validate() error {
	if !isPositive(s.StartingAccountSize) {
		return fmt.Errorf("%w: starting account size must be positive", ErrInvalidInput)
	}
	return nil
}

func isPositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
