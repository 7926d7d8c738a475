package domain

// Invalidator is implemented by derived views that must be dropped after a committed mutation.
// Ledgers call Invalidate synchronously before returning to their caller.
type Invalidator interface {
	Invalidate()
}

// InvalidatorFunc adapts a plain function to the Invalidator interface
type InvalidatorFunc func()

// Invalidate calls f
func (f InvalidatorFunc) Invalidate() {
	f()
}

// TradeSource provides read access to the committed trade collection
type TradeSource interface {
	// List returns copies of all trades in insertion order
	List() []Trade
	// Version returns a counter that increases on every committed mutation
	Version() uint64
}

// CashFlowSource provides read access to the cash flow ledger
type CashFlowSource interface {
	// Totals returns the sum of deposits and the sum of withdrawals
	Totals() (deposits float64, withdrawals float64, err error)
	// Count returns the number of recorded transactions
	Count() int
	// Version returns a counter that increases on every committed mutation
	Version() uint64
}

// SettingsSource provides read access to the account settings
type SettingsSource interface {
	Get() AccountSettings
	Version() uint64
}
