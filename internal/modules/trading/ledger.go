package trading

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aristath/tradelog/internal/domain"
	"github.com/aristath/tradelog/internal/events"
	"github.com/aristath/tradelog/internal/modules/trimming"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// LedgerInterface defines the committed-state operations on the trade collection
type LedgerInterface interface {
	// Get returns a copy of the trade with the given id
	Get(id string) (domain.Trade, error)

	// List returns copies of all trades in insertion order
	List() []domain.Trade

	// Insert materializes and stores a new trade
	Insert(trade domain.Trade) (domain.Trade, error)

	// ApplyTrim atomically appends a trim event and updates the position
	ApplyTrim(id string, event domain.TrimEvent, newRemainingShares int, newStatus domain.TradeStatus) (domain.Trade, error)

	// ApplyPositionEdit replaces entry terms and recomputes exit history
	ApplyPositionEdit(id string, edit PositionEdit) (domain.Trade, error)

	// Delete removes a trade
	Delete(id string) error

	// Version returns the mutation counter
	Version() uint64
}

// Compile-time check that Ledger implements LedgerInterface
var _ LedgerInterface = (*Ledger)(nil)

// Compile-time check that Ledger can feed the valuation cache
var _ domain.TradeSource = (*Ledger)(nil)

// PositionEdit carries replacement entry terms. Nil fields are left unchanged.
type PositionEdit struct {
	Ticker         *string
	EntryDate      *time.Time
	Entry          *float64
	OriginalStop   *float64
	CurrentStop    *float64
	Target         *float64
	ClearTarget    bool
	Strike         *float64
	ExpirationDate *time.Time
	OptionType     *domain.OptionType
}

// Ledger owns the trade collection.
//
// Every committed mutation bumps the version, invalidates the valuation cache
// synchronously and then emits an event, in that order, outside the lock.
// A refused mutation leaves the ledger exactly as it was.
type Ledger struct {
	mu          sync.RWMutex
	trades      map[string]*domain.Trade
	order       []string
	version     uint64
	invalidator domain.Invalidator
	events      *events.Manager
	now         func() time.Time
	log         zerolog.Logger
}

// NewLedger creates an empty trade ledger
func NewLedger(invalidator domain.Invalidator, eventManager *events.Manager, log zerolog.Logger) *Ledger {
	if invalidator == nil {
		invalidator = domain.InvalidatorFunc(func() {})
	}
	return &Ledger{
		trades:      make(map[string]*domain.Trade),
		invalidator: invalidator,
		events:      eventManager,
		now:         time.Now,
		log:         log.With().Str("repo", "trades").Logger(),
	}
}

// SetInvalidator replaces the invalidation target; used when the cache is built after the ledger
func (l *Ledger) SetInvalidator(invalidator domain.Invalidator) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.invalidator = invalidator
}

// Get returns a copy of the trade with the given id
func (l *Ledger) Get(id string) (domain.Trade, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	trade, ok := l.trades[id]
	if !ok {
		return domain.Trade{}, fmt.Errorf("trade %s: %w", id, domain.ErrNotFound)
	}
	return trade.Clone(), nil
}

// List returns copies of all trades in insertion order
func (l *Ledger) List() []domain.Trade {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.Trade, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.trades[id].Clone())
	}
	return out
}

// Count returns the number of trades
func (l *Ledger) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.order)
}

// Version returns a counter that increases on every committed mutation
func (l *Ledger) Version() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.version
}

// Insert materializes and stores a new trade.
// An id is assigned when absent. A trade that arrives without OriginalShares is
// materialized from Shares as a fresh open position.
func (l *Ledger) Insert(trade domain.Trade) (domain.Trade, error) {
	trade = trade.Clone()
	trade.Ticker = strings.ToUpper(strings.TrimSpace(trade.Ticker))
	if trade.ID == "" {
		trade.ID = uuid.NewString()
	}
	if trade.CurrentStop == 0 {
		trade.CurrentStop = trade.OriginalStop
	}

	if trade.Ticker == "" {
		return domain.Trade{}, fmt.Errorf("failed to insert trade: %w: ticker is required", domain.ErrInvalidInput)
	}
	if err := trade.ValidateEntryTerms(); err != nil {
		return domain.Trade{}, fmt.Errorf("failed to insert trade %s: %w", trade.Ticker, err)
	}

	now := l.now()
	if trade.OriginalShares == 0 {
		if trade.Shares <= 0 {
			return domain.Trade{}, fmt.Errorf("failed to insert trade %s: %w: shares must be positive",
				trade.Ticker, domain.ErrInvalidInput)
		}
		trade.OriginalShares = trade.Shares
		trade.RemainingShares = trade.Shares
		trade.TrimHistory = []domain.TrimEvent{}
		trade.TotalRealizedPnL = 0
		trade.Status = domain.TradeStatusOpen
		trade.ExitPrice = nil
		trade.ExitDate = nil
		trade.PnL = nil
	}
	if trade.EntryDate.IsZero() {
		trade.EntryDate = now
	}
	if trade.CreatedAt.IsZero() {
		trade.CreatedAt = now
	}
	trade.UpdatedAt = now

	if err := trade.CheckInvariants(); err != nil {
		return domain.Trade{}, fmt.Errorf("failed to insert trade %s: %w", trade.Ticker, err)
	}

	l.mu.Lock()
	if _, exists := l.trades[trade.ID]; exists {
		l.mu.Unlock()
		return domain.Trade{}, fmt.Errorf("failed to insert trade: %w: duplicate id %s", domain.ErrInvalidInput, trade.ID)
	}
	stored := trade.Clone()
	l.trades[trade.ID] = &stored
	l.order = append(l.order, trade.ID)
	l.version++
	l.mu.Unlock()

	l.log.Info().
		Str("trade_id", trade.ID).
		Str("ticker", trade.Ticker).
		Str("asset_type", string(trade.AssetType)).
		Int("shares", trade.OriginalShares).
		Float64("entry", trade.Entry).
		Msg("Trade added")

	l.committed(events.TradeAdded, &trade)
	return trade, nil
}

// ApplyTrim atomically appends a trim event, sets the remaining shares and status,
// and recomputes realized P&L. Terminal fields are set only on full close.
func (l *Ledger) ApplyTrim(id string, event domain.TrimEvent, newRemainingShares int, newStatus domain.TradeStatus) (domain.Trade, error) {
	l.mu.Lock()
	current, ok := l.trades[id]
	if !ok {
		l.mu.Unlock()
		return domain.Trade{}, fmt.Errorf("failed to apply trim to trade %s: %w", id, domain.ErrNotFound)
	}
	if current.Status == domain.TradeStatusClosed {
		l.mu.Unlock()
		return domain.Trade{}, fmt.Errorf("failed to apply trim to trade %s: %w: trade is closed", id, domain.ErrInvalidState)
	}

	candidate := current.Clone()
	if err := checkTrimArguments(&candidate, event, newRemainingShares, newStatus); err != nil {
		l.mu.Unlock()
		return domain.Trade{}, fmt.Errorf("failed to apply trim to trade %s: %w", id, err)
	}

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Date.IsZero() {
		event.Date = l.now()
	}
	candidate.TrimHistory = append(candidate.TrimHistory, event)
	candidate.RemainingShares = newRemainingShares
	candidate.TotalRealizedPnL = candidate.SumTrimPnL()
	candidate.Status = newStatus
	if newStatus == domain.TradeStatusClosed {
		exitPrice := event.ExitPrice
		exitDate := event.Date
		pnl := candidate.TotalRealizedPnL
		candidate.ExitPrice = &exitPrice
		candidate.ExitDate = &exitDate
		candidate.PnL = &pnl
	}
	candidate.UpdatedAt = l.now()

	if err := candidate.CheckInvariants(); err != nil {
		l.mu.Unlock()
		return domain.Trade{}, fmt.Errorf("failed to apply trim to trade %s: %w", id, err)
	}

	*current = candidate.Clone()
	l.version++
	l.mu.Unlock()

	l.log.Info().
		Str("trade_id", id).
		Int("shares", event.Shares).
		Float64("exit_price", event.ExitPrice).
		Float64("pnl", event.PnL).
		Int("remaining", newRemainingShares).
		Str("status", string(newStatus)).
		Msg("Trim applied")

	l.committed(events.TradeUpdated, &candidate)
	return candidate, nil
}

// checkTrimArguments rejects trim arguments that disagree with the trade they target
func checkTrimArguments(trade *domain.Trade, event domain.TrimEvent, newRemaining int, newStatus domain.TradeStatus) error {
	if event.Shares <= 0 {
		return fmt.Errorf("%w: trim shares must be positive", domain.ErrInvalidInput)
	}
	if !(event.ExitPrice > 0) {
		return fmt.Errorf("%w: exit price must be positive", domain.ErrInvalidInput)
	}
	if event.Shares > trade.RemainingShares {
		return fmt.Errorf("%w: cannot trim %d shares, only %d remain", domain.ErrInvalidInput, event.Shares, trade.RemainingShares)
	}
	if newRemaining != trade.RemainingShares-event.Shares {
		return fmt.Errorf("%w: remaining shares %d inconsistent with trim of %d from %d",
			domain.ErrInvalidInput, newRemaining, event.Shares, trade.RemainingShares)
	}
	if want := domain.ExpectedStatus(len(trade.TrimHistory)+1, newRemaining); newStatus != want {
		return fmt.Errorf("%w: status %q inconsistent with remaining shares, expected %q", domain.ErrInvalidInput, newStatus, want)
	}
	return nil
}

// ApplyPositionEdit replaces the trade's entry terms. When exits have already
// happened their P&L and R-multiples are recomputed against the new terms.
func (l *Ledger) ApplyPositionEdit(id string, edit PositionEdit) (domain.Trade, error) {
	l.mu.Lock()
	current, ok := l.trades[id]
	if !ok {
		l.mu.Unlock()
		return domain.Trade{}, fmt.Errorf("failed to edit trade %s: %w", id, domain.ErrNotFound)
	}

	candidate := current.Clone()
	edit.applyTo(&candidate)

	if candidate.Ticker == "" {
		l.mu.Unlock()
		return domain.Trade{}, fmt.Errorf("failed to edit trade %s: %w: ticker is required", id, domain.ErrInvalidInput)
	}
	if err := candidate.ValidateEntryTerms(); err != nil {
		l.mu.Unlock()
		return domain.Trade{}, fmt.Errorf("failed to edit trade %s: %w", id, err)
	}

	if len(candidate.TrimHistory) > 0 {
		rec, err := trimming.RecomputeHistory(candidate, candidate.Entry, candidate.OriginalStop)
		if err != nil {
			l.mu.Unlock()
			return domain.Trade{}, fmt.Errorf("failed to edit trade %s: %w", id, err)
		}
		candidate.TrimHistory = rec.History
		candidate.TotalRealizedPnL = rec.TotalRealizedPnL
		if rec.TerminalPnL != nil {
			candidate.PnL = rec.TerminalPnL
		}
	}
	candidate.UpdatedAt = l.now()

	if err := candidate.CheckInvariants(); err != nil {
		l.mu.Unlock()
		return domain.Trade{}, fmt.Errorf("failed to edit trade %s: %w", id, err)
	}

	*current = candidate.Clone()
	l.version++
	l.mu.Unlock()

	l.log.Info().
		Str("trade_id", id).
		Float64("entry", candidate.Entry).
		Float64("original_stop", candidate.OriginalStop).
		Int("trims_recomputed", len(candidate.TrimHistory)).
		Msg("Position edited")

	l.committed(events.TradeUpdated, &candidate)
	return candidate, nil
}

func (e PositionEdit) applyTo(t *domain.Trade) {
	if e.Ticker != nil {
		t.Ticker = strings.ToUpper(strings.TrimSpace(*e.Ticker))
	}
	if e.EntryDate != nil {
		t.EntryDate = *e.EntryDate
	}
	if e.Entry != nil {
		t.Entry = *e.Entry
	}
	if e.OriginalStop != nil {
		t.OriginalStop = *e.OriginalStop
	}
	if e.CurrentStop != nil {
		t.CurrentStop = *e.CurrentStop
	}
	if e.ClearTarget {
		t.Target = nil
	} else if e.Target != nil {
		v := *e.Target
		t.Target = &v
	}
	if e.Strike != nil {
		v := *e.Strike
		t.Strike = &v
	}
	if e.ExpirationDate != nil {
		v := *e.ExpirationDate
		t.ExpirationDate = &v
	}
	if e.OptionType != nil {
		t.OptionType = *e.OptionType
	}
}

// Delete removes a trade
func (l *Ledger) Delete(id string) error {
	l.mu.Lock()
	trade, ok := l.trades[id]
	if !ok {
		l.mu.Unlock()
		return fmt.Errorf("failed to delete trade %s: %w", id, domain.ErrNotFound)
	}
	removed := trade.Clone()
	delete(l.trades, id)
	for i, existing := range l.order {
		if existing == id {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	l.version++
	l.mu.Unlock()

	l.log.Info().Str("trade_id", id).Str("ticker", removed.Ticker).Msg("Trade deleted")

	l.committed(events.TradeDeleted, &removed)
	return nil
}

// Restore replaces the whole collection with persisted records.
// Every record must pass the structural invariants or nothing is replaced.
func (l *Ledger) Restore(trades []domain.Trade) error {
	byID := make(map[string]*domain.Trade, len(trades))
	order := make([]string, 0, len(trades))
	for _, t := range trades {
		if err := t.CheckInvariants(); err != nil {
			return fmt.Errorf("failed to restore trades: %w", err)
		}
		if _, dup := byID[t.ID]; dup {
			return fmt.Errorf("failed to restore trades: %w: duplicate id %s", domain.ErrInvalidState, t.ID)
		}
		c := t.Clone()
		byID[t.ID] = &c
		order = append(order, t.ID)
	}

	l.mu.Lock()
	l.trades = byID
	l.order = order
	l.version++
	invalidator := l.invalidator
	l.mu.Unlock()

	invalidator.Invalidate()
	l.log.Info().Int("count", len(order)).Msg("Trades restored")
	return nil
}

// committed runs the post-commit sequence: invalidate, then notify
func (l *Ledger) committed(eventType events.EventType, trade *domain.Trade) {
	l.mu.RLock()
	invalidator := l.invalidator
	l.mu.RUnlock()

	invalidator.Invalidate()

	if l.events != nil {
		l.events.EmitTyped(eventType, "trading", &events.TradeChangedData{
			Type:    eventType,
			TradeID: trade.ID,
			Ticker:  trade.Ticker,
			Status:  string(trade.Status),
		})
	}
}
