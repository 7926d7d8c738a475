// Package trimming computes partial and full exits from a position.
//
// Everything here is a pure function of a trade snapshot: nothing is committed,
// and a returned error means no outcome was produced.
package trimming

import (
	"fmt"
	"math"
	"time"

	"github.com/aristath/tradelog/internal/domain"
	"github.com/google/uuid"
)

// TrimOutcome is the result of a trim the ledger can commit atomically
type TrimOutcome struct {
	Event           domain.TrimEvent
	SharesAfterTrim int
	NewStatus       domain.TradeStatus
}

// Recomputed is a rewritten trim history for new entry terms
type Recomputed struct {
	History          []domain.TrimEvent
	TotalRealizedPnL float64
	TerminalPnL      *float64 // Set only when the trade is closed
}

// Engine computes trim outcomes. The zero value is not usable; use NewEngine.
type Engine struct {
	newID func() string
}

// NewEngine creates an engine that identifies trim events with random UUIDs
func NewEngine() *Engine {
	return &Engine{newID: uuid.NewString}
}

// NewEngineWithIDs creates an engine with a caller-supplied id generator
func NewEngineWithIDs(newID func() string) *Engine {
	return &Engine{newID: newID}
}

// Multiplier returns 100 for options and 1 for stock
func Multiplier(assetType domain.AssetType) float64 {
	return assetType.Multiplier()
}

// RMultiple returns (exit - entry) / (entry - stop), or 0 when the risk per share is zero
func RMultiple(entry, stop, exit float64) float64 {
	risk := entry - stop
	if risk == 0 {
		return 0
	}
	r := (exit - entry) / risk
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}

// ComputeTrim computes the outcome of closing sharesToClose at exitPrice
func (e *Engine) ComputeTrim(trade domain.Trade, exitPrice float64, sharesToClose int, date time.Time) (TrimOutcome, error) {
	if trade.Status == domain.TradeStatusClosed {
		return TrimOutcome{}, fmt.Errorf("%w: trade %s is closed", domain.ErrInvalidState, trade.ID)
	}
	if !(exitPrice > 0) || math.IsInf(exitPrice, 0) {
		return TrimOutcome{}, fmt.Errorf("%w: exit price must be positive", domain.ErrInvalidInput)
	}
	if sharesToClose <= 0 {
		return TrimOutcome{}, fmt.Errorf("%w: shares to close must be positive", domain.ErrInvalidInput)
	}
	if sharesToClose > trade.RemainingShares {
		return TrimOutcome{}, fmt.Errorf("%w: cannot close %d shares, only %d remain",
			domain.ErrInvalidInput, sharesToClose, trade.RemainingShares)
	}

	mult := trade.Multiplier()
	percent := int(math.Round(float64(sharesToClose) / float64(trade.RemainingShares) * 100))
	after := trade.RemainingShares - sharesToClose

	status := domain.TradeStatusTrimmed
	if after == 0 {
		status = domain.TradeStatusClosed
	}

	return TrimOutcome{
		Event: domain.TrimEvent{
			ID:             e.newID(),
			Date:           date,
			Shares:         sharesToClose,
			ExitPrice:      exitPrice,
			RMultiple:      RMultiple(trade.Entry, trade.OriginalStop, exitPrice),
			PnL:            (exitPrice - trade.Entry) * float64(sharesToClose) * mult,
			PercentTrimmed: percent,
		},
		SharesAfterTrim: after,
		NewStatus:       status,
	}, nil
}

// SharesForPercent converts a preset percentage into a share count, rounding up and capping at remaining
func SharesForPercent(remaining int, percent float64) (int, error) {
	if !(percent > 0 && percent <= 100) {
		return 0, fmt.Errorf("%w: percent %v outside (0, 100]", domain.ErrInvalidInput, percent)
	}
	if remaining <= 0 {
		return 0, fmt.Errorf("%w: no shares remain", domain.ErrInvalidInput)
	}
	shares := int(math.Ceil(float64(remaining) * percent / 100))
	if shares > remaining {
		shares = remaining
	}
	return shares, nil
}

// ComputeTrimPercent computes a trim sized as a percentage of the remaining position
func (e *Engine) ComputeTrimPercent(trade domain.Trade, exitPrice float64, percent float64, date time.Time) (TrimOutcome, error) {
	if trade.Status == domain.TradeStatusClosed {
		return TrimOutcome{}, fmt.Errorf("%w: trade %s is closed", domain.ErrInvalidState, trade.ID)
	}
	shares, err := SharesForPercent(trade.RemainingShares, percent)
	if err != nil {
		return TrimOutcome{}, err
	}
	return e.ComputeTrim(trade, exitPrice, shares, date)
}

// RecomputeHistory rewrites the P&L and R-multiple of every trim for new entry terms.
// The trade's own history is never modified; ids, shares, exit prices and dates carry over.
func RecomputeHistory(trade domain.Trade, newEntry, newOriginalStop float64) (Recomputed, error) {
	if !(newEntry > 0) || math.IsInf(newEntry, 0) {
		return Recomputed{}, fmt.Errorf("%w: entry must be positive", domain.ErrInvalidInput)
	}
	if !(newOriginalStop > 0) || math.IsInf(newOriginalStop, 0) {
		return Recomputed{}, fmt.Errorf("%w: original stop must be positive", domain.ErrInvalidInput)
	}

	mult := trade.Multiplier()
	out := Recomputed{History: make([]domain.TrimEvent, len(trade.TrimHistory))}
	for i, ev := range trade.TrimHistory {
		ev.PnL = (ev.ExitPrice - newEntry) * float64(ev.Shares) * mult
		ev.RMultiple = RMultiple(newEntry, newOriginalStop, ev.ExitPrice)
		out.History[i] = ev
		out.TotalRealizedPnL += ev.PnL
	}
	if trade.Status == domain.TradeStatusClosed {
		total := out.TotalRealizedPnL
		out.TerminalPnL = &total
	}
	return out, nil
}

// GrossRisk is the loss on the remaining position if the current stop is hit
func GrossRisk(trade domain.Trade) float64 {
	return float64(trade.RemainingShares) * (trade.Entry - trade.CurrentStop) * trade.Multiplier()
}

// NetRisk is gross risk reduced by profit already realized; never negative
func NetRisk(trade domain.Trade) float64 {
	switch trade.Status {
	case domain.TradeStatusClosed:
		return 0
	case domain.TradeStatusTrimmed:
		return math.Max(0, GrossRisk(trade)-trade.TotalRealizedPnL)
	default:
		return math.Max(0, GrossRisk(trade))
	}
}
