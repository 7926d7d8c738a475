package trading

import (
	"fmt"
	"time"

	"github.com/aristath/tradelog/internal/domain"
	"github.com/aristath/tradelog/internal/modules/trimming"
	"github.com/rs/zerolog"
)

// TradeService orchestrates position lifecycle operations.
//
// Each operation draws the current trade from the ledger, asks the trim engine
// for an outcome and commits it through the ledger. An engine error means
// nothing was committed.
//
// Dependencies:
//   - LedgerInterface: committed trade state
//   - trimming.Engine: exit arithmetic
type TradeService struct {
	log    zerolog.Logger
	ledger LedgerInterface
	engine *trimming.Engine
	now    func() time.Time
}

// NewTradeService creates a new trade service
func NewTradeService(ledger LedgerInterface, engine *trimming.Engine, log zerolog.Logger) *TradeService {
	return &TradeService{
		log:    log.With().Str("service", "trading").Logger(),
		ledger: ledger,
		engine: engine,
		now:    time.Now,
	}
}

// Open records a new position
func (s *TradeService) Open(trade domain.Trade) (domain.Trade, error) {
	created, err := s.ledger.Insert(trade)
	if err != nil {
		s.log.Warn().Err(err).Str("ticker", trade.Ticker).Msg("Open refused")
		return domain.Trade{}, err
	}
	return created, nil
}

// Trim closes a number of shares at exitPrice. A zero date means now.
func (s *TradeService) Trim(id string, exitPrice float64, shares int, date time.Time) (domain.Trade, error) {
	trade, err := s.ledger.Get(id)
	if err != nil {
		return domain.Trade{}, err
	}
	out, err := s.engine.ComputeTrim(trade, exitPrice, shares, s.dateOrNow(date))
	if err != nil {
		s.log.Warn().Err(err).Str("trade_id", id).Int("shares", shares).Msg("Trim refused")
		return domain.Trade{}, fmt.Errorf("failed to trim trade %s: %w", id, err)
	}
	return s.commit(id, out)
}

// TrimPercent closes a preset percentage of the remaining position
func (s *TradeService) TrimPercent(id string, exitPrice float64, percent float64, date time.Time) (domain.Trade, error) {
	trade, err := s.ledger.Get(id)
	if err != nil {
		return domain.Trade{}, err
	}
	out, err := s.engine.ComputeTrimPercent(trade, exitPrice, percent, s.dateOrNow(date))
	if err != nil {
		s.log.Warn().Err(err).Str("trade_id", id).Float64("percent", percent).Msg("Trim refused")
		return domain.Trade{}, fmt.Errorf("failed to trim trade %s: %w", id, err)
	}
	return s.commit(id, out)
}

// CloseAll closes everything that remains of the position
func (s *TradeService) CloseAll(id string, exitPrice float64, date time.Time) (domain.Trade, error) {
	trade, err := s.ledger.Get(id)
	if err != nil {
		return domain.Trade{}, err
	}
	out, err := s.engine.ComputeTrim(trade, exitPrice, trade.RemainingShares, s.dateOrNow(date))
	if err != nil {
		s.log.Warn().Err(err).Str("trade_id", id).Msg("Close refused")
		return domain.Trade{}, fmt.Errorf("failed to close trade %s: %w", id, err)
	}
	return s.commit(id, out)
}

// EditPosition replaces entry terms and retroactively recomputes exit history
func (s *TradeService) EditPosition(id string, edit PositionEdit) (domain.Trade, error) {
	updated, err := s.ledger.ApplyPositionEdit(id, edit)
	if err != nil {
		s.log.Warn().Err(err).Str("trade_id", id).Msg("Edit refused")
		return domain.Trade{}, err
	}
	return updated, nil
}

// Delete removes a position
func (s *TradeService) Delete(id string) error {
	return s.ledger.Delete(id)
}

func (s *TradeService) commit(id string, out trimming.TrimOutcome) (domain.Trade, error) {
	return s.ledger.ApplyTrim(id, out.Event, out.SharesAfterTrim, out.NewStatus)
}

func (s *TradeService) dateOrNow(date time.Time) time.Time {
	if date.IsZero() {
		return s.now()
	}
	return date
}
