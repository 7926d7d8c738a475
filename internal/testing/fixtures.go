package testing

import (
	"time"

	"github.com/aristath/tradelog/internal/domain"
)

// FixtureDate returns a fixed UTC date so trim histories compare deterministically
func FixtureDate(day int) time.Time {
	return time.Date(2024, time.March, day, 15, 30, 0, 0, time.UTC)
}

// NewStockTradeFixture returns an un-materialized 100-share stock trade
// entered at 50.00 with its stop at 48.00
func NewStockTradeFixture() domain.Trade {
	target := 56.0
	return domain.Trade{
		Ticker:       "AAPL",
		AssetType:    domain.AssetTypeStock,
		EntryDate:    FixtureDate(1),
		Entry:        50,
		OriginalStop: 48,
		CurrentStop:  48,
		Target:       &target,
		Shares:       100,
	}
}

// NewOptionTradeFixture returns an un-materialized 10-contract call entered at 2.00 with its stop at 1.00
func NewOptionTradeFixture() domain.Trade {
	strike := 150.0
	expiration := time.Date(2024, time.June, 21, 0, 0, 0, 0, time.UTC)
	return domain.Trade{
		Ticker:         "MSFT",
		AssetType:      domain.AssetTypeOption,
		EntryDate:      FixtureDate(4),
		Entry:          2,
		OriginalStop:   1,
		CurrentStop:    1,
		Shares:         10,
		Strike:         &strike,
		ExpirationDate: &expiration,
		OptionType:     domain.OptionTypeCall,
	}
}

// NewMaterializedTradeFixture returns a committed-shape open trade with the given id
func NewMaterializedTradeFixture(id string) domain.Trade {
	trade := NewStockTradeFixture()
	trade.ID = id
	trade.OriginalShares = trade.Shares
	trade.RemainingShares = trade.Shares
	trade.TrimHistory = []domain.TrimEvent{}
	trade.Status = domain.TradeStatusOpen
	trade.CreatedAt = FixtureDate(1)
	trade.UpdatedAt = FixtureDate(1)
	return trade
}

// NewCashFlowFixtures returns one deposit of 2000 and one withdrawal of 500
func NewCashFlowFixtures() []domain.CashFlowTransaction {
	return []domain.CashFlowTransaction{
		{ID: "cf-deposit", Type: domain.CashFlowDeposit, Amount: 2000, Timestamp: FixtureDate(2), Note: "top up"},
		{ID: "cf-withdrawal", Type: domain.CashFlowWithdrawal, Amount: 500, Timestamp: FixtureDate(3)},
	}
}
