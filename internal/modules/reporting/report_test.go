package reporting

import (
	"testing"

	"github.com/aristath/tradelog/internal/domain"
	"github.com/aristath/tradelog/internal/modules/valuation"
	"github.com/stretchr/testify/assert"
)

func TestBuild(t *testing.T) {
	closedPnL := 300.0
	trades := []domain.Trade{
		{
			ID: "open", Ticker: "AAPL", Status: domain.TradeStatusOpen, AssetType: domain.AssetTypeStock,
			Entry: 10, CurrentStop: 9, OriginalShares: 100, RemainingShares: 100,
		},
		{
			ID: "trimmed", Ticker: "MSFT", Status: domain.TradeStatusTrimmed, AssetType: domain.AssetTypeStock,
			Entry: 10, CurrentStop: 8, OriginalShares: 100, RemainingShares: 50, TotalRealizedPnL: 100,
			TrimHistory: []domain.TrimEvent{{Shares: 50, ExitPrice: 12, PnL: 100, RMultiple: 2}},
		},
		{
			ID: "closed", Ticker: "TSLA", Status: domain.TradeStatusClosed, AssetType: domain.AssetTypeOption,
			Entry: 2, CurrentStop: 1, OriginalShares: 3, TotalRealizedPnL: 300, PnL: &closedPnL,
			TrimHistory: []domain.TrimEvent{{Shares: 3, ExitPrice: 3, PnL: 300, RMultiple: 1}},
		},
	}
	v := valuation.Valuation{StartingSize: 10000, RealizedPnL: 400, Deposits: 1000, CurrentSize: 11400}

	r := Build(trades, v)

	assert.Equal(t, 1, r.OpenCount)
	assert.Equal(t, 1, r.TrimmedCount)
	assert.Equal(t, 1, r.ClosedCount)
	assert.Equal(t, 200.0, r.TotalGrossRisk)
	assert.Equal(t, 100.0, r.TotalNetRisk)
	assert.Equal(t, 11400.0, r.CurrentSize)
	assert.Equal(t, 1000.0, r.NetCashFlow)
	assert.Equal(t, 1.0, r.WinRate)
	assert.Equal(t, 2, r.TrimEvents)
	assert.Equal(t, 1.5, r.MeanR)
	assert.Equal(t, 0.7071, r.StdDevR)
	assert.Equal(t, 0.8772, r.NetRiskPercent())

	assert.Len(t, r.Positions, 2)
	assert.Equal(t, "open", r.Positions[0].TradeID)
	assert.Equal(t, 100.0, r.Positions[0].NetRisk)
	assert.Equal(t, 0.0, r.Positions[1].NetRisk)
}

func TestBuild_Empty(t *testing.T) {
	r := Build(nil, valuation.Valuation{StartingSize: 5000, CurrentSize: 5000})

	assert.Zero(t, r.OpenCount)
	assert.Zero(t, r.WinRate)
	assert.Zero(t, r.MeanR)
	assert.Zero(t, r.StdDevR)
	assert.NotNil(t, r.Positions)
	assert.Equal(t, 5000.0, r.CurrentSize)
}

func TestRoundN(t *testing.T) {
	assert.Equal(t, 0.3, round2(0.1+0.2))
	assert.Equal(t, 1.2346, round4(1.23456))
	assert.Equal(t, -2.5, round2(-2.499999))
}
