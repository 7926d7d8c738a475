// Package reporting aggregates risk and performance figures across all positions.
package reporting

import (
	"sort"

	"github.com/aristath/tradelog/internal/domain"
	"github.com/aristath/tradelog/internal/modules/trimming"
	"github.com/aristath/tradelog/internal/modules/valuation"
	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"
)

// PositionRisk is the exposure of one live position
type PositionRisk struct {
	TradeID   string             `json:"trade_id"`
	Ticker    string             `json:"ticker"`
	Status    domain.TradeStatus `json:"status"`
	Remaining int                `json:"remaining_shares"`
	GrossRisk float64            `json:"gross_risk"`
	NetRisk   float64            `json:"net_risk"`
	Realized  float64            `json:"realized_pnl"`
}

// Report is a point-in-time summary of the account
type Report struct {
	OpenCount    int `json:"open_count"`
	TrimmedCount int `json:"trimmed_count"`
	ClosedCount  int `json:"closed_count"`

	TotalGrossRisk float64 `json:"total_gross_risk"`
	TotalNetRisk   float64 `json:"total_net_risk"`

	StartingSize float64 `json:"starting_size"`
	RealizedPnL  float64 `json:"realized_pnl"`
	NetCashFlow  float64 `json:"net_cash_flow"`
	CurrentSize  float64 `json:"current_size"`
	Fallback     bool    `json:"fallback,omitempty"`

	WinRate    float64 `json:"win_rate"`     // Share of closed trades with positive realized P&L
	MeanR      float64 `json:"mean_r"`       // Mean R-multiple over all trim events
	StdDevR    float64 `json:"stddev_r"`     // Sample standard deviation of those R-multiples
	TrimEvents int     `json:"trim_events"`

	Positions []PositionRisk `json:"positions"` // Open and trimmed positions, largest net risk first
}

// Build aggregates the report from the trade list and a valuation read
func Build(trades []domain.Trade, v valuation.Valuation) Report {
	r := Report{
		StartingSize: round2(v.StartingSize),
		RealizedPnL:  round2(v.RealizedPnL),
		NetCashFlow:  round2(v.NetCashFlow()),
		CurrentSize:  round2(v.CurrentSize),
		Fallback:     v.Fallback,
		Positions:    []PositionRisk{},
	}

	var rMultiples []float64
	wins := 0
	for _, t := range trades {
		for _, ev := range t.TrimHistory {
			rMultiples = append(rMultiples, ev.RMultiple)
		}

		switch t.Status {
		case domain.TradeStatusClosed:
			r.ClosedCount++
			if t.RealizedContribution() > 0 {
				wins++
			}
			continue
		case domain.TradeStatusTrimmed:
			r.TrimmedCount++
		default:
			r.OpenCount++
		}

		gross := trimming.GrossRisk(t)
		net := trimming.NetRisk(t)
		r.TotalGrossRisk += gross
		r.TotalNetRisk += net
		r.Positions = append(r.Positions, PositionRisk{
			TradeID:   t.ID,
			Ticker:    t.Ticker,
			Status:    t.Status,
			Remaining: t.RemainingShares,
			GrossRisk: round2(gross),
			NetRisk:   round2(net),
			Realized:  round2(t.TotalRealizedPnL),
		})
	}

	r.TotalGrossRisk = round2(r.TotalGrossRisk)
	r.TotalNetRisk = round2(r.TotalNetRisk)
	if r.ClosedCount > 0 {
		r.WinRate = round4(float64(wins) / float64(r.ClosedCount))
	}
	r.TrimEvents = len(rMultiples)
	if len(rMultiples) > 0 {
		r.MeanR = round4(stat.Mean(rMultiples, nil))
	}
	if len(rMultiples) > 1 {
		r.StdDevR = round4(stat.StdDev(rMultiples, nil))
	}

	sort.SliceStable(r.Positions, func(i, j int) bool {
		return r.Positions[i].NetRisk > r.Positions[j].NetRisk
	})
	return r
}

// NetRiskPercent returns total net risk as a percentage of the current account size
func (r Report) NetRiskPercent() float64 {
	if r.CurrentSize <= 0 {
		return 0
	}
	return round4(r.TotalNetRisk / r.CurrentSize * 100)
}

func round2(f float64) float64 {
	return roundN(f, 2)
}

func round4(f float64) float64 {
	return roundN(f, 4)
}

func roundN(f float64, n int) float64 {
	d := decimal.NewFromFloat(f)
	d = d.Round(int32(n))
	v, _ := d.Float64()
	return v
}
