package trading

import (
	"testing"

	"github.com/aristath/tradelog/internal/domain"
	"github.com/aristath/tradelog/internal/events"
	testingpkg "github.com/aristath/tradelog/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ledgerFixture struct {
	ledger      *Ledger
	invalidator *testingpkg.MockInvalidator
	received    []*events.Event
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()
	log := zerolog.New(nil).Level(zerolog.Disabled)
	bus := events.NewBus()
	f := &ledgerFixture{invalidator: &testingpkg.MockInvalidator{}}

	// Listeners observe the invalidation before they run
	bus.SubscribeAll([]events.EventType{events.TradeAdded, events.TradeUpdated, events.TradeDeleted}, func(e *events.Event) {
		assert.Equal(t, len(f.received)+1, f.invalidator.Count())
		f.received = append(f.received, e)
	})

	f.ledger = NewLedger(f.invalidator, events.NewManager(bus, log), log)
	return f
}

func TestInsert_MaterializesNewTrade(t *testing.T) {
	f := newLedgerFixture(t)
	in := testingpkg.NewStockTradeFixture()
	in.Ticker = "  aapl "
	in.CurrentStop = 0

	trade, err := f.ledger.Insert(in)
	require.NoError(t, err)

	assert.NotEmpty(t, trade.ID)
	assert.Equal(t, "AAPL", trade.Ticker)
	assert.Equal(t, 100, trade.OriginalShares)
	assert.Equal(t, 100, trade.RemainingShares)
	assert.Equal(t, domain.TradeStatusOpen, trade.Status)
	assert.Equal(t, 48.0, trade.CurrentStop)
	assert.NotNil(t, trade.TrimHistory)
	assert.Empty(t, trade.TrimHistory)
	assert.Zero(t, trade.TotalRealizedPnL)
	assert.False(t, trade.CreatedAt.IsZero())

	assert.Equal(t, uint64(1), f.ledger.Version())
	assert.Equal(t, 1, f.invalidator.Count())
	require.Len(t, f.received, 1)
	assert.Equal(t, events.TradeAdded, f.received[0].Type)
	assert.Equal(t, trade.ID, f.received[0].Data.(*events.TradeChangedData).TradeID)
}

func TestInsert_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(tr *domain.Trade)
	}{
		{"missing ticker", func(tr *domain.Trade) { tr.Ticker = " " }},
		{"zero entry", func(tr *domain.Trade) { tr.Entry = 0 }},
		{"zero stop", func(tr *domain.Trade) { tr.OriginalStop = 0 }},
		{"zero shares", func(tr *domain.Trade) { tr.Shares = 0 }},
		{"target below entry", func(tr *domain.Trade) { v := 40.0; tr.Target = &v }},
		{"unknown asset", func(tr *domain.Trade) { tr.AssetType = "crypto" }},
		{"option without strike", func(tr *domain.Trade) { tr.AssetType = domain.AssetTypeOption }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newLedgerFixture(t)
			in := testingpkg.NewStockTradeFixture()
			tt.mutate(&in)

			_, err := f.ledger.Insert(in)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			assert.Zero(t, f.ledger.Count())
			assert.Zero(t, f.ledger.Version())
			assert.Zero(t, f.invalidator.Count())
			assert.Empty(t, f.received)
		})
	}
}

func TestInsert_DuplicateID(t *testing.T) {
	f := newLedgerFixture(t)
	in := testingpkg.NewStockTradeFixture()
	in.ID = "fixed"

	_, err := f.ledger.Insert(in)
	require.NoError(t, err)
	_, err = f.ledger.Insert(in)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, 1, f.ledger.Count())
}

func TestInsert_OptionTrade(t *testing.T) {
	f := newLedgerFixture(t)

	trade, err := f.ledger.Insert(testingpkg.NewOptionTradeFixture())
	require.NoError(t, err)
	assert.True(t, trade.IsOption())
	assert.Equal(t, 100.0, trade.Multiplier())
}

func TestGet_ReturnsIsolatedCopy(t *testing.T) {
	f := newLedgerFixture(t)
	trade, err := f.ledger.Insert(testingpkg.NewStockTradeFixture())
	require.NoError(t, err)

	got, err := f.ledger.Get(trade.ID)
	require.NoError(t, err)
	*got.Target = 999
	got.RemainingShares = 1

	again, err := f.ledger.Get(trade.ID)
	require.NoError(t, err)
	assert.Equal(t, 56.0, *again.Target)
	assert.Equal(t, 100, again.RemainingShares)

	_, err = f.ledger.Get("missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestApplyTrim_PartialThenClose(t *testing.T) {
	f := newLedgerFixture(t)
	trade, err := f.ledger.Insert(testingpkg.NewStockTradeFixture())
	require.NoError(t, err)

	first := domain.TrimEvent{ID: "e1", Date: testingpkg.FixtureDate(5), Shares: 40, ExitPrice: 54, PnL: 160, RMultiple: 2, PercentTrimmed: 40}
	trimmed, err := f.ledger.ApplyTrim(trade.ID, first, 60, domain.TradeStatusTrimmed)
	require.NoError(t, err)
	assert.Equal(t, domain.TradeStatusTrimmed, trimmed.Status)
	assert.Equal(t, 60, trimmed.RemainingShares)
	assert.InDelta(t, 160.0, trimmed.TotalRealizedPnL, 1e-9)
	assert.Nil(t, trimmed.ExitPrice)
	assert.Nil(t, trimmed.PnL)

	second := domain.TrimEvent{ID: "e2", Date: testingpkg.FixtureDate(6), Shares: 60, ExitPrice: 47, PnL: -180, RMultiple: -1.5, PercentTrimmed: 100}
	closed, err := f.ledger.ApplyTrim(trade.ID, second, 0, domain.TradeStatusClosed)
	require.NoError(t, err)
	assert.Equal(t, domain.TradeStatusClosed, closed.Status)
	assert.InDelta(t, -20.0, closed.TotalRealizedPnL, 1e-9)
	require.NotNil(t, closed.PnL)
	assert.InDelta(t, -20.0, *closed.PnL, 1e-9)
	assert.Equal(t, 47.0, *closed.ExitPrice)
	assert.Equal(t, testingpkg.FixtureDate(6), *closed.ExitDate)

	assert.Equal(t, uint64(3), f.ledger.Version())
	require.Len(t, f.received, 3)
	assert.Equal(t, "closed", f.received[2].Data.(*events.TradeChangedData).Status)
}

func TestApplyTrim_RefusalsLeaveStateUntouched(t *testing.T) {
	f := newLedgerFixture(t)
	trade, err := f.ledger.Insert(testingpkg.NewStockTradeFixture())
	require.NoError(t, err)

	tests := []struct {
		name      string
		event     domain.TrimEvent
		remaining int
		status    domain.TradeStatus
		target    error
	}{
		{"zero shares", domain.TrimEvent{Shares: 0, ExitPrice: 50}, 100, domain.TradeStatusTrimmed, domain.ErrInvalidInput},
		{"zero price", domain.TrimEvent{Shares: 10, ExitPrice: 0}, 90, domain.TradeStatusTrimmed, domain.ErrInvalidInput},
		{"too many shares", domain.TrimEvent{Shares: 101, ExitPrice: 50}, 0, domain.TradeStatusClosed, domain.ErrInvalidInput},
		{"remaining mismatch", domain.TrimEvent{Shares: 10, ExitPrice: 50}, 80, domain.TradeStatusTrimmed, domain.ErrInvalidInput},
		{"status mismatch", domain.TrimEvent{Shares: 10, ExitPrice: 50}, 90, domain.TradeStatusClosed, domain.ErrInvalidInput},
		{"pnl not matching", domain.TrimEvent{Shares: 10, ExitPrice: 50, PnL: 1}, 90, domain.TradeStatusTrimmed, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ledger.ApplyTrim(trade.ID, tt.event, tt.remaining, tt.status)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
				after, getErr := f.ledger.Get(trade.ID)
				require.NoError(t, getErr)
				assert.Equal(t, 100, after.RemainingShares)
				assert.Empty(t, after.TrimHistory)
				return
			}
			// The ledger trusts the event's own P&L; it only reconciles the aggregate
			require.NoError(t, err)
		})
	}

	_, err = f.ledger.ApplyTrim("missing", domain.TrimEvent{Shares: 1, ExitPrice: 1}, 0, domain.TradeStatusClosed)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestApplyTrim_ClosedTradeIsTerminal(t *testing.T) {
	f := newLedgerFixture(t)
	trade, err := f.ledger.Insert(testingpkg.NewStockTradeFixture())
	require.NoError(t, err)

	_, err = f.ledger.ApplyTrim(trade.ID, domain.TrimEvent{Shares: 100, ExitPrice: 51, PnL: 100}, 0, domain.TradeStatusClosed)
	require.NoError(t, err)

	version := f.ledger.Version()
	_, err = f.ledger.ApplyTrim(trade.ID, domain.TrimEvent{Shares: 1, ExitPrice: 51}, 0, domain.TradeStatusClosed)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	assert.Equal(t, version, f.ledger.Version())
}

func TestApplyPositionEdit_RecomputesHistory(t *testing.T) {
	f := newLedgerFixture(t)
	in := testingpkg.NewStockTradeFixture()
	in.Entry, in.OriginalStop, in.CurrentStop, in.Target = 10, 9, 9, nil
	trade, err := f.ledger.Insert(in)
	require.NoError(t, err)

	_, err = f.ledger.ApplyTrim(trade.ID, domain.TrimEvent{ID: "e1", Shares: 50, ExitPrice: 12, PnL: 100, RMultiple: 2, PercentTrimmed: 50}, 50, domain.TradeStatusTrimmed)
	require.NoError(t, err)

	entry, stop := 9.0, 8.0
	edited, err := f.ledger.ApplyPositionEdit(trade.ID, PositionEdit{Entry: &entry, OriginalStop: &stop})
	require.NoError(t, err)

	require.Len(t, edited.TrimHistory, 1)
	assert.Equal(t, "e1", edited.TrimHistory[0].ID)
	assert.InDelta(t, 150.0, edited.TrimHistory[0].PnL, 1e-9)
	assert.InDelta(t, 3.0, edited.TrimHistory[0].RMultiple, 1e-9)
	assert.InDelta(t, 150.0, edited.TotalRealizedPnL, 1e-9)
	assert.Equal(t, 9.0, edited.CurrentStop)
}

func TestApplyPositionEdit_ClosedTradeTerminalPnL(t *testing.T) {
	f := newLedgerFixture(t)
	trade, err := f.ledger.Insert(testingpkg.NewOptionTradeFixture())
	require.NoError(t, err)

	_, err = f.ledger.ApplyTrim(trade.ID, domain.TrimEvent{Shares: 10, ExitPrice: 3, PnL: 1000}, 0, domain.TradeStatusClosed)
	require.NoError(t, err)

	entry := 2.5
	edited, err := f.ledger.ApplyPositionEdit(trade.ID, PositionEdit{Entry: &entry})
	require.NoError(t, err)
	assert.InDelta(t, 500.0, edited.TotalRealizedPnL, 1e-9)
	assert.InDelta(t, 500.0, *edited.PnL, 1e-9)
}

func TestApplyPositionEdit_Rejections(t *testing.T) {
	f := newLedgerFixture(t)
	trade, err := f.ledger.Insert(testingpkg.NewStockTradeFixture())
	require.NoError(t, err)

	zero := 0.0
	_, err = f.ledger.ApplyPositionEdit(trade.ID, PositionEdit{Entry: &zero})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	low := 10.0
	_, err = f.ledger.ApplyPositionEdit(trade.ID, PositionEdit{Target: &low})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.ledger.ApplyPositionEdit("missing", PositionEdit{})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	after, err := f.ledger.Get(trade.ID)
	require.NoError(t, err)
	assert.Equal(t, 50.0, after.Entry)
	assert.Equal(t, uint64(1), f.ledger.Version())

	edited, err := f.ledger.ApplyPositionEdit(trade.ID, PositionEdit{ClearTarget: true})
	require.NoError(t, err)
	assert.Nil(t, edited.Target)
}

func TestDelete(t *testing.T) {
	f := newLedgerFixture(t)
	a, err := f.ledger.Insert(testingpkg.NewStockTradeFixture())
	require.NoError(t, err)
	b, err := f.ledger.Insert(testingpkg.NewOptionTradeFixture())
	require.NoError(t, err)

	require.NoError(t, f.ledger.Delete(a.ID))
	assert.ErrorIs(t, f.ledger.Delete(a.ID), domain.ErrNotFound)

	list := f.ledger.List()
	require.Len(t, list, 1)
	assert.Equal(t, b.ID, list[0].ID)
	assert.Equal(t, events.TradeDeleted, f.received[len(f.received)-1].Type)
}

func TestRestore(t *testing.T) {
	f := newLedgerFixture(t)

	good := testingpkg.NewMaterializedTradeFixture("r1")
	require.NoError(t, f.ledger.Restore([]domain.Trade{good}))
	assert.Equal(t, 1, f.ledger.Count())
	assert.Equal(t, 1, f.invalidator.Count())
	assert.Empty(t, f.received)

	broken := testingpkg.NewMaterializedTradeFixture("r2")
	broken.RemainingShares = 10
	err := f.ledger.Restore([]domain.Trade{broken})
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	dup := []domain.Trade{good, good}
	assert.ErrorIs(t, f.ledger.Restore(dup), domain.ErrInvalidState)

	list := f.ledger.List()
	require.Len(t, list, 1)
	assert.Equal(t, "r1", list[0].ID)
}
