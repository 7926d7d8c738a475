package cash_flows

import (
	"testing"

	"github.com/aristath/tradelog/internal/domain"
	"github.com/aristath/tradelog/internal/events"
	testingpkg "github.com/aristath/tradelog/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T) (*Ledger, *testingpkg.MockInvalidator, *[]events.EventType) {
	t.Helper()
	log := zerolog.New(nil).Level(zerolog.Disabled)
	bus := events.NewBus()
	var seen []events.EventType
	bus.SubscribeAll([]events.EventType{events.CashFlowAdded, events.CashFlowDeleted}, func(e *events.Event) {
		seen = append(seen, e.Type)
	})
	inv := &testingpkg.MockInvalidator{}
	return NewLedger(inv, events.NewManager(bus, log), log), inv, &seen
}

func TestAdd_AndTotals(t *testing.T) {
	ledger, inv, seen := newTestLedger(t)

	for _, tx := range testingpkg.NewCashFlowFixtures() {
		_, err := ledger.Add(tx)
		require.NoError(t, err)
	}
	_, err := ledger.Add(domain.CashFlowTransaction{Type: domain.CashFlowDeposit, Amount: 250})
	require.NoError(t, err)

	deposits, withdrawals, err := ledger.Totals()
	require.NoError(t, err)
	assert.Equal(t, 2250.0, deposits)
	assert.Equal(t, 500.0, withdrawals)
	assert.Equal(t, 3, ledger.Count())
	assert.Equal(t, uint64(3), ledger.Version())
	assert.Equal(t, 3, inv.Count())
	assert.Equal(t, []events.EventType{events.CashFlowAdded, events.CashFlowAdded, events.CashFlowAdded}, *seen)

	list := ledger.List()
	assert.Equal(t, "cf-deposit", list[0].ID)
	assert.NotEmpty(t, list[2].ID)
	assert.False(t, list[2].Timestamp.IsZero())
}

func TestAdd_Rejections(t *testing.T) {
	ledger, inv, _ := newTestLedger(t)

	tests := []struct {
		name string
		tx   domain.CashFlowTransaction
	}{
		{"zero amount", domain.CashFlowTransaction{Type: domain.CashFlowDeposit, Amount: 0}},
		{"negative amount", domain.CashFlowTransaction{Type: domain.CashFlowWithdrawal, Amount: -5}},
		{"unknown type", domain.CashFlowTransaction{Type: "dividend", Amount: 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ledger.Add(tt.tx)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}

	_, err := ledger.Add(domain.CashFlowTransaction{ID: "x", Type: domain.CashFlowDeposit, Amount: 1})
	require.NoError(t, err)
	_, err = ledger.Add(domain.CashFlowTransaction{ID: "x", Type: domain.CashFlowDeposit, Amount: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	assert.Equal(t, 1, ledger.Count())
	assert.Equal(t, 1, inv.Count())
}

func TestDelete(t *testing.T) {
	ledger, _, seen := newTestLedger(t)
	for _, tx := range testingpkg.NewCashFlowFixtures() {
		_, err := ledger.Add(tx)
		require.NoError(t, err)
	}

	require.NoError(t, ledger.Delete("cf-withdrawal"))
	assert.ErrorIs(t, ledger.Delete("cf-withdrawal"), domain.ErrNotFound)

	_, withdrawals, err := ledger.Totals()
	require.NoError(t, err)
	assert.Zero(t, withdrawals)
	assert.Equal(t, events.CashFlowDeleted, (*seen)[len(*seen)-1])
}

func TestBalanceHistory(t *testing.T) {
	ledger, _, _ := newTestLedger(t)
	flows := testingpkg.NewCashFlowFixtures()
	// Added out of order; history follows timestamps
	_, err := ledger.Add(flows[1])
	require.NoError(t, err)
	_, err = ledger.Add(flows[0])
	require.NoError(t, err)

	points := ledger.BalanceHistory(10000)
	require.Len(t, points, 2)
	assert.Equal(t, 12000.0, points[0].Balance)
	assert.Equal(t, "cf-deposit", points[0].CashFlowID)
	assert.Equal(t, 11500.0, points[1].Balance)
	assert.Equal(t, domain.CashFlowWithdrawal, points[1].Type)
}

func TestRestore(t *testing.T) {
	ledger, inv, seen := newTestLedger(t)

	require.NoError(t, ledger.Restore(testingpkg.NewCashFlowFixtures()))
	assert.Equal(t, 2, ledger.Count())
	assert.Equal(t, 1, inv.Count())
	assert.Empty(t, *seen)

	bad := []domain.CashFlowTransaction{{ID: "b", Type: domain.CashFlowDeposit, Amount: -1}}
	assert.ErrorIs(t, ledger.Restore(bad), domain.ErrInvalidInput)

	dup := []domain.CashFlowTransaction{
		{ID: "d", Type: domain.CashFlowDeposit, Amount: 1},
		{ID: "d", Type: domain.CashFlowDeposit, Amount: 1},
	}
	assert.ErrorIs(t, ledger.Restore(dup), domain.ErrInvalidState)
	assert.Equal(t, 2, ledger.Count())
}
