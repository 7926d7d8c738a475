package persistence

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aristath/tradelog/internal/domain"
	"github.com/aristath/tradelog/internal/events"
	"github.com/aristath/tradelog/internal/modules/cash_flows"
	"github.com/aristath/tradelog/internal/modules/settings"
	"github.com/aristath/tradelog/internal/modules/trading"
	testingpkg "github.com/aristath/tradelog/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ledgers struct {
	manager  *events.Manager
	bus      *events.Bus
	trades   *trading.Ledger
	flows    *cash_flows.Ledger
	settings *settings.Store
}

func newLedgers(t *testing.T) *ledgers {
	t.Helper()
	log := zerolog.New(nil).Level(zerolog.Disabled)
	bus := events.NewBus()
	manager := events.NewManager(bus, log)
	s, err := settings.NewStore(domain.AccountSettings{StartingAccountSize: 10000}, nil, manager, log)
	require.NoError(t, err)
	return &ledgers{
		manager:  manager,
		bus:      bus,
		trades:   trading.NewLedger(nil, manager, log),
		flows:    cash_flows.NewLedger(nil, manager, log),
		settings: s,
	}
}

func (l *ledgers) snapshotter(store Store, codec Codec) *Snapshotter {
	return NewSnapshotter(store, codec, l.trades, l.flows, l.settings, l.manager, zerolog.New(nil).Level(zerolog.Disabled))
}

func TestSnapshotter_SaveThenRestore(t *testing.T) {
	for _, codec := range []Codec{JSONCodec{}, MsgpackCodec{}} {
		t.Run(codec.Name(), func(t *testing.T) {
			store := testingpkg.NewMockStore()
			src := newLedgers(t)

			trade, err := src.trades.Insert(testingpkg.NewStockTradeFixture())
			require.NoError(t, err)
			_, err = src.trades.ApplyTrim(trade.ID, domain.TrimEvent{ID: "e1", Date: testingpkg.FixtureDate(7), Shares: 25, ExitPrice: 52, PnL: 50, RMultiple: 1, PercentTrimmed: 25}, 75, domain.TradeStatusTrimmed)
			require.NoError(t, err)
			for _, tx := range testingpkg.NewCashFlowFixtures() {
				_, err := src.flows.Add(tx)
				require.NoError(t, err)
			}
			require.NoError(t, src.settings.SetStartingAccountSize(12345))

			require.NoError(t, src.snapshotter(store, codec).SaveAll(context.Background()))
			assert.Equal(t, 1, store.SaveCount(KeyTrades))

			dst := newLedgers(t)
			require.NoError(t, dst.snapshotter(store, JSONCodec{}).LoadAll(context.Background()))

			restored, err := dst.trades.Get(trade.ID)
			require.NoError(t, err)
			assert.Equal(t, 75, restored.RemainingShares)
			assert.Equal(t, domain.TradeStatusTrimmed, restored.Status)
			assert.Equal(t, 50.0, restored.TotalRealizedPnL)
			assert.Equal(t, 2, dst.flows.Count())
			assert.Equal(t, 12345.0, dst.settings.Get().StartingAccountSize)
		})
	}
}

func TestSnapshotter_LoadEmptyStoreKeepsDefaults(t *testing.T) {
	dst := newLedgers(t)
	require.NoError(t, dst.snapshotter(testingpkg.NewMockStore(), JSONCodec{}).LoadAll(context.Background()))

	assert.Zero(t, dst.trades.Count())
	assert.Equal(t, 10000.0, dst.settings.Get().StartingAccountSize)
}

func TestSnapshotter_RejectsCorruptState(t *testing.T) {
	store := testingpkg.NewMockStore()
	broken := testingpkg.NewMaterializedTradeFixture("bad")
	broken.RemainingShares = 3
	data, err := JSONCodec{}.Marshal([]domain.Trade{broken})
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), KeyTrades, data))

	dst := newLedgers(t)
	err = dst.snapshotter(store, JSONCodec{}).LoadAll(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	assert.Zero(t, dst.trades.Count())

	require.NoError(t, store.Save(context.Background(), KeyTrades, []byte("{not json")))
	assert.Error(t, dst.snapshotter(store, JSONCodec{}).LoadAll(context.Background()))
}

func TestSnapshotter_PropagatesStoreErrors(t *testing.T) {
	store := testingpkg.NewMockStore()
	store.SetSaveError(errors.New("disk full"))
	src := newLedgers(t)

	assert.EqualError(t, src.snapshotter(store, JSONCodec{}).SaveAll(context.Background()), "disk full")
	for _, key := range []string{KeyTrades, KeyCashFlows, KeySettings} {
		assert.Zero(t, store.SaveCount(key), key)
	}

	store.SetLoadError(errors.New("locked"))
	assert.EqualError(t, src.snapshotter(store, JSONCodec{}).LoadAll(context.Background()), "locked")
}

func TestWriteBack_CommitBurstPersistsOnce(t *testing.T) {
	store := testingpkg.NewMockStore()
	l := newLedgers(t)
	wb := NewWriteBack(l.snapshotter(store, JSONCodec{}), 20*time.Millisecond, l.manager, zerolog.New(nil).Level(zerolog.Disabled))
	RegisterListeners(l.bus, wb)

	var persisted int32
	l.bus.Subscribe(events.StatePersisted, func(e *events.Event) { atomic.AddInt32(&persisted, 1) })

	for i := 0; i < 5; i++ {
		_, err := l.flows.Add(domain.CashFlowTransaction{Type: domain.CashFlowDeposit, Amount: 100})
		require.NoError(t, err)
	}

	assert.Eventually(t, func() bool { return store.SaveCount(KeyCashFlows) == 1 }, time.Second, 5*time.Millisecond)

	var flows []domain.CashFlowTransaction
	data, found, err := store.Load(context.Background(), KeyCashFlows)
	require.NoError(t, err)
	require.True(t, found)
	require.NoError(t, JSONCodec{}.Unmarshal(data, &flows))
	assert.Len(t, flows, 5)
	assert.Equal(t, int32(1), atomic.LoadInt32(&persisted))
}

func TestWriteBack_FlushAndErrors(t *testing.T) {
	store := testingpkg.NewMockStore()
	l := newLedgers(t)
	wb := NewWriteBack(l.snapshotter(store, MsgpackCodec{}), time.Hour, l.manager, zerolog.New(nil).Level(zerolog.Disabled))
	RegisterListeners(l.bus, wb)

	var failures int32
	l.bus.Subscribe(events.ErrorOccurred, func(e *events.Event) { atomic.AddInt32(&failures, 1) })

	require.NoError(t, l.settings.SetStartingAccountSize(5000))
	assert.True(t, wb.Pending())
	wb.Flush()
	assert.False(t, wb.Pending())
	assert.Equal(t, 1, store.SaveCount(KeySettings))

	store.SetSaveError(errors.New("disk full"))
	require.NoError(t, l.settings.SetStartingAccountSize(6000))
	wb.Flush()
	assert.Equal(t, int32(1), atomic.LoadInt32(&failures))

	wb.Stop()
	require.NoError(t, l.settings.SetStartingAccountSize(7000))
	assert.False(t, wb.Pending())
}
