package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTradeChangedData tests that the event type travels outside the JSON payload
func TestTradeChangedData(t *testing.T) {
	data := &TradeChangedData{Type: TradeUpdated, TradeID: "t-1", Ticker: "AAPL", Status: "trimmed"}

	assert.Equal(t, TradeUpdated, data.EventType())

	jsonData, err := json.Marshal(data)
	require.NoError(t, err)
	assert.Contains(t, string(jsonData), `"trade_id":"t-1"`)
	assert.NotContains(t, string(jsonData), "TRADE_UPDATED")
}

func TestAccountSizeChangedData(t *testing.T) {
	data := &AccountSizeChangedData{NewSize: 11500, RealizedPnL: 500}

	assert.Equal(t, AccountSizeChanged, data.EventType())

	jsonData, err := json.Marshal(data)
	require.NoError(t, err)

	var unmarshaled AccountSizeChangedData
	require.NoError(t, json.Unmarshal(jsonData, &unmarshaled))
	assert.Equal(t, 11500.0, unmarshaled.NewSize)
	assert.False(t, unmarshaled.Fallback)
}

func TestFixedEventTypes(t *testing.T) {
	assert.Equal(t, SettingsChanged, (&SettingsChangedData{}).EventType())
	assert.Equal(t, SnapshotRecorded, (&SnapshotRecordedData{}).EventType())
	assert.Equal(t, StatePersisted, (&StatePersistedData{}).EventType())
	assert.Equal(t, ErrorOccurred, (&ErrorEventData{}).EventType())
	assert.Equal(t, CashFlowDeleted, (&CashFlowChangedData{Type: CashFlowDeleted}).EventType())
}
