package events

import "time"

// EventData is the interface that all event data types must implement
// This allows for type-safe event data while maintaining flexibility
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// TradeChangedData carries the id of the trade touched by a commit.
// Consumers re-read the ledger; the payload is never an authoritative delta.
type TradeChangedData struct {
	Type    EventType `json:"-"`
	TradeID string    `json:"trade_id"`
	Ticker  string    `json:"ticker,omitempty"`
	Status  string    `json:"status,omitempty"`
}

// EventType returns the event type for TradeChangedData
func (d *TradeChangedData) EventType() EventType {
	return d.Type
}

// CashFlowChangedData carries the id of the cash flow touched by a commit
type CashFlowChangedData struct {
	Type       EventType `json:"-"`
	CashFlowID string    `json:"cash_flow_id"`
	FlowType   string    `json:"flow_type,omitempty"`
}

// EventType returns the event type for CashFlowChangedData
func (d *CashFlowChangedData) EventType() EventType {
	return d.Type
}

// SettingsChangedData contains data for SettingsChanged events
type SettingsChangedData struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

// EventType returns the event type for SettingsChangedData
func (d *SettingsChangedData) EventType() EventType {
	return SettingsChanged
}

// AccountSizeChangedData contains data for AccountSizeChanged events
type AccountSizeChangedData struct {
	NewSize     float64 `json:"new_size"`
	RealizedPnL float64 `json:"realized_pnl"`
	Fallback    bool    `json:"fallback,omitempty"` // Cash flows were unreadable; size excludes them
}

// EventType returns the event type for AccountSizeChangedData
func (d *AccountSizeChangedData) EventType() EventType {
	return AccountSizeChanged
}

// SnapshotRecordedData contains data for SnapshotRecorded events
type SnapshotRecordedData struct {
	TakenAt     time.Time `json:"taken_at"`
	CurrentSize float64   `json:"current_size"`
}

// EventType returns the event type for SnapshotRecordedData
func (d *SnapshotRecordedData) EventType() EventType {
	return SnapshotRecorded
}

// StatePersistedData contains data for StatePersisted events
type StatePersistedData struct {
	Keys  []string `json:"keys"`
	Bytes int      `json:"bytes"`
}

// EventType returns the event type for StatePersistedData
func (d *StatePersistedData) EventType() EventType {
	return StatePersisted
}

// ErrorEventData contains data for ErrorOccurred events
type ErrorEventData struct {
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}
