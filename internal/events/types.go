// Package events provides event management functionality.
package events

import "time"

// EventType represents different event types
type EventType string

const (
	// Trade ledger commits
	TradeAdded   EventType = "TRADE_ADDED"
	TradeUpdated EventType = "TRADE_UPDATED"
	TradeDeleted EventType = "TRADE_DELETED"

	// Cash flow ledger commits
	CashFlowAdded   EventType = "CASH_FLOW_ADDED"
	CashFlowDeleted EventType = "CASH_FLOW_DELETED"

	// Account settings and derived valuation
	SettingsChanged    EventType = "SETTINGS_CHANGED"
	AccountSizeChanged EventType = "ACCOUNT_SIZE_CHANGED"

	// Background work
	SnapshotRecorded EventType = "SNAPSHOT_RECORDED"
	StatePersisted   EventType = "STATE_PERSISTED"
	ErrorOccurred    EventType = "ERROR_OCCURRED"
)

// CommitEvents lists every event type emitted by a committed ledger or settings mutation
var CommitEvents = []EventType{
	TradeAdded,
	TradeUpdated,
	TradeDeleted,
	CashFlowAdded,
	CashFlowDeleted,
	SettingsChanged,
}

// Event represents a system event with typed data
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Module    string    `json:"module"`
	Data      EventData `json:"data,omitempty"`
}
