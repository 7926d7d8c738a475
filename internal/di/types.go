// Package di wires the application's dependencies explicitly.
package di

import (
	"github.com/aristath/tradelog/internal/database"
	"github.com/aristath/tradelog/internal/events"
	"github.com/aristath/tradelog/internal/modules/cash_flows"
	"github.com/aristath/tradelog/internal/modules/cleanup"
	"github.com/aristath/tradelog/internal/modules/settings"
	"github.com/aristath/tradelog/internal/modules/snapshots"
	"github.com/aristath/tradelog/internal/modules/trading"
	"github.com/aristath/tradelog/internal/modules/trimming"
	"github.com/aristath/tradelog/internal/modules/valuation"
	"github.com/aristath/tradelog/internal/persistence"
	"github.com/aristath/tradelog/internal/reliability"
	"github.com/aristath/tradelog/internal/scheduler"
)

// Container holds all dependencies for the application.
// It is created by Wire and is the only place instances are constructed.
type Container struct {
	// Database
	DB *database.DB

	// Events
	EventBus     *events.Bus
	EventManager *events.Manager

	// Owning stores
	TradeLedger    *trading.Ledger
	CashFlowLedger *cash_flows.Ledger
	Settings       *settings.Store

	// Derived view
	Valuation *valuation.Cache

	// Services
	TrimEngine   *trimming.Engine
	TradeService *trading.TradeService

	// Persistence
	Store        *persistence.SQLiteStore
	Snapshotter  *persistence.Snapshotter
	WriteBack    *persistence.WriteBack
	SnapshotRepo *snapshots.Repository

	// Background jobs
	Scheduler *scheduler.Scheduler
}

// JobInstances holds the registered background jobs
type JobInstances struct {
	AccountSnapshot *snapshots.Job
	SnapshotCleanup *cleanup.SnapshotCleanupJob
	WALCheckpoint   *scheduler.WALCheckpointJob
	Backup          *reliability.BackupJob // Always built; scheduled only when retention is positive
}
