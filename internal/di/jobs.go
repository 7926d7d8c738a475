package di

import (
	"fmt"

	"github.com/aristath/tradelog/internal/config"
	"github.com/aristath/tradelog/internal/modules/cleanup"
	"github.com/aristath/tradelog/internal/modules/snapshots"
	"github.com/aristath/tradelog/internal/reliability"
	"github.com/aristath/tradelog/internal/scheduler"
	"github.com/rs/zerolog"
)

const (
	// walCheckpointSchedule truncates the WAL once an hour
	walCheckpointSchedule = "@hourly"
	// snapshotCleanupSchedule prunes old snapshots once a week
	snapshotCleanupSchedule = "@weekly"
	// backupSchedule runs the daily backup at 03:00
	backupSchedule = "0 0 3 * * *"
)

// RegisterJobs creates the background jobs and registers them with the scheduler.
// The scheduler is not started here.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	container.Scheduler = scheduler.New(log)

	jobs := &JobInstances{
		AccountSnapshot: snapshots.NewJob(container.SnapshotRepo, container.Valuation, container.TradeLedger, container.EventManager, log),
		SnapshotCleanup: cleanup.NewSnapshotCleanupJob(container.SnapshotRepo, cfg.SnapshotRetention, log),
		WALCheckpoint:   scheduler.NewWALCheckpointJob(container.DB, log),
		Backup:          reliability.NewBackupJob(container.DB, cfg.BackupDir(), cfg.BackupRetention, log),
	}

	if err := container.Scheduler.AddJob(cfg.SnapshotSchedule, jobs.AccountSnapshot); err != nil {
		return nil, fmt.Errorf("failed to register account snapshot job: %w", err)
	}
	if err := container.Scheduler.AddJob(snapshotCleanupSchedule, jobs.SnapshotCleanup); err != nil {
		return nil, fmt.Errorf("failed to register snapshot cleanup job: %w", err)
	}
	if err := container.Scheduler.AddJob(walCheckpointSchedule, jobs.WALCheckpoint); err != nil {
		return nil, fmt.Errorf("failed to register WAL checkpoint job: %w", err)
	}
	if cfg.BackupRetention > 0 {
		if err := container.Scheduler.AddJob(backupSchedule, jobs.Backup); err != nil {
			return nil, fmt.Errorf("failed to register backup job: %w", err)
		}
	}

	return jobs, nil
}
