// Package cleanup prunes derived data that is no longer needed.
package cleanup

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// SnapshotPruner deletes account snapshots older than a cutoff
type SnapshotPruner interface {
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// SnapshotCleanupJob removes account snapshots older than the retention window.
// Ledger state is never touched; snapshots are derived and can be dropped.
type SnapshotCleanupJob struct {
	repo      SnapshotPruner
	retention time.Duration
	now       func() time.Time
	log       zerolog.Logger
}

// NewSnapshotCleanupJob creates a cleanup job keeping retentionDays of snapshots
func NewSnapshotCleanupJob(repo SnapshotPruner, retentionDays int, log zerolog.Logger) *SnapshotCleanupJob {
	return &SnapshotCleanupJob{
		repo:      repo,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		now:       time.Now,
		log:       log.With().Str("job", "snapshot_cleanup").Logger(),
	}
}

// Name returns the job name for scheduler
func (j *SnapshotCleanupJob) Name() string {
	return "snapshot_cleanup"
}

// Run executes the cleanup job
func (j *SnapshotCleanupJob) Run() error {
	if j.retention <= 0 {
		return nil
	}

	cutoff := j.now().Add(-j.retention)
	removed, err := j.repo.DeleteBefore(context.Background(), cutoff)
	if err != nil {
		return fmt.Errorf("failed to prune account snapshots: %w", err)
	}

	if removed > 0 {
		j.log.Info().
			Int64("removed", removed).
			Time("cutoff", cutoff).
			Msg("Pruned old account snapshots")
	}
	return nil
}
