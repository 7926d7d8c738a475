// Package reliability keeps the tradelog database healthy and backed up.
package reliability

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aristath/tradelog/internal/database"
	"github.com/rs/zerolog"
)

const backupPrefix = "tradelog-"

// BackupJob checks database integrity, writes a dated copy with VACUUM INTO,
// verifies the copy and prunes copies beyond the retention count.
type BackupJob struct {
	db        *database.DB
	backupDir string
	retain    int
	now       func() time.Time
	vacuum    func(ctx context.Context, path string) error
	log       zerolog.Logger
}

// NewBackupJob creates a backup job writing into backupDir and keeping retain copies.
// A non-positive retain keeps every copy.
func NewBackupJob(db *database.DB, backupDir string, retain int, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		db:        db,
		backupDir: backupDir,
		retain:    retain,
		now:       time.Now,
		log:       log.With().Str("job", "database_backup").Logger(),
	}
}

// Name returns the job name for scheduler
func (j *BackupJob) Name() string {
	return "database_backup"
}

// Run executes the backup
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	startTime := time.Now()

	// Step 1: never back up a corrupt database over a good copy
	if err := j.db.HealthCheck(ctx); err != nil {
		j.log.Error().Err(err).Msg("CRITICAL: Integrity check failed, backup skipped")
		return err
	}

	if err := os.MkdirAll(j.backupDir, 0755); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}

	// Step 2: one copy per day; a rerun replaces it only once the new copy verifies
	path := filepath.Join(j.backupDir, backupPrefix+j.now().Format("2006-01-02")+".db")
	tmpPath := path + ".tmp"
	if err := os.Remove(tmpPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear stale temporary backup: %w", err)
	}
	if err := j.vacuumInto(ctx, tmpPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("backup of %s failed: %w", j.db.Name(), err)
	}

	// Step 3: verify the copy, then move it into place
	if err := verifyBackup(ctx, tmpPath); err != nil {
		_ = os.Remove(tmpPath)
		j.log.Error().Str("path", tmpPath).Err(err).Msg("Backup verification failed")
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to move backup into place: %w", err)
	}

	// Step 4: retention
	removed, err := j.prune()
	if err != nil {
		j.log.Warn().Err(err).Msg("Failed to prune old backups")
	}

	j.log.Info().
		Str("path", path).
		Int("pruned", removed).
		Dur("duration_ms", time.Since(startTime)).
		Msg("Database backup completed")
	return nil
}

// Backups returns the backup files, oldest first
func (j *BackupJob) Backups() ([]string, error) {
	entries, err := os.ReadDir(j.backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), backupPrefix) && strings.HasSuffix(e.Name(), ".db") {
			names = append(names, filepath.Join(j.backupDir, e.Name()))
		}
	}
	// Dated names sort chronologically
	sort.Strings(names)
	return names, nil
}

func (j *BackupJob) vacuumInto(ctx context.Context, path string) error {
	if j.vacuum != nil {
		return j.vacuum(ctx, path)
	}
	_, err := j.db.Conn().ExecContext(ctx, "VACUUM INTO ?", path)
	return err
}

func (j *BackupJob) prune() (int, error) {
	backups, err := j.Backups()
	if err != nil {
		return 0, err
	}
	if j.retain <= 0 || len(backups) <= j.retain {
		return 0, nil
	}

	removed := 0
	for _, path := range backups[:len(backups)-j.retain] {
		if err := os.Remove(path); err != nil {
			return removed, fmt.Errorf("failed to remove %s: %w", path, err)
		}
		removed++
	}
	return removed, nil
}

func verifyBackup(ctx context.Context, path string) error {
	backupDB, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open backup: %w", err)
	}
	defer backupDB.Close()

	var result string
	if err := backupDB.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("backup integrity check query failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("backup integrity check failed: %s", result)
	}
	return nil
}
