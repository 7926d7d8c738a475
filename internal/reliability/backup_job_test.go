package reliability

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	testingpkg "github.com/aristath/tradelog/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupJob_WritesVerifiedCopiesAndPrunes(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t, "tradelog")
	defer cleanup()

	_, err := db.Conn().Exec(`INSERT INTO kv_store (key, value, codec, updated_at) VALUES ('trades', X'5B5D', 'json', 1)`)
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "backups")
	job := NewBackupJob(db, dir, 2, zerolog.Nop())
	assert.Equal(t, "database_backup", job.Name())

	day := time.Date(2024, time.March, 1, 3, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		current := day.AddDate(0, 0, i)
		job.now = func() time.Time { return current }
		require.NoError(t, job.Run())
	}

	// Rerunning on the same day replaces that day's copy
	require.NoError(t, job.Run())

	backups, err := job.Backups()
	require.NoError(t, err)
	require.Len(t, backups, 2)
	assert.Equal(t, "tradelog-2024-03-02.db", filepath.Base(backups[0]))
	assert.Equal(t, "tradelog-2024-03-03.db", filepath.Base(backups[1]))

	copyDB, err := sql.Open("sqlite", backups[1])
	require.NoError(t, err)
	defer copyDB.Close()

	var value []byte
	require.NoError(t, copyDB.QueryRowContext(context.Background(), `SELECT value FROM kv_store WHERE key = 'trades'`).Scan(&value))
	assert.Equal(t, "[]", string(value))
}

func TestBackupJob_NoBackupsYet(t *testing.T) {
	job := NewBackupJob(nil, filepath.Join(t.TempDir(), "missing"), 1, zerolog.Nop())
	backups, err := job.Backups()
	require.NoError(t, err)
	assert.Empty(t, backups)
}

func TestBackupJob_FailedRerunKeepsExistingCopy(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t, "tradelog")
	defer cleanup()

	dir := filepath.Join(t.TempDir(), "backups")
	job := NewBackupJob(db, dir, 7, zerolog.Nop())
	day := time.Date(2024, time.March, 1, 3, 0, 0, 0, time.UTC)
	job.now = func() time.Time { return day }
	require.NoError(t, job.Run())

	backups, err := job.Backups()
	require.NoError(t, err)
	require.Len(t, backups, 1)
	before, err := os.ReadFile(backups[0])
	require.NoError(t, err)

	job.vacuum = func(ctx context.Context, path string) error {
		require.NoError(t, os.WriteFile(path, []byte("partial"), 0644))
		return errors.New("disk full")
	}
	assert.Error(t, job.Run())

	after, err := os.ReadFile(backups[0])
	require.NoError(t, err)
	assert.Equal(t, before, after)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary copy is cleaned up")
}
