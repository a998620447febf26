package app_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/kadirbelkuyu/dbsaver/internal/app"
	"github.com/kadirbelkuyu/dbsaver/internal/backup"
	"github.com/kadirbelkuyu/dbsaver/internal/config"
	"github.com/kadirbelkuyu/dbsaver/internal/models"
	"github.com/kadirbelkuyu/dbsaver/internal/probe"
	"github.com/kadirbelkuyu/dbsaver/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProber treats every database named "offline" as unreachable.
type fakeProber struct{}

func (fakeProber) Probe(_ context.Context, target probe.Target) probe.Result {
	if target.Database == "offline" {
		return probe.Result{Collections: []string{}, Error: "Database not found: offline"}
	}
	return probe.Result{Reachable: true, Collections: []string{"users"}}
}

// dumpRunner writes a file into the --out directory like mongodump would.
type dumpRunner struct {
	mu    sync.Mutex
	calls int
}

func (r *dumpRunner) Run(_ context.Context, _ string, args []string) (string, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()

	for i, arg := range args {
		if arg == "--out" {
			dir := filepath.Join(args[i+1], "app")
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return "", err
			}
			return "", os.WriteFile(filepath.Join(dir, "users.bson.gz"), []byte("dump"), 0o644)
		}
	}
	return "", nil
}

func newApplication(t *testing.T, mutate func(cfg *config.Config)) (*app.Application, *dumpRunner) {
	t.Helper()

	cfg := config.Default()
	cfg.Store.Driver = "memory"
	cfg.Snapshots.Root = t.TempDir()
	if mutate != nil {
		mutate(cfg)
	}

	runner := &dumpRunner{}
	application, err := app.NewApplication(context.Background(), cfg, logger.Discard(),
		app.WithProber(fakeProber{}),
		app.WithRunner(runner),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.Close() })

	return application, runner
}

func TestAddDatabaseProbesInBackground(t *testing.T) {
	application, _ := newApplication(t, nil)
	service := application.Service

	db, err := service.AddDatabase(context.Background(), models.DatabaseInput{
		Name:             " app ",
		ConnectionString: "mongodb://db.internal:27017",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusConnecting, db.Status)
	assert.Equal(t, "app", db.CustomName)
	assert.Equal(t, models.EngineMongo, db.Engine)

	service.Wait()

	stored, err := service.GetDatabase(context.Background(), db.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConnected, stored.Status)
	assert.Equal(t, []string{"users"}, stored.Collections)
}

func TestAddDatabaseValidation(t *testing.T) {
	application, _ := newApplication(t, nil)

	_, err := application.Service.AddDatabase(context.Background(), models.DatabaseInput{Name: "app"})
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = application.Service.AddDatabase(context.Background(), models.DatabaseInput{
		Name:             "app",
		Engine:           "redis",
		ConnectionString: "redis://cache",
	})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestManualBackupAndDownload(t *testing.T) {
	application, runner := newApplication(t, nil)
	service := application.Service
	ctx := context.Background()

	db, err := service.AddDatabase(ctx, models.DatabaseInput{Name: "app", ConnectionString: "mongodb://db.internal"})
	require.NoError(t, err)
	service.Wait()

	snapshot, err := service.ManualBackup(ctx, db.ID)
	require.NoError(t, err)
	assert.True(t, snapshot.Manual)
	assert.Equal(t, 1, runner.calls)

	databases, err := service.ListDatabases(ctx)
	require.NoError(t, err)
	require.Len(t, databases, 1)
	assert.Equal(t, int64(1), databases[0].SnapshotCount)
	require.NotNil(t, databases[0].LastSave)
	assert.Equal(t, snapshot.Timestamp, *databases[0].LastSave)

	snapshots, err := service.ListSnapshots(ctx, db.ID)
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.Equal(t, snapshot.ID, snapshots[0].ID)

	archive, err := service.DownloadSnapshot(ctx, snapshot.ID)
	require.NoError(t, err)
	data, err := io.ReadAll(archive)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	require.NoError(t, archive.Close())
}

func TestManualBackupOfUnreachableDatabase(t *testing.T) {
	application, runner := newApplication(t, nil)
	service := application.Service
	ctx := context.Background()

	db, err := service.AddDatabase(ctx, models.DatabaseInput{Name: "offline", ConnectionString: "mongodb://db.internal"})
	require.NoError(t, err)
	service.Wait()

	_, err = service.ManualBackup(ctx, db.ID)
	var connErr *models.ConnectionError
	require.True(t, errors.As(err, &connErr))
	assert.Equal(t, "Database not found: offline", connErr.Error())
	assert.Zero(t, runner.calls)

	stored, err := service.GetDatabase(ctx, db.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDisconnected, stored.Status)
	assert.Equal(t, "Database not found: offline", stored.Message)
}

func TestBackupInBackground(t *testing.T) {
	application, runner := newApplication(t, nil)
	service := application.Service
	ctx := context.Background()

	db, err := service.AddDatabase(ctx, models.DatabaseInput{Name: "app", ConnectionString: "mongodb://db.internal"})
	require.NoError(t, err)

	require.NoError(t, service.BackupInBackground(ctx, db.ID))
	service.Wait()
	assert.Equal(t, 1, runner.calls)

	assert.ErrorIs(t, service.BackupInBackground(ctx, "missing"), models.ErrNotFound)
}

func TestEditDatabase(t *testing.T) {
	application, _ := newApplication(t, nil)
	service := application.Service
	ctx := context.Background()

	db, err := service.AddDatabase(ctx, models.DatabaseInput{Name: "app", ConnectionString: "mongodb://db.internal"})
	require.NoError(t, err)
	service.Wait()

	edited, err := service.EditDatabase(ctx, db.ID, models.DatabaseInput{
		Name:             "offline",
		CustomName:       "Reporting",
		ConnectionString: "mongodb://other.internal",
	})
	require.NoError(t, err)
	assert.Equal(t, "Reporting", edited.Label())
	service.Wait()

	stored, err := service.GetDatabase(ctx, db.ID)
	require.NoError(t, err)
	assert.Equal(t, "mongodb://other.internal", stored.ConnectionString)
	assert.Equal(t, models.StatusDisconnected, stored.Status)
	assert.Empty(t, stored.Collections)

	_, err = service.EditDatabase(ctx, "missing", models.DatabaseInput{Name: "x", ConnectionString: "y"})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestDeleteDatabaseCascades(t *testing.T) {
	application, _ := newApplication(t, nil)
	service := application.Service
	ctx := context.Background()

	db, err := service.AddDatabase(ctx, models.DatabaseInput{Name: "app", ConnectionString: "mongodb://db.internal"})
	require.NoError(t, err)
	service.Wait()

	snapshot, err := service.ManualBackup(ctx, db.ID)
	require.NoError(t, err)
	dir := backup.SnapshotDir(application.Config.Snapshots.Root, *snapshot)
	require.DirExists(t, dir)

	require.NoError(t, service.DeleteDatabase(ctx, db.ID))
	assert.NoDirExists(t, dir)

	_, err = service.ListSnapshots(ctx, db.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.ErrorIs(t, service.DeleteSnapshot(ctx, snapshot.ID), models.ErrNotFound)
}

func TestDeleteDatabaseWithoutCascadeKeepsSnapshots(t *testing.T) {
	application, _ := newApplication(t, func(cfg *config.Config) {
		cascade := false
		cfg.Databases.CascadeDelete = &cascade
	})
	service := application.Service
	ctx := context.Background()

	db, err := service.AddDatabase(ctx, models.DatabaseInput{Name: "app", ConnectionString: "mongodb://db.internal"})
	require.NoError(t, err)
	service.Wait()

	snapshot, err := service.ManualBackup(ctx, db.ID)
	require.NoError(t, err)

	require.NoError(t, service.DeleteDatabase(ctx, db.ID))
	assert.DirExists(t, backup.SnapshotDir(application.Config.Snapshots.Root, *snapshot))
	require.NoError(t, service.DeleteSnapshot(ctx, snapshot.ID))
}

func TestSchedulerCycleThroughApplication(t *testing.T) {
	application, runner := newApplication(t, nil)
	ctx := context.Background()

	for _, name := range []string{"app", "offline"} {
		_, err := application.Service.AddDatabase(ctx, models.DatabaseInput{Name: name, ConnectionString: "mongodb://db.internal"})
		require.NoError(t, err)
	}
	application.Service.Wait()

	report, err := application.Scheduler.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, runner.calls)
}
