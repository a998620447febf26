package memstore

import (
	"context"
	"testing"

	"github.com/kadirbelkuyu/dbsaver/internal/models"
	"github.com/kadirbelkuyu/dbsaver/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabaseStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	databases := New().Databases()

	id, err := databases.Insert(ctx, models.Database{Name: "app", Status: models.StatusConnecting})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	require.NoError(t, databases.RecordProbe(ctx, id, store.ProbeOutcome{
		Status:      models.StatusConnected,
		Collections: []string{"users"},
	}))
	require.NoError(t, databases.SetLastSave(ctx, id, 42))

	db, err := databases.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConnected, db.Status)
	assert.Equal(t, []string{"users"}, db.Collections)
	require.NotNil(t, db.LastSave)
	assert.Equal(t, int64(42), *db.LastSave)

	// returned records are copies
	db.Collections[0] = "changed"
	again, err := databases.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"users"}, again.Collections)

	require.NoError(t, databases.Delete(ctx, id))
	_, err = databases.Get(ctx, id)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.ErrorIs(t, databases.SetStatus(ctx, id, models.StatusConnecting), models.ErrNotFound)
}

func TestSnapshotStoreOrdering(t *testing.T) {
	ctx := context.Background()
	snapshots := New().Snapshots()

	for _, s := range []models.Snapshot{
		{DatabaseID: "a", Timestamp: 10},
		{DatabaseID: "a", Timestamp: 30, Manual: true},
		{DatabaseID: "a", Timestamp: 20},
		{DatabaseID: "b", Timestamp: 15},
	} {
		_, err := snapshots.Insert(ctx, s)
		require.NoError(t, err)
	}

	byDatabase, err := snapshots.ListByDatabase(ctx, "a")
	require.NoError(t, err)
	require.Len(t, byDatabase, 3)
	assert.Equal(t, []int64{30, 20, 10}, []int64{byDatabase[0].Timestamp, byDatabase[1].Timestamp, byDatabase[2].Timestamp})

	automatic, err := snapshots.ListAutomatic(ctx)
	require.NoError(t, err)
	require.Len(t, automatic, 3)
	for _, s := range automatic {
		assert.False(t, s.Manual)
	}

	count, err := snapshots.Count(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	assert.ErrorIs(t, snapshots.Delete(ctx, "missing"), models.ErrNotFound)
}

func TestUpdateClearsAuthenticationDatabase(t *testing.T) {
	ctx := context.Background()
	databases := New().Databases()

	id, err := databases.Insert(ctx, models.Database{Name: "app", AuthenticationDatabase: "users"})
	require.NoError(t, err)

	require.NoError(t, databases.Update(ctx, id, models.DatabaseInput{
		Name:             "app",
		ConnectionString: "mongodb://db.internal",
	}))

	db, err := databases.Get(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, db.AuthenticationDatabase)
	assert.Equal(t, models.DefaultAuthenticationDatabase, db.AuthDatabase())
}
