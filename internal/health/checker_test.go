package health_test

import (
	"context"
	"errors"
	"testing"

	"github.com/kadirbelkuyu/dbsaver/internal/health"
	"github.com/kadirbelkuyu/dbsaver/internal/models"
	"github.com/kadirbelkuyu/dbsaver/internal/probe"
	"github.com/kadirbelkuyu/dbsaver/internal/store"
	"github.com/kadirbelkuyu/dbsaver/internal/store/memstore"
	"github.com/kadirbelkuyu/dbsaver/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// observingProber captures the status visible while the probe is in flight.
type observingProber struct {
	databases store.DatabaseStore
	id        string
	result    probe.Result
	seen      models.Status
}

func (p *observingProber) Probe(ctx context.Context, _ probe.Target) probe.Result {
	db, err := p.databases.Get(ctx, p.id)
	if err == nil {
		p.seen = db.Status
	}
	return p.result
}

func seedDatabase(t *testing.T, databases store.DatabaseStore) *models.Database {
	t.Helper()

	id, err := databases.Insert(context.Background(), models.Database{
		Name:             "app",
		ConnectionString: "mongodb://unreachable.invalid:27017",
		Status:           models.StatusConnected,
		Collections:      []string{"users", "orders"},
	})
	require.NoError(t, err)

	db, err := databases.Get(context.Background(), id)
	require.NoError(t, err)
	return db
}

func TestCheckRecordsSuccess(t *testing.T) {
	databases := memstore.New().Databases()
	db := seedDatabase(t, databases)

	prober := &observingProber{
		databases: databases,
		id:        db.ID,
		result:    probe.Result{Reachable: true, Collections: []string{"events"}},
	}
	checker := health.NewChecker(databases, prober, logger.Discard())

	_, err := checker.Check(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConnecting, prober.seen)

	stored, err := databases.Get(context.Background(), db.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConnected, stored.Status)
	assert.Equal(t, []string{"events"}, stored.Collections)
	assert.Empty(t, stored.Message)
}

func TestCheckUnreachableClearsCollections(t *testing.T) {
	databases := memstore.New().Databases()
	db := seedDatabase(t, databases)

	prober := &observingProber{
		databases: databases,
		id:        db.ID,
		result:    probe.Result{Error: "Failed to connect: no reachable servers"},
	}
	checker := health.NewChecker(databases, prober, logger.Discard())

	_, err := checker.Check(context.Background(), db)
	require.Error(t, err)

	var connErr *models.ConnectionError
	require.True(t, errors.As(err, &connErr))
	assert.Equal(t, "Failed to connect: no reachable servers", connErr.Error())

	stored, err := databases.Get(context.Background(), db.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDisconnected, stored.Status)
	assert.Empty(t, stored.Collections)
	assert.NotEmpty(t, stored.Message)
}

func TestCheckUnknownDatabase(t *testing.T) {
	databases := memstore.New().Databases()
	checker := health.NewChecker(databases, &observingProber{}, logger.Discard())

	_, err := checker.Check(context.Background(), &models.Database{ID: "missing"})
	assert.ErrorIs(t, err, models.ErrNotFound)
}
