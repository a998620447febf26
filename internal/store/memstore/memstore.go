// Package memstore keeps databases and snapshots in process memory.
// It backs the "memory" store driver and the tests.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/kadirbelkuyu/dbsaver/internal/models"
	"github.com/kadirbelkuyu/dbsaver/internal/store"

	"github.com/google/uuid"
)

type Store struct {
	mu        sync.RWMutex
	databases map[string]models.Database
	order     []string
	snapshots map[string]models.Snapshot
}

func New() *Store {
	return &Store{
		databases: make(map[string]models.Database),
		snapshots: make(map[string]models.Snapshot),
	}
}

// Databases returns the store as a store.DatabaseStore.
func (s *Store) Databases() store.DatabaseStore {
	return databaseStore{s}
}

// Snapshots returns the store as a store.SnapshotStore.
func (s *Store) Snapshots() store.SnapshotStore {
	return snapshotStore{s}
}

type databaseStore struct{ s *Store }

func (d databaseStore) List(_ context.Context) ([]models.Database, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()

	result := make([]models.Database, 0, len(d.s.order))
	for _, id := range d.s.order {
		result = append(result, cloneDatabase(d.s.databases[id]))
	}
	return result, nil
}

func (d databaseStore) Get(_ context.Context, id string) (*models.Database, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()

	db, ok := d.s.databases[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	clone := cloneDatabase(db)
	return &clone, nil
}

func (d databaseStore) Insert(_ context.Context, db models.Database) (string, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()

	if db.ID == "" {
		db.ID = uuid.NewString()
	}
	if db.Collections == nil {
		db.Collections = []string{}
	}
	if _, exists := d.s.databases[db.ID]; !exists {
		d.s.order = append(d.s.order, db.ID)
	}
	d.s.databases[db.ID] = cloneDatabase(db)
	return db.ID, nil
}

func (d databaseStore) Update(_ context.Context, id string, input models.DatabaseInput) error {
	return d.mutate(id, func(db *models.Database) {
		db.Name = input.Name
		db.CustomName = input.CustomName
		db.ConnectionString = input.ConnectionString
		if input.Engine != "" {
			db.Engine = input.Engine
		}
		db.AuthenticationDatabase = input.AuthenticationDatabase
	})
}

func (d databaseStore) SetStatus(_ context.Context, id string, status models.Status) error {
	return d.mutate(id, func(db *models.Database) {
		db.Status = status
	})
}

func (d databaseStore) RecordProbe(_ context.Context, id string, outcome store.ProbeOutcome) error {
	return d.mutate(id, func(db *models.Database) {
		db.Status = outcome.Status
		db.Collections = append([]string{}, outcome.Collections...)
		db.Message = outcome.Message
	})
}

func (d databaseStore) SetLastSave(_ context.Context, id string, timestamp int64) error {
	return d.mutate(id, func(db *models.Database) {
		ts := timestamp
		db.LastSave = &ts
	})
}

func (d databaseStore) Delete(_ context.Context, id string) error {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()

	if _, ok := d.s.databases[id]; !ok {
		return models.ErrNotFound
	}
	delete(d.s.databases, id)
	for i, existing := range d.s.order {
		if existing == id {
			d.s.order = append(d.s.order[:i], d.s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (d databaseStore) mutate(id string, fn func(db *models.Database)) error {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()

	db, ok := d.s.databases[id]
	if !ok {
		return models.ErrNotFound
	}
	fn(&db)
	d.s.databases[id] = db
	return nil
}

type snapshotStore struct{ s *Store }

func (ss snapshotStore) Insert(_ context.Context, snapshot models.Snapshot) (string, error) {
	ss.s.mu.Lock()
	defer ss.s.mu.Unlock()

	if snapshot.ID == "" {
		snapshot.ID = uuid.NewString()
	}
	ss.s.snapshots[snapshot.ID] = snapshot
	return snapshot.ID, nil
}

func (ss snapshotStore) Get(_ context.Context, id string) (*models.Snapshot, error) {
	ss.s.mu.RLock()
	defer ss.s.mu.RUnlock()

	snapshot, ok := ss.s.snapshots[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &snapshot, nil
}

func (ss snapshotStore) ListByDatabase(_ context.Context, databaseID string) ([]models.Snapshot, error) {
	return ss.filter(func(snapshot models.Snapshot) bool {
		return snapshot.DatabaseID == databaseID
	}), nil
}

func (ss snapshotStore) ListAutomatic(_ context.Context) ([]models.Snapshot, error) {
	return ss.filter(func(snapshot models.Snapshot) bool {
		return !snapshot.Manual
	}), nil
}

func (ss snapshotStore) Count(_ context.Context, databaseID string) (int64, error) {
	return int64(len(ss.filter(func(snapshot models.Snapshot) bool {
		return snapshot.DatabaseID == databaseID
	}))), nil
}

func (ss snapshotStore) Delete(_ context.Context, id string) error {
	ss.s.mu.Lock()
	defer ss.s.mu.Unlock()

	if _, ok := ss.s.snapshots[id]; !ok {
		return models.ErrNotFound
	}
	delete(ss.s.snapshots, id)
	return nil
}

func (ss snapshotStore) filter(keep func(models.Snapshot) bool) []models.Snapshot {
	ss.s.mu.RLock()
	defer ss.s.mu.RUnlock()

	result := make([]models.Snapshot, 0)
	for _, snapshot := range ss.s.snapshots {
		if keep(snapshot) {
			result = append(result, snapshot)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Timestamp == result[j].Timestamp {
			return result[i].ID < result[j].ID
		}
		return result[i].Timestamp > result[j].Timestamp
	})
	return result
}

func cloneDatabase(db models.Database) models.Database {
	db.Collections = append([]string{}, db.Collections...)
	if db.LastSave != nil {
		ts := *db.LastSave
		db.LastSave = &ts
	}
	return db
}
