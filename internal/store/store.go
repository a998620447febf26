// Package store defines the persistence contracts for tracked databases
// and their snapshots. Lookups of unknown ids return models.ErrNotFound.
package store

import (
	"context"

	"github.com/kadirbelkuyu/dbsaver/internal/models"
)

// ProbeOutcome is the final state written after a connection probe.
type ProbeOutcome struct {
	Status      models.Status
	Collections []string
	Message     string
}

type DatabaseStore interface {
	List(ctx context.Context) ([]models.Database, error)
	Get(ctx context.Context, id string) (*models.Database, error)
	Insert(ctx context.Context, db models.Database) (string, error)
	Update(ctx context.Context, id string, input models.DatabaseInput) error
	SetStatus(ctx context.Context, id string, status models.Status) error
	RecordProbe(ctx context.Context, id string, outcome ProbeOutcome) error
	SetLastSave(ctx context.Context, id string, timestamp int64) error
	Delete(ctx context.Context, id string) error
}

type SnapshotStore interface {
	Insert(ctx context.Context, snapshot models.Snapshot) (string, error)
	Get(ctx context.Context, id string) (*models.Snapshot, error)
	// ListByDatabase returns the snapshots of one database, newest first.
	ListByDatabase(ctx context.Context, databaseID string) ([]models.Snapshot, error)
	// ListAutomatic returns every scheduler-created snapshot, newest first.
	ListAutomatic(ctx context.Context) ([]models.Snapshot, error)
	Count(ctx context.Context, databaseID string) (int64, error)
	Delete(ctx context.Context, id string) error
}
