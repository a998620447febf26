package backup

import (
	"context"
	"os"

	"github.com/kadirbelkuyu/dbsaver/internal/models"
	"github.com/kadirbelkuyu/dbsaver/internal/store"
	"github.com/kadirbelkuyu/dbsaver/pkg/logger"
)

// Remover deletes snapshots together with their directories.
type Remover struct {
	snapshots store.SnapshotStore
	root      string
	log       *logger.Logger
}

func NewRemover(snapshots store.SnapshotStore, root string, log *logger.Logger) *Remover {
	return &Remover{snapshots: snapshots, root: root, log: log}
}

// Remove deletes the snapshot directory, then the record. A directory that
// cannot be removed is logged and does not stop the record deletion.
func (r *Remover) Remove(ctx context.Context, snapshot models.Snapshot) error {
	dir := SnapshotDir(r.root, snapshot)
	if err := os.RemoveAll(dir); err != nil {
		r.log.Errorf("failed to remove snapshot directory %s: %v", dir, err)
	}

	return r.snapshots.Delete(ctx, snapshot.ID)
}
