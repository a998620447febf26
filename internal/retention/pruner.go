package retention

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kadirbelkuyu/dbsaver/internal/models"
	"github.com/kadirbelkuyu/dbsaver/internal/store"
	"github.com/kadirbelkuyu/dbsaver/pkg/logger"
)

// SnapshotRemover deletes a snapshot and its directory.
type SnapshotRemover interface {
	Remove(ctx context.Context, snapshot models.Snapshot) error
}

type Pruner struct {
	snapshots store.SnapshotStore
	remover   SnapshotRemover
	policy    Policy
	log       *logger.Logger
}

func NewPruner(snapshots store.SnapshotStore, remover SnapshotRemover, policy Policy, log *logger.Logger) *Pruner {
	return &Pruner{
		snapshots: snapshots,
		remover:   remover,
		policy:    policy,
		log:       log,
	}
}

// Prune deletes every automatic snapshot the policy rejects at now and
// returns how many were removed. A failed removal is logged and pruning
// continues with the remaining snapshots.
func (p *Pruner) Prune(ctx context.Context, now time.Time) (int, error) {
	snapshots, err := p.snapshots.ListAutomatic(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list automatic snapshots: %w", err)
	}

	removed := 0
	for _, snapshot := range snapshots {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if p.policy.Keep(now, snapshot) {
			continue
		}

		if err := p.remover.Remove(ctx, snapshot); err != nil && !errors.Is(err, models.ErrNotFound) {
			p.log.Errorf("failed to prune snapshot %s of %s: %v", snapshot.ID, snapshot.DatabaseID, err)
			continue
		}
		p.log.Debugf("pruned snapshot %s of %s taken %s", snapshot.ID, snapshot.DatabaseID, snapshot.Time().Format(time.RFC3339))
		removed++
	}

	if removed > 0 {
		p.log.Infof("pruned %d snapshots", removed)
	}
	return removed, nil
}
