// Package health records connection probe outcomes against database records.
package health

import (
	"context"
	"fmt"

	"github.com/kadirbelkuyu/dbsaver/internal/models"
	"github.com/kadirbelkuyu/dbsaver/internal/probe"
	"github.com/kadirbelkuyu/dbsaver/internal/store"
	"github.com/kadirbelkuyu/dbsaver/pkg/logger"
)

type Checker struct {
	databases store.DatabaseStore
	prober    probe.Prober
	log       *logger.Logger
}

func NewChecker(databases store.DatabaseStore, prober probe.Prober, log *logger.Logger) *Checker {
	return &Checker{
		databases: databases,
		prober:    prober,
		log:       log,
	}
}

// Check marks the database as connecting, probes it and stores the final
// state. A failed probe is returned as *models.ConnectionError.
func (c *Checker) Check(ctx context.Context, db *models.Database) (probe.Result, error) {
	if err := c.databases.SetStatus(ctx, db.ID, models.StatusConnecting); err != nil {
		return probe.Result{}, fmt.Errorf("failed to mark %s as connecting: %w", db.ID, err)
	}
	db.Status = models.StatusConnecting

	result := c.prober.Probe(ctx, probe.Target{
		Engine:           db.EngineName(),
		ConnectionString: db.ConnectionString,
		Database:         db.Name,
	})

	outcome := store.ProbeOutcome{
		Status:      models.StatusConnected,
		Collections: result.Collections,
	}
	if !result.Reachable {
		outcome = store.ProbeOutcome{
			Status:      models.StatusDisconnected,
			Collections: []string{},
			Message:     result.Error,
		}
	}
	if outcome.Collections == nil {
		outcome.Collections = []string{}
	}

	if err := c.databases.RecordProbe(ctx, db.ID, outcome); err != nil {
		return result, fmt.Errorf("failed to record probe for %s: %w", db.ID, err)
	}
	db.Status = outcome.Status
	db.Collections = outcome.Collections
	db.Message = outcome.Message

	if !result.Reachable {
		c.log.WithField("database", db.Label()).Debugf("connection check failed: %s", result.Error)
		return result, &models.ConnectionError{Database: db.ID, Reason: result.Error}
	}

	c.log.WithField("database", db.Label()).Debugf("connection check succeeded, %d collections", len(outcome.Collections))
	return result, nil
}
