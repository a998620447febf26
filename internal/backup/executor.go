// Package backup runs dump tools against monitored databases and manages
// the snapshot directories they produce.
package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/kadirbelkuyu/dbsaver/internal/models"
	"github.com/kadirbelkuyu/dbsaver/internal/probe"
	"github.com/kadirbelkuyu/dbsaver/internal/store"
	"github.com/kadirbelkuyu/dbsaver/pkg/logger"
)

// ConnectionChecker probes a database and records the outcome.
type ConnectionChecker interface {
	Check(ctx context.Context, db *models.Database) (probe.Result, error)
}

type Options struct {
	Root    string
	Timeout time.Duration
	Dumpers map[string]Dumper
	Runner  CommandRunner
	Now     func() time.Time
}

type Executor struct {
	databases store.DatabaseStore
	snapshots store.SnapshotStore
	checker   ConnectionChecker
	runner    CommandRunner
	dumpers   map[string]Dumper
	root      string
	timeout   time.Duration
	now       func() time.Time
	log       *logger.Logger
}

func NewExecutor(databases store.DatabaseStore, snapshots store.SnapshotStore, checker ConnectionChecker, opts Options, log *logger.Logger) *Executor {
	if opts.Runner == nil {
		opts.Runner = NewExecRunner(log)
	}
	if opts.Dumpers == nil {
		opts.Dumpers = map[string]Dumper{
			models.EngineMongo:    NewMongoDumper(""),
			models.EnginePostgres: NewPostgresDumper(""),
		}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Root == "" {
		opts.Root = "db_saves"
	}

	return &Executor{
		databases: databases,
		snapshots: snapshots,
		checker:   checker,
		runner:    opts.Runner,
		dumpers:   opts.Dumpers,
		root:      opts.Root,
		timeout:   opts.Timeout,
		now:       opts.Now,
		log:       log,
	}
}

// Root is the directory holding every snapshot.
func (e *Executor) Root() string {
	return e.root
}

// Backup probes db, dumps it into a fresh timestamped directory and records
// the snapshot. A failed probe returns *models.ConnectionError and a failed
// dump returns *models.BackupError; neither creates a snapshot.
func (e *Executor) Backup(ctx context.Context, db *models.Database, manual bool) (*models.Snapshot, error) {
	entry := e.log.WithField("database", db.Label())

	if _, err := e.checker.Check(ctx, db); err != nil {
		return nil, err
	}

	dumper, ok := e.dumpers[db.EngineName()]
	if !ok {
		return nil, &models.BackupError{
			Database: db.ID,
			Err:      fmt.Errorf("no dump tool configured for engine %s", db.EngineName()),
		}
	}

	timestamp, dir, err := reserveDir(filepath.Join(e.root, db.ID), e.now().UnixMilli())
	if err != nil {
		return nil, &models.BackupError{Database: db.ID, Err: err}
	}

	runCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	entry.Infof("saving snapshot %d", timestamp)
	name, args := dumper.Command(*db, dir)
	if output, err := e.runner.Run(runCtx, name, args); err != nil {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			entry.Warnf("failed to remove incomplete snapshot directory %s: %v", dir, rmErr)
		}
		return nil, &models.BackupError{Database: db.ID, Output: output, Err: err}
	}

	snapshot := models.Snapshot{
		DatabaseID: db.ID,
		Timestamp:  timestamp,
		Manual:     manual,
	}
	id, err := e.snapshots.Insert(ctx, snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to record snapshot: %w", err)
	}
	snapshot.ID = id

	if err := e.databases.SetLastSave(ctx, db.ID, timestamp); err != nil && !errors.Is(err, models.ErrNotFound) {
		entry.Warnf("failed to update last save: %v", err)
	}
	db.LastSave = &timestamp

	entry.Infof("snapshot %d saved", timestamp)
	return &snapshot, nil
}

// SnapshotDir is the on-disk location of a snapshot.
func SnapshotDir(root string, snapshot models.Snapshot) string {
	return filepath.Join(root, snapshot.DatabaseID, snapshot.DirName())
}

// reserveDir creates parent/<timestamp> exclusively, moving one millisecond
// forward while the name is taken.
func reserveDir(parent string, timestamp int64) (int64, string, error) {
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return 0, "", fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	for {
		dir := filepath.Join(parent, strconv.FormatInt(timestamp, 10))
		err := os.Mkdir(dir, 0o755)
		if err == nil {
			return timestamp, dir, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return 0, "", fmt.Errorf("failed to create snapshot directory: %w", err)
		}
		timestamp++
	}
}
