package app

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/kadirbelkuyu/dbsaver/internal/archive"
	"github.com/kadirbelkuyu/dbsaver/internal/backup"
	"github.com/kadirbelkuyu/dbsaver/internal/models"
	"github.com/kadirbelkuyu/dbsaver/internal/probe"
	"github.com/kadirbelkuyu/dbsaver/internal/store"
	"github.com/kadirbelkuyu/dbsaver/pkg/logger"
)

type Checker interface {
	Check(ctx context.Context, db *models.Database) (probe.Result, error)
}

type Backupper interface {
	Backup(ctx context.Context, db *models.Database, manual bool) (*models.Snapshot, error)
}

type Remover interface {
	Remove(ctx context.Context, snapshot models.Snapshot) error
}

type Packager interface {
	Package(ctx context.Context, dir string) (*archive.Archive, error)
}

type Dependencies struct {
	Databases     store.DatabaseStore
	Snapshots     store.SnapshotStore
	Checker       Checker
	Backups       Backupper
	Remover       Remover
	Packager      Packager
	SnapshotRoot  string
	CascadeDelete bool
}

// Service is the entry point used by the HTTP API and the CLI.
type Service struct {
	deps Dependencies
	log  *logger.Logger

	background       sync.WaitGroup
	backgroundCtx    context.Context
	cancelBackground context.CancelFunc
}

func NewService(deps Dependencies, log *logger.Logger) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		deps:             deps,
		log:              log,
		backgroundCtx:    ctx,
		cancelBackground: cancel,
	}
}

// ListDatabases returns every database with its cached status and the
// number of snapshots it owns. Remote databases are not contacted.
func (s *Service) ListDatabases(ctx context.Context) ([]models.Database, error) {
	databases, err := s.deps.Databases.List(ctx)
	if err != nil {
		return nil, err
	}

	for i := range databases {
		count, err := s.deps.Snapshots.Count(ctx, databases[i].ID)
		if err != nil {
			return nil, err
		}
		databases[i].SnapshotCount = count
	}
	return databases, nil
}

func (s *Service) GetDatabase(ctx context.Context, id string) (*models.Database, error) {
	return s.deps.Databases.Get(ctx, id)
}

// AddDatabase registers a database in the connecting state and probes it
// in the background.
func (s *Service) AddDatabase(ctx context.Context, input models.DatabaseInput) (*models.Database, error) {
	input, err := normalizeInput(input)
	if err != nil {
		return nil, err
	}

	db := models.Database{
		Name:                   input.Name,
		CustomName:             input.CustomName,
		Engine:                 input.Engine,
		ConnectionString:       input.ConnectionString,
		AuthenticationDatabase: input.AuthenticationDatabase,
		Status:                 models.StatusConnecting,
		Collections:            []string{},
	}

	id, err := s.deps.Databases.Insert(ctx, db)
	if err != nil {
		return nil, err
	}
	db.ID = id

	s.log.WithField("database", db.Label()).Info("Database registered")
	s.checkInBackground(db)
	return &db, nil
}

// EditDatabase replaces the editable fields and re-probes in the background.
func (s *Service) EditDatabase(ctx context.Context, id string, input models.DatabaseInput) (*models.Database, error) {
	if _, err := s.deps.Databases.Get(ctx, id); err != nil {
		return nil, err
	}

	input, err := normalizeInput(input)
	if err != nil {
		return nil, err
	}
	if err := s.deps.Databases.Update(ctx, id, input); err != nil {
		return nil, err
	}

	db, err := s.deps.Databases.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	s.checkInBackground(*db)
	return db, nil
}

// DeleteDatabase removes the record and, when cascading, every snapshot
// with its directory.
func (s *Service) DeleteDatabase(ctx context.Context, id string) error {
	db, err := s.deps.Databases.Get(ctx, id)
	if err != nil {
		return err
	}

	if s.deps.CascadeDelete {
		snapshots, err := s.deps.Snapshots.ListByDatabase(ctx, id)
		if err != nil {
			return err
		}
		for _, snapshot := range snapshots {
			if err := s.deps.Remover.Remove(ctx, snapshot); err != nil {
				return fmt.Errorf("failed to delete snapshot %s: %w", snapshot.ID, err)
			}
		}
	}

	if err := s.deps.Databases.Delete(ctx, id); err != nil {
		return err
	}

	s.log.WithField("database", db.Label()).Info("Database removed")
	return nil
}

// CheckConnection re-probes a database and returns its updated record.
// An unreachable database yields *models.ConnectionError.
func (s *Service) CheckConnection(ctx context.Context, id string) (*models.Database, error) {
	db, err := s.deps.Databases.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	_, err = s.deps.Checker.Check(ctx, db)
	return db, err
}

// ManualBackup runs a user-triggered backup and waits for it.
func (s *Service) ManualBackup(ctx context.Context, id string) (*models.Snapshot, error) {
	db, err := s.deps.Databases.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.deps.Backups.Backup(ctx, db, true)
}

// BackupInBackground starts a manual backup without waiting for it. Only
// the lookup error is returned; the outcome is logged.
func (s *Service) BackupInBackground(ctx context.Context, id string) error {
	db, err := s.deps.Databases.Get(ctx, id)
	if err != nil {
		return err
	}

	s.goBackground(func(ctx context.Context) {
		entry := s.log.WithField("database", db.Label())
		snapshot, err := s.deps.Backups.Backup(ctx, db, true)
		if err != nil {
			entry.Errorf("background backup failed: %v", err)
			return
		}
		entry.Infof("background backup saved snapshot %s", snapshot.ID)
	})
	return nil
}

// ListSnapshots returns the snapshots of a database, newest first.
func (s *Service) ListSnapshots(ctx context.Context, databaseID string) ([]models.Snapshot, error) {
	if _, err := s.deps.Databases.Get(ctx, databaseID); err != nil {
		return nil, err
	}
	return s.deps.Snapshots.ListByDatabase(ctx, databaseID)
}

func (s *Service) DeleteSnapshot(ctx context.Context, id string) error {
	snapshot, err := s.deps.Snapshots.Get(ctx, id)
	if err != nil {
		return err
	}
	return s.deps.Remover.Remove(ctx, *snapshot)
}

// DownloadSnapshot packs a snapshot directory into a zip archive. The
// caller must close the archive.
func (s *Service) DownloadSnapshot(ctx context.Context, id string) (*archive.Archive, error) {
	snapshot, err := s.deps.Snapshots.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.deps.Packager.Package(ctx, backup.SnapshotDir(s.deps.SnapshotRoot, *snapshot))
}

// Wait blocks until every background task has finished.
func (s *Service) Wait() {
	s.background.Wait()
}

// Shutdown cancels running background tasks and waits for them to return,
// giving up when ctx ends. Cancelled dumps are killed with their context.
func (s *Service) Shutdown(ctx context.Context) error {
	s.cancelBackground()

	done := make(chan struct{})
	go func() {
		s.background.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("background tasks still running: %w", ctx.Err())
	}
}

func (s *Service) checkInBackground(db models.Database) {
	s.goBackground(func(ctx context.Context) {
		if _, err := s.deps.Checker.Check(ctx, &db); err != nil {
			s.log.WithField("database", db.Label()).Warnf("connection check failed: %v", err)
		}
	})
}

func (s *Service) goBackground(fn func(ctx context.Context)) {
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		defer func() {
			if r := recover(); r != nil {
				s.log.Errorf("background task panicked: %v", r)
			}
		}()
		fn(s.backgroundCtx)
	}()
}

func normalizeInput(input models.DatabaseInput) (models.DatabaseInput, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.CustomName = strings.TrimSpace(input.CustomName)
	input.ConnectionString = strings.TrimSpace(input.ConnectionString)
	input.AuthenticationDatabase = strings.TrimSpace(input.AuthenticationDatabase)
	input.Engine = models.NormalizeEngine(input.Engine)

	if input.Name == "" {
		return input, fmt.Errorf("%w: name is required", models.ErrInvalidInput)
	}
	if input.ConnectionString == "" {
		return input, fmt.Errorf("%w: connection_string is required", models.ErrInvalidInput)
	}
	switch input.Engine {
	case models.EngineMongo, models.EnginePostgres:
	default:
		return input, fmt.Errorf("%w: unsupported engine %s", models.ErrInvalidInput, input.Engine)
	}
	if input.CustomName == "" {
		input.CustomName = input.Name
	}
	return input, nil
}
