// Package scheduler drives the periodic backup and pruning cycle.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/kadirbelkuyu/dbsaver/internal/models"
	"github.com/kadirbelkuyu/dbsaver/internal/store"
	"github.com/kadirbelkuyu/dbsaver/pkg/logger"
)

type Backupper interface {
	Backup(ctx context.Context, db *models.Database, manual bool) (*models.Snapshot, error)
}

type Pruner interface {
	Prune(ctx context.Context, now time.Time) (int, error)
}

// Observer receives progress of a cycle. Calls may come from several
// goroutines when more than one worker is configured.
type Observer interface {
	CycleStarted(total int)
	DatabaseDone(db models.Database, err error)
	CycleFinished(report Report)
}

// Report summarizes one cycle.
type Report struct {
	StartedAt time.Time
	Duration  time.Duration
	Total     int
	Succeeded int
	Failed    int
	Pruned    int
	PruneErr  error
}

type Options struct {
	Interval time.Duration
	Workers  int
	Now      func() time.Time
	Observer Observer
}

type Scheduler struct {
	databases store.DatabaseStore
	backups   Backupper
	pruner    Pruner
	pool      *WorkerPool
	cycle     *Cycle
	now       func() time.Time
	observer  Observer
	log       *logger.Logger
}

func New(databases store.DatabaseStore, backups Backupper, pruner Pruner, opts Options, log *logger.Logger) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = 24 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Scheduler{
		databases: databases,
		backups:   backups,
		pruner:    pruner,
		pool:      NewWorkerPool(opts.Workers),
		cycle:     NewCycle(opts.Interval),
		now:       opts.Now,
		observer:  opts.Observer,
		log:       log,
	}
}

// Run executes a cycle right away and then again one interval after each
// cycle finishes, until ctx is cancelled. Failures inside a cycle never
// end the loop.
func (s *Scheduler) Run(ctx context.Context) error {
	return s.cycle.Run(ctx, func(ctx context.Context) {
		if _, err := s.RunOnce(ctx); err != nil {
			s.log.Errorf("backup cycle failed: %v", err)
		}
	})
}

// RunOnce backs up every database and then prunes expired snapshots.
// All backups complete before pruning starts.
func (s *Scheduler) RunOnce(ctx context.Context) (report Report, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("backup cycle panicked: %v", r)
		}
	}()

	report.StartedAt = s.now()
	s.log.Info("Starting backup cycle...")

	databases, err := s.databases.List(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to list databases: %w", err)
	}

	report.Total = len(databases)
	if s.observer != nil {
		s.observer.CycleStarted(len(databases))
	}

	jobs := make([]Job, len(databases))
	for i := range databases {
		jobs[i] = &backupJob{scheduler: s, db: databases[i]}
	}

	for i, jobErr := range s.pool.Run(ctx, jobs) {
		if jobErr != nil {
			report.Failed++
			s.log.WithField("database", databases[i].Label()).Errorf("scheduled backup failed: %v", jobErr)
			continue
		}
		report.Succeeded++
	}

	pruned, err := s.pruner.Prune(ctx, s.now())
	report.Pruned = pruned
	if err != nil {
		report.PruneErr = err
		s.log.Errorf("pruning failed: %v", err)
	}

	report.Duration = s.now().Sub(report.StartedAt)
	if s.observer != nil {
		s.observer.CycleFinished(report)
	}

	s.log.Infof("Backup cycle completed: %d saved, %d failed, %d pruned", report.Succeeded, report.Failed, report.Pruned)
	return report, nil
}

type backupJob struct {
	scheduler *Scheduler
	db        models.Database
}

func (j *backupJob) Execute(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("backup panicked: %v", r)
		}
		if observer := j.scheduler.observer; observer != nil {
			observer.DatabaseDone(j.db, err)
		}
	}()

	_, err = j.scheduler.backups.Backup(ctx, &j.db, false)
	return err
}
