package app

import (
	"context"
	"fmt"
	"time"

	"github.com/kadirbelkuyu/dbsaver/internal/archive"
	"github.com/kadirbelkuyu/dbsaver/internal/backup"
	"github.com/kadirbelkuyu/dbsaver/internal/config"
	"github.com/kadirbelkuyu/dbsaver/internal/health"
	"github.com/kadirbelkuyu/dbsaver/internal/models"
	"github.com/kadirbelkuyu/dbsaver/internal/probe"
	"github.com/kadirbelkuyu/dbsaver/internal/retention"
	"github.com/kadirbelkuyu/dbsaver/internal/scheduler"
	"github.com/kadirbelkuyu/dbsaver/internal/store"
	"github.com/kadirbelkuyu/dbsaver/internal/store/memstore"
	"github.com/kadirbelkuyu/dbsaver/internal/store/mongostore"
	"github.com/kadirbelkuyu/dbsaver/pkg/logger"
)

const shutdownGrace = 5 * time.Second

// Application owns every long-lived component built from the config.
type Application struct {
	Config    *config.Config
	Log       *logger.Logger
	Service   *Service
	Scheduler *scheduler.Scheduler
	Pruner    *retention.Pruner

	closeStore func() error
}

type Option func(*buildOptions)

type buildOptions struct {
	prober   probe.Prober
	runner   backup.CommandRunner
	observer scheduler.Observer
	stores   *storePair
}

type storePair struct {
	databases store.DatabaseStore
	snapshots store.SnapshotStore
}

// WithProber replaces the engine router used for connection checks.
func WithProber(prober probe.Prober) Option {
	return func(o *buildOptions) { o.prober = prober }
}

// WithRunner replaces the subprocess runner used by backups.
func WithRunner(runner backup.CommandRunner) Option {
	return func(o *buildOptions) { o.runner = runner }
}

// WithObserver reports scheduler progress to observer.
func WithObserver(observer scheduler.Observer) Option {
	return func(o *buildOptions) { o.observer = observer }
}

// WithStores uses the given stores instead of the configured driver.
func WithStores(databases store.DatabaseStore, snapshots store.SnapshotStore) Option {
	return func(o *buildOptions) { o.stores = &storePair{databases: databases, snapshots: snapshots} }
}

func NewApplication(ctx context.Context, cfg *config.Config, log *logger.Logger, opts ...Option) (*Application, error) {
	options := buildOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	application := &Application{
		Config:     cfg,
		Log:        log,
		closeStore: func() error { return nil },
	}

	stores := options.stores
	if stores == nil {
		var err error
		stores, err = application.openStore(ctx)
		if err != nil {
			return nil, err
		}
	}

	prober := options.prober
	if prober == nil {
		prober = probe.NewRouter(cfg.Probe.Timeout)
	}

	checker := health.NewChecker(stores.databases, prober, log)
	executor := backup.NewExecutor(stores.databases, stores.snapshots, checker, backup.Options{
		Root:    cfg.Snapshots.Root,
		Timeout: cfg.Dump.Timeout,
		Runner:  options.runner,
		Dumpers: map[string]backup.Dumper{
			models.EngineMongo:    backup.NewMongoDumper(cfg.Dump.Mongodump),
			models.EnginePostgres: backup.NewPostgresDumper(cfg.Dump.PgDump),
		},
	}, log)
	remover := backup.NewRemover(stores.snapshots, cfg.Snapshots.Root, log)

	beyondYear, err := retention.ParseBeyondYear(cfg.Retention.BeyondYear)
	if err != nil {
		_ = application.Close()
		return nil, err
	}
	application.Pruner = retention.NewPruner(stores.snapshots, remover, retention.Policy{BeyondYear: beyondYear}, log)

	application.Scheduler = scheduler.New(stores.databases, executor, application.Pruner, scheduler.Options{
		Interval: cfg.Scheduler.Interval,
		Workers:  cfg.Scheduler.Workers,
		Observer: options.observer,
	}, log)

	application.Service = NewService(Dependencies{
		Databases:     stores.databases,
		Snapshots:     stores.snapshots,
		Checker:       checker,
		Backups:       executor,
		Remover:       remover,
		Packager:      archive.NewPackager(""),
		SnapshotRoot:  cfg.Snapshots.Root,
		CascadeDelete: cfg.CascadeDelete(),
	}, log)

	return application, nil
}

// Close abandons background work still running after a short grace
// period and releases the store connection.
func (a *Application) Close() error {
	if a.Service != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := a.Service.Shutdown(ctx); err != nil {
			a.Log.Warnf("shutdown: %v", err)
		}
	}
	return a.closeStore()
}

func (a *Application) openStore(ctx context.Context) (*storePair, error) {
	switch a.Config.Store.Driver {
	case "memory":
		a.Log.Warn("Using the in-memory store; records are lost on exit")
		st := memstore.New()
		return &storePair{databases: st.Databases(), snapshots: st.Snapshots()}, nil
	case "mongo":
		st, err := mongostore.Connect(ctx, a.Config.Store.URI, a.Config.Store.Database)
		if err != nil {
			return nil, err
		}
		a.closeStore = st.Close
		return &storePair{databases: st.Databases(), snapshots: st.Snapshots()}, nil
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", a.Config.Store.Driver)
	}
}
