// Package probe checks whether a remote database is reachable and lists
// its collections or tables.
package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/kadirbelkuyu/dbsaver/internal/models"
)

// Target identifies the remote database to probe.
type Target struct {
	Engine           string
	ConnectionString string
	Database         string
}

// Result is the typed outcome of a probe. Error is empty when Reachable.
type Result struct {
	Reachable   bool
	Collections []string
	Error       string
}

func success(collections []string) Result {
	if collections == nil {
		collections = []string{}
	}
	return Result{Reachable: true, Collections: collections}
}

func failure(format string, args ...interface{}) Result {
	return Result{Collections: []string{}, Error: fmt.Sprintf(format, args...)}
}

type Prober interface {
	Probe(ctx context.Context, target Target) Result
}

// Router dispatches to the prober registered for the target engine.
type Router struct {
	probers map[string]Prober
}

// NewRouter builds the default router with MongoDB and PostgreSQL probers.
func NewRouter(timeout time.Duration) *Router {
	return &Router{probers: map[string]Prober{
		models.EngineMongo:    NewMongoProber(timeout),
		models.EnginePostgres: NewPostgresProber(timeout),
	}}
}

// Register replaces the prober for engine.
func (r *Router) Register(engine string, prober Prober) {
	r.probers[models.NormalizeEngine(engine)] = prober
}

func (r *Router) Probe(ctx context.Context, target Target) Result {
	engine := models.NormalizeEngine(target.Engine)
	prober, ok := r.probers[engine]
	if !ok {
		return failure("Unsupported database engine: %s", engine)
	}
	return prober.Probe(ctx, target)
}
