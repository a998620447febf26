package main

import (
	"fmt"
	"sync"

	"github.com/kadirbelkuyu/dbsaver/internal/models"
	"github.com/kadirbelkuyu/dbsaver/internal/scheduler"
	"github.com/kadirbelkuyu/dbsaver/pkg/progress"
)

// cycleObserver renders a scheduler cycle as a progress bar.
type cycleObserver struct {
	mu       sync.Mutex
	bar      *progress.Bar
	failures []string
}

func newCycleObserver() *cycleObserver {
	return &cycleObserver{}
}

func (o *cycleObserver) CycleStarted(total int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.bar = progress.NewBar(int64(total), "Saving databases")
}

func (o *cycleObserver) DatabaseDone(db models.Database, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err != nil {
		o.failures = append(o.failures, fmt.Sprintf("%s: %v", db.Label(), err))
	}
	if o.bar != nil {
		o.bar.Describe(db.Label())
		o.bar.Increment()
	}
}

func (o *cycleObserver) CycleFinished(report scheduler.Report) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.bar != nil {
		o.bar.Finish()
	}
	for _, failure := range o.failures {
		fmt.Printf("  failed %s\n", failure)
	}
}
