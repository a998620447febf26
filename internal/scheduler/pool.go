package scheduler

import (
	"context"
	"fmt"
	"sync"
)

type Job interface {
	Execute(ctx context.Context) error
}

// WorkerPool runs jobs on a fixed number of goroutines. A panicking job
// is reported through its result like any other failure.
type WorkerPool struct {
	workers int
}

func NewWorkerPool(workers int) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	return &WorkerPool{workers: workers}
}

// Run executes every job and returns their errors in submission order.
func (wp *WorkerPool) Run(ctx context.Context, jobs []Job) []error {
	results := make([]error, len(jobs))
	indexes := make(chan int, wp.workers*2)

	var wg sync.WaitGroup
	for w := 0; w < wp.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				results[i] = execute(ctx, jobs[i])
			}
		}()
	}

	for i := range jobs {
		select {
		case indexes <- i:
		case <-ctx.Done():
			for j := i; j < len(jobs); j++ {
				results[j] = ctx.Err()
			}
			close(indexes)
			wg.Wait()
			return results
		}
	}
	close(indexes)
	wg.Wait()

	return results
}

func execute(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return job.Execute(ctx)
}
