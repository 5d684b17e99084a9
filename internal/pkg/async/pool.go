// Package async runs independent named tasks concurrently over a small
// worker pool. The summary endpoint fans its grouped queries out
// through this so one slow grouping does not serialize the rest.
package async

import (
	"context"
	"sync"
)

// Task is a named unit of work. The context passed to Run is the one
// given to Execute, so tasks can honor request cancellation.
type Task struct {
	Name string
	Run  func(ctx context.Context) (interface{}, error)
}

// Result carries the outcome of one task, keyed back by its name.
type Result struct {
	Name string
	Data interface{}
	Err  error
}

// Pool executes batches of tasks with bounded concurrency. A Pool is
// single-use per Execute call; construct one per batch.
type Pool struct {
	workerCount int
	tasks       chan Task
	results     chan Result
}

func NewPool(workerCount int) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	return &Pool{
		workerCount: workerCount,
		tasks:       make(chan Task),
		results:     make(chan Result),
	}
}

func (p *Pool) worker(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	for {
		select {
		case task, ok := <-p.tasks:
			if !ok {
				return
			}
			data, err := task.Run(ctx)
			select {
			case p.results <- Result{Name: task.Name, Data: data, Err: err}:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// Execute runs all tasks and returns their results keyed by task name.
// When the context is cancelled mid-batch the map holds whatever
// completed before cancellation.
func (p *Pool) Execute(ctx context.Context, tasks []Task) map[string]Result {
	var wg sync.WaitGroup
	results := make(map[string]Result, len(tasks))

	for i := 0; i < p.workerCount; i++ {
		wg.Add(1)
		go p.worker(ctx, &wg)
	}

	go func() {
		defer close(p.tasks)
		for _, task := range tasks {
			select {
			case p.tasks <- task:
			case <-ctx.Done():
				return
			}
		}
	}()

	for i := 0; i < len(tasks); i++ {
		select {
		case result := <-p.results:
			results[result.Name] = result
		case <-ctx.Done():
			return results
		}
	}

	wg.Wait()
	close(p.results)

	return results
}
