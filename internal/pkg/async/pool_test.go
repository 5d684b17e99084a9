package async_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitebeam/internal/pkg/async"
)

func TestPoolExecuteCollectsAllResults(t *testing.T) {
	pool := async.NewPool(3)

	tasks := []async.Task{
		{Name: "a", Run: func(ctx context.Context) (interface{}, error) { return 1, nil }},
		{Name: "b", Run: func(ctx context.Context) (interface{}, error) { return "two", nil }},
		{Name: "c", Run: func(ctx context.Context) (interface{}, error) { return nil, errors.New("boom") }},
	}

	results := pool.Execute(context.Background(), tasks)

	require.Len(t, results, 3)
	assert.Equal(t, 1, results["a"].Data)
	assert.NoError(t, results["a"].Err)
	assert.Equal(t, "two", results["b"].Data)
	assert.Error(t, results["c"].Err)
}

func TestPoolExecuteMoreTasksThanWorkers(t *testing.T) {
	pool := async.NewPool(2)

	var ran atomic.Int32
	tasks := make([]async.Task, 10)
	for i := range tasks {
		tasks[i] = async.Task{
			Name: string(rune('a' + i)),
			Run: func(ctx context.Context) (interface{}, error) {
				ran.Add(1)
				return nil, nil
			},
		}
	}

	results := pool.Execute(context.Background(), tasks)
	assert.Len(t, results, 10)
	assert.Equal(t, int32(10), ran.Load())
}

func TestPoolExecuteCancelledContext(t *testing.T) {
	pool := async.NewPool(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tasks := []async.Task{
		{Name: "slow", Run: func(ctx context.Context) (interface{}, error) {
			time.Sleep(time.Second)
			return nil, nil
		}},
	}

	done := make(chan struct{})
	go func() {
		pool.Execute(ctx, tasks)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Execute did not return after cancellation")
	}
}
