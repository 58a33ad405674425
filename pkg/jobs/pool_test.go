package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolProcessesSubmittedTasks(t *testing.T) {
	var mu sync.Mutex
	seen := make(map[string]int)
	done := make(chan struct{}, 3)

	pool := NewPool("test", func(ctx context.Context, task Task) error {
		mu.Lock()
		seen[task.ID]++
		mu.Unlock()
		done <- struct{}{}
		return nil
	}, PoolConfig{Workers: 2})

	pool.Start(context.Background())
	defer pool.Stop()

	require.NoError(t, pool.Submit(Task{ID: "a", Kind: "reminder"}))
	require.NoError(t, pool.Submit(Task{ID: "b", Kind: "reminder"}))
	require.NoError(t, pool.Submit(Task{ID: "c", Kind: "reminder"}))

	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for tasks")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, seen, 3)
}

func TestPoolRetriesFailedTasks(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	done := make(chan struct{})

	pool := NewPool("test", func(ctx context.Context, task Task) error {
		mu.Lock()
		attempts++
		n := attempts
		mu.Unlock()
		if n < 2 {
			return errors.New("transient")
		}
		close(done)
		return nil
	}, PoolConfig{Workers: 1, MaxRetries: 3, RetryDelay: 10 * time.Millisecond})

	pool.Start(context.Background())
	defer pool.Stop()

	require.NoError(t, pool.Submit(Task{ID: "a", Kind: "reminder"}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task was not retried")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, attempts)
}

func TestPoolSubmitBeforeStartFails(t *testing.T) {
	pool := NewPool("test", func(ctx context.Context, task Task) error { return nil }, PoolConfig{})
	assert.Error(t, pool.Submit(Task{ID: "a"}))
}
