package worker_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gryadka/backend-go/internal/logger"
	"github.com/gryadka/backend-go/internal/worker"
)

func TestPoolSubmit(t *testing.T) {
	pool := worker.NewPool(logger.NewNop())

	var counter int32
	for i := 0; i < 10; i++ {
		require.True(t, pool.Submit("count", func(ctx context.Context) {
			atomic.AddInt32(&counter, 1)
		}))
	}

	assert.True(t, pool.Shutdown(5*time.Second))
	assert.Equal(t, int32(10), atomic.LoadInt32(&counter))
}

func TestPoolSubmitWithTimeout(t *testing.T) {
	pool := worker.NewPool(logger.NewNop())

	expired := make(chan error, 1)
	pool.SubmitWithTimeout("slow", 20*time.Millisecond, func(ctx context.Context) {
		select {
		case <-ctx.Done():
			expired <- ctx.Err()
		case <-time.After(5 * time.Second):
			expired <- nil
		}
	})

	select {
	case err := <-expired:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(2 * time.Second):
		t.Fatal("task deadline was not applied")
	}

	pool.Shutdown(time.Second)
}

func TestPoolShutdownCancelsContext(t *testing.T) {
	pool := worker.NewPool(logger.NewNop())

	started := make(chan struct{})
	pool.Submit("blocker", func(ctx context.Context) {
		close(started)
		<-ctx.Done()
	})
	<-started

	assert.True(t, pool.Shutdown(time.Second))
	assert.Error(t, pool.Context().Err())
}

func TestPoolShutdownTimeout(t *testing.T) {
	pool := worker.NewPool(logger.NewNop())

	release := make(chan struct{})
	defer close(release)

	started := make(chan struct{})
	pool.Submit("stubborn", func(ctx context.Context) {
		close(started)
		<-release
	})
	<-started

	assert.False(t, pool.Shutdown(50*time.Millisecond))
}

func TestPoolRejectsAfterShutdown(t *testing.T) {
	pool := worker.NewPool(logger.NewNop())
	require.True(t, pool.Shutdown(time.Second))
	assert.True(t, pool.Shutdown(time.Second), "second shutdown is a no-op")

	var ran int32
	assert.False(t, pool.Submit("late", func(ctx context.Context) {
		atomic.AddInt32(&ran, 1)
	}))
	assert.False(t, pool.SubmitWithTimeout("late", time.Second, func(ctx context.Context) {
		atomic.AddInt32(&ran, 1)
	}))
	assert.Zero(t, atomic.LoadInt32(&ran))
}

func TestPoolRecoversPanics(t *testing.T) {
	pool := worker.NewPool(logger.NewNop())

	pool.Submit("boom", func(ctx context.Context) {
		panic("boom")
	})

	var after int32
	pool.Submit("after", func(ctx context.Context) {
		atomic.AddInt32(&after, 1)
	})

	assert.True(t, pool.Shutdown(time.Second))
	assert.Equal(t, int32(1), atomic.LoadInt32(&after))
}

func TestPoolEvery(t *testing.T) {
	pool := worker.NewPool(logger.NewNop())

	var ticks int32
	reached := make(chan struct{})
	pool.Every("tick", 5*time.Millisecond, func(ctx context.Context) {
		if atomic.AddInt32(&ticks, 1) == 3 {
			close(reached)
		}
		if atomic.LoadInt32(&ticks) == 1 {
			panic("first run fails")
		}
	})

	select {
	case <-reached:
	case <-time.After(2 * time.Second):
		t.Fatal("periodic task did not keep running")
	}

	assert.True(t, pool.Shutdown(time.Second))
}
