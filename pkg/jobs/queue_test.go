package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueDispatchesByType(t *testing.T) {
	q := NewQueue("test", QueueConfig{Workers: 2})
	done := make(chan string, 2)
	q.Handle("a", func(ctx context.Context, job Job) error {
		done <- "a:" + job.ID
		return nil
	})
	q.Handle("b", func(ctx context.Context, job Job) error {
		done <- "b:" + job.ID
		return nil
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "1", Type: "a"}))
	require.NoError(t, q.Enqueue(Job{ID: "2", Type: "b"}))

	got := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case v := <-done:
			got[v] = true
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for job")
		}
	}
	assert.True(t, got["a:1"])
	assert.True(t, got["b:2"])
}

func TestQueueRejectsUnknownTypeAndStopped(t *testing.T) {
	q := NewQueue("test", QueueConfig{})
	q.Handle("known", func(ctx context.Context, job Job) error { return nil })

	err := q.Enqueue(Job{Type: "known"})
	require.Error(t, err, "not started")

	q.Start(context.Background())
	err = q.Enqueue(Job{Type: "unknown"})
	require.ErrorIs(t, err, ErrNoHandler)
	q.Stop()

	require.Error(t, q.Enqueue(Job{Type: "known"}))
}

func TestQueueStopFinishesBufferedJobs(t *testing.T) {
	var handled int32
	started := make(chan struct{})
	release := make(chan struct{})
	q := NewQueue("test", QueueConfig{Workers: 1, BufferSize: 8})
	q.Handle("notify", func(ctx context.Context, job Job) error {
		if job.ID == "first" {
			close(started)
			<-release
		}
		atomic.AddInt32(&handled, 1)
		return ctx.Err()
	})
	q.Start(context.Background())

	require.NoError(t, q.Enqueue(Job{ID: "first", Type: "notify"}))
	<-started
	for _, id := range []string{"2", "3", "4"} {
		require.NoError(t, q.Enqueue(Job{ID: id, Type: "notify"}))
	}

	stopped := make(chan struct{})
	go func() {
		q.Stop()
		close(stopped)
	}()
	require.Eventually(t, func() bool {
		q.mu.RLock()
		defer q.mu.RUnlock()
		return !q.started
	}, time.Second, time.Millisecond)
	require.Error(t, q.Enqueue(Job{Type: "notify"}), "stopping queues refuse new work")
	close(release)

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("stop never returned")
	}
	assert.Equal(t, int32(4), atomic.LoadInt32(&handled))
	assert.Zero(t, q.Pending())
}

func TestQueueRetriesThenDeadLetters(t *testing.T) {
	var calls int32
	dead := make(chan Job, 1)
	q := NewQueue("test", QueueConfig{
		MaxRetries: 2,
		RetryDelay: 5 * time.Millisecond,
		DeadLetter: func(job Job, err error) { dead <- job },
	})
	q.Handle("flaky", func(ctx context.Context, job Job) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("boom")
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "x", Type: "flaky"}))
	select {
	case job := <-dead:
		assert.Equal(t, 3, job.Attempt)
	case <-time.After(2 * time.Second):
		t.Fatal("job never dead-lettered")
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestQueueJobTimeoutAndPanic(t *testing.T) {
	dead := make(chan error, 2)
	q := NewQueue("test", QueueConfig{
		JobTimeout: 10 * time.Millisecond,
		DeadLetter: func(job Job, err error) { dead <- err },
	})
	q.Handle("slow", func(ctx context.Context, job Job) error {
		<-ctx.Done()
		return ctx.Err()
	})
	q.Handle("panic", func(ctx context.Context, job Job) error {
		panic("bad payload")
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{Type: "slow"}))
	require.NoError(t, q.Enqueue(Job{Type: "panic"}))

	var errs []error
	for i := 0; i < 2; i++ {
		select {
		case err := <-dead:
			errs = append(errs, err)
		case <-time.After(time.Second):
			t.Fatal("timed out")
		}
	}
	var sawTimeout, sawPanic bool
	for _, err := range errs {
		if errors.Is(err, context.DeadlineExceeded) {
			sawTimeout = true
		}
		if err != nil && err.Error() == "job panicked: bad payload" {
			sawPanic = true
		}
	}
	assert.True(t, sawTimeout)
	assert.True(t, sawPanic)
}
