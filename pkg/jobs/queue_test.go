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

func TestQueueRetriesUntilSuccess(t *testing.T) {
	var calls int32
	done := make(chan string, 1)
	q := NewQueue[string]("test", func(ctx context.Context, job Job[string]) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("transient")
		}
		done <- job.Payload
		return nil
	}, QueueConfig{MaxRetries: 5, RetryDelay: time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job[string]{ID: "stu-1", Payload: "slip"}))

	select {
	case payload := <-done:
		assert.Equal(t, "slip", payload)
	case <-time.After(2 * time.Second):
		t.Fatal("job never succeeded")
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Eventually(t, func() bool { return q.Pending() == 0 }, time.Second, 5*time.Millisecond)
}

func TestQueueDropsAfterMaxRetries(t *testing.T) {
	dropped := make(chan string, 1)
	q := NewQueue[int]("test", func(ctx context.Context, job Job[int]) error {
		return errors.New("permanent")
	}, QueueConfig{MaxRetries: 1, RetryDelay: time.Millisecond, OnDrop: func(id string, err error) { dropped <- id }})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job[int]{ID: "job-7", Payload: 7}))

	select {
	case id := <-dropped:
		assert.Equal(t, "job-7", id)
	case <-time.After(2 * time.Second):
		t.Fatal("job was not dropped")
	}
	assert.Equal(t, 0, q.Pending())
}

func TestQueueRejectsDuplicatePendingJob(t *testing.T) {
	release := make(chan struct{})
	q := NewQueue[string]("test", func(ctx context.Context, job Job[string]) error {
		<-release
		return nil
	}, QueueConfig{})
	q.Start(context.Background())
	defer q.Stop()
	defer close(release)

	require.NoError(t, q.Enqueue(Job[string]{ID: "stu-1"}))
	assert.ErrorIs(t, q.Enqueue(Job[string]{ID: "stu-1"}), ErrDuplicate)
	assert.NoError(t, q.Enqueue(Job[string]{ID: "stu-2"}))
}

func TestQueueEnqueueWhenStopped(t *testing.T) {
	q := NewQueue[int]("test", func(ctx context.Context, job Job[int]) error { return nil }, QueueConfig{})
	assert.ErrorIs(t, q.Enqueue(Job[int]{ID: "x"}), ErrNotRunning)

	q.Start(context.Background())
	q.Stop()
	assert.ErrorIs(t, q.Enqueue(Job[int]{ID: "x"}), ErrNotRunning)
}

func TestBackoffDoublesUpToCap(t *testing.T) {
	q := NewQueue[int]("test", nil, QueueConfig{RetryDelay: time.Second, MaxDelay: 5 * time.Second})
	assert.Equal(t, time.Second, q.backoff(1))
	assert.Equal(t, 2*time.Second, q.backoff(2))
	assert.Equal(t, 4*time.Second, q.backoff(3))
	assert.Equal(t, 5*time.Second, q.backoff(4))
}
