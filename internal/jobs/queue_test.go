package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testQueue(workers int) *Queue {
	return NewQueue(Config{
		Workers:     workers,
		QueueSize:   64,
		MaxAttempts: 3,
		BaseBackoff: time.Millisecond,
	}, zap.NewNop())
}

func TestQueueRunsJob(t *testing.T) {
	q := testQueue(2)

	done := make(chan Job, 1)
	q.Register(TypeSendBookingEmail, func(ctx context.Context, job Job) error {
		done <- job
		return nil
	})

	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(context.Background(), TypeSendBookingEmail, "k", map[string]any{"x": 1}))

	select {
	case job := <-done:
		assert.Equal(t, TypeSendBookingEmail, job.Type)
		assert.Equal(t, "k", job.Key)
		assert.Equal(t, 1, job.Attempt)
	case <-time.After(2 * time.Second):
		t.Fatal("job never ran")
	}
}

func TestQueueRetriesUntilSuccess(t *testing.T) {
	q := testQueue(1)

	var mu sync.Mutex
	attempts := 0
	done := make(chan struct{})
	q.Register(TypeReconcilePayment, func(ctx context.Context, job Job) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		close(done)
		return nil
	})

	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(context.Background(), TypeReconcilePayment, "p1", nil))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job never succeeded")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, attempts)
}

func TestQueueAbandonsAfterMaxAttempts(t *testing.T) {
	q := testQueue(1)

	var mu sync.Mutex
	attempts := 0
	q.Register(TypeSendPaymentEmail, func(ctx context.Context, job Job) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		return errors.New("permanent")
	})

	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(context.Background(), TypeSendPaymentEmail, "p1", nil))

	// Then a second job on the same key still runs after the first dead-letters.
	ran := make(chan struct{})
	q.Register(TypeSendRefundEmail, func(ctx context.Context, job Job) error {
		close(ran)
		return nil
	})
	require.NoError(t, q.Enqueue(context.Background(), TypeSendRefundEmail, "p1", nil))

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("queue stalled after dead letter")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, attempts)
}

func TestQueueSameKeyOrdering(t *testing.T) {
	q := testQueue(4)

	var mu sync.Mutex
	var order []int
	done := make(chan struct{})
	q.Register(TypeSendBookingEmail, func(ctx context.Context, job Job) error {
		mu.Lock()
		defer mu.Unlock()
		n := job.Payload["n"].(int)
		order = append(order, n)
		if len(order) == 10 {
			close(done)
		}
		return nil
	})

	q.Start(context.Background())
	defer q.Stop()

	for i := 0; i < 10; i++ {
		require.NoError(t, q.Enqueue(context.Background(), TypeSendBookingEmail, "same-key", map[string]any{"n": i}))
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("jobs never finished")
	}

	mu.Lock()
	defer mu.Unlock()
	for i, n := range order {
		assert.Equal(t, i, n, "same-key jobs ran out of order")
	}
}

func TestQueueFullReturnsError(t *testing.T) {
	q := NewQueue(Config{Workers: 1, QueueSize: 1, MaxAttempts: 1, BaseBackoff: time.Millisecond}, zap.NewNop())
	// Not started: the channel fills up.

	require.NoError(t, q.Enqueue(context.Background(), TypeSendBookingEmail, "k", nil))
	err := q.Enqueue(context.Background(), TypeSendBookingEmail, "k", nil)
	assert.Error(t, err)
}

func TestQueueUnknownTypeDoesNotBlock(t *testing.T) {
	q := testQueue(1)
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(context.Background(), Type("UNKNOWN"), "k", nil))

	ran := make(chan struct{})
	q.Register(TypeSendBookingEmail, func(ctx context.Context, job Job) error {
		close(ran)
		return nil
	})
	require.NoError(t, q.Enqueue(context.Background(), TypeSendBookingEmail, "k", nil))

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("worker stuck on unknown job type")
	}
}
