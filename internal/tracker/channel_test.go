package tracker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshdurbin/linkpulse/internal/domain"
	"github.com/joshdurbin/linkpulse/internal/metrics"
)

func TestNewChannelQueue_Defaults(t *testing.T) {
	q := NewChannelQueue(0, 0, metrics.NewNop(), zerolog.Nop())
	assert.Equal(t, 1024, cap(q.jobs))
	assert.Equal(t, 4, q.workers)
}

func TestChannelQueue_ProcessesJobs(t *testing.T) {
	m := metrics.NewNop()
	q := NewChannelQueue(16, 2, m, zerolog.Nop())

	var mu sync.Mutex
	var seen []int64
	require.NoError(t, q.Start(context.Background(), func(_ context.Context, job domain.ClickJob) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, job.ShortURLID)
		return nil
	}))

	for i := int64(1); i <= 10; i++ {
		assert.True(t, q.Enqueue(context.Background(), domain.ClickJob{ShortURLID: i}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, q.Close(ctx))

	mu.Lock()
	assert.Len(t, seen, 10)
	mu.Unlock()
	assert.Equal(t, 10.0, testutil.ToFloat64(m.ClicksEnqueued))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ClicksDropped))
}

func TestChannelQueue_DropsWhenFull(t *testing.T) {
	m := metrics.NewNop()
	q := NewChannelQueue(2, 1, m, zerolog.Nop())

	// not started, so nothing drains the buffer
	assert.True(t, q.Enqueue(context.Background(), domain.ClickJob{ShortURLID: 1}))
	assert.True(t, q.Enqueue(context.Background(), domain.ClickJob{ShortURLID: 2}))
	assert.False(t, q.Enqueue(context.Background(), domain.ClickJob{ShortURLID: 3}))

	assert.Equal(t, 2, q.Len())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ClicksEnqueued))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ClicksDropped))
}

func TestChannelQueue_EnqueueNeverBlocks(t *testing.T) {
	q := NewChannelQueue(1, 1, metrics.NewNop(), zerolog.Nop())

	release := make(chan struct{})
	require.NoError(t, q.Start(context.Background(), func(context.Context, domain.ClickJob) error {
		<-release
		return nil
	}))

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			q.Enqueue(context.Background(), domain.ClickJob{ShortURLID: int64(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Enqueue blocked on a saturated queue")
	}

	close(release)
	require.NoError(t, q.Close(context.Background()))
}

func TestChannelQueue_CloseDrainsBufferedJobs(t *testing.T) {
	q := NewChannelQueue(8, 1, metrics.NewNop(), zerolog.Nop())

	var processed atomic.Int32
	require.NoError(t, q.Start(context.Background(), func(context.Context, domain.ClickJob) error {
		time.Sleep(5 * time.Millisecond)
		processed.Add(1)
		return nil
	}))

	for i := 0; i < 5; i++ {
		require.True(t, q.Enqueue(context.Background(), domain.ClickJob{ShortURLID: int64(i)}))
	}

	require.NoError(t, q.Close(context.Background()))
	assert.Equal(t, int32(5), processed.Load())

	// closed queues reject work
	assert.False(t, q.Enqueue(context.Background(), domain.ClickJob{ShortURLID: 99}))
	assert.NoError(t, q.Close(context.Background()))
}

func TestChannelQueue_CloseDeadline(t *testing.T) {
	q := NewChannelQueue(4, 1, metrics.NewNop(), zerolog.Nop())

	release := make(chan struct{})
	defer close(release)
	require.NoError(t, q.Start(context.Background(), func(context.Context, domain.ClickJob) error {
		<-release
		return nil
	}))
	require.True(t, q.Enqueue(context.Background(), domain.ClickJob{ShortURLID: 1}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := q.Close(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestChannelQueue_HandlerSurvivesStartCancel(t *testing.T) {
	q := NewChannelQueue(4, 1, metrics.NewNop(), zerolog.Nop())

	startCtx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	require.NoError(t, q.Start(startCtx, func(ctx context.Context, _ domain.ClickJob) error {
		errs <- ctx.Err()
		return nil
	}))
	cancel()

	require.True(t, q.Enqueue(context.Background(), domain.ClickJob{ShortURLID: 1}))
	require.NoError(t, q.Close(context.Background()))

	assert.NoError(t, <-errs)
}

func TestChannelQueue_HandlerErrorsDoNotStopWorkers(t *testing.T) {
	q := NewChannelQueue(8, 1, metrics.NewNop(), zerolog.Nop())

	var calls atomic.Int32
	require.NoError(t, q.Start(context.Background(), func(context.Context, domain.ClickJob) error {
		calls.Add(1)
		return errors.New("boom")
	}))

	for i := 0; i < 3; i++ {
		q.Enqueue(context.Background(), domain.ClickJob{ShortURLID: int64(i)})
	}
	require.NoError(t, q.Close(context.Background()))
	assert.Equal(t, int32(3), calls.Load())
}

func TestChannelQueue_StartTwice(t *testing.T) {
	q := NewChannelQueue(1, 1, metrics.NewNop(), zerolog.Nop())
	noop := func(context.Context, domain.ClickJob) error { return nil }

	require.NoError(t, q.Start(context.Background(), noop))
	assert.ErrorIs(t, q.Start(context.Background(), noop), ErrAlreadyStarted)
	require.NoError(t, q.Close(context.Background()))
}

func TestChannelQueue_CloseBeforeStartCountsDiscarded(t *testing.T) {
	m := metrics.NewNop()
	q := NewChannelQueue(4, 1, m, zerolog.Nop())

	q.Enqueue(context.Background(), domain.ClickJob{ShortURLID: 1})
	q.Enqueue(context.Background(), domain.ClickJob{ShortURLID: 2})

	require.NoError(t, q.Close(context.Background()))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ClicksDropped))
}
