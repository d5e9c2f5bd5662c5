package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/joshdurbin/linkpulse/internal/domain"
	"github.com/joshdurbin/linkpulse/internal/metrics"
)

// jobTimeout bounds a single handler call
const jobTimeout = 10 * time.Second

// ErrAlreadyStarted is returned when Start is called twice
var ErrAlreadyStarted = errors.New("queue already started")

// ChannelQueue is an in-process bounded queue drained by a fixed worker pool
type ChannelQueue struct {
	jobs    chan domain.ClickJob
	workers int
	metrics *metrics.Metrics
	logger  zerolog.Logger

	mutex   sync.RWMutex
	closed  bool
	started bool
	wg      sync.WaitGroup
}

// NewChannelQueue creates a queue holding up to size jobs for workers goroutines
func NewChannelQueue(size, workers int, m *metrics.Metrics, logger zerolog.Logger) *ChannelQueue {
	if size <= 0 {
		size = DefaultConfig().QueueSize
	}
	if workers <= 0 {
		workers = DefaultConfig().Workers
	}

	return &ChannelQueue{
		jobs:    make(chan domain.ClickJob, size),
		workers: workers,
		metrics: m,
		logger:  logger.With().Str("component", "click_queue").Logger(),
	}
}

// Enqueue adds job if there is room; a full or closed queue drops it
func (q *ChannelQueue) Enqueue(_ context.Context, job domain.ClickJob) bool {
	q.mutex.RLock()
	defer q.mutex.RUnlock()

	if q.closed {
		q.drop(job, "queue closed")
		return false
	}

	select {
	case q.jobs <- job:
		q.metrics.ClicksEnqueued.Inc()
		return true
	default:
		q.drop(job, "queue full")
		return false
	}
}

// Start launches the worker pool. Handlers keep ctx values but not its cancellation.
func (q *ChannelQueue) Start(ctx context.Context, handler Handler) error {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	if q.started {
		return ErrAlreadyStarted
	}
	q.started = true

	base := context.WithoutCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.work(base, i, handler)
	}

	q.logger.Debug().Int("workers", q.workers).Int("capacity", cap(q.jobs)).Msg("click workers started")
	return nil
}

// Close stops intake and waits for buffered jobs to finish
func (q *ChannelQueue) Close(ctx context.Context) error {
	q.mutex.Lock()
	if q.closed {
		q.mutex.Unlock()
		return nil
	}
	q.closed = true
	close(q.jobs)
	started := q.started
	q.mutex.Unlock()

	if !started {
		if n := len(q.jobs); n > 0 {
			q.logger.Warn().Int("jobs", n).Msg("click queue closed before start, discarding jobs")
			q.metrics.ClicksDropped.Add(float64(n))
		}
		return nil
	}

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to drain click queue: %w", ctx.Err())
	}
}

// Len returns the number of buffered jobs
func (q *ChannelQueue) Len() int {
	return len(q.jobs)
}

func (q *ChannelQueue) work(ctx context.Context, id int, handler Handler) {
	defer q.wg.Done()

	for job := range q.jobs {
		jobCtx, cancel := context.WithTimeout(ctx, jobTimeout)
		if err := handler(jobCtx, job); err != nil {
			q.logger.Error().Err(err).Int("worker", id).Int64("short_url_id", job.ShortURLID).Msg("click job failed")
		}
		cancel()
	}
}

func (q *ChannelQueue) drop(job domain.ClickJob, reason string) {
	q.metrics.ClicksDropped.Inc()
	q.logger.Warn().Str("reason", reason).Int64("short_url_id", job.ShortURLID).Msg("click job dropped")
}

var _ Queue = (*ChannelQueue)(nil)
