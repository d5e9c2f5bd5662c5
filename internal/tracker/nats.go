package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/joshdurbin/linkpulse/internal/domain"
	"github.com/joshdurbin/linkpulse/internal/metrics"
)

const (
	natsAckWait    = 30 * time.Second
	natsMaxDeliver = 5

	// bounds the wait inside PublishAsync when the ack window is full
	natsPublishStall = time.Millisecond
)

// ErrPublishWindowFull is returned when too many publishes await acknowledgement
var ErrPublishWindowFull = errors.New("publish window full")

// asyncPublisher is the part of nats.JetStreamContext used by Enqueue
type asyncPublisher interface {
	PublishAsync(subj string, data []byte, opts ...nats.PubOpt) (nats.PubAckFuture, error)
	PublishAsyncPending() int
}

// NATSQueue publishes click jobs to a JetStream stream and consumes them
// through a durable queue group, so several instances share the work.
type NATSQueue struct {
	conn    *nats.Conn
	js      nats.JetStreamContext
	pub     asyncPublisher
	cfg     NATSConfig
	metrics *metrics.Metrics
	logger  zerolog.Logger

	closed chan struct{}

	mutex sync.Mutex
	sub   *nats.Subscription
}

// NewNATSQueue connects to NATS and ensures the stream exists
func NewNATSQueue(cfg NATSConfig, m *metrics.Metrics, logger zerolog.Logger) (*NATSQueue, error) {
	defaults := DefaultConfig().NATS
	if cfg.Stream == "" {
		cfg.Stream = defaults.Stream
	}
	if cfg.Subject == "" {
		cfg.Subject = defaults.Subject
	}
	if cfg.Durable == "" {
		cfg.Durable = defaults.Durable
	}
	if cfg.MaxPending <= 0 {
		cfg.MaxPending = defaults.MaxPending
	}

	q := &NATSQueue{
		cfg:     cfg,
		metrics: m,
		logger:  logger.With().Str("component", "click_queue").Str("backend", BackendNATS).Logger(),
		closed:  make(chan struct{}),
	}

	conn, err := nats.Connect(cfg.URL,
		nats.Name("linkpulse"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.PingInterval(20*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				q.logger.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			q.logger.Info().Str("url", c.ConnectedUrl()).Msg("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			close(q.closed)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats at %s: %w", cfg.URL, err)
	}

	js, err := conn.JetStream(
		nats.PublishAsyncMaxPending(cfg.MaxPending),
		nats.PublishAsyncErrHandler(func(_ nats.JetStream, msg *nats.Msg, err error) {
			m.ClicksDropped.Inc()
			q.logger.Warn().Err(err).Str("subject", msg.Subject).Msg("click job publish failed")
		}),
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create jetstream context: %w", err)
	}

	q.conn = conn
	q.js = js
	q.pub = js

	if err := q.ensureStream(); err != nil {
		conn.Close()
		return nil, err
	}

	return q, nil
}

func (q *NATSQueue) ensureStream() error {
	_, err := q.js.StreamInfo(q.cfg.Stream)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("failed to get stream %s: %w", q.cfg.Stream, err)
	}

	_, err = q.js.AddStream(&nats.StreamConfig{
		Name:     q.cfg.Stream,
		Subjects: []string{q.cfg.Subject},
		Storage:  nats.FileStorage,
		MaxAge:   q.cfg.MaxAge,
		Replicas: 1,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream %s: %w", q.cfg.Stream, err)
	}

	q.logger.Info().Str("stream", q.cfg.Stream).Str("subject", q.cfg.Subject).Msg("created click stream")
	return nil
}

// Enqueue publishes job asynchronously. A full ack window or any publish
// error drops the job.
func (q *NATSQueue) Enqueue(_ context.Context, job domain.ClickJob) bool {
	if q.pub.PublishAsyncPending() >= q.cfg.MaxPending {
		q.drop(job, ErrPublishWindowFull)
		return false
	}

	data, err := json.Marshal(job)
	if err != nil {
		q.drop(job, err)
		return false
	}

	_, err = q.pub.PublishAsync(q.cfg.Subject, data,
		nats.MsgId(uuid.NewString()),
		nats.StallWait(natsPublishStall),
	)
	if err != nil {
		q.drop(job, err)
		return false
	}

	q.metrics.ClicksEnqueued.Inc()
	return true
}

// Start subscribes the durable queue group and delivers messages to handler
func (q *NATSQueue) Start(ctx context.Context, handler Handler) error {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	if q.sub != nil {
		return ErrAlreadyStarted
	}

	base := context.WithoutCancel(ctx)
	sub, err := q.js.QueueSubscribe(q.cfg.Subject, q.cfg.Durable, func(msg *nats.Msg) {
		q.handle(base, handler, msg)
	},
		nats.Durable(q.cfg.Durable),
		nats.ManualAck(),
		nats.AckWait(natsAckWait),
		nats.MaxDeliver(natsMaxDeliver),
		nats.DeliverAll(),
	)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", q.cfg.Subject, err)
	}
	q.sub = sub

	q.logger.Debug().Str("subject", q.cfg.Subject).Str("durable", q.cfg.Durable).Msg("click consumer started")
	return nil
}

func (q *NATSQueue) handle(ctx context.Context, handler Handler, msg *nats.Msg) {
	var job domain.ClickJob
	if err := json.Unmarshal(msg.Data, &job); err != nil {
		q.logger.Error().Err(err).Msg("invalid click job payload, terminating")
		_ = msg.Term()
		return
	}

	jobCtx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	if err := handler(jobCtx, job); err != nil {
		q.logger.Error().Err(err).Int64("short_url_id", job.ShortURLID).Msg("click job failed, requesting redelivery")
		_ = msg.Nak()
		return
	}

	if err := msg.Ack(); err != nil {
		q.logger.Warn().Err(err).Int64("short_url_id", job.ShortURLID).Msg("failed to ack click job")
	}
}

// Close waits for pending publishes, then drains the subscription and connection
func (q *NATSQueue) Close(ctx context.Context) error {
	select {
	case <-q.js.PublishAsyncComplete():
	case <-ctx.Done():
		q.logger.Warn().Msg("pending click publishes not acknowledged before shutdown")
	}

	if err := q.conn.Drain(); err != nil {
		q.conn.Close()
		return fmt.Errorf("failed to drain nats connection: %w", err)
	}

	select {
	case <-q.closed:
		return nil
	case <-ctx.Done():
		q.conn.Close()
		return fmt.Errorf("failed to drain nats connection: %w", ctx.Err())
	}
}

func (q *NATSQueue) drop(job domain.ClickJob, err error) {
	q.metrics.ClicksDropped.Inc()
	q.logger.Warn().Err(err).Int64("short_url_id", job.ShortURLID).Msg("click job dropped")
}

var _ Queue = (*NATSQueue)(nil)
