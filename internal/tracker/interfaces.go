// Package tracker moves click enrichment and persistence off the redirect path.
// A Queue accepts ClickJobs without blocking and hands them to a Handler,
// usually a Processor, on background workers or a NATS JetStream consumer.
package tracker

import (
	"context"
	"time"

	"github.com/joshdurbin/linkpulse/internal/domain"
)

// Handler processes one click job
type Handler func(ctx context.Context, job domain.ClickJob) error

// Queue is the boundary between the redirect path and click processing
type Queue interface {
	// Enqueue hands job off without blocking. It returns false when the job was dropped.
	Enqueue(ctx context.Context, job domain.ClickJob) bool

	// Start begins delivering jobs to handler
	Start(ctx context.Context, handler Handler) error

	// Close stops intake and drains in-flight jobs until ctx is done
	Close(ctx context.Context) error
}

const (
	BackendChannel = "channel"
	BackendNATS    = "nats"
)

// Config holds click tracker configuration
type Config struct {
	Backend   string     `yaml:"backend"`
	Workers   int        `yaml:"workers"`
	QueueSize int        `yaml:"queue_size" split_words:"true"`
	NATS      NATSConfig `yaml:"nats"`
}

// NATSConfig holds JetStream settings for the NATS queue
type NATSConfig struct {
	URL        string        `yaml:"url"`
	Stream     string        `yaml:"stream"`
	Subject    string        `yaml:"subject"`
	Durable    string        `yaml:"durable"`
	MaxAge     time.Duration `yaml:"max_age" split_words:"true"`
	MaxPending int           `yaml:"max_pending" split_words:"true"`
}

// DefaultConfig returns an in-process queue with four workers
func DefaultConfig() Config {
	return Config{
		Backend:   BackendChannel,
		Workers:   4,
		QueueSize: 1024,
		NATS: NATSConfig{
			URL:        "nats://localhost:4222",
			Stream:     "CLICKS",
			Subject:    "clicks.recorded",
			Durable:    "click-trackers",
			MaxAge:     7 * 24 * time.Hour,
			MaxPending: 1024,
		},
	}
}
