// Package metrics holds the Prometheus collectors shared by the lookup cache,
// the resolver and the click tracker.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "linkpulse"

// Metrics groups every collector the service exports
type Metrics struct {
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
	CacheErrors *prometheus.CounterVec

	Resolves *prometheus.CounterVec

	ClicksEnqueued  prometheus.Counter
	ClicksDropped   prometheus.Counter
	ClicksProcessed *prometheus.CounterVec
}

// New registers all collectors on reg
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		CacheHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Lookup cache hits.",
		}),
		CacheMisses: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Lookup cache misses, including backend failures.",
		}),
		CacheErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "errors_total",
			Help:      "Lookup cache backend failures by operation.",
		}, []string{"op"}),
		Resolves: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolve_total",
			Help:      "Slug resolutions by result and source.",
		}, []string{"result", "source"}),
		ClicksEnqueued: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "clicks",
			Name:      "enqueued_total",
			Help:      "Click jobs accepted by the tracker queue.",
		}),
		ClicksDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "clicks",
			Name:      "dropped_total",
			Help:      "Click jobs dropped because the queue was full or unreachable.",
		}),
		ClicksProcessed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "clicks",
			Name:      "processed_total",
			Help:      "Click jobs handled by the tracker by outcome.",
		}, []string{"outcome"}),
	}
}

// NewNop returns collectors registered on a throwaway registry
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
