package cache

import (
	"log/slog"

	"github.com/krisalay/session-cache/expiration"
	"github.com/krisalay/session-cache/types"
)

// Option configures a SessionCache using the functional options pattern.
type Option[V any] func(*options[V])

type options[V any] struct {
	shards    int
	scheduler expiration.Scheduler
	metrics   types.Metrics
	logger    *slog.Logger

	listener    types.RemovalListener[V]
	asyncBuffer int // 0 => listener runs synchronously
}

// WithShards sets the number of shards (rounded up to a power of two).
// Values <= 0 are ignored.
func WithShards[V any](n int) Option[V] {
	return func(o *options[V]) {
		if n > 0 {
			o.shards = n
		}
	}
}

// WithScheduler replaces the runtime-timer scheduler, e.g. with an
// expiration.ManualScheduler in tests.
func WithScheduler[V any](s expiration.Scheduler) Option[V] {
	return func(o *options[V]) {
		o.scheduler = s
	}
}

// WithMetrics reports cache activity to m (see package metrics for Prometheus).
func WithMetrics[V any](m types.Metrics) Option[V] {
	return func(o *options[V]) {
		o.metrics = m
	}
}

// WithLogger sets the logger used for scheduling traces and warnings.
func WithLogger[V any](l *slog.Logger) Option[V] {
	return func(o *options[V]) {
		o.logger = l
	}
}

// WithRemovalListener calls fn inline whenever an entry leaves the cache.
func WithRemovalListener[V any](fn types.RemovalListener[V]) Option[V] {
	return func(o *options[V]) {
		o.listener = fn
		o.asyncBuffer = 0
	}
}

// WithAsyncRemovalListener delivers removal events to fn from a background
// worker with a queue of buffer events; events are dropped when it is full.
func WithAsyncRemovalListener[V any](fn types.RemovalListener[V], buffer int) Option[V] {
	return func(o *options[V]) {
		o.listener = fn
		if buffer <= 0 {
			buffer = 1
		}
		o.asyncBuffer = buffer
	}
}

func applyOptions[V any](opts ...Option[V]) *options[V] {
	o := &options[V]{shards: DefaultShards}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}
