// Package metrics exposes cache activity as Prometheus metrics.
package metrics

import (
	"github.com/krisalay/session-cache/types"
	"github.com/prometheus/client_golang/prometheus"
)

var _ types.Metrics = (*Prometheus)(nil)

// Prometheus implements types.Metrics with Prometheus counters.
type Prometheus struct {
	hits        prometheus.Counter
	misses      prometheus.Counter
	sets        prometheus.Counter
	removals    prometheus.Counter
	expirations prometheus.Counter
}

// NewPrometheus creates the counters, labelled with the cache name, and
// registers them on reg. Two caches sharing a registry need distinct names.
func NewPrometheus(reg prometheus.Registerer, name string) (*Prometheus, error) {
	labels := prometheus.Labels{"cache": name}
	counter := func(metric, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "sessioncache",
			Name:        metric,
			Help:        help,
			ConstLabels: labels,
		})
	}

	m := &Prometheus{
		hits:        counter("hits_total", "Total number of lookups that found a live value"),
		misses:      counter("misses_total", "Total number of lookups that found nothing"),
		sets:        counter("sets_total", "Total number of successful AddOrUpdate calls"),
		removals:    counter("removals_total", "Total number of entries removed explicitly or by a clear"),
		expirations: counter("expirations_total", "Total number of entries removed after their TTL"),
	}

	for _, c := range []prometheus.Collector{m.hits, m.misses, m.sets, m.removals, m.expirations} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Prometheus) Hit()    { m.hits.Inc() }
func (m *Prometheus) Miss()   { m.misses.Inc() }
func (m *Prometheus) Set()    { m.sets.Inc() }
func (m *Prometheus) Remove() { m.removals.Inc() }
func (m *Prometheus) Expire() { m.expirations.Inc() }

// RegisterSize exposes a live entry-count gauge computed by count at scrape time.
func RegisterSize(reg prometheus.Registerer, name string, count func() int) error {
	return reg.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   "sessioncache",
		Name:        "entries",
		Help:        "Current number of entries in the cache",
		ConstLabels: prometheus.Labels{"cache": name},
	}, func() float64 { return float64(count()) }))
}
