// Package prom exports block cache counters to Prometheus.
package prom

import (
	"github.com/IvanBrykalov/bcache/bcache"
	"github.com/prometheus/client_golang/prometheus"
)

// Adapter implements bcache.Metrics and exports Prometheus counters.
// Safe for concurrent use; all Prometheus metric types are goroutine-safe.
type Adapter struct {
	hits      *prometheus.CounterVec
	misses    prometheus.Counter
	evicts    prometheus.Counter
	transfers *prometheus.CounterVec
}

// New constructs a Prometheus metrics adapter.
//   - reg:          registry to register metrics with (nil => prometheus.DefaultRegisterer)
//   - ns, sub:      Prometheus namespace and subsystem
//   - constLabels:  static labels applied to all metrics (may be nil)
func New(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *Adapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	a := &Adapter{
		hits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   sub,
				Name:        "hits_total",
				Help:        "Block lookups satisfied by a cached slot, by lookup path",
				ConstLabels: constLabels,
			},
			[]string{"path"},
		),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "misses_total",
			Help:        "Block lookups that reassigned a slot",
			ConstLabels: constLabels,
		}),
		evicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "evictions_total",
			Help:        "Misses that displaced a previously cached block",
			ConstLabels: constLabels,
		}),
		transfers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   sub,
				Name:        "transfers_total",
				Help:        "Device transfers by direction",
				ConstLabels: constLabels,
			},
			[]string{"op"},
		),
	}
	reg.MustRegister(a.hits, a.misses, a.evicts, a.transfers)
	return a
}

// Hit increments the hit counter for the lookup path.
func (a *Adapter) Hit(p bcache.Path) { a.hits.WithLabelValues(p.String()).Inc() }

// Miss increments the miss counter.
func (a *Adapter) Miss() { a.misses.Inc() }

// Evict increments the eviction counter.
func (a *Adapter) Evict() { a.evicts.Inc() }

// Transfer increments the device transfer counter for op.
func (a *Adapter) Transfer(op bcache.Op) { a.transfers.WithLabelValues(op.String()).Inc() }

// Compile-time check: ensure Adapter implements bcache.Metrics.
var _ bcache.Metrics = (*Adapter)(nil)
