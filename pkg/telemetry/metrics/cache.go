package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CoalesceStats is implemented by coalesce.Cache.
type CoalesceStats interface {
	Len() int
	Stats() (created, coalesced int64)
}

// AdmissionStats is implemented by admission.Guard.
type AdmissionStats interface {
	InFlight() int
	Denied() int64
}

// WatchCoalescer exports the state of a coalescing cache under name. Values
// are read at scrape time.
func (c *Collector) WatchCoalescer(name string, cache CoalesceStats) {
	labels := prometheus.Labels{"cache": name}
	c.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   c.config.Namespace,
			Subsystem:   "coalesce",
			Name:        "in_flight",
			Help:        "Number of coalesced calls currently in flight",
			ConstLabels: labels,
		}, func() float64 { return float64(cache.Len()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   c.config.Namespace,
			Subsystem:   "coalesce",
			Name:        "calls_total",
			Help:        "Total number of calls started",
			ConstLabels: labels,
		}, func() float64 { created, _ := cache.Stats(); return float64(created) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   c.config.Namespace,
			Subsystem:   "coalesce",
			Name:        "joined_total",
			Help:        "Total number of requests that joined a call already in flight",
			ConstLabels: labels,
		}, func() float64 { _, joined := cache.Stats(); return float64(joined) }),
	)
}

// WatchAdmission exports the state of the admission guard.
func (c *Collector) WatchAdmission(guard AdmissionStats) {
	c.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: c.config.Namespace,
			Subsystem: "admission",
			Name:      "in_flight",
			Help:      "Number of users with a generation in flight",
		}, func() float64 { return float64(guard.InFlight()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: c.config.Namespace,
			Subsystem: "admission",
			Name:      "denied_total",
			Help:      "Total number of requests denied by the admission guard",
		}, func() float64 { return float64(guard.Denied()) }),
	)
}
