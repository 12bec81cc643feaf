// Package metrics exposes pipeline counters to Prometheus.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/agentstation/specimap/pkg/reconcile"
	"github.com/agentstation/specimap/pkg/region"
)

const namespace = "specimap"

// Metrics implements enricher.Observer and reconcile.Observer.
type Metrics struct {
	Registry *prometheus.Registry

	// Reconciliation outcomes by kind and reason
	Outcomes *prometheus.CounterVec

	// Enrichment tasks by enricher and status (done, failed, cancelled)
	Enrichments *prometheus.CounterVec

	EnrichmentLatency *prometheus.HistogramVec

	// Region resolutions by strategy; "none" when unresolved
	Resolutions *prometheus.CounterVec
}

// New registers the pipeline metrics on reg. A nil reg creates a fresh
// registry carrying the Go and process collectors.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		Outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_outcomes_total",
			Help:      "Reconciliation outcomes by kind and reason",
		}, []string{"kind", "reason"}),

		Enrichments: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichments_total",
			Help:      "Enrichment tasks by enricher and status",
		}, []string{"enricher", "status"}),

		EnrichmentLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "enrichment_duration_seconds",
			Help:      "Duration of enrichment tasks by enricher",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"enricher"}),

		Resolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "region_resolutions_total",
			Help:      "Region resolutions by strategy",
		}, []string{"strategy"}),
	}
}

// ObserveEnrichment implements enricher.Observer.
func (m *Metrics) ObserveEnrichment(enricher, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Enrichments.WithLabelValues(enricher, status).Inc()
	m.EnrichmentLatency.WithLabelValues(enricher).Observe(elapsed.Seconds())
}

// ObserveOutcome implements reconcile.Observer.
func (m *Metrics) ObserveOutcome(kind reconcile.Kind, reason string) {
	if m != nil {
		m.Outcomes.WithLabelValues(string(kind), reason).Inc()
	}
}

// ObserveResolution counts one region resolution.
func (m *Metrics) ObserveResolution(res region.Resolution) {
	if m == nil {
		return
	}
	strategy := string(res.Strategy)
	if !res.OK() || strategy == "" {
		strategy = "none"
	}
	m.Resolutions.WithLabelValues(strategy).Inc()
}

// TrackRegionCache exports the resolver's cache statistics. Call it once
// per registry.
func (m *Metrics) TrackRegionCache(stats func() region.CacheStats) {
	factory := promauto.With(m.Registry)
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "region_cache_items",
		Help:      "Entries in the region registry cache",
	}, func() float64 { return float64(stats().Items) })
	factory.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "region_cache_hits_total",
		Help:      "Region registry cache hits",
	}, func() float64 { return float64(stats().Hits) })
	factory.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "region_cache_misses_total",
		Help:      "Region registry cache misses",
	}, func() float64 { return float64(stats().Misses) })
}

// RegionResolver is satisfied by region.Resolver.
type RegionResolver interface {
	Resolve(ctx context.Context, q region.Query) (region.Resolution, error)
}

type observedResolver struct {
	next    RegionResolver
	metrics *Metrics
}

func (o observedResolver) Resolve(ctx context.Context, q region.Query) (region.Resolution, error) {
	res, err := o.next.Resolve(ctx, q)
	if err == nil {
		o.metrics.ObserveResolution(res)
	}
	return res, err
}

// Resolver wraps next so that every resolution is counted.
func (m *Metrics) Resolver(next RegionResolver) RegionResolver {
	return observedResolver{next: next, metrics: m}
}
