// Package metrics provides Prometheus instrumentation for the calendar
// aggregation core. A nil or disabled Manager is safe to use and records
// nothing, so instrumentation stays optional.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns the core's Prometheus collectors.
type Manager struct {
	namespace string
	registry  prometheus.Registerer
	enabled   bool

	builds             prometheus.Counter
	buildDuration      prometheus.Histogram
	expansionDuration  prometheus.Histogram
	expansionErrors    prometheus.Counter
	holidayResolutions prometheus.Counter
	cacheHits          *prometheus.CounterVec
	cacheMisses        *prometheus.CounterVec
}

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithNamespace sets the metric namespace.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithRegisterer sets the Prometheus registerer collectors attach to.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(m *Manager) {
		if r != nil {
			m.registry = r
		}
	}
}

// WithEnabled toggles collection.
func WithEnabled(enabled bool) Option {
	return func(m *Manager) { m.enabled = enabled }
}

// New creates a Manager and registers its collectors.
func New(opts ...Option) *Manager {
	m := &Manager{
		namespace: "calendifier",
		registry:  prometheus.DefaultRegisterer,
		enabled:   true,
	}
	for _, opt := range opts {
		opt(m)
	}
	if !m.enabled {
		return m
	}

	factory := promauto.With(m.registry)
	m.builds = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "calendar_builds_total",
		Help:      "Month builds served.",
	})
	m.buildDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "build_duration_seconds",
		Help:      "Month build latency.",
		Buckets:   prometheus.DefBuckets,
	})
	m.expansionDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "expansion_duration_seconds",
		Help:      "Recurrence expansion latency.",
		Buckets:   prometheus.DefBuckets,
	})
	m.expansionErrors = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "expansion_errors_total",
		Help:      "Recurrence expansions that failed.",
	})
	m.holidayResolutions = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "holiday_resolutions_total",
		Help:      "Holiday set resolutions performed.",
	})
	m.cacheHits = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "cache_hits_total",
		Help:      "Expansion cache hits by kind.",
	}, []string{"kind"})
	m.cacheMisses = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "cache_misses_total",
		Help:      "Expansion cache misses by kind.",
	}, []string{"kind"})
	return m
}

func (m *Manager) active() bool { return m != nil && m.enabled }

// RecordBuild counts one month build and its duration.
func (m *Manager) RecordBuild(d time.Duration) {
	if !m.active() {
		return
	}
	m.builds.Inc()
	m.buildDuration.Observe(d.Seconds())
}

// RecordExpansion counts one recurrence expansion.
func (m *Manager) RecordExpansion(d time.Duration, err error) {
	if !m.active() {
		return
	}
	m.expansionDuration.Observe(d.Seconds())
	if err != nil {
		m.expansionErrors.Inc()
	}
}

// RecordHolidayResolution counts one holiday resolution.
func (m *Manager) RecordHolidayResolution() {
	if !m.active() {
		return
	}
	m.holidayResolutions.Inc()
}

// RecordCacheAccess counts a cache hit or miss for the given kind
// ("expansion" or "holidays").
func (m *Manager) RecordCacheAccess(kind string, hit bool) {
	if !m.active() {
		return
	}
	if hit {
		m.cacheHits.WithLabelValues(kind).Inc()
	} else {
		m.cacheMisses.WithLabelValues(kind).Inc()
	}
}
