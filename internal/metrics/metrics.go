// Package metrics exposes prometheus counters for plan computations, exports
// and cache lookups.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder holds the application's collectors. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	registry    *prometheus.Registry
	plans       *prometheus.CounterVec
	exports     *prometheus.CounterVec
	cacheLookup *prometheus.CounterVec
}

// NewRecorder registers the collectors on a fresh registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		plans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "course_emi",
			Name:      "plans_computed_total",
			Help:      "Plans computed, by validation state.",
		}, []string{"state"}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "course_emi",
			Name:      "exports_total",
			Help:      "Export documents rendered, by format and outcome.",
		}, []string{"format", "outcome"}),
		cacheLookup: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "course_emi",
			Name:      "plan_cache_lookups_total",
			Help:      "Plan cache lookups, by result.",
		}, []string{"result"}),
	}
	r.registry.MustRegister(r.plans, r.exports, r.cacheLookup)
	return r
}

// PlanComputed counts one computed plan.
func (r *Recorder) PlanComputed(state string) {
	if r == nil {
		return
	}
	r.plans.WithLabelValues(state).Inc()
}

// ExportRendered counts one export attempt.
func (r *Recorder) ExportRendered(format string, err error) {
	if r == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	r.exports.WithLabelValues(format, outcome).Inc()
}

// CacheLookup counts a cache hit or miss.
func (r *Recorder) CacheLookup(hit bool) {
	if r == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookup.WithLabelValues(result).Inc()
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
