// Package metrics exposes Prometheus counters for evaluations, findings and
// notification outcomes.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder owns its registry so tests can create as many as they like.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry      *prometheus.Registry
	evaluations   *prometheus.CounterVec
	findings      *prometheus.CounterVec
	notifications *prometheus.CounterVec
	duration      prometheus.Histogram
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worktime_evaluations_total",
			Help: "Compliance evaluations by result.",
		}, []string{"result"}),
		findings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worktime_findings_total",
			Help: "Findings produced, by violation code.",
		}, []string{"code"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worktime_notifications_total",
			Help: "Notification writes by outcome (created, suppressed).",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "worktime_evaluation_seconds",
			Help:    "Time spent evaluating one employee and period.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	r.registry.MustRegister(r.evaluations, r.findings, r.notifications, r.duration)
	return r
}

func (r *Recorder) Evaluation(started time.Time, err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.evaluations.WithLabelValues(result).Inc()
	r.duration.Observe(time.Since(started).Seconds())
}

func (r *Recorder) Finding(code string) {
	if r == nil {
		return
	}
	r.findings.WithLabelValues(code).Inc()
}

func (r *Recorder) Notification(outcome string) {
	if r == nil {
		return
	}
	r.notifications.WithLabelValues(outcome).Inc()
}

// Registry is exposed for tests.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
