package cinder

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("github.com/ezachrisen/cinder")

// Metrics collects Prometheus metrics for checkers. One Metrics value can be
// shared by many checkers; series are labelled with the rule name.
// A nil *Metrics records nothing.
type Metrics struct {
	updates    *prometheus.CounterVec
	checks     *prometheus.CounterVec
	recomputed *prometheus.CounterVec
	nodes      *prometheus.GaugeVec
	duration   *prometheus.HistogramVec
}

// NewMetrics creates the checker metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cinder",
			Name:      "updates_total",
			Help:      "Context set changes applied to a rule's checking tree.",
		}, []string{"rule", "op"}),
		checks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cinder",
			Name:      "checks_total",
			Help:      "Rule checks, by verdict.",
		}, []string{"rule", "verdict"}),
		recomputed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cinder",
			Name:      "nodes_recomputed_total",
			Help:      "Checking tree nodes recomputed during checks.",
		}, []string{"rule"}),
		nodes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "cinder",
			Name:      "tree_nodes",
			Help:      "Current number of nodes in a rule's checking tree.",
		}, []string{"rule"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cinder",
			Name:      "check_duration_seconds",
			Help:      "Time spent checking a rule.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"rule"}),
	}
	for _, c := range []prometheus.Collector{m.updates, m.checks, m.recomputed, m.nodes, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) update(rule string, op Op, nodes int) {
	if m == nil {
		return
	}
	m.updates.WithLabelValues(rule, op.String()).Inc()
	m.size(rule, nodes)
}

func (m *Metrics) size(rule string, nodes int) {
	if m == nil {
		return
	}
	m.nodes.WithLabelValues(rule).Set(float64(nodes))
}

func (m *Metrics) check(rule string, pass bool, recomputed, nodes int, d time.Duration) {
	if m == nil {
		return
	}
	verdict := "fail"
	if pass {
		verdict = "pass"
	}
	m.checks.WithLabelValues(rule, verdict).Inc()
	m.recomputed.WithLabelValues(rule).Add(float64(recomputed))
	m.nodes.WithLabelValues(rule).Set(float64(nodes))
	m.duration.WithLabelValues(rule).Observe(d.Seconds())
}

func (m *Metrics) forget(rule string) {
	if m == nil {
		return
	}
	m.nodes.DeleteLabelValues(rule)
}
