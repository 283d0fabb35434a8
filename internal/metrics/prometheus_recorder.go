package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "jsdocpreview"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	runDuration prom.Histogram
	runOutcome  *prom.CounterVec
	coalesced   prom.Counter
	pushClients prom.Gauge
	broadcasts  *prom.CounterVec
}

// NewPrometheusRecorder constructs the metrics and registers them with reg.
// A nil reg gets a fresh private registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		runDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "regeneration_duration_seconds",
			Help:      "Duration of generator runs",
			Buckets:   prom.DefBuckets,
		}),
		runOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "regeneration_outcomes_total",
			Help:      "Generator runs by final status",
		}, []string{"outcome"}),
		coalesced: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "coalesced_requests_total",
			Help:      "Regeneration requests absorbed while a run was in progress",
		}),
		pushClients: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "push_clients",
			Help:      "Connected live-reload clients",
		}),
		broadcasts: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "push_broadcasts_total",
			Help:      "Push events broadcast by kind",
		}, []string{"kind"}),
	}
	reg.MustRegister(pr.runDuration, pr.runOutcome, pr.coalesced, pr.pushClients, pr.broadcasts)
	return pr
}

func (p *PrometheusRecorder) ObserveRunDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.runDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncRunOutcome(outcome OutcomeLabel) {
	if p == nil {
		return
	}
	p.runOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncCoalescedRequest() {
	if p == nil {
		return
	}
	p.coalesced.Inc()
}

func (p *PrometheusRecorder) SetPushClients(n int) {
	if p == nil {
		return
	}
	p.pushClients.Set(float64(n))
}

func (p *PrometheusRecorder) IncBroadcast(kind string) {
	if p == nil {
		return
	}
	p.broadcasts.WithLabelValues(kind).Inc()
}
