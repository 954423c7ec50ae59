// Package metrics exposes report pipeline metrics in Prometheus format.
package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "report"

// Registry holds every collector served at /metrics.
var Registry = prometheus.NewRegistry()

var (
	generatedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "generated_total",
		Help:      "Reports generated, by variant.",
	}, []string{"variant"})
	failedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "failed_total",
		Help:      "Reports that failed, by error code.",
	}, []string{"code"})
	narrativeFallbackTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "narrative_fallback_total",
		Help:      "Reports whose executive summary used the fallback paragraph.",
	})
	jobsReceivedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "jobs_received_total",
		Help:      "Queue messages received by the worker.",
	})
	jobOutcomesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "jobs_processed_total",
		Help:      "Queue messages handled by the worker, by outcome.",
	}, []string{"outcome"})
	buildDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "build_duration_seconds",
		Help:      "Time to build a report document.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
	})
)

func init() {
	Registry.MustRegister(
		generatedTotal,
		failedTotal,
		narrativeFallbackTotal,
		jobsReceivedTotal,
		jobOutcomesTotal,
		buildDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// IncGenerated counts a completed report.
func IncGenerated(variant string) {
	generatedTotal.WithLabelValues(variant).Inc()
}

// IncFailed counts a failed report.
func IncFailed(code string) {
	failedTotal.WithLabelValues(code).Inc()
}

// IncNarrativeFallback counts a fallback executive summary.
func IncNarrativeFallback() {
	narrativeFallbackTotal.Inc()
}

// IncJobsReceived counts a queue message picked up by the worker.
func IncJobsReceived() {
	jobsReceivedTotal.Inc()
}

// IncJobOutcome counts a handled queue message. Outcomes are completed,
// failed and dropped.
func IncJobOutcome(outcome string) {
	jobOutcomesTotal.WithLabelValues(outcome).Inc()
}

// ObserveBuildDuration records how long a build took.
func ObserveBuildDuration(d time.Duration) {
	if d < 0 {
		d = 0
	}
	buildDuration.Observe(d.Seconds())
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(Registry, promhttp.HandlerOpts{}))
}
