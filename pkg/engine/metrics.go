package engine

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	LoadSeconds      prometheus.Histogram
	LoadFailures     prometheus.Counter
	SynthesisSeconds prometheus.Histogram
	SynthesisErrors  *prometheus.CounterVec
}

var metrics = &Metrics{
	LoadSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
		Subsystem: "engine",
		Name:      "load_seconds",
		Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
	}),
	LoadFailures: prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: "engine",
		Name:      "load_failures_total",
	}),
	SynthesisSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
		Subsystem: "engine",
		Name:      "synthesis_seconds",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	}),
	SynthesisErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "engine",
		Name:      "synthesis_errors_total",
	}, []string{"err_code"}),
}

func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(metrics.LoadSeconds)
	reg.MustRegister(metrics.LoadFailures)
	reg.MustRegister(metrics.SynthesisSeconds)
	reg.MustRegister(metrics.SynthesisErrors)
}
