package synth

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	QueueDepth  prometheus.Gauge
	InFlight    prometheus.Gauge
	WaitSeconds prometheus.Histogram
	Rejections  prometheus.Counter
}

var metrics = &Metrics{
	QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
		Subsystem: "synth",
		Name:      "queue_depth",
	}),
	InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
		Subsystem: "synth",
		Name:      "inflight",
	}),
	WaitSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
		Subsystem: "synth",
		Name:      "queue_wait_seconds",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
	}),
	Rejections: prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: "synth",
		Name:      "rejections_total",
	}),
}

func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(metrics.QueueDepth)
	reg.MustRegister(metrics.InFlight)
	reg.MustRegister(metrics.WaitSeconds)
	reg.MustRegister(metrics.Rejections)
}
