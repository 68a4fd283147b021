package monitoring

import (
	"app/pkg/engine"
	"app/pkg/synth"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func RegisterMetrics(reg *prometheus.Registry) {
	engine.RegisterMetrics(reg)
	synth.RegisterMetrics(reg)

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}
