// midimap/pkg/runtime/metrics.go

package runtime

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes the engine counters to prometheus.
type Metrics struct {
	messages       *prometheus.CounterVec
	translated     prometheus.Counter
	unmapped       prometheus.Counter
	passthrough    prometheus.Counter
	deliveryErrors prometheus.Counter
	tableEntries   prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	messages := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "midimap",
		Name:      "messages_total",
		Help:      "Messages handled by the translation engine, by outcome.",
	}, []string{"outcome"})

	m := &Metrics{
		messages:    messages,
		translated:  messages.WithLabelValues("translated"),
		unmapped:    messages.WithLabelValues("unmapped"),
		passthrough: messages.WithLabelValues("passthrough"),
		deliveryErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "midimap",
			Name:      "delivery_errors_total",
			Help:      "Translated messages the output sink failed to deliver.",
		}),
		tableEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "midimap",
			Name:      "table_entries",
			Help:      "Concrete input triples with a mapping in the compiled table.",
		}),
	}

	reg.MustRegister(m.messages, m.deliveryErrors, m.tableEntries)
	return m
}
