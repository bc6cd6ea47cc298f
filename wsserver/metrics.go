package wsserver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	connections    prometheus.Gauge
	joins          prometheus.Counter
	broadcasts     prometheus.Counter
	deliveries     prometheus.Counter
	appendFailures prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		connections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "sketchroom",
			Subsystem: "socket",
			Name:      "connections",
			Help:      "Currently registered socket connections.",
		}),
		joins: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "sketchroom",
			Subsystem: "socket",
			Name:      "room_joins_total",
			Help:      "Room join messages processed.",
		}),
		broadcasts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "sketchroom",
			Subsystem: "socket",
			Name:      "broadcasts_total",
			Help:      "Chat messages appended and fanned out.",
		}),
		deliveries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "sketchroom",
			Subsystem: "socket",
			Name:      "deliveries_total",
			Help:      "Per-member broadcast deliveries queued.",
		}),
		appendFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "sketchroom",
			Subsystem: "socket",
			Name:      "append_failures_total",
			Help:      "Chat messages dropped because the log append failed.",
		}),
	}
}
