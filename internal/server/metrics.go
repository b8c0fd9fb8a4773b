package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the server's Prometheus instruments, served on the admin
// port.
type Metrics struct {
	ConnectionsActive prometheus.Gauge
	MessagesTotal     *prometheus.CounterVec
	HandsPlayed       prometheus.Counter
	PotAwarded        prometheus.Counter
	TablesActive      prometheus.Gauge
}

// NewMetrics registers the server instruments on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ConnectionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "cardroom",
			Name:      "connections_active",
			Help:      "Currently open client connections.",
		}),
		MessagesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cardroom",
			Name:      "messages_total",
			Help:      "Client messages received, by action.",
		}, []string{"action"}),
		HandsPlayed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "cardroom",
			Name:      "hands_played_total",
			Help:      "Hands brought to completion.",
		}),
		PotAwarded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "cardroom",
			Name:      "pot_awarded_cents_total",
			Help:      "Total chips awarded at showdown, in cents.",
		}),
		TablesActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "cardroom",
			Name:      "tables_active",
			Help:      "Tables currently registered.",
		}),
	}
}
