package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ClientsConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "hopalong", Name: "broker_clients_connected",
		Help: "Number of websocket clients currently connected to the broker",
	})
	PublicationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hopalong", Name: "broker_publications_total",
		Help: "Total publications fanned out to subscribers",
	})
	SubscriptionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hopalong", Name: "broker_subscriptions_total",
		Help: "Total channel subscriptions accepted",
	})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hopalong", Name: "http_requests_total",
			Help: "Total HTTP requests handled",
		},
		[]string{"method", "path", "status"},
	)
)
