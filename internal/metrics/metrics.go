package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	OnlineUsers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "realtime_online_users",
		Help: "Users currently reachable on a live connection.",
	})

	MessagesRouted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "realtime_messages_routed_total",
		Help: "Messages accepted for routing, by kind.",
	}, []string{"kind"}) // direct | group

	FanoutDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "realtime_fanout_dropped_total",
		Help: "Events that found no live connection for the target user.",
	})
)

// Handler returns the http.Handler for Prometheus scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}
