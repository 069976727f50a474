package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chat_active_connections",
		Help: "Currently open websocket connections.",
	})
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_messages_sent_total",
		Help: "Messages accepted and persisted by the server.",
	})
	MessagesDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_messages_delivered_total",
		Help: "Delivery acknowledgements sent back to senders.",
	})
	MessagesRead = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_messages_read_total",
		Help: "Read acknowledgements processed.",
	})
	MalformedFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_malformed_frames_total",
		Help: "Inbound frames dropped because they could not be parsed.",
	})
)

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
