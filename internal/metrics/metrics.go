package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Mutations counts successful entity mutations by entity and action.
	Mutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trackerd_mutations_total",
		Help: "Successful entity mutations.",
	}, []string{"entity", "action"})

	// EventsPublished counts realtime events pushed to the broadcaster.
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trackerd_events_published_total",
		Help: "Realtime events handed to the broadcaster.",
	}, []string{"event"})

	// WebsocketClients tracks the number of connected realtime subscribers.
	WebsocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "trackerd_websocket_clients",
		Help: "Currently connected realtime subscribers.",
	})
)
