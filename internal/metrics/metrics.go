package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the service.
	Registry = prometheus.NewRegistry()

	// WebhookEvents counts inbound webhook envelopes by table and outcome.
	WebhookEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "webhook_events_total", Help: "Inbound webhook envelopes by table and outcome."},
		[]string{"table", "outcome"},
	)
	// Deliveries counts per-recipient delivery outcomes by event type.
	Deliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "notification_deliveries_total", Help: "Per-recipient delivery outcomes by event type."},
		[]string{"event_type", "outcome"},
	)
	// SendLatency tracks FCM send latencies in milliseconds.
	SendLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "fcm_send_latency_ms", Help: "FCM send latency in ms.", Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000}},
		[]string{"outcome"},
	)
)

var regOnce sync.Once

// RegisterDefault registers collectors to the service registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(WebhookEvents)
		Registry.MustRegister(Deliveries)
		Registry.MustRegister(SendLatency)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}
