// internal/observability/metrics.go
package observability

import "github.com/prometheus/client_golang/prometheus"

var (
	Dispatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "dispatch_requests_total", Help: "Dispatch requests by mode and result"},
		[]string{"mode", "result"},
	)
	Sends = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "channel_sends_total", Help: "Channel send attempts"},
		[]string{"channel", "result"},
	)
	SendLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "channel_send_latency_seconds", Help: "Provider send latency"},
	)
	QueuePublishes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "queue_publish_total", Help: "Broker publishes by queue and result"},
		[]string{"queue", "result"},
	)
	SchedulerPicks = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "scheduler_picked_total", Help: "Scheduled dispatches picked up by the tick"},
	)
	CredentialChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "credential_checks_total", Help: "Credential health checks"},
		[]string{"channel", "status"},
	)
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(Dispatches, Sends, SendLatency, QueuePublishes, SchedulerPicks, CredentialChecks)
}
