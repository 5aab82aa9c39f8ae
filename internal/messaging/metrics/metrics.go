package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the messaging channel.
type Metrics struct {
	MessagesSent     prometheus.Counter
	LivePushFailures prometheus.Counter
}

// New registers and returns the messaging metrics.
func New() *Metrics {
	return &Metrics{
		MessagesSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "havenlink_messages_sent_total",
			Help: "Total number of messages persisted",
		}),
		LivePushFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "havenlink_live_push_failures_total",
			Help: "Total number of live-push publish failures (delivery is best-effort)",
		}),
	}
}
