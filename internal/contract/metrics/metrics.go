package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the contract workflow.
type Metrics struct {
	ContractsProposed  prometheus.Counter
	ContractsCompleted prometheus.Counter
	ContractsCancelled prometheus.Counter
	SignaturesRecorded prometheus.Counter
	RatificationDelay  prometheus.Histogram
}

// New registers and returns the contract workflow metrics.
func New() *Metrics {
	return &Metrics{
		ContractsProposed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "havenlink_contracts_proposed_total",
			Help: "Total number of contract proposals created",
		}),
		ContractsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "havenlink_contracts_completed_total",
			Help: "Total number of contracts ratified by an administrator",
		}),
		ContractsCancelled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "havenlink_contracts_cancelled_total",
			Help: "Total number of contracts cancelled before completion",
		}),
		SignaturesRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "havenlink_contract_signatures_total",
			Help: "Total number of party signatures recorded (first signatures only)",
		}),
		RatificationDelay: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "havenlink_contract_ratification_delay_seconds",
			Help:    "Delay between the second signature and administrator ratification",
			Buckets: prometheus.ExponentialBuckets(60, 4, 10),
		}),
	}
}

// ObserveRatificationDelay records how long a fully signed contract waited
// for an administrator.
func (m *Metrics) ObserveRatificationDelay(bothSignedAt, ratifiedAt time.Time) {
	if bothSignedAt.IsZero() || ratifiedAt.Before(bothSignedAt) {
		return
	}
	m.RatificationDelay.Observe(ratifiedAt.Sub(bothSignedAt).Seconds())
}
