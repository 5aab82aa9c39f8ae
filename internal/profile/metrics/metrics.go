package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the approval workflow.
type Metrics struct {
	ProfilesSubmitted prometheus.Counter
	ReviewsDecided    *prometheus.CounterVec
}

// New registers and returns the approval workflow metrics.
func New() *Metrics {
	return &Metrics{
		ProfilesSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "havenlink_profiles_submitted_total",
			Help: "Total number of profiles submitted for review",
		}),
		ReviewsDecided: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "havenlink_profile_reviews_total",
			Help: "Total number of administrator review decisions",
		}, []string{"decision"}),
	}
}

// IncSubmitted records a successful profile submission.
func (m *Metrics) IncSubmitted() {
	m.ProfilesSubmitted.Inc()
}

// IncReview records a review decision (approve or reject).
func (m *Metrics) IncReview(decision string) {
	m.ReviewsDecided.WithLabelValues(decision).Inc()
}
