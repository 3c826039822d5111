package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	PolicyDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "docgate", Name: "policy_decisions_total", Help: "Number of rule evaluations by collection, operation and verdict."},
		[]string{"collection", "op", "verdict"},
	)
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "docgate", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "docgate", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
)

// PolicyDecision records one allow/deny verdict.
func PolicyDecision(collection, op string, allowed bool) {
	verdict := "deny"
	if allowed {
		verdict = "allow"
	}
	PolicyDecisions.WithLabelValues(collection, op, verdict).Inc()
}

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(PolicyDecisions)
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
}
