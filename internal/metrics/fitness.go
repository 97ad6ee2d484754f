package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConnectOutcomes counts terminal outcomes of the fitness connect flow.
	ConnectOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitness_connect_total",
			Help: "Terminal outcomes of fitness connect attempts",
		},
		[]string{"outcome"},
	)

	// RevokeFailures counts provider revoke calls that failed and were
	// swallowed during disconnect. Local deactivation proceeds regardless,
	// so this counter is the only place these failures become visible.
	RevokeFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fitness_revoke_failures_total",
			Help: "Provider token revocations that failed during disconnect",
		},
	)
)
