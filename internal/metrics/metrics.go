// Package metrics holds prometheus collectors shared across packages.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hgs_circuit_breaker_state",
		Help: "Circuit breaker state per component (0=closed, 1=half-open, 2=open)",
	}, []string{"name", "state"})

	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hgs_sessions_active",
		Help: "Number of locally tracked non-terminal streaming sessions",
	})

	sessionsExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hgs_sessions_expired_total",
		Help: "Sessions terminalized by the idle sweeper",
	})
)

// SetCircuitBreakerState publishes the current breaker state as a one-hot gauge.
func SetCircuitBreakerState(name, state string) {
	for _, s := range []string{"closed", "half-open", "open"} {
		v := 0.0
		if s == state {
			v = 1.0
		}
		circuitBreakerState.WithLabelValues(name, s).Set(v)
	}
}

// SetActiveSessions publishes the current active session count.
func SetActiveSessions(n int) {
	activeSessions.Set(float64(n))
}

// IncSessionsExpired counts an idle-timeout expiration.
func IncSessionsExpired() {
	sessionsExpiredTotal.Inc()
}
