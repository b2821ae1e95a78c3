package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ghichu", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ghichu", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	NoteMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ghichu", Name: "note_mutations_total", Help: "Note create/update/delete calls by outcome."},
		[]string{"op", "result"},
	)
	ActiveSubscriptions = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Namespace: "ghichu", Name: "active_subscriptions", Help: "Live note subscriptions currently open."},
		[]string{"kind"},
	)
	AuthAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ghichu", Name: "auth_attempts_total", Help: "Authentication operations by outcome."},
		[]string{"op", "result"},
	)
)

// Outcome label helper.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(NoteMutations)
	reg.MustRegister(ActiveSubscriptions)
	reg.MustRegister(AuthAttempts)
}
