// Package metrics exposes prometheus counters for the two external
// dependencies that actually fail in practice: the broker and the oracle.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	brokerCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kuber",
		Name:      "broker_calls_total",
		Help:      "Broker API calls by operation and outcome.",
	}, []string{"op", "outcome"})

	oracleCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kuber",
		Name:      "oracle_calls_total",
		Help:      "Language model calls by purpose and outcome.",
	}, []string{"purpose", "outcome"})

	tokensIssued = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "kuber",
		Name:      "confirmation_tokens_issued_total",
		Help:      "Confirmation tokens issued.",
	})

	tokensExpired = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "kuber",
		Name:      "confirmation_tokens_expired_total",
		Help:      "Confirmation tokens that expired unconfirmed.",
	})
)

func BrokerCall(op, outcome string) {
	brokerCalls.WithLabelValues(op, outcome).Inc()
}

func OracleCall(purpose, outcome string) {
	oracleCalls.WithLabelValues(purpose, outcome).Inc()
}

func TokenIssued() { tokensIssued.Inc() }

func TokensExpired(n int) {
	if n > 0 {
		tokensExpired.Add(float64(n))
	}
}
