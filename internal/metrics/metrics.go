package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Gate counters and histograms. Outcome labels are low-cardinality enums,
// never transaction signatures.

var (
	// Verification flow
	VerificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "spender",
		Subsystem: "verifier",
		Name:      "verifications_total",
		Help:      "Verification requests by outcome",
	}, []string{"outcome"}) // verified | incomplete | delegate_mismatch | not_found | error

	DelegateMismatchTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "spender",
		Subsystem: "verifier",
		Name:      "delegate_mismatch_total",
		Help:      "Verifications rejected because an approval delegated to a foreign address",
	})

	// Execution flow
	ExecutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "spender",
		Subsystem: "executor",
		Name:      "executions_total",
		Help:      "Delegated transfer executions by outcome",
	}, []string{"outcome"}) // succeeded | failed

	ReplayRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "spender",
		Subsystem: "executor",
		Name:      "replay_rejected_total",
		Help:      "Confirmation events rejected because the approval was already claimed or terminal",
	})

	// Ledger RPC
	RPCLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "spender",
		Subsystem: "rpc",
		Name:      "request_duration_seconds",
		Help:      "Solana RPC call duration",
		Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"method"})

	// Notification gateway
	NotificationsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "spender",
		Subsystem: "notify",
		Name:      "failures_total",
		Help:      "Best-effort notification deliveries that failed",
	}, []string{"kind"}) // notify | confirm | acknowledge

	// Reconciliation
	StuckExecutionsResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "spender",
		Subsystem: "reconciliation",
		Name:      "stuck_resolved_total",
		Help:      "Stuck EXECUTING records resolved by the sweeper",
	}, []string{"resolution"}) // succeeded | failed | alerted

	StuckExecutionsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "spender",
		Subsystem: "reconciliation",
		Name:      "stuck_executing",
		Help:      "Records currently stuck in EXECUTING beyond the sweep threshold",
	})
)
