package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

var (
	// RPCRequestsTotal counts JSON-RPC requests issued to the fork node
	RPCRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forkctl_rpc_requests_total",
			Help: "Total number of JSON-RPC requests sent to the fork node",
		},
		[]string{"method", "outcome"},
	)

	// StepsTotal counts playbook steps by result
	StepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forkctl_steps_total",
			Help: "Total number of playbook steps executed",
		},
		[]string{"step", "status"},
	)

	// ConfirmationWait tracks how long waits for mining took
	ConfirmationWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "forkctl_confirmation_wait_seconds",
			Help:    "Time spent waiting for a transaction to be mined",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 15, 60},
		},
	)

	// NodeRequestsTotal counts requests served by the simulated fork node
	NodeRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forkctl_devnode_requests_total",
			Help: "Total number of JSON-RPC requests served by the simulated fork node",
		},
		[]string{"method"},
	)

	// NodeBlockNumber tracks the head of the simulated fork node
	NodeBlockNumber = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "forkctl_devnode_block_number",
			Help: "Latest block mined by the simulated fork node",
		},
	)

	// NodePendingTransactions tracks transactions waiting to be mined
	NodePendingTransactions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "forkctl_devnode_pending_transactions",
			Help: "Transactions accepted but not yet mined by the simulated fork node",
		},
	)
)

// ObserveRPC records the outcome of one RPC round-trip
func ObserveRPC(method string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	RPCRequestsTotal.WithLabelValues(method, outcome).Inc()
}

// ObserveStep records the result of one playbook step
func ObserveStep(step, status string) {
	StepsTotal.WithLabelValues(step, status).Inc()
}

// Push sends the default registry to a Pushgateway
func Push(url, job string) error {
	if err := push.New(url, job).Gatherer(prometheus.DefaultGatherer).Push(); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
