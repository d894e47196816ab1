package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the application.
// Following the explicit dependency injection pattern, this struct
// is passed to all components that need to record metrics.
type Metrics struct {
	// Chain RPC metrics
	rpcCallsTotal   *prometheus.CounterVec
	rpcCallDuration *prometheus.HistogramVec

	// Polling metrics
	pollCyclesTotal   *prometheus.CounterVec
	pollCycleDuration *prometheus.HistogramVec
	balanceGauge      *prometheus.GaugeVec

	// Receipt pipeline metrics
	receiptsRecordedTotal *prometheus.CounterVec
	summariesFlushedTotal *prometheus.CounterVec

	// Operation metrics
	transfersTotal  *prometheus.CounterVec
	signaturesTotal *prometheus.CounterVec

	// Database metrics
	dbOperationsTotal *prometheus.CounterVec
	dbQueryDuration   *prometheus.HistogramVec

	// NATS metrics
	natsMessagesPublished *prometheus.CounterVec
	natsPublishDuration   *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		rpcCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chain_rpc_calls_total",
				Help: "Total number of chain RPC/API calls by backend, method and status",
			},
			[]string{"backend", "method", "status"},
		),
		rpcCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chain_rpc_call_duration_seconds",
				Help:    "Duration of chain RPC/API calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"backend", "method"},
		),

		pollCyclesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_poll_cycles_total",
				Help: "Total number of wallet polling cycles by outcome",
			},
			[]string{"wallet_address", "status"},
		),
		pollCycleDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wallet_poll_cycle_duration_seconds",
				Help:    "Duration of wallet polling cycles in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"wallet_address"},
		),
		balanceGauge: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "wallet_balance",
				Help: "Last observed wallet balance in display units",
			},
			[]string{"wallet_address", "asset"},
		),

		receiptsRecordedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_receipts_recorded_total",
				Help: "Total number of positive balance deltas buffered as receipt events",
			},
			[]string{"wallet_address", "asset"},
		),
		summariesFlushedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_summaries_flushed_total",
				Help: "Total number of receipt summaries flushed",
			},
			[]string{"wallet_address", "asset"},
		),

		transfersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_transfers_total",
				Help: "Total number of transfer attempts by backend and status",
			},
			[]string{"backend", "status"},
		),
		signaturesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_signatures_total",
				Help: "Total number of message signing attempts by backend and status",
			},
			[]string{"backend", "status"},
		),

		dbOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "db_operations_total",
				Help: "Total number of database operations",
			},
			[]string{"operation", "status"},
		),
		dbQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "db_query_duration_seconds",
				Help:    "Duration of database queries in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
			},
			[]string{"operation", "table"},
		),

		natsMessagesPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nats_messages_published_total",
				Help: "Total number of NATS messages published",
			},
			[]string{"subject", "status"},
		),
		natsPublishDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nats_publish_duration_seconds",
				Help:    "Duration of NATS publish operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
			[]string{"subject"},
		),
	}
}

// RecordRPCCall records a chain RPC/API call with duration.
func (m *Metrics) RecordRPCCall(backend, method, status string, duration float64) {
	m.rpcCallsTotal.WithLabelValues(backend, method, status).Inc()
	m.rpcCallDuration.WithLabelValues(backend, method).Observe(duration)
}

// RecordPollCycle records one polling cycle with duration.
func (m *Metrics) RecordPollCycle(walletAddress, status string, duration float64) {
	m.pollCyclesTotal.WithLabelValues(walletAddress, status).Inc()
	m.pollCycleDuration.WithLabelValues(walletAddress).Observe(duration)
}

// RecordBalance records the last observed balance for a wallet.
func (m *Metrics) RecordBalance(walletAddress, asset string, balance float64) {
	m.balanceGauge.WithLabelValues(walletAddress, asset).Set(balance)
}

// RecordReceipt records a buffered receipt event.
func (m *Metrics) RecordReceipt(walletAddress, asset string) {
	m.receiptsRecordedTotal.WithLabelValues(walletAddress, asset).Inc()
}

// RecordSummaryFlushed records a non-empty buffer flush.
func (m *Metrics) RecordSummaryFlushed(walletAddress, asset string) {
	m.summariesFlushedTotal.WithLabelValues(walletAddress, asset).Inc()
}

// RecordTransfer records a transfer attempt.
func (m *Metrics) RecordTransfer(backend, status string) {
	m.transfersTotal.WithLabelValues(backend, status).Inc()
}

// RecordSignature records a message signing attempt.
func (m *Metrics) RecordSignature(backend, status string) {
	m.signaturesTotal.WithLabelValues(backend, status).Inc()
}

// RecordDBQuery records a database query with duration and status.
func (m *Metrics) RecordDBQuery(operation, table string, duration float64, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.dbOperationsTotal.WithLabelValues(operation, status).Inc()
	m.dbQueryDuration.WithLabelValues(operation, table).Observe(duration)
}

// RecordNATSPublish records a NATS publish operation.
func (m *Metrics) RecordNATSPublish(subject, status string, duration float64) {
	m.natsMessagesPublished.WithLabelValues(subject, status).Inc()
	m.natsPublishDuration.WithLabelValues(subject).Observe(duration)
}
