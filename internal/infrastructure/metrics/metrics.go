package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PaymentMetrics holds every collector of the reconciliation engine
type PaymentMetrics struct {
	// Checkpoints written to the ledger
	CheckpointsTotal prometheus.CounterVec

	// Statuses produced by the translation table
	StatusTranslatedTotal prometheus.CounterVec
	UnmappedStatusTotal   prometheus.CounterVec

	// Failures
	GatewayErrorsTotal    prometheus.CounterVec
	StoreWriteErrorsTotal prometheus.CounterVec

	// Customer notifications
	NotificationsTotal prometheus.CounterVec

	// Order store backlog sweeps
	SweepResultsTotal prometheus.CounterVec

	// Operation duration
	OperationDuration prometheus.HistogramVec
}

// NewPaymentMetrics registers the collectors on the default registry
func NewPaymentMetrics() *PaymentMetrics {
	return NewPaymentMetricsWith(prometheus.DefaultRegisterer)
}

func NewPaymentMetricsWith(reg prometheus.Registerer) *PaymentMetrics {
	factory := promauto.With(reg)

	return &PaymentMetrics{
		CheckpointsTotal: *factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_checkpoints_total",
				Help: "Checkpoints written to the ledger",
			},
			[]string{"checkpoint", "settlement_model"},
		),

		StatusTranslatedTotal: *factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_status_translated_total",
				Help: "Gateway statuses translated to payment statuses",
			},
			[]string{"status"},
		),

		UnmappedStatusTotal: *factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_unmapped_status_total",
				Help: "Gateway statuses missing from the translation table",
			},
			[]string{"gateway_status"},
		),

		GatewayErrorsTotal: *factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_gateway_errors_total",
				Help: "Failed gateway calls",
			},
			[]string{"op"},
		),

		StoreWriteErrorsTotal: *factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_store_write_errors_total",
				Help: "Failed ledger or order store writes",
			},
			[]string{"store"},
		),

		NotificationsTotal: *factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_notifications_total",
				Help: "Customer action notifications by outcome",
			},
			[]string{"outcome"},
		),

		SweepResultsTotal: *factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_order_sync_sweep_total",
				Help: "Order store backlog entries processed by the sweeper",
			},
			[]string{"result"},
		),

		OperationDuration: *factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "payment_operation_duration_seconds",
				Help:    "Duration of reconciliation operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "result"},
		),
	}
}

func (m *PaymentMetrics) RecordCheckpoint(checkpoint, settlementModel string) {
	m.CheckpointsTotal.WithLabelValues(checkpoint, settlementModel).Inc()
}

func (m *PaymentMetrics) RecordStatus(status string) {
	m.StatusTranslatedTotal.WithLabelValues(status).Inc()
}

func (m *PaymentMetrics) RecordUnmappedStatus(gatewayStatus string) {
	m.UnmappedStatusTotal.WithLabelValues(gatewayStatus).Inc()
}

func (m *PaymentMetrics) RecordGatewayError(op string) {
	m.GatewayErrorsTotal.WithLabelValues(op).Inc()
}

func (m *PaymentMetrics) RecordStoreWriteError(store string) {
	m.StoreWriteErrorsTotal.WithLabelValues(store).Inc()
}

func (m *PaymentMetrics) RecordNotification(outcome string) {
	m.NotificationsTotal.WithLabelValues(outcome).Inc()
}

func (m *PaymentMetrics) RecordSweep(result string, n int) {
	m.SweepResultsTotal.WithLabelValues(result).Add(float64(n))
}

func (m *PaymentMetrics) RecordOperation(operation, result string, durationSeconds float64) {
	m.OperationDuration.WithLabelValues(operation, result).Observe(durationSeconds)
}
