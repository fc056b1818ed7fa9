package metrics

import (
	"github.com/SscSPs/remittance_ledger/internal/apperrors"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "remittance_ledger"

// LedgerMetrics records ledger mutations. A nil *LedgerMetrics is a no-op.
type LedgerMetrics struct {
	mutations       *prometheus.CounterVec
	conflictRetries *prometheus.CounterVec
	varianceChecks  *prometheus.CounterVec
	balanceDrift    *prometheus.CounterVec
	settledAmount   *prometheus.CounterVec
	cacheErrors     *prometheus.CounterVec
}

// NewLedgerMetrics creates and registers the ledger collectors on reg.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	m := &LedgerMetrics{
		mutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "mutations_total",
				Help:      "Ledger mutations by operation and outcome kind",
			},
			[]string{"operation", "outcome"},
		),
		conflictRetries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "conflict_retries_total",
				Help:      "Retries caused by lock timeouts, deadlocks or serialization failures",
			},
			[]string{"operation"},
		),
		varianceChecks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reconciliations_total",
				Help:      "Reconciliations by currency and whether the variance breached the threshold",
			},
			[]string{"currency", "breached"},
		),
		balanceDrift: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "balance_drift_total",
				Help:      "Recomputations that found the stored balance differing from history",
			},
			[]string{"currency"},
		),
		settledAmount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "settled_amount_total",
				Help:      "Amount settled between obligations by currency",
			},
			[]string{"currency"},
		),
		cacheErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "balance_cache_errors_total",
				Help:      "Balance cache failures that fell back to the database",
			},
			[]string{"operation"},
		),
	}

	reg.MustRegister(m.mutations, m.conflictRetries, m.varianceChecks, m.balanceDrift, m.settledAmount, m.cacheErrors)
	return m
}

// RecordMutation counts one finished mutation; err decides the outcome label.
func (m *LedgerMetrics) RecordMutation(operation string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = string(apperrors.KindOf(err))
	}
	m.mutations.WithLabelValues(operation, outcome).Inc()
}

func (m *LedgerMetrics) RecordConflictRetry(operation string) {
	if m == nil {
		return
	}
	m.conflictRetries.WithLabelValues(operation).Inc()
}

func (m *LedgerMetrics) RecordReconciliation(currency string, breached bool) {
	if m == nil {
		return
	}
	label := "false"
	if breached {
		label = "true"
	}
	m.varianceChecks.WithLabelValues(currency, label).Inc()
}

func (m *LedgerMetrics) RecordBalanceDrift(currency string) {
	if m == nil {
		return
	}
	m.balanceDrift.WithLabelValues(currency).Inc()
}

func (m *LedgerMetrics) RecordSettled(currency string, amount float64) {
	if m == nil || amount <= 0 {
		return
	}
	m.settledAmount.WithLabelValues(currency).Add(amount)
}

func (m *LedgerMetrics) RecordCacheError(operation string) {
	if m == nil {
		return
	}
	m.cacheErrors.WithLabelValues(operation).Inc()
}
