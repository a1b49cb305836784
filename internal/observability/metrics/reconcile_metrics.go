package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ReconcileMetrics tracks overdue reconciliation passes.
type ReconcileMetrics struct {
	reconcileRuns     prometheus.Counter
	reconcileDuration prometheus.Histogram
	overdueFlagged    prometheus.Counter
	overdueCleared    prometheus.Counter
}

var (
	reconcileMetricsOnce sync.Once
	reconcileMetrics     *ReconcileMetrics
)

// Reconcile returns the process-wide reconciliation metrics.
func Reconcile() *ReconcileMetrics {
	return ReconcileWithConfig(Config{})
}

// ReconcileWithConfig initializes the reconciliation metrics once.
func ReconcileWithConfig(cfg Config) *ReconcileMetrics {
	reconcileMetricsOnce.Do(func() {
		reconcileMetrics = newReconcileMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return reconcileMetrics
}

// ResetReconcileMetricsForTest clears the singleton between tests.
func ResetReconcileMetricsForTest() {
	reconcileMetricsOnce = sync.Once{}
	reconcileMetrics = nil
}

func newReconcileMetrics(registerer prometheus.Registerer, cfg Config) *ReconcileMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "voltera"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}

	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	reconcileRuns := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "voltera_overdue_reconcile_runs_total",
		Help:        "Number of overdue reconciliation passes executed.",
		ConstLabels: constLabels,
	})

	reconcileDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "voltera_overdue_reconcile_duration_seconds",
		Help:        "Duration of a full overdue reconciliation pass.",
		Buckets:     prometheus.DefBuckets,
		ConstLabels: constLabels,
	})

	overdueFlagged := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "voltera_overdue_flagged_total",
		Help:        "Payment requests newly marked overdue by reconciliation.",
		ConstLabels: constLabels,
	})

	overdueCleared := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "voltera_overdue_cleared_total",
		Help:        "Payment requests whose overdue flag was cleared by reconciliation.",
		ConstLabels: constLabels,
	})

	registerer.MustRegister(
		reconcileRuns,
		reconcileDuration,
		overdueFlagged,
		overdueCleared,
	)

	return &ReconcileMetrics{
		reconcileRuns:     reconcileRuns,
		reconcileDuration: reconcileDuration,
		overdueFlagged:    overdueFlagged,
		overdueCleared:    overdueCleared,
	}
}

// ObserveRun records one reconciliation pass.
func (m *ReconcileMetrics) ObserveRun(duration time.Duration, flagged, cleared int64) {
	if m == nil {
		return
	}
	m.reconcileRuns.Inc()
	m.reconcileDuration.Observe(duration.Seconds())
	if flagged > 0 {
		m.overdueFlagged.Add(float64(flagged))
	}
	if cleared > 0 {
		m.overdueCleared.Add(float64(cleared))
	}
}
