package prommetrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics implements quota.Metrics using Prometheus.
type Metrics struct {
	checksTotal      *prometheus.CounterVec
	commitsTotal     *prometheus.CounterVec
	commitCostPU     *prometheus.HistogramVec
	rolloversTotal   prometheus.Counter
	storeOpsDuration *prometheus.HistogramVec
	storeOpsErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Prometheus metrics implementation.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		checksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_checks_total",
			Help:      "Total number of admission checks.",
		}, []string{"allowed"}),

		commitsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_commits_total",
			Help:      "Total number of committed operations.",
		}, []string{"operation"}),

		commitCostPU: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "quota_commit_cost_pu",
			Help:      "Distribution of committed processing-unit costs.",
			Buckets:   []float64{10, 30, 40, 50, 100, 250},
		}, []string{"operation"}),

		rolloversTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_month_rollovers_total",
			Help:      "Total number of calendar-month resets.",
		}),

		storeOpsDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "quota_store_operation_duration_seconds",
			Help:      "Latency of quota store operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),

		storeOpsErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_store_operation_errors_total",
			Help:      "Total number of quota store operation errors.",
		}, []string{"operation"}),
	}
}

func (m *Metrics) RecordCheck(allowed bool, costPU int) {
	m.checksTotal.WithLabelValues(strconv.FormatBool(allowed)).Inc()
}

func (m *Metrics) RecordCommit(operation string, costPU int) {
	m.commitsTotal.WithLabelValues(operation).Inc()
	m.commitCostPU.WithLabelValues(operation).Observe(float64(costPU))
}

func (m *Metrics) RecordRollover(month string) {
	m.rolloversTotal.Inc()
}

func (m *Metrics) RecordStoreOperation(operation string, duration time.Duration, err error) {
	m.storeOpsDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		m.storeOpsErrors.WithLabelValues(operation).Inc()
	}
}

// DefaultMetrics returns a Metrics implementation using the default
// Prometheus registerer.
func DefaultMetrics(namespace string) *Metrics {
	return NewMetrics(prometheus.DefaultRegisterer, namespace)
}
