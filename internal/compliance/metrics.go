package compliance

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Latency: длительность полной проверки (включая вмешательства)
	CheckDuration *prometheus.HistogramVec

	// Traffic: общее кол-во проверок
	ChecksTotal *prometheus.CounterVec

	// Нарушения по типу и тяжести
	ViolationsTotal *prometheus.CounterVec

	// Вмешательства по стратегии
	InterventionsTotal *prometheus.CounterVec

	// Saturation: сколько сессий сейчас под надзором
	ActiveSessions prometheus.Gauge

	// Последний compliance score по workflow
	ComplianceScore *prometheus.GaugeVec

	// Audit: заполненность буфера (backpressure)
	AuditBufferFill prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Null Object Pattern - Если рег не передан, используем локальный, который никуда не подключен
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		CheckDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wcm_check_duration_seconds",
			Help:    "Histogram of compliance check latencies.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"workflow_id", "compliant"}),

		ChecksTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "wcm_checks_total",
			Help: "Total number of compliance checks performed.",
		}, []string{"workflow_id", "kind"}), // kind: explicit, sweep

		ViolationsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "wcm_violations_total",
			Help: "Total number of violations by type and severity.",
		}, []string{"type", "severity"}),

		InterventionsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "wcm_interventions_total",
			Help: "Total number of executed interventions by strategy.",
		}, []string{"strategy"}),

		ActiveSessions: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "wcm_active_sessions",
			Help: "Number of workflows currently under compliance monitoring.",
		}),

		ComplianceScore: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "wcm_compliance_score",
			Help: "Latest compliance score per workflow.",
		}, []string{"workflow_id"}),

		AuditBufferFill: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "wcm_audit_buffer_utilization",
			Help: "Current number of records in the audit buffer.",
		}),
	}
}
