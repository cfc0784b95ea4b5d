// Package metrics — счётчики Prometheus для журнала и фоновых задач.
// Отдаются на /metrics HTTP-сервером.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	grantsRecorded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "recognition_grants_recorded_total",
		Help: "Записанные благодарности по виду жетона и источнику",
	}, []string{"kind", "source"})

	debitsRecorded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "recognition_debits_recorded_total",
		Help: "Записанные списания",
	})

	debitsRefunded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "recognition_debits_refunded_total",
		Help: "Возвращённые списания",
	})

	rejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "recognition_rejected_total",
		Help: "Отклонённые операции по причине",
	}, []string{"operation", "reason"})

	storeDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "recognition_store_operation_duration_seconds",
		Help:    "Длительность операций с хранилищем",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	}, []string{"operation"})

	jobRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "recognition_job_runs_total",
		Help: "Запуски фоновых задач по результату",
	}, []string{"job", "result"})

	reportTargets = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "recognition_report_targets_total",
		Help: "Отправка отчётов по чатам по результату",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(
		grantsRecorded,
		debitsRecorded,
		debitsRefunded,
		rejected,
		storeDuration,
		jobRuns,
		reportTargets,
	)
}

// GrantRecorded учитывает записанную благодарность.
func GrantRecorded(kind, source string) {
	grantsRecorded.WithLabelValues(kind, source).Inc()
}

// DebitRecorded учитывает списание.
func DebitRecorded() { debitsRecorded.Inc() }

// DebitRefunded учитывает возврат.
func DebitRefunded() { debitsRefunded.Inc() }

// Rejected учитывает отклонённую операцию.
func Rejected(operation, reason string) {
	rejected.WithLabelValues(operation, reason).Inc()
}

// ObserveStore замеряет длительность операции с хранилищем.
//
//	defer metrics.ObserveStore("balance")()
func ObserveStore(operation string) func() {
	start := time.Now()
	return func() {
		storeDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}

// JobRun учитывает запуск фоновой задачи.
func JobRun(job string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	jobRuns.WithLabelValues(job, result).Inc()
}

// ReportTargets учитывает итог рассылки отчётов.
func ReportTargets(succeeded, failed int) {
	reportTargets.WithLabelValues("ok").Add(float64(succeeded))
	reportTargets.WithLabelValues("error").Add(float64(failed))
}

// Handler отдаёт метрики в формате Prometheus.
func Handler() http.Handler {
	return promhttp.Handler()
}
