package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	foldPlanner = "fold_planner"

	jobsSubmittedTotal     = "jobs_submitted_total"
	predictorRequestsTotal = "predictor_requests_total"
	storageChecksTotal     = "storage_checks_total"

	// Labels
	statusLabel = "status"
	resultLabel = "result"
)

const (
	ResultSuccess = "success"
	ResultFailure = "failure"

	StorageFound   = "found"
	StorageMissing = "missing"
	StorageError   = "error"
)

/**
* Metrics definition
**/
var jobsSubmittedTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: foldPlanner,
		Name:      jobsSubmittedTotal,
		Help:      "number of submitted jobs partitioned by their status after dispatch",
	},
	[]string{statusLabel},
)

var predictorRequestsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: foldPlanner,
		Name:      predictorRequestsTotal,
		Help:      "number of prediction requests sent to the predictor",
	},
	[]string{resultLabel},
)

var storageChecksTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: foldPlanner,
		Name:      storageChecksTotal,
		Help:      "number of result existence checks against object storage",
	},
	[]string{resultLabel},
)

func IncreaseJobsSubmittedMetric(status string) {
	jobsSubmittedTotalMetric.With(prometheus.Labels{statusLabel: status}).Inc()
}

func IncreasePredictorRequestsMetric(result string) {
	predictorRequestsTotalMetric.With(prometheus.Labels{resultLabel: result}).Inc()
}

func IncreaseStorageChecksMetric(result string) {
	storageChecksTotalMetric.With(prometheus.Labels{resultLabel: result}).Inc()
}

// NewPrometheusMetricsHandler serves every metric of the default registry.
func NewPrometheusMetricsHandler() http.Handler {
	return promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{})
}

func init() {
	registerMetrics()
}

func registerMetrics() {
	prometheus.MustRegister(jobsSubmittedTotalMetric)
	prometheus.MustRegister(predictorRequestsTotalMetric)
	prometheus.MustRegister(storageChecksTotalMetric)
	prometheus.MustRegister(totalUniqueSubmittersPerWeekMetric)
}
