package metrics

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ethereum-optimism/infra/suite-tester/types"
)

const (
	MetricsNamespace = "suite_tester"
)

var (
	Debug                bool = true
	nonAlphanumericRegex      = regexp.MustCompile(`[^a-zA-Z ]+`)

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	testsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "tests_total",
		Help:      "Count of executed tests",
	}, []string{
		"type",
		"status",
	})

	testDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: MetricsNamespace,
		Name:      "test_duration_seconds",
		Help:      "Duration of individual tests",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 14),
	}, []string{
		"type",
	})

	testsRunning = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "tests_running",
		Help:      "Number of tests currently executing",
	}, []string{
		"type",
	})

	runResults = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_results",
		Help:      "Number of tests per status of a run",
	}, []string{
		"run_id",
		"type",
		"status",
	})

	runDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_duration_seconds",
		Help:      "Duration of a run",
	}, []string{
		"run_id",
		"type",
	})
)

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

func RecordError(error string) {
	if Debug {
		log.Debug("metric inc",
			"m", "errors_total",
			"error", error,
		)
	}
	errorsTotal.WithLabelValues(error).Inc()
}

// RecordErrorDetails concats the error message to the label
// and also tries to clean the label to be a valid Prometheus label
func RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	label = fmt.Sprintf("%s.%s", label, errToLabel(err))
	RecordError(label)
}

// TestStarted marks a test of the given type as running
func TestStarted(typeName string) {
	testsRunning.WithLabelValues(typeName).Inc()
}

// RecordTest records the outcome of a finished test
func RecordTest(typeName string, status types.Status, duration time.Duration) {
	if !status.IsValid() {
		log.Error("RecordTest - invalid status", "status", status)
		return
	}
	if Debug {
		log.Debug("metric inc",
			"m", "tests_total",
			"type", typeName,
			"status", status,
			"duration", duration)
	}
	testsRunning.WithLabelValues(typeName).Dec()
	testsTotal.WithLabelValues(typeName, string(status)).Inc()
	testDuration.WithLabelValues(typeName).Observe(duration.Seconds())
}

// RecordRun records the aggregate outcome of a run
func RecordRun(runID string, typeName string, counts types.Counts, duration time.Duration) {
	runResults.WithLabelValues(runID, typeName, string(types.StatusSuccess)).Set(float64(counts.Successes))
	runResults.WithLabelValues(runID, typeName, string(types.StatusFailure)).Set(float64(counts.Failures))
	runResults.WithLabelValues(runID, typeName, string(types.StatusError)).Set(float64(counts.Errors))
	runDuration.WithLabelValues(runID, typeName).Set(duration.Seconds())
}
