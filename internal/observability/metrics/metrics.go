package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "pcalert_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	fetchRequests *prometheus.CounterVec
	fetchLatency  *prometheus.HistogramVec

	analysisRuns    prometheus.Counter
	driversChecked  prometheus.Counter
	driversInPC     prometheus.Gauge
	alertsTriggered prometheus.Counter
	recordAnomalies prometheus.Counter

	deliveries       *prometheus.CounterVec
	alertsSuppressed prometheus.Counter

	pollRuns    *prometheus.CounterVec
	pollLatency *prometheus.HistogramVec
)

// Init registers observability metrics. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		fetchRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "fetch_requests_total",
				Help: "Total telemetry fetch requests by result",
			},
			[]string{"result"},
		)
		fetchLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "fetch_latency_seconds",
				Help:    "Telemetry fetch latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		analysisRuns = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "analysis_runs_total",
				Help: "Total analysis passes",
			},
		)
		driversChecked = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "drivers_checked_total",
				Help: "Total driver records evaluated",
			},
		)
		driversInPC = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "drivers_in_pc",
				Help: "Drivers in personal conveyance at the last analysis pass",
			},
		)
		alertsTriggered = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "alerts_triggered_total",
				Help: "Total threshold-exceeded alert decisions",
			},
		)
		recordAnomalies = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "record_anomalies_total",
				Help: "Total records with missing or invalid status-start times",
			},
		)

		deliveries = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alert_deliveries_total",
				Help: "Total alert deliveries by channel and result",
			},
			[]string{"channel", "result"},
		)
		alertsSuppressed = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "alerts_suppressed_total",
				Help: "Total alerts suppressed by episode dedup",
			},
		)

		pollRuns = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "poll_runs_total",
				Help: "Total poll cycles by result",
			},
			[]string{"result"},
		)
		pollLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "poll_latency_seconds",
				Help:    "Poll cycle latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		prometheus.MustRegister(
			fetchRequests,
			fetchLatency,
			analysisRuns,
			driversChecked,
			driversInPC,
			alertsTriggered,
			recordAnomalies,
			deliveries,
			alertsSuppressed,
			pollRuns,
			pollLatency,
		)
	})
}

// ObserveFetch records one telemetry fetch.
func ObserveFetch(err error, duration time.Duration) {
	result := resultSuccess
	if err != nil {
		result = resultError
	}
	if fetchRequests != nil {
		fetchRequests.WithLabelValues(result).Inc()
	}
	if fetchLatency != nil {
		fetchLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObserveAnalysisRun records the aggregate counters of one analysis pass.
func ObserveAnalysisRun(checked, inPC, alerts int) {
	if analysisRuns != nil {
		analysisRuns.Inc()
	}
	if driversChecked != nil {
		driversChecked.Add(float64(checked))
	}
	if driversInPC != nil {
		driversInPC.Set(float64(inPC))
	}
	if alertsTriggered != nil {
		alertsTriggered.Add(float64(alerts))
	}
}

// IncRecordAnomaly increments the anomalous-record counter.
func IncRecordAnomaly() {
	if recordAnomalies != nil {
		recordAnomalies.Inc()
	}
}

// IncDelivery records one alert delivery attempt on a channel.
func IncDelivery(channel string, err error) {
	if channel == "" {
		channel = "unknown"
	}
	result := resultSuccess
	if err != nil {
		result = resultError
	}
	if deliveries != nil {
		deliveries.WithLabelValues(channel, result).Inc()
	}
}

// IncAlertSuppressed increments the dedup-suppression counter.
func IncAlertSuppressed() {
	if alertsSuppressed != nil {
		alertsSuppressed.Inc()
	}
}

// ObservePoll records one poll cycle.
func ObservePoll(err error, duration time.Duration) {
	result := resultSuccess
	if err != nil {
		result = resultError
	}
	if pollRuns != nil {
		pollRuns.WithLabelValues(result).Inc()
	}
	if pollLatency != nil {
		pollLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}
