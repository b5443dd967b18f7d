package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "railguard_"

	// ResultSuccess labels a successful operation.
	ResultSuccess = "success"
	// ResultError labels a failed operation.
	ResultError = "error"
	// ResultFallback labels an enrichment that used the fallback verdict.
	ResultFallback = "fallback"

	// NotifySent labels a notification delivered to the sink.
	NotifySent = "sent"
	// NotifySuppressed labels a notification dropped by the cooldown window.
	NotifySuppressed = "suppressed"
	// NotifyError labels a notification the sink rejected.
	NotifyError = "error"
)

var (
	registerOnce sync.Once

	ingestMessages *prometheus.CounterVec
	ingestErrors   *prometheus.CounterVec
	ingestLatency  *prometheus.HistogramVec

	enrichmentTotal   *prometheus.CounterVec
	enrichmentLatency *prometheus.HistogramVec

	alertsRaised    prometheus.Counter
	alertsPersisted *prometheus.CounterVec
	notifications   *prometheus.CounterVec

	broadcasts *prometheus.CounterVec

	observerGaugeOnce sync.Once
)

// Init registers pipeline metrics. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		ingestMessages = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_messages_total",
				Help: "Total ingested telemetry messages by result",
			},
			[]string{"result"},
		)
		ingestErrors = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_errors_total",
				Help: "Total ingest errors by reason",
			},
			[]string{"reason"},
		)
		ingestLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "ingest_latency_seconds",
				Help:    "Per-message pipeline latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		enrichmentTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "enrichment_total",
				Help: "Total classifier calls by result",
			},
			[]string{"result"},
		)
		enrichmentLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "enrichment_latency_seconds",
				Help:    "Classifier call latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		alertsRaised = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "alerts_raised_total",
				Help: "Total alert records built from anomalous readings",
			},
		)
		alertsPersisted = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alerts_persisted_total",
				Help: "Total alert persistence attempts by result",
			},
			[]string{"result"},
		)
		notifications = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "notifications_total",
				Help: "Total notification sink outcomes",
			},
			[]string{"result"},
		)

		broadcasts = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "broadcasts_total",
				Help: "Total observer broadcasts by channel",
			},
			[]string{"channel"},
		)

		prometheus.MustRegister(
			ingestMessages,
			ingestErrors,
			ingestLatency,
			enrichmentTotal,
			enrichmentLatency,
			alertsRaised,
			alertsPersisted,
			notifications,
			broadcasts,
		)
	})
}

// RegisterObserverGauge exposes the current observer count.
func RegisterObserverGauge(count func() float64) {
	if count == nil {
		return
	}
	observerGaugeOnce.Do(func() {
		prometheus.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: metricPrefix + "observers_connected",
				Help: "Currently connected observers",
			},
			count,
		))
	})
}

// ObserveIngest records one handled message.
func ObserveIngest(result string, duration time.Duration) {
	if ingestMessages == nil || ingestLatency == nil {
		return
	}
	result = normalizeResult(result)
	ingestMessages.WithLabelValues(result).Inc()
	ingestLatency.WithLabelValues(result).Observe(duration.Seconds())
}

// IncIngestError records an ingest failure reason.
func IncIngestError(reason string) {
	if ingestErrors == nil {
		return
	}
	ingestErrors.WithLabelValues(strings.TrimSpace(reason)).Inc()
}

// ObserveEnrichment records one classifier call.
func ObserveEnrichment(result string, duration time.Duration) {
	if enrichmentTotal == nil || enrichmentLatency == nil {
		return
	}
	result = normalizeResult(result)
	enrichmentTotal.WithLabelValues(result).Inc()
	enrichmentLatency.WithLabelValues(result).Observe(duration.Seconds())
}

// IncAlertRaised records a built alert record.
func IncAlertRaised() {
	if alertsRaised == nil {
		return
	}
	alertsRaised.Inc()
}

// IncAlertPersisted records a persistence attempt.
func IncAlertPersisted(result string) {
	if alertsPersisted == nil {
		return
	}
	alertsPersisted.WithLabelValues(normalizeResult(result)).Inc()
}

// IncNotification records a notification sink outcome.
func IncNotification(result string) {
	if notifications == nil {
		return
	}
	notifications.WithLabelValues(result).Inc()
}

// IncBroadcast records an observer broadcast on a channel.
func IncBroadcast(channel string) {
	if broadcasts == nil {
		return
	}
	broadcasts.WithLabelValues(channel).Inc()
}

func normalizeResult(result string) string {
	switch result {
	case ResultSuccess, ResultError, ResultFallback:
		return result
	default:
		return ResultError
	}
}
