package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	httpDurationHistogram *prometheus.HistogramVec
	idempotencyCounter    *prometheus.CounterVec
	feeFallbackCounter    *prometheus.CounterVec
	webhookCounter        *prometheus.CounterVec
	splitImbalanceCounter prometheus.Counter
	negativeNetCounter    prometheus.Counter
	notificationCounter   *prometheus.CounterVec
	workerRunCounter      *prometheus.CounterVec
)

// Init registers all Prometheus collectors.
func Init() {
	registerOnce.Do(func() {
		httpDurationHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"})

		idempotencyCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "idempotency_events_total",
			Help: "Idempotency middleware outcomes",
		}, []string{"outcome"})

		feeFallbackCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fee_rule_fallback_total",
			Help: "Resolutions that fell through to the hard-coded default fee table",
		}, []string{"fee_type"})

		webhookCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "processor_webhook_events_total",
			Help: "Processor webhook deliveries by outcome",
		}, []string{"outcome"})

		splitImbalanceCounter = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "commission_split_imbalance_total",
			Help: "Number of times persisted splits diverged from the sale net amount",
		})

		negativeNetCounter = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sale_negative_net_total",
			Help: "Sales recorded with combined fees exceeding the gross amount",
		})

		notificationCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notification_deliveries_total",
			Help: "Outbound notification outcomes per channel",
		}, []string{"channel", "outcome"})

		workerRunCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_runs_total",
			Help: "Background worker run outcomes",
		}, []string{"worker", "result"})

		prometheus.MustRegister(
			httpDurationHistogram,
			idempotencyCounter,
			feeFallbackCounter,
			webhookCounter,
			splitImbalanceCounter,
			negativeNetCounter,
			notificationCounter,
			workerRunCounter,
		)
	})
}

func ObserveHTTP(method, path string, status int, duration time.Duration) {
	if httpDurationHistogram == nil {
		return
	}
	httpDurationHistogram.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}

func IncrementIdempotencyEvent(outcome string) {
	if idempotencyCounter == nil {
		return
	}
	idempotencyCounter.WithLabelValues(outcome).Inc()
}

func IncrementFeeFallback(feeType string) {
	if feeFallbackCounter == nil {
		return
	}
	feeFallbackCounter.WithLabelValues(feeType).Inc()
}

func IncrementWebhookEvent(outcome string) {
	if webhookCounter == nil {
		return
	}
	webhookCounter.WithLabelValues(outcome).Inc()
}

func IncrementSplitImbalance() {
	if splitImbalanceCounter == nil {
		return
	}
	splitImbalanceCounter.Inc()
}

func IncrementNegativeNetSale() {
	if negativeNetCounter == nil {
		return
	}
	negativeNetCounter.Inc()
}

func IncrementNotification(channel, outcome string) {
	if notificationCounter == nil {
		return
	}
	notificationCounter.WithLabelValues(channel, outcome).Inc()
}

func IncrementWorkerRun(worker, result string) {
	if workerRunCounter == nil {
		return
	}
	workerRunCounter.WithLabelValues(worker, result).Inc()
}
