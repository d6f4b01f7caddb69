// Package observability provides Prometheus metrics and logger construction.
package observability

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Discovery metrics
	SourceRuns           *prometheus.CounterVec
	SourceDuration       *prometheus.HistogramVec
	CandidatesDiscovered *prometheus.CounterVec

	// Resolution metrics
	Resolutions        *prometheus.CounterVec
	RateLimitPenalties prometheus.Counter
	RPCCallLatency     *prometheus.HistogramVec

	// Admission metrics
	RecordsAdmitted *prometheus.CounterVec
	RecordsRejected *prometheus.CounterVec
	ArchiveErrors   prometheus.Counter

	// Store metrics
	CacheSize     prometheus.Gauge
	SeenSize      prometheus.Gauge
	Subscriptions prometheus.Gauge

	// Scheduler metrics
	TriggerRuns     *prometheus.CounterVec
	TriggerDuration *prometheus.HistogramVec

	// HTTP metrics
	HTTPRequests  *prometheus.CounterVec
	HTTPDuration  *prometheus.HistogramVec
	ProxyOutcomes *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance registered with the default registry.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer, namespace)
}

// NewMetricsWith registers metrics with reg. Tests pass a fresh registry.
func NewMetricsWith(reg prometheus.Registerer, namespace string) *Metrics {
	if namespace == "" {
		namespace = "hypeflow"
	}
	f := promauto.With(reg)

	return &Metrics{
		SourceRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "source_runs_total",
			Help:      "Total number of source adapter runs by outcome",
		}, []string{"source", "status"}),
		SourceDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "source_duration_seconds",
			Help:      "Source adapter run duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"source"}),
		CandidatesDiscovered: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "candidates_total",
			Help:      "Total number of candidate mints and records discovered by source",
		}, []string{"source"}),

		Resolutions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "resolutions_total",
			Help:      "Total number of mint resolutions by result",
		}, []string{"result"}),
		RateLimitPenalties: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "throttle",
			Name:      "rate_limit_penalties_total",
			Help:      "Total number of 429 responses that pushed the shared clock",
		}),
		RPCCallLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

		RecordsAdmitted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "records_admitted_total",
			Help:      "Total number of records admitted to the cache by source",
		}, []string{"source"}),
		RecordsRejected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "records_rejected_total",
			Help:      "Total number of records dropped for missing name or image by source",
		}, []string{"source"}),
		ArchiveErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "archive_errors_total",
			Help:      "Total number of failed archive appends",
		}),

		CacheSize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "cache_records",
			Help:      "Current number of cached records",
		}),
		SeenSize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "seen_ids",
			Help:      "Current number of seen mints and signatures",
		}),
		Subscriptions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "subscriptions",
			Help:      "Current number of subscribed collections",
		}),

		TriggerRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "trigger_runs_total",
			Help:      "Total number of trigger runs by status",
		}, []string{"trigger", "status"}),
		TriggerDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "trigger_duration_seconds",
			Help:      "Trigger run duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}, []string{"trigger"}),

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route and status code",
		}, []string{"method", "route", "code"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		ProxyOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "proxy_outcomes_total",
			Help:      "Total number of image proxy requests by outcome",
		}, []string{"outcome"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordSourceRun records one adapter run and how many candidates it yielded.
func RecordSourceRun(source, status string, candidates int, seconds float64) {
	DefaultMetrics.SourceRuns.WithLabelValues(source, status).Inc()
	DefaultMetrics.SourceDuration.WithLabelValues(source).Observe(seconds)
	DefaultMetrics.CandidatesDiscovered.WithLabelValues(source).Add(float64(candidates))
}

// RecordResolution records a resolver outcome.
func RecordResolution(result string) {
	DefaultMetrics.Resolutions.WithLabelValues(result).Inc()
}

// RecordRateLimitPenalty increments the throttle penalty counter.
func RecordRateLimitPenalty() {
	DefaultMetrics.RateLimitPenalties.Inc()
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordAdmission records whether a record entered the cache.
func RecordAdmission(source string, admitted bool) {
	if admitted {
		DefaultMetrics.RecordsAdmitted.WithLabelValues(source).Inc()
		return
	}
	DefaultMetrics.RecordsRejected.WithLabelValues(source).Inc()
}

// RecordArchiveError increments the archive error counter.
func RecordArchiveError() {
	DefaultMetrics.ArchiveErrors.Inc()
}

// UpdateStoreSizes updates the store gauges.
func UpdateStoreSizes(cache, seen, subscriptions int) {
	DefaultMetrics.CacheSize.Set(float64(cache))
	DefaultMetrics.SeenSize.Set(float64(seen))
	DefaultMetrics.Subscriptions.Set(float64(subscriptions))
}

// RecordTriggerRun records a scheduler trigger run.
func RecordTriggerRun(trigger, status string, seconds float64) {
	DefaultMetrics.TriggerRuns.WithLabelValues(trigger, status).Inc()
	if status != "skipped" {
		DefaultMetrics.TriggerDuration.WithLabelValues(trigger).Observe(seconds)
	}
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(method, route string, code int, seconds float64) {
	DefaultMetrics.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	DefaultMetrics.HTTPDuration.WithLabelValues(route).Observe(seconds)
}

// RecordProxyOutcome records how an image proxy request was answered.
func RecordProxyOutcome(outcome string) {
	DefaultMetrics.ProxyOutcomes.WithLabelValues(outcome).Inc()
}
