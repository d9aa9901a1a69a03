package monitoring

import (
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Deployment metadata attached to every metric as constant labels
var (
	kubernetesNamespace = os.Getenv("KUBERNETES_NAMESPACE")
	kubernetesPodName   = os.Getenv("KUBERNETES_POD_NAME")
	helmReleaseName     = os.Getenv("HELM_RELEASE_NAME")
)

func constLabels() prometheus.Labels {
	labels := prometheus.Labels{}

	if kubernetesNamespace != "" {
		labels["kubernetes_namespace"] = kubernetesNamespace
	}
	if kubernetesPodName != "" {
		labels["kubernetes_pod_name"] = kubernetesPodName
	}
	if helmReleaseName != "" {
		labels["helm_release"] = helmReleaseName
	}

	return labels
}

var (
	registry = prometheus.NewRegistry()
	factory  = promauto.With(prometheus.WrapRegistererWith(constLabels(), registry))
)

func init() {
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Registry returns the registry all httpmsg metrics are registered with
func Registry() *prometheus.Registry {
	return registry
}

var (
	// HTTP Request metrics
	RequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpmsg_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	RequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpmsg_request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	ActiveConnections = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpmsg_active_connections",
			Help: "Number of requests currently being served",
		},
	)

	ResponseBytes = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpmsg_response_bytes_total",
			Help: "Total response body bytes written",
		},
		[]string{"endpoint"},
	)

	// Body consumption metrics
	ConsumptionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpmsg_consumptions_total",
			Help: "Total number of body consumptions by consumer kind and result",
		},
		[]string{"kind", "result"},
	)

	ConsumptionDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpmsg_consumption_duration_seconds",
			Help:    "Time spent consuming a message body",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"kind", "size_category"},
	)

	BytesConsumed = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpmsg_bytes_consumed_total",
			Help: "Total payload bytes consumed",
		},
		[]string{"kind"},
	)

	LinesDecoded = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "httpmsg_lines_decoded_total",
			Help: "Total number of lines produced by the line decoder",
		},
	)

	// Server metrics
	ServerInfo = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "httpmsg_server_info",
			Help: "Server build information",
		},
		[]string{"version", "commit", "build_time"},
	)
)

// SetServerInfo sets server build information
func SetServerInfo(version, commit, buildTime string) {
	ServerInfo.WithLabelValues(version, commit, buildTime).Set(1)
}

// RecordConsumption records the outcome of consuming one message body.
// result is "ok" or the error kind reported to the client.
func RecordConsumption(kind, result string, size int64, duration time.Duration) {
	ConsumptionsTotal.WithLabelValues(kind, result).Inc()
	ConsumptionDuration.WithLabelValues(kind, sizeCategory(size)).Observe(duration.Seconds())
	if size > 0 {
		BytesConsumed.WithLabelValues(kind).Add(float64(size))
	}
}

// RecordLines records lines emitted by the line decoder
func RecordLines(n int) {
	if n > 0 {
		LinesDecoded.Add(float64(n))
	}
}

// sizeCategory buckets body sizes around the default 256KB limit
func sizeCategory(size int64) string {
	switch {
	case size <= 0:
		return "empty"
	case size < 1024:
		return "tiny" // < 1KB
	case size < 64*1024:
		return "small" // < 64KB
	case size <= 256*1024:
		return "medium" // <= 256KB
	default:
		return "large"
	}
}
