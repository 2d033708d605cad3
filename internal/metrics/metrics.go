package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ytstream",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, path and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ytstream",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10, 30},
	}, []string{"method", "path"})

	ActiveStreams = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "ytstream",
		Name:      "active_streams",
		Help:      "Number of currently active streaming sessions.",
	})

	StreamsStartedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ytstream",
		Name:      "streams_started_total",
		Help:      "Total streaming sessions started by mode and quality.",
	}, []string{"mode", "quality"})

	StreamFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ytstream",
		Name:      "stream_failures_total",
		Help:      "Total streaming sessions that ended in error, by stage.",
	}, []string{"stage"})

	StreamBytesSentTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ytstream",
		Name:      "stream_bytes_sent_total",
		Help:      "Total response bytes delivered to clients.",
	})

	StreamDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "ytstream",
		Name:      "stream_duration_seconds",
		Help:      "Duration of streaming sessions in seconds.",
		Buckets:   []float64{1, 5, 10, 30, 60, 300, 900, 3600},
	})

	RemuxProcessesActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "ytstream",
		Name:      "remux_processes_active",
		Help:      "Number of ffmpeg merge processes currently running.",
	})

	ResolveDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "ytstream",
		Name:      "resolve_duration_seconds",
		Help:      "Duration of catalog resolution calls in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10},
	})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		ActiveStreams,
		StreamsStartedTotal,
		StreamFailuresTotal,
		StreamBytesSentTotal,
		StreamDuration,
		RemuxProcessesActive,
		ResolveDuration,
	)
}
