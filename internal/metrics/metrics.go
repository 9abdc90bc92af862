package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the prometheus collectors for the transcription service.
type Metrics struct {
	RequestsTotal       *prometheus.CounterVec
	RequestDuration     prometheus.Histogram
	AudioSizeBytes      prometheus.Histogram
	ChunksPerRequest    prometheus.Histogram
	RateLimitRejections prometheus.Counter
	CredentialRefreshes prometheus.Counter

	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New registers all collectors on reg. Tests pass a fresh registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stt_requests_total",
			Help: "Transcription requests by outcome",
		}, []string{"outcome"}),
		RequestDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "stt_request_duration_seconds",
			Help:    "Wall-clock duration of recognition calls",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		AudioSizeBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "stt_audio_size_bytes",
			Help:    "Size of submitted audio buffers",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
		}),
		ChunksPerRequest: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "stt_chunks_per_request",
			Help:    "Chunk count of long-audio requests",
			Buckets: prometheus.LinearBuckets(1, 1, 10),
		}),
		RateLimitRejections: factory.NewCounter(prometheus.CounterOpts{
			Name: "stt_rate_limit_rejections_total",
			Help: "Requests rejected by the local rate limiter",
		}),
		CredentialRefreshes: factory.NewCounter(prometheus.CounterOpts{
			Name: "stt_credential_refreshes_total",
			Help: "Full credential refresh cycles triggered by auth errors",
		}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stt_http_requests_total",
			Help: "HTTP requests by method, endpoint and status",
		}, []string{"method", "endpoint", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stt_http_request_duration_seconds",
			Help:    "HTTP request handling duration",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"endpoint"}),
	}
}
