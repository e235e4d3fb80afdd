package heygen

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeSuccess   = "success"
	outcomeTransport = "transport_error"
	outcomeDecode    = "decode_error"
	outcomeUpstream  = "upstream_error"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hgs_heygen_requests_total",
		Help: "Outcome of upstream HeyGen API requests",
	}, []string{"operation", "outcome"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hgs_heygen_request_duration_seconds",
		Help:    "Latency of upstream HeyGen API requests",
		Buckets: prometheus.ExponentialBuckets(0.05, 2.0, 10), // 50ms .. ~25.6s
	}, []string{"operation"})
)

func observeRequest(operation, outcome string, d time.Duration) {
	requestsTotal.WithLabelValues(operation, outcome).Inc()
	requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

func outcomeFor(status int) string {
	switch {
	case status >= 500:
		return "status_5xx"
	case status == 429:
		return "status_429"
	case status >= 400:
		return "status_4xx"
	default:
		return outcomeUpstream
	}
}
