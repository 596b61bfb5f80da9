package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

var (
	NoticesGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notices_generated_total",
			Help: "Total number of formal notices rendered",
		},
		[]string{"result"},
	)

	NoticeGenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "notice_generation_duration_seconds",
			Help:    "Duration of notice rendering in seconds",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
		},
	)

	NoticePages = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "notice_pages",
			Help:    "Number of pages per rendered notice",
			Buckets: []float64{1, 2, 3, 4, 6, 10},
		},
	)

	NoticesArchived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notices_archived_total",
			Help: "Total number of notices stored in the archive",
		},
		[]string{"result"},
	)

	NoticeDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notice_deliveries_total",
			Help: "Total number of notice email deliveries by final status",
		},
		[]string{"status"},
	)

	NoticeExports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notice_exports_total",
			Help: "Total number of notice register exports",
		},
		[]string{"result"},
	)

	ExportsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "notice_exports_active",
			Help: "Number of notice register exports in progress",
		},
	)

	RateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_rate_limited_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
		[]string{"route"},
	)
)
