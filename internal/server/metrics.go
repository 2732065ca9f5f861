package server

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	logins          *prometheus.CounterVec
	uploads         prometheus.Counter
	uploadBytes     prometheus.Counter
	uploadsRejected *prometheus.CounterVec
	downloads       *prometheus.CounterVec
	errors          *prometheus.CounterVec
	info            *prometheus.GaugeVec
}

// NewMetrics registers all collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		requests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sfd_requests_total",
				Help: "Total HTTP requests by status class",
			},
			[]string{"code"},
		),
		requestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sfd_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		logins: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sfd_logins_total",
				Help: "Login attempts by role and result",
			},
			[]string{"role", "result"},
		),
		uploads: f.NewCounter(prometheus.CounterOpts{
			Name: "sfd_uploads_total",
			Help: "Accepted file uploads",
		}),
		uploadBytes: f.NewCounter(prometheus.CounterOpts{
			Name: "sfd_upload_bytes_total",
			Help: "Bytes stored by accepted uploads",
		}),
		uploadsRejected: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sfd_uploads_rejected_total",
				Help: "Rejected uploads by reason",
			},
			[]string{"reason"},
		),
		downloads: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sfd_downloads_total",
				Help: "Downloads by kind (single or archive)",
			},
			[]string{"kind"},
		),
		errors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sfd_http_errors_total",
				Help: "Error responses by error type",
			},
			[]string{"type"},
		),
		info: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sfd_info",
				Help: "Build information",
			},
			[]string{"version", "commit"},
		),
	}
}

// RecordRequest counts a finished request under its status class ("2xx").
func (m *Metrics) RecordRequest(method string, status int, d time.Duration) {
	m.requests.WithLabelValues(strconv.Itoa(status/100) + "xx").Inc()
	m.requestDuration.WithLabelValues(method).Observe(d.Seconds())
}

// RecordUpload counts an accepted upload of n bytes.
func (m *Metrics) RecordUpload(n int64) {
	m.uploads.Inc()
	m.uploadBytes.Add(float64(n))
}

// RecordUploadRejected counts an upload refused for reason.
func (m *Metrics) RecordUploadRejected(reason string) {
	m.uploadsRejected.WithLabelValues(reason).Inc()
}

// RecordLogin counts a login attempt.
func (m *Metrics) RecordLogin(role, result string) {
	m.logins.WithLabelValues(role, result).Inc()
}

// RecordDownload counts a download of kind "single" or "archive".
func (m *Metrics) RecordDownload(kind string) {
	m.downloads.WithLabelValues(kind).Inc()
}
