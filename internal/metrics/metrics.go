// Package metrics provides Prometheus metrics for the sync agent.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config holds metrics configuration.
type Config struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"` // address for the metrics HTTP server (e.g. ":9090")
}

// Metrics holds all Prometheus metrics for the sync agent.
type Metrics struct {
	// Transfer metrics
	Downloads prometheus.Counter
	Uploads   prometheus.Counter

	// Error metrics
	DownloadErrors prometheus.Counter
	UploadErrors   prometheus.Counter
	ListErrors     prometheus.Counter

	// Cooldown metrics
	CooldownSkips prometheus.Counter

	// Pass metrics
	LastPassUnix prometheus.Gauge
	PassDuration prometheus.Histogram
}

var defaultMetrics *Metrics

// Init initializes the metrics package with global metrics.
// Call this once at startup.
func Init(namespace string) *Metrics {
	if namespace == "" {
		namespace = "rpa_sync"
	}

	m := &Metrics{
		Downloads: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "downloads_total",
				Help:      "Total number of input objects downloaded",
			},
		),
		Uploads: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "uploads_total",
				Help:      "Total number of completed files uploaded",
			},
		),
		DownloadErrors: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "download_errors_total",
				Help:      "Total number of failed download attempts",
			},
		),
		UploadErrors: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upload_errors_total",
				Help:      "Total number of failed upload attempts",
			},
		),
		ListErrors: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "list_errors_total",
				Help:      "Total number of remote listing failures",
			},
		),
		CooldownSkips: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cooldown_skips_total",
				Help:      "Total number of transfers skipped while in failure cooldown",
			},
		),
		LastPassUnix: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_pass_unix_time",
				Help:      "Unix time of the last completed sync pass",
			},
		),
		PassDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "pass_duration_seconds",
				Help:      "Duration of a full sync pass (download + upload)",
				Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12), // 0.1s to ~400s
			},
		),
	}

	defaultMetrics = m
	return m
}

// Get returns the global metrics instance.
// Returns nil if Init has not been called.
func Get() *Metrics {
	return defaultMetrics
}

// StartServer starts an HTTP server for Prometheus metrics scraping.
// Blocks until the server exits.
func StartServer(address string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return http.ListenAndServe(address, mux)
}

// All helpers tolerate a nil receiver so metrics can stay disabled.

// IncDownloads increments the downloads counter.
func (m *Metrics) IncDownloads() {
	if m == nil {
		return
	}
	m.Downloads.Inc()
}

// IncUploads increments the uploads counter.
func (m *Metrics) IncUploads() {
	if m == nil {
		return
	}
	m.Uploads.Inc()
}

// IncDownloadErrors increments the download errors counter.
func (m *Metrics) IncDownloadErrors() {
	if m == nil {
		return
	}
	m.DownloadErrors.Inc()
}

// IncUploadErrors increments the upload errors counter.
func (m *Metrics) IncUploadErrors() {
	if m == nil {
		return
	}
	m.UploadErrors.Inc()
}

// IncListErrors increments the listing errors counter.
func (m *Metrics) IncListErrors() {
	if m == nil {
		return
	}
	m.ListErrors.Inc()
}

// IncCooldownSkips increments the cooldown skips counter.
func (m *Metrics) IncCooldownSkips() {
	if m == nil {
		return
	}
	m.CooldownSkips.Inc()
}

// SetLastPassTime sets the last completed pass timestamp.
func (m *Metrics) SetLastPassTime(unix float64) {
	if m == nil {
		return
	}
	m.LastPassUnix.Set(unix)
}

// ObservePassDuration records the duration of a full sync pass.
func (m *Metrics) ObservePassDuration(seconds float64) {
	if m == nil {
		return
	}
	m.PassDuration.Observe(seconds)
}
