package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gallery",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "gallery",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"method", "endpoint"},
	)

	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gallery",
			Subsystem: "api",
			Name:      "uploads_total",
			Help:      "Total file uploads",
		},
		[]string{"media_type", "status"},
	)

	UploadBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gallery",
			Subsystem: "api",
			Name:      "upload_bytes_total",
			Help:      "Total bytes uploaded",
		},
		[]string{"media_type"},
	)

	StorageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gallery",
			Subsystem: "api",
			Name:      "storage_operations_total",
			Help:      "Total object storage operations",
		},
		[]string{"operation", "status"},
	)

	StorageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "gallery",
			Subsystem: "api",
			Name:      "storage_duration_seconds",
			Help:      "Object storage operation duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"operation"},
	)

	TranscodeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gallery",
			Subsystem: "api",
			Name:      "transcode_total",
			Help:      "Total transcoder invocations",
		},
		[]string{"operation", "status"},
	)

	MigrationFilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gallery",
			Subsystem: "migration",
			Name:      "files_total",
			Help:      "Migration outcomes per file",
		},
		[]string{"status"},
	)
)

// RecordRequest records an HTTP request
func RecordRequest(method, endpoint, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint).Observe(durationSec)
}

// RecordUpload records a file upload
func RecordUpload(mediaType, status string, bytes int64) {
	UploadsTotal.WithLabelValues(mediaType, status).Inc()
	if status == "success" {
		UploadBytesTotal.WithLabelValues(mediaType).Add(float64(bytes))
	}
}

// RecordStorageOperation records an object storage operation
func RecordStorageOperation(operation, status string, durationSec float64) {
	StorageOperationsTotal.WithLabelValues(operation, status).Inc()
	StorageDuration.WithLabelValues(operation).Observe(durationSec)
}

// RecordTranscode records a transcoder invocation
func RecordTranscode(operation, status string) {
	TranscodeTotal.WithLabelValues(operation, status).Inc()
}

// RecordMigrationFile records one file outcome in the migration utility
func RecordMigrationFile(status string) {
	MigrationFilesTotal.WithLabelValues(status).Inc()
}
