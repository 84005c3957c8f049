package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for AddTotal.
const (
	AddSuccess     = "success"
	AddErrorParams = "error_params"
	AddErrorDecode = "error_decode"
	AddErrorEncode = "error_encode"
	AddCancelled   = "error_cancelled"
)

// AddStatuses lists every AddTotal status label.
var AddStatuses = []string{AddSuccess, AddErrorParams, AddErrorDecode, AddErrorEncode, AddCancelled}

// Pipeline metrics
var (
	PipelineStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "image_variants_pipeline_stage_duration_seconds",
			Help:    "Duration of each variant pipeline stage in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"stage"}, // "inspect", "crop", "encode", "cleanup"
	)

	AddTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_variants_add_total",
			Help: "Total number of add operations by outcome",
		},
		[]string{"status"},
	)

	VariantsWrittenTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_variants_variants_written_total",
			Help: "Total number of variant files written by size key",
		},
		[]string{"size"}, // "xs", "sm", "md", "lg", "o"
	)

	EncodeInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "image_variants_encode_in_flight",
			Help: "Number of variant encodes currently running",
		},
	)
)

// Cleanup and removal metrics
var (
	CleanupFilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_variants_cleanup_files_total",
			Help: "Intermediate files handled by the cleanup policy",
		},
		[]string{"case", "status"}, // case A-D; "removed", "missing", "error"
	)

	RemoveFilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_variants_remove_files_total",
			Help: "Stored variant files handled by removal",
		},
		[]string{"status"},
	)
)

// Filesystem metrics
var (
	FilesystemOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "image_variants_filesystem_operation_duration_seconds",
			Help:    "Duration of filesystem operations in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"volume", "operation"},
	)

	FilesystemOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_variants_filesystem_operation_errors_total",
			Help: "Total number of failed filesystem operations",
		},
		[]string{"volume", "operation"},
	)

	FilesystemRetryEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_variants_filesystem_retry_events_total",
			Help: "Stale file handle retry events by outcome",
		},
		[]string{"operation", "volume", "event"},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "image_variants_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version", "codec"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion, codec string) {
	AppInfo.Reset()
	AppInfo.WithLabelValues(version, commit, goVersion, codec).Set(1)
}
