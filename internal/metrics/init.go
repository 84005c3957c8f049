package metrics

import (
	"fmt"

	"image-variants/internal/filesystem"

	"github.com/prometheus/client_golang/prometheus"
)

// InitializeMetrics pre-populates all expected label combinations so that
// every series exists in the first textfile or scrape.
func InitializeMetrics() {
	for _, stage := range []string{"inspect", "crop", "encode", "cleanup"} {
		PipelineStageDuration.WithLabelValues(stage)
	}

	for _, status := range AddStatuses {
		AddTotal.WithLabelValues(status)
	}

	for _, size := range []string{"xs", "sm", "md", "lg", "o"} {
		VariantsWrittenTotal.WithLabelValues(size)
	}

	fileStatuses := []string{"removed", "missing", "error"}
	for _, c := range []string{"A", "B", "C", "D", "failed"} {
		for _, status := range fileStatuses {
			CleanupFilesTotal.WithLabelValues(c, status)
		}
	}
	for _, status := range fileStatuses {
		RemoveFilesTotal.WithLabelValues(status)
	}

	volumes := []string{"storage", "staging", "unknown"}
	fsOps := []string{"stat", "open", "remove", "rename"}
	for _, vol := range volumes {
		for _, op := range fsOps {
			FilesystemOperationDuration.WithLabelValues(vol, op)
			FilesystemOperationErrors.WithLabelValues(vol, op)
			for _, ev := range filesystem.RetryEvents {
				FilesystemRetryEvents.WithLabelValues(op, vol, string(ev))
			}
		}
	}
}

// WriteTextfile writes every registered metric to path in the text
// exposition format, for the node-exporter textfile collector.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
