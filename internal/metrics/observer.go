package metrics

import "image-variants/internal/filesystem"

type filesystemObserver struct{}

// NewFilesystemObserver returns a filesystem.Observer backed by the
// Filesystem* collectors.
func NewFilesystemObserver() filesystem.Observer {
	return filesystemObserver{}
}

func (filesystemObserver) ObserveOperation(volume, operation string, durationSeconds float64, err error) {
	FilesystemOperationDuration.WithLabelValues(volume, operation).Observe(durationSeconds)
	if err != nil {
		FilesystemOperationErrors.WithLabelValues(volume, operation).Inc()
	}
}

func (filesystemObserver) ObserveRetry(operation, volume string, event filesystem.RetryEvent) {
	FilesystemRetryEvents.WithLabelValues(operation, volume, string(event)).Inc()
}
