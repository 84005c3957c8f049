package filesystem

// RetryEvent labels a step of the stale-handle retry loop.
type RetryEvent string

const (
	RetryStale   RetryEvent = "stale"
	RetryAttempt RetryEvent = "attempt"
	RetrySuccess RetryEvent = "success"
	RetryFailure RetryEvent = "failure"
)

// RetryEvents lists every event in the order the retry loop can emit them.
var RetryEvents = []RetryEvent{RetryStale, RetryAttempt, RetrySuccess, RetryFailure}

// Observer receives timings and retry events from the *WithRetry helpers.
// The metrics package provides the Prometheus-backed implementation.
type Observer interface {
	// ObserveOperation is called once per helper call with the total elapsed
	// time, including any backoff, and the final error.
	ObserveOperation(volume, operation string, durationSeconds float64, err error)

	// ObserveRetry is called for every stale handle seen and every
	// retry decision taken.
	ObserveRetry(operation, volume string, event RetryEvent)
}

var defaultObserver Observer

// SetObserver installs o for all subsequent filesystem calls. A nil
// observer disables recording.
func SetObserver(o Observer) {
	defaultObserver = o
}

func notify(operation, volume string, event RetryEvent) {
	if defaultObserver != nil {
		defaultObserver.ObserveRetry(operation, volume, event)
	}
}
