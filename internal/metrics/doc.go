/*
Package metrics declares the Prometheus collectors for the image variant
pipeline.

All collectors are registered on the default registry through promauto and
share the image_variants_ prefix:

  - pipeline_stage_duration_seconds{stage}: inspect, crop, encode, cleanup
  - add_total{status}: success, error_params, error_decode, error_encode,
//    error_cancelled
  - variants_written_total{size}: one increment per published variant file
  - encode_in_flight: encodes currently running inside a fan-out
  - cleanup_files_total{case,status}: intermediate files handled per
    cleanup case (A-D, or "failed" for the failure path)
  - remove_files_total{status}: stored files handled by removal
  - filesystem_*: operation and ESTALE retry metrics fed by the
    filesystem.Observer returned from NewFilesystemObserver

The variants CLI is short-lived, so instead of serving /metrics it writes the
default gatherer to a file with WriteTextfile when METRICS_TEXTFILE is set.
*/
package metrics
