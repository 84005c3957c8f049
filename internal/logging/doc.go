// Package logging provides the leveled logger shared by the variant
// pipeline, the codec backends and the variants CLI.
//
// It supports the following log levels:
//   - DEBUG: Per-stage timings and codec decisions
//   - INFO: One summary line per stored image
//   - WARN: Non-fatal cleanup and removal failures
//   - ERROR: Failed add operations
//   - FATAL: Startup errors that terminate the CLI
//
// The level is read once from DEBUG or LOG_LEVEL and can be overridden
// with SetLevel.
package logging
