// Package startup handles configuration loading and startup logging.
//
// # Configuration
//
// All configuration is loaded from environment variables via [LoadConfig].
// The following environment variables are supported:
//
//   - STORAGE_DIR: Directory variants are stored in (default: ./images)
//   - STAGING_DIR: Directory uploads are staged in before processing
//     (default: <os temp dir>/image-variants)
//   - JPEG_QUALITY: Quality of every variant, 1-100 (default: 65)
//   - JPEG_INTERLACE: Write progressive JPEG where the codec supports it (default: true)
//   - CODEC_BACKEND: "imaging" or "vips" (default: imaging)
//   - VARIANT_WORKERS: Concurrent encode jobs per upload (default: 2 per CPU, max 8)
//   - RETAIN_UNCROPPED_UPLOAD: Keep a square upload when the original
//     variant is stored (default: true)
//   - MAX_IMAGE_PIXELS: Reject uploads with more pixels (default: 0, unlimited)
//   - METRICS_TEXTFILE: Write Prometheus metrics to this file on exit
//   - LOG_LEVEL: debug, info, warn or error (default: info)
//
// Both directories are created if missing and checked for write access.
// [Config.VariantConfig] turns the result into a variants.Config.
//
// # Build Information
//
// Version, Commit and BuildTime are set at build time via -ldflags:
//
//	go build -ldflags "-X image-variants/internal/startup.Version=1.0.0"
package startup
