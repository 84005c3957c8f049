package startup

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"image-variants/internal/codec"
	"image-variants/internal/logging"
	"image-variants/internal/variants"
	"image-variants/internal/workers"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// Config holds all application configuration
type Config struct {
	StorageDir            string
	StagingDir            string
	Quality               int
	Interlace             bool
	CodecBackend          string
	Workers               int
	RetainUncroppedUpload bool
	MaxPixels             int64
	MetricsTextfile       string
}

// VariantConfig converts c into the configuration a variants.Store runs with.
func (c *Config) VariantConfig() variants.Config {
	cfg := variants.DefaultConfig(c.StorageDir)
	cfg.Quality = c.Quality
	cfg.Interlace = c.Interlace
	cfg.Workers = c.Workers
	cfg.RetainUncroppedUpload = c.RetainUncroppedUpload
	cfg.MaxPixels = c.MaxPixels
	return cfg
}

// LoadConfig loads and validates configuration from environment variables
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	storageDir := getEnv("STORAGE_DIR", "./images")
	stagingDir := getEnv("STAGING_DIR", filepath.Join(os.TempDir(), "image-variants"))
	quality := getEnvInt("JPEG_QUALITY", variants.DefaultQuality)
	interlace := getEnvBool("JPEG_INTERLACE", true)
	backend := strings.ToLower(getEnv("CODEC_BACKEND", codec.BackendVips))
	workerCount := workers.ForIO(8)
	retain := getEnvBool("RETAIN_UNCROPPED_UPLOAD", variants.RetainUncroppedUploadDefault)
	maxPixels := int64(getEnvInt("MAX_IMAGE_PIXELS", 0))
	metricsTextfile := getEnv("METRICS_TEXTFILE", "")

	logging.Info("  STORAGE_DIR:             %s", storageDir)
	logging.Info("  STAGING_DIR:             %s", stagingDir)
	logging.Info("  JPEG_QUALITY:            %d", quality)
	logging.Info("  JPEG_INTERLACE:          %v", interlace)
	logging.Info("  CODEC_BACKEND:           %s", backend)
	logging.Info("  %s:         %d", workers.OverrideEnv, workerCount)
	logging.Info("  RETAIN_UNCROPPED_UPLOAD: %v", retain)
	logging.Info("  MAX_IMAGE_PIXELS:        %s", limitString(maxPixels))
	logging.Info("  METRICS_TEXTFILE:        %s", valueOrNone(metricsTextfile))
	logging.Info("  LOG_LEVEL:               %s", logging.GetLevel())

	if quality < 1 || quality > 100 {
		logging.Warn("  Invalid JPEG_QUALITY %d, using default: %d", quality, variants.DefaultQuality)
		quality = variants.DefaultQuality
	}
	if maxPixels < 0 {
		logging.Warn("  Invalid MAX_IMAGE_PIXELS %d, disabling the limit", maxPixels)
		maxPixels = 0
	}
	if backend != codec.BackendImaging && backend != codec.BackendVips {
		return nil, fmt.Errorf("%w: %q", codec.ErrUnknownBackend, backend)
	}

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	storageDir, err := filepath.Abs(storageDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage directory path: %w", err)
	}
	logging.Info("  Storage directory (absolute): %s", storageDir)

	stagingDir, err = filepath.Abs(stagingDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve staging directory path: %w", err)
	}
	logging.Info("  Staging directory (absolute): %s", stagingDir)

	for _, dir := range []struct{ path, name string }{
		{storageDir, "storage"},
		{stagingDir, "staging"},
	} {
		if err := ensureDirectory(dir.path, dir.name); err != nil {
			return nil, fmt.Errorf("%s directory error: %w", dir.name, err)
		}
		logging.Debug("  Testing %s directory write access...", dir.name)
		if err := testWriteAccess(dir.path); err != nil {
			return nil, fmt.Errorf("%s directory is not writable: %w", dir.name, err)
		}
		logging.Info("  [OK] %s directory is writable", dir.name)
	}

	return &Config{
		StorageDir:            storageDir,
		StagingDir:            stagingDir,
		Quality:               quality,
		Interlace:             interlace,
		CodecBackend:          backend,
		Workers:               workerCount,
		RetainUncroppedUpload: retain,
		MaxPixels:             maxPixels,
		MetricsTextfile:       metricsTextfile,
	}, nil
}

// LogCodecInit logs which codec backend ended up in use
func LogCodecInit(requested, active string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("CODEC INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	if requested != active {
		logging.Warn("  %s backend unavailable, falling back to %s", requested, active)
		return
	}
	logging.Info("  [OK] Using %s backend", active)
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

// Helper functions

func printBanner() {
	banner := `
------------------------------------------------------------
    IMAGE VARIANTS
    square JPEG variants for uploaded images
------------------------------------------------------------`
	// Stdout carries command output
	fmt.Fprintln(os.Stderr, banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if logging.IsDebugEnabled() {
		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
		// Don't return error since write access was confirmed
	}
	return nil
}

func limitString(n int64) string {
	if n == 0 {
		return "unlimited"
	}
	return strconv.FormatInt(n, 10)
}

func valueOrNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
