package codec

import (
	"errors"
	"fmt"
	"image"
	"os"
	"sync"

	"image-variants/internal/logging"

	"github.com/davidbyttow/govips/v2/vips"
)

var (
	vipsInitialized bool
	vipsInitMutex   sync.Mutex
	vipsAvailable   bool
)

// ErrVipsUnavailable is returned by the vips backend before InitVips succeeded.
var ErrVipsUnavailable = errors.New("libvips not available")

// DefaultVipsCacheMem is the libvips operation cache size used when no
// memory budget is known.
const DefaultVipsCacheMem int64 = 50 * 1024 * 1024

// InitVips initializes libvips with DefaultVipsCacheMem.
func InitVips() error {
	return InitVipsWithCache(DefaultVipsCacheMem)
}

// InitVipsWithCache initializes libvips with an operation cache capped at
// maxCacheMem bytes (zero or negative selects DefaultVipsCacheMem).
// Only the first successful call takes effect.
func InitVipsWithCache(maxCacheMem int64) (err error) {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		return nil
	}

	// govips panics when vips_init fails
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrVipsUnavailable, r)
		}
	}()

	// Configure vips logging BEFORE Startup() to respect LOG_LEVEL
	vipsLogLevel, logHandler := vipsLogging(logging.GetLevel())
	vips.LoggingSettings(logHandler, vipsLogLevel)

	if maxCacheMem <= 0 {
		maxCacheMem = DefaultVipsCacheMem
	}

	vips.Startup(&vips.Config{
		ConcurrencyLevel: 1, // Each variant job is its own goroutine
		MaxCacheMem:      int(maxCacheMem),
		MaxCacheSize:     100,
		ReportLeaks:      false,
		CacheTrace:       false,
		CollectStats:     false,
	})

	vipsInitialized = true
	vipsAvailable = true
	logging.Info("libvips initialized (version: %s, cache: %d MiB)", vips.Version, maxCacheMem>>20)
	return nil
}

// vipsLogging maps the application log level to a vips level and handler.
func vipsLogging(appLevel logging.LogLevel) (vips.LogLevel, func(string, vips.LogLevel, string)) {
	switch appLevel {
	case logging.LevelDebug:
		// Debug: Show all vips messages including INFO
		return vips.LogLevelInfo, func(domain string, level vips.LogLevel, msg string) {
			switch level {
			case vips.LogLevelError, vips.LogLevelCritical:
				logging.Error("[%s] %s", domain, msg)
			case vips.LogLevelWarning:
				logging.Warn("[%s] %s", domain, msg)
			default:
				logging.Debug("[%s] %s", domain, msg)
			}
		}
	case logging.LevelWarn:
		// Warn: Only show errors
		return vips.LogLevelError, func(domain string, level vips.LogLevel, msg string) {
			switch level {
			case vips.LogLevelError, vips.LogLevelCritical:
				logging.Error("[%s] %s", domain, msg)
			}
		}
	case logging.LevelError:
		// Error: Only show critical errors
		return vips.LogLevelCritical, func(domain string, level vips.LogLevel, msg string) {
			if level == vips.LogLevelCritical {
				logging.Error("[%s] %s", domain, msg)
			}
		}
	default:
		// Info: Only show warnings and errors
		return vips.LogLevelWarning, func(domain string, level vips.LogLevel, msg string) {
			switch level {
			case vips.LogLevelError, vips.LogLevelCritical:
				logging.Error("[%s] %s", domain, msg)
			case vips.LogLevelWarning:
				logging.Warn("[%s] %s", domain, msg)
			}
		}
	}
}

// ShutdownVips cleans up libvips resources.
// govips cannot be started again in the same process afterwards.
func ShutdownVips() {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		vips.Shutdown()
		vipsInitialized = false
		vipsAvailable = false
		logging.Info("libvips shutdown complete")
	}
}

// IsVipsAvailable returns whether libvips is initialized and available
func IsVipsAvailable() bool {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()
	return vipsAvailable
}

// Vips is the libvips backend. It honors ResizeOptions.Interlace by
// writing progressive JPEG.
type Vips struct{}

// NewVips returns the libvips backend. InitVips must have succeeded.
func NewVips() *Vips {
	return &Vips{}
}

// Name implements Codec.
func (c *Vips) Name() string { return BackendVips }

func (c *Vips) load(path string) (*vips.ImageRef, error) {
	if !IsVipsAvailable() {
		return nil, ErrVipsUnavailable
	}
	ref, err := vips.LoadImageFromFile(path, vips.NewImportParams())
	if err != nil {
		return nil, fmt.Errorf("vips failed to load image: %w", err)
	}
	return ref, nil
}

// Identify implements Codec.
func (c *Vips) Identify(path string) (Geometry, error) {
	ref, err := c.load(path)
	if err != nil {
		return Geometry{}, err
	}
	defer ref.Close()

	format, ok := vips.ImageTypes[ref.Format()]
	if !ok {
		format = "unknown"
	}

	return Geometry{
		Width:  ref.Width(),
		Height: ref.Height(),
		Format: format,
	}, nil
}

// Crop implements Codec.
func (c *Vips) Crop(src, dst string, rect image.Rectangle, quality int) error {
	if err := validQuality(quality); err != nil {
		return err
	}

	ref, err := c.load(src)
	if err != nil {
		return err
	}
	defer ref.Close()

	bounds := image.Rect(0, 0, ref.Width(), ref.Height())
	if !rect.In(bounds) || rect.Empty() {
		return fmt.Errorf("crop rectangle %v outside image bounds %v", rect, bounds)
	}

	if err := ref.ExtractArea(rect.Min.X, rect.Min.Y, rect.Dx(), rect.Dy()); err != nil {
		return fmt.Errorf("vips crop failed: %w", err)
	}

	return exportJPEG(ref, dst, quality, false)
}

// Resize implements Codec.
func (c *Vips) Resize(src, dst string, opts ResizeOptions) error {
	if err := validQuality(opts.Quality); err != nil {
		return err
	}
	if opts.Width < 0 || opts.Height < 0 {
		return fmt.Errorf("invalid resize target %dx%d", opts.Width, opts.Height)
	}

	ref, err := c.load(src)
	if err != nil {
		return err
	}
	defer ref.Close()

	if opts.Width > 0 && opts.Height > 0 && (ref.Width() != opts.Width || ref.Height() != opts.Height) {
		hscale := float64(opts.Width) / float64(ref.Width())
		vscale := float64(opts.Height) / float64(ref.Height())
		if err := ref.ResizeWithVScale(hscale, vscale, vips.KernelLanczos3); err != nil {
			return fmt.Errorf("vips resize failed: %w", err)
		}
	}

	return exportJPEG(ref, dst, opts.Quality, opts.Interlace)
}

func exportJPEG(ref *vips.ImageRef, dst string, quality int, interlace bool) error {
	params := vips.NewJpegExportParams()
	params.Quality = quality
	params.Interlace = interlace
	params.OptimizeCoding = true

	buf, _, err := ref.ExportJpeg(params)
	if err != nil {
		return fmt.Errorf("vips export failed: %w", err)
	}

	if err := os.WriteFile(dst, buf, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}
	return nil
}
