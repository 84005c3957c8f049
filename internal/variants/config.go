package variants

import (
	"errors"
	"fmt"
	"path/filepath"

	"image-variants/internal/filesystem"
	"image-variants/internal/workers"
)

const (
	// DefaultQuality is the JPEG quality of every variant.
	DefaultQuality = 65
	// DefaultCropQuality is used for the intermediate square crop, which is
	// encoded again by every variant job.
	DefaultCropQuality = 95
	// RetainUncroppedUploadDefault keeps the raw upload when it was already
	// square and the original variant was requested.
	RetainUncroppedUploadDefault = true
)

// Config is shared read-only by every Add and Remove on a Store.
type Config struct {
	StorageDir  string
	Sizes       SizeTable
	Quality     int
	CropQuality int
	Interlace   bool
	// Workers bounds concurrent encode jobs within one Add.
	Workers int
	// RetainUncroppedUpload controls cleanup when the upload was square and
	// the original variant was requested. True leaves the upload in place.
	RetainUncroppedUpload bool
	// MaxPixels rejects larger uploads before they are decoded. 0 disables it.
	MaxPixels int64
	Retry     filesystem.RetryConfig
}

// DefaultConfig returns the standard configuration for dir.
func DefaultConfig(dir string) Config {
	return Config{
		StorageDir:            dir,
		Sizes:                 DefaultSizeTable(),
		Quality:               DefaultQuality,
		CropQuality:           DefaultCropQuality,
		Interlace:             true,
		Workers:               workers.ForIO(8),
		RetainUncroppedUpload: RetainUncroppedUploadDefault,
		Retry:                 filesystem.DefaultRetryConfig(),
	}
}

// validate fills zero values with defaults and checks the rest.
func (c Config) validate() (Config, error) {
	if c.StorageDir == "" {
		return c, errors.New("storage directory is required")
	}
	abs, err := filepath.Abs(c.StorageDir)
	if err != nil {
		return c, fmt.Errorf("failed to resolve storage directory: %w", err)
	}
	c.StorageDir = abs

	if len(c.Sizes) == 0 {
		c.Sizes = DefaultSizeTable()
	} else {
		c.Sizes = c.Sizes.Clone()
	}
	for key, side := range c.Sizes {
		if side <= 0 {
			return c, fmt.Errorf("size %q has invalid side %d", key, side)
		}
		if string(key) == OriginalKey {
			return c, fmt.Errorf("size key %q is reserved for the original", key)
		}
	}

	if c.Quality == 0 {
		c.Quality = DefaultQuality
	}
	if c.CropQuality == 0 {
		c.CropQuality = DefaultCropQuality
	}
	for name, q := range map[string]int{"quality": c.Quality, "crop quality": c.CropQuality} {
		if q < 1 || q > 100 {
			return c, fmt.Errorf("%s %d out of range 1-100", name, q)
		}
	}

	if c.MaxPixels < 0 {
		return c, fmt.Errorf("max pixels %d must not be negative", c.MaxPixels)
	}
	if c.Workers < 1 {
		c.Workers = workers.ForIO(8)
	}
	if c.Retry == (filesystem.RetryConfig{}) {
		c.Retry = filesystem.DefaultRetryConfig()
	}
	return c, nil
}
