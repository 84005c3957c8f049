package codec

import (
	"fmt"
	"image"
	"os"
	"sync"

	"image-variants/internal/logging"

	// Image format decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // WebP format support
)

// Imaging is the pure Go backend built on disintegration/imaging.
// Go's JPEG encoder only writes baseline files, so ResizeOptions.Interlace
// has no effect here.
type Imaging struct {
	interlaceOnce sync.Once
}

// NewImaging returns the pure Go backend.
func NewImaging() *Imaging {
	return &Imaging{}
}

// Name implements Codec.
func (c *Imaging) Name() string { return BackendImaging }

// Identify returns image dimensions without fully decoding the image.
func (c *Imaging) Identify(path string) (Geometry, error) {
	file, err := os.Open(path)
	if err != nil {
		return Geometry{}, err
	}
	defer func() {
		if err := file.Close(); err != nil {
			logging.Warn("failed to close image file %s: %v", path, err)
		}
	}()

	config, format, err := image.DecodeConfig(file)
	if err != nil {
		return Geometry{}, err
	}

	return Geometry{
		Width:  config.Width,
		Height: config.Height,
		Format: format,
	}, nil
}

// Crop implements Codec.
func (c *Imaging) Crop(src, dst string, rect image.Rectangle, quality int) error {
	if err := validQuality(quality); err != nil {
		return err
	}

	img, err := imaging.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}

	bounds := img.Bounds()
	rect = rect.Add(bounds.Min)
	if !rect.In(bounds) || rect.Empty() {
		return fmt.Errorf("crop rectangle %v outside image bounds %v", rect, bounds)
	}

	return writeJPEG(dst, imaging.Crop(img, rect), quality)
}

// Resize implements Codec.
func (c *Imaging) Resize(src, dst string, opts ResizeOptions) error {
	if err := validQuality(opts.Quality); err != nil {
		return err
	}
	if opts.Width < 0 || opts.Height < 0 {
		return fmt.Errorf("invalid resize target %dx%d", opts.Width, opts.Height)
	}
	if opts.Interlace {
		c.interlaceOnce.Do(func() {
			logging.Warn("imaging backend writes baseline JPEG, interlace requested but ignored")
		})
	}

	img, err := imaging.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}

	var out image.Image = img
	if opts.Width > 0 && opts.Height > 0 {
		b := img.Bounds()
		if b.Dx() != opts.Width || b.Dy() != opts.Height {
			out = imaging.Resize(img, opts.Width, opts.Height, imaging.Lanczos)
		}
	}

	return writeJPEG(dst, out, opts.Quality)
}

func writeJPEG(dst string, img image.Image, quality int) error {
	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}

	if err := imaging.Encode(f, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to encode %s: %w", dst, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", dst, err)
	}
	return nil
}
