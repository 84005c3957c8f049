package variants

import (
	"image"
	"path/filepath"

	"image-variants/internal/codec"
	"image-variants/internal/logging"
)

// CropResult is the square image the size variants are made from.
type CropResult struct {
	WorkingPath string
	WasCropped  bool
}

// Cropper squares uploads by cutting the largest top-left square.
type Cropper struct {
	codec   codec.Codec
	dir     string
	quality int
}

// NewCropper returns a Cropper writing into cfg.StorageDir.
func NewCropper(c codec.Codec, cfg Config) *Cropper {
	return &Cropper{codec: c, dir: cfg.StorageDir, quality: cfg.CropQuality}
}

// Path returns where the crop copy for name is written. It is the same
// file the original variant is later committed to.
func (c *Cropper) Path(name string) string {
	return filepath.Join(c.dir, name+".jpg")
}

// Crop returns src unchanged when g is already square. Otherwise the square
// of side min(w, h) anchored at (0,0) is written to Path(name).
func (c *Cropper) Crop(src string, g codec.Geometry, name string) (CropResult, error) {
	if g.Square() {
		return CropResult{WorkingPath: src}, nil
	}

	side := g.ShortSide()
	dst := c.Path(name)
	logging.Debug("Cropping %s (%s) to %dx%d at %s", filepath.Base(src), g, side, side, dst)

	if err := c.codec.Crop(src, dst, image.Rect(0, 0, side, side), c.quality); err != nil {
		return CropResult{}, &EncodeError{Op: OpCrop, Path: dst, Err: err}
	}
	return CropResult{WorkingPath: dst, WasCropped: true}, nil
}
