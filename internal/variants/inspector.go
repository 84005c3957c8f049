package variants

import (
	"fmt"

	"image-variants/internal/codec"
)

// Inspector reads upload geometry without modifying anything.
type Inspector struct {
	codec     codec.Codec
	maxPixels int64
}

// NewInspector returns an Inspector backed by c. Uploads with more than
// maxPixels pixels are rejected; 0 means no limit.
func NewInspector(c codec.Codec, maxPixels int64) *Inspector {
	return &Inspector{codec: c, maxPixels: maxPixels}
}

// Inspect returns the geometry of the image at path. Any failure, including
// a zero dimension or an image above the pixel limit, is a *DecodeError.
func (i *Inspector) Inspect(path string) (codec.Geometry, error) {
	g, err := i.codec.Identify(path)
	if err != nil {
		return codec.Geometry{}, &DecodeError{Path: path, Err: err}
	}
	if g.Width <= 0 || g.Height <= 0 {
		return codec.Geometry{}, &DecodeError{
			Path: path,
			Err:  fmt.Errorf("invalid dimensions %dx%d", g.Width, g.Height),
		}
	}
	if pixels := int64(g.Width) * int64(g.Height); i.maxPixels > 0 && pixels > i.maxPixels {
		return codec.Geometry{}, &DecodeError{
			Path: path,
			Err:  fmt.Errorf("%dx%d exceeds the limit of %d pixels", g.Width, g.Height, i.maxPixels),
		}
	}
	return g, nil
}
