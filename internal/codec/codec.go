package codec

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"image-variants/internal/logging"
)

// Backend names accepted by New.
const (
	BackendImaging = "imaging"
	BackendVips    = "vips"
)

// ErrUnknownBackend is returned by New for an unrecognised backend name.
var ErrUnknownBackend = errors.New("unknown codec backend")

// Geometry describes a decoded image header.
type Geometry struct {
	Width  int
	Height int
	Format string // "jpeg", "png", "gif", "webp", ...
}

// Square reports whether the image has equal sides.
func (g Geometry) Square() bool {
	return g.Width == g.Height
}

// ShortSide returns min(Width, Height).
func (g Geometry) ShortSide() int {
	return min(g.Width, g.Height)
}

func (g Geometry) String() string {
	return fmt.Sprintf("%dx%d %s", g.Width, g.Height, g.Format)
}

// ResizeOptions controls a single Resize call. A zero Width or Height
// re-encodes the source at its own dimensions.
type ResizeOptions struct {
	Width     int
	Height    int
	Quality   int
	Interlace bool
}

// Codec is the image capability the variant pipeline depends on.
// Every method writes JPEG regardless of the destination extension.
type Codec interface {
	// Identify reads the image header at path.
	Identify(path string) (Geometry, error)
	// Crop extracts rect from src and writes it to dst.
	Crop(src, dst string, rect image.Rectangle, quality int) error
	// Resize scales src to exactly opts.Width x opts.Height and writes dst.
	Resize(src, dst string, opts ResizeOptions) error
	// Name returns the backend name.
	Name() string
}

// Options tunes backend startup.
type Options struct {
	// VipsCacheMem caps the libvips operation cache in bytes. Zero selects
	// DefaultVipsCacheMem.
	VipsCacheMem int64
}

// New returns the codec for backend. An empty name or "vips" prefers
// libvips, which writes progressive JPEG, and falls back to the imaging
// backend when libvips cannot start.
func New(backend string, opts Options) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendVips:
		if err := InitVipsWithCache(opts.VipsCacheMem); err != nil {
			logging.Warn("libvips unavailable, falling back to %s backend (progressive JPEG disabled): %v",
				BackendImaging, err)
			return NewImaging(), nil
		}
		return NewVips(), nil
	case BackendImaging:
		return NewImaging(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

func validQuality(q int) error {
	if q < 1 || q > 100 {
		return fmt.Errorf("jpeg quality %d out of range 1-100", q)
	}
	return nil
}
