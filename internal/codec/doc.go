// Package codec wraps the image operations the variant pipeline needs:
// reading an image header, cropping a rectangle and resizing to exact
// dimensions, each writing JPEG.
//
// Two backends implement Codec:
//   - Imaging: pure Go, built on disintegration/imaging
//   - Vips: libvips through govips, with progressive JPEG output
//
// New prefers libvips and falls back to imaging with a warning when libvips
// cannot start. Call ShutdownVips on exit when the vips backend is in use.
package codec
