// Package variants derives square JPEG variants from an uploaded image and
// stores them under deterministic names.
//
// Store.Add runs four stages in order:
//   - Inspector reads the upload geometry
//   - Cropper cuts the largest top-left square when the upload is not square
//   - Encoder writes every requested size, plus the re-encoded original
//   - Janitor removes the intermediates according to a fixed decision table
//
// Variants are named {name}_{size}.jpg and the original {name}.jpg.
// Store.Remove derives the same names and deletes them.
package variants
