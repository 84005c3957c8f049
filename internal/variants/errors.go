package variants

import "fmt"

// Encode operations reported in EncodeError.Op.
const (
	OpCrop           = "crop"
	OpResize         = "resize"
	OpEncodeOriginal = "encode_original"
	OpCommit         = "commit"
)

// DecodeError means the upload could not be read as an image.
// Nothing has been written when it is returned.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeError means a crop, resize or commit step failed.
// Written lists variants already in the storage directory at that point.
type EncodeError struct {
	Op      string
	Path    string
	Err     error
	Written []StoredVariant
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// IoWarning is a non-fatal file operation failure during cleanup or removal.
type IoWarning struct {
	Op   string
	Path string
	Err  error
}

func (e *IoWarning) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IoWarning) Unwrap() error { return e.Err }
