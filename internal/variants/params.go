package variants

import (
	"cmp"
	"errors"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"
)

// SizeKey names a square variant size.
type SizeKey string

// Known size keys.
const (
	SizeXS SizeKey = "xs"
	SizeSM SizeKey = "sm"
	SizeMD SizeKey = "md"
	SizeLG SizeKey = "lg"
)

// OriginalKey is the result key of the re-encoded original.
const OriginalKey = "o"

// SizeTable maps size keys to the pixel side of the square variant.
type SizeTable map[SizeKey]int

// DefaultSizeTable returns a fresh copy of the standard sizes.
func DefaultSizeTable() SizeTable {
	return SizeTable{
		SizeXS: 50,
		SizeSM: 100,
		SizeMD: 200,
		SizeLG: 400,
	}
}

// Clone returns an independent copy of t.
func (t SizeTable) Clone() SizeTable {
	return maps.Clone(t)
}

// Keys returns the size keys ordered by ascending pixel size.
func (t SizeTable) Keys() []SizeKey {
	keys := slices.Collect(maps.Keys(t))
	slices.SortFunc(keys, func(a, b SizeKey) int {
		return cmp.Or(cmp.Compare(t[a], t[b]), cmp.Compare(a, b))
	})
	return keys
}

// ErrInvalidParams is wrapped by every Params validation failure.
var ErrInvalidParams = errors.New("invalid variant params")

var namePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// Params selects which variants Add produces for one upload.
type Params struct {
	// Name is the base file name shared by all variants.
	Name string
	// Sizes are produced in this order.
	Sizes []SizeKey
	// Original adds a re-encoded copy of the upload under "o".
	Original bool
}

// Validate checks p against table.
func (p Params) Validate(table SizeTable) error {
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidParams)
	}
	if p.Name == "." || p.Name == ".." || !namePattern.MatchString(p.Name) {
		return fmt.Errorf("%w: name %q is not a safe file name", ErrInvalidParams, p.Name)
	}
	if len(p.Sizes) == 0 && !p.Original {
		return fmt.Errorf("%w: no sizes requested and original not included", ErrInvalidParams)
	}

	seen := make(map[SizeKey]bool, len(p.Sizes))
	for _, size := range p.Sizes {
		if _, ok := table[size]; !ok {
			return fmt.Errorf("%w: unknown size %q", ErrInvalidParams, size)
		}
		if seen[size] {
			return fmt.Errorf("%w: size %q requested twice", ErrInvalidParams, size)
		}
		seen[size] = true
	}
	return nil
}

// SizeFileName returns the stored file name of a size variant.
func (p Params) SizeFileName(size SizeKey) string {
	return fmt.Sprintf("%s_%s.jpg", p.Name, size)
}

// OriginalFileName returns the stored file name of the original variant.
// It is also where the crop copy is written.
func (p Params) OriginalFileName() string {
	return p.Name + ".jpg"
}

// FileNames returns the result key to file name mapping Add produces for p.
func (p Params) FileNames() map[string]string {
	names := make(map[string]string, len(p.Sizes)+1)
	for _, size := range p.Sizes {
		names[string(size)] = p.SizeFileName(size)
	}
	if p.Original {
		names[OriginalKey] = p.OriginalFileName()
	}
	return names
}

// ParseSizes parses a comma separated size list such as "xs,sm".
// Blank entries are skipped; validation is left to Params.Validate.
func ParseSizes(s string) []SizeKey {
	var sizes []SizeKey
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			sizes = append(sizes, SizeKey(part))
		}
	}
	return sizes
}

// SourceImage is an upload on local disk. The store takes ownership of
// the file once Add succeeds.
type SourceImage struct {
	Path string
}

// StoredVariant is one file written by Add.
type StoredVariant struct {
	Key      string // size key or "o"
	FileName string
	Width    int
	Height   int
}

// Stored is the result of Add keyed by size key, with the original under "o".
type Stored map[string]StoredVariant

// Names returns the key to file name form a persistence layer keeps.
func (s Stored) Names() map[string]string {
	names := make(map[string]string, len(s))
	for key, v := range s {
		names[key] = v.FileName
	}
	return names
}
