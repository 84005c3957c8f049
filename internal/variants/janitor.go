package variants

import (
	"errors"
	"io/fs"
	"path/filepath"

	"image-variants/internal/filesystem"
	"image-variants/internal/logging"
	"image-variants/internal/metrics"
)

var errNotPlainName = errors.New("not a plain file name")

// cleanupKey selects a row of cleanupTable.
type cleanupKey struct {
	cropped         bool
	includeOriginal bool
}

// cleanupRule says which intermediates a successful Add deletes.
type cleanupRule struct {
	label         string
	removeWorking bool
	removeUpload  bool
}

// The crop copy shares its path with the original variant, so once the
// original has been committed over it (B) only the upload is left.
var cleanupTable = map[cleanupKey]cleanupRule{
	{cropped: true, includeOriginal: false}:  {label: "A", removeWorking: true, removeUpload: true},
	{cropped: true, includeOriginal: true}:   {label: "B", removeUpload: true},
	{cropped: false, includeOriginal: false}: {label: "C", removeUpload: true},
	{cropped: false, includeOriginal: true}:  {label: "D"},
}

// Janitor deletes intermediates and stored variants.
type Janitor struct {
	dir    string
	retain bool
	retry  filesystem.RetryConfig
}

// NewJanitor returns a Janitor for cfg.
func NewJanitor(cfg Config) *Janitor {
	return &Janitor{
		dir:    cfg.StorageDir,
		retain: cfg.RetainUncroppedUpload,
		retry:  cfg.Retry,
	}
}

func (j *Janitor) rule(cropped, includeOriginal bool) cleanupRule {
	r := cleanupTable[cleanupKey{cropped: cropped, includeOriginal: includeOriginal}]
	if r.label == "D" && !j.retain {
		r.removeUpload = true
	}
	return r
}

// CleanupIntermediates removes what a successful Add no longer needs.
// The returned error joins one *IoWarning per file that could not be
// removed; a file that is already gone is not a warning.
func (j *Janitor) CleanupIntermediates(working, original string, cropped, includeOriginal bool) error {
	r := j.rule(cropped, includeOriginal)

	var paths []string
	if r.removeWorking && working != original {
		paths = append(paths, working)
	}
	if r.removeUpload {
		paths = append(paths, original)
	}
	if len(paths) == 0 {
		logging.Debug("Cleanup case %s: retaining %s", r.label, original)
	}

	var warnings []error
	for _, path := range paths {
		status, err := j.remove("cleanup", path)
		metrics.CleanupFilesTotal.WithLabelValues(r.label, status).Inc()
		if err != nil {
			warnings = append(warnings, err)
		}
	}
	return errors.Join(warnings...)
}

// RemoveVariants deletes the named files from the storage directory.
// Missing files are ignored, so repeating a removal is harmless.
func (j *Janitor) RemoveVariants(names []string) error {
	var warnings []error
	for _, name := range names {
		if name == "" || filepath.Base(name) != name {
			warnings = append(warnings, &IoWarning{
				Op:   "remove",
				Path: name,
				Err:  errNotPlainName,
			})
			metrics.RemoveFilesTotal.WithLabelValues("error").Inc()
			continue
		}

		status, err := j.remove("remove", filepath.Join(j.dir, name))
		metrics.RemoveFilesTotal.WithLabelValues(status).Inc()
		if err != nil {
			warnings = append(warnings, err)
		}
	}
	return errors.Join(warnings...)
}

// DiscardFailed removes what a failed Add left behind: variants already
// committed and the crop copy. The upload is never touched.
func (j *Janitor) DiscardFailed(res CropResult, written []StoredVariant) error {
	seen := make(map[string]bool)
	var paths []string
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			paths = append(paths, path)
		}
	}
	for _, v := range written {
		add(filepath.Join(j.dir, v.FileName))
	}
	if res.WasCropped {
		add(res.WorkingPath)
	}

	var warnings []error
	for _, path := range paths {
		status, err := j.remove("discard", path)
		metrics.CleanupFilesTotal.WithLabelValues("failed", status).Inc()
		if err != nil {
			warnings = append(warnings, err)
		}
	}
	return errors.Join(warnings...)
}

// remove deletes path and reports the metric status for it.
func (j *Janitor) remove(op, path string) (string, error) {
	err := filesystem.RemoveWithRetry(path, j.retry)
	switch {
	case err == nil:
		logging.Debug("Removed %s", path)
		return "removed", nil
	case errors.Is(err, fs.ErrNotExist):
		return "missing", nil
	default:
		return "error", &IoWarning{Op: op, Path: path, Err: err}
	}
}
