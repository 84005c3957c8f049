package filesystem

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"image-variants/internal/logging"
)

// VolumeResolver maps file paths to known volume names for metric labeling.
// It uses longest-prefix matching on absolute paths.
type VolumeResolver struct {
	// mounts is sorted by path length descending for longest-prefix matching
	mounts []volumeMount
}

type volumeMount struct {
	path string // absolute path with trailing slash (e.g., "/srv/images/")
	name string // volume label (e.g., "storage")
}

// NewVolumeResolver creates a resolver from a map of volume name → path.
//
//	NewVolumeResolver(map[string]string{
//	    "storage": cfg.StorageDir,
//	    "staging": cfg.StagingDir,
//	})
func NewVolumeResolver(volumes map[string]string) *VolumeResolver {
	mounts := make([]volumeMount, 0, len(volumes))
	for name, path := range volumes {
		absPath, err := filepath.Abs(path)
		if err != nil {
			absPath = path
		}
		if !strings.HasSuffix(absPath, "/") {
			absPath += "/"
		}
		mounts = append(mounts, volumeMount{path: absPath, name: name})
	}

	sort.Slice(mounts, func(i, j int) bool {
		return len(mounts[i].path) > len(mounts[j].path)
	})

	return &VolumeResolver{mounts: mounts}
}

// Resolve returns the volume name for a given file path.
// Returns "unknown" if the path doesn't match any configured volume.
func (vr *VolumeResolver) Resolve(path string) string {
	if vr == nil {
		return "unknown"
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "unknown"
	}

	// The directory itself matches through the appended slash.
	for _, mount := range vr.mounts {
		if strings.HasPrefix(absPath+"/", mount.path) {
			return mount.name
		}
	}

	return "unknown"
}

// defaultResolver is the package-level resolver set at startup
var defaultResolver *VolumeResolver

// SetDefaultVolumeResolver sets the package-level volume resolver.
// Call this once at startup after loading configuration.
func SetDefaultVolumeResolver(vr *VolumeResolver) {
	defaultResolver = vr
}

// RetryConfig configures retry behavior for filesystem operations
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// VolumeResolver overrides the package-level resolver for this operation.
	// If nil, the package-level default is used.
	VolumeResolver *VolumeResolver
}

// DefaultRetryConfig returns sensible defaults for NFS retry behavior
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     500 * time.Millisecond,
	}
}

func (c *RetryConfig) resolveVolume(path string) string {
	if c.VolumeResolver != nil {
		return c.VolumeResolver.Resolve(path)
	}
	return defaultResolver.Resolve(path)
}

// isNFSStaleError checks if an error is an NFS stale file handle error
func isNFSStaleError(err error) bool {
	if err == nil {
		return false
	}

	// ESTALE is errno 116 on Linux
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.ESTALE
	}

	return false
}

// withRetry runs fn until it succeeds, fails with an error other than
// ESTALE, or MaxRetries retries have been spent.
func withRetry(op, path string, config RetryConfig, fn func() error) error {
	start := time.Now()
	volume := config.resolveVolume(path)
	backoff := config.InitialBackoff

	finish := func(err error) error {
		if defaultObserver != nil {
			defaultObserver.ObserveOperation(volume, op, time.Since(start).Seconds(), err)
		}
		return err
	}

	var lastErr error
	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 0 {
				logging.Info("NFS %s succeeded on retry %d for %s", op, attempt, path)
				notify(op, volume, RetrySuccess)
			}
			return finish(nil)
		}

		lastErr = err
		if !isNFSStaleError(err) {
			return finish(err)
		}
		notify(op, volume, RetryStale)

		if attempt == config.MaxRetries {
			break
		}
		notify(op, volume, RetryAttempt)
		logging.Debug("NFS %s stale file handle for %s, retrying in %v (attempt %d/%d)",
			op, path, backoff, attempt+1, config.MaxRetries)
		time.Sleep(backoff)
		backoff = min(backoff*2, config.MaxBackoff)
	}

	logging.Warn("NFS %s failed after %d retries for %s: %v", op, config.MaxRetries, path, lastErr)
	notify(op, volume, RetryFailure)
	return finish(lastErr)
}

// StatWithRetry performs os.Stat with retry logic for NFS stale file handle errors
func StatWithRetry(path string, config RetryConfig) (os.FileInfo, error) {
	var info os.FileInfo
	err := withRetry("stat", path, config, func() error {
		var err error
		info, err = os.Stat(path)
		return err
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

// OpenWithRetry performs os.Open with retry logic for NFS stale file handle errors
func OpenWithRetry(path string, config RetryConfig) (*os.File, error) {
	var file *os.File
	err := withRetry("open", path, config, func() error {
		var err error
		file, err = os.Open(path)
		return err
	})
	if err != nil {
		return nil, err
	}
	return file, nil
}

// RemoveWithRetry performs os.Remove with retry logic for NFS stale file
// handle errors. A missing file is reported as os.ErrNotExist, not retried.
func RemoveWithRetry(path string, config RetryConfig) error {
	return withRetry("remove", path, config, func() error {
		return os.Remove(path)
	})
}

// RenameWithRetry performs os.Rename with retry logic for NFS stale file
// handle errors. The volume label is taken from the destination.
func RenameWithRetry(oldPath, newPath string, config RetryConfig) error {
	return withRetry("rename", newPath, config, func() error {
		return os.Rename(oldPath, newPath)
	})
}
