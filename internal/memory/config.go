package memory

import (
	"math"
	"os"
	"runtime/debug"
	"strconv"

	"image-variants/internal/logging"
)

const (
	// DefaultMemoryRatio is the share of MEMORY_LIMIT given to the Go heap.
	DefaultMemoryRatio = 0.75

	// vipsCacheShare is the part of the off-heap reserve that libvips may
	// keep in its operation cache. The remainder covers decode buffers.
	vipsCacheShare = 0.25

	minVipsCache int64 = 16 << 20
	maxVipsCache int64 = 512 << 20

	SourceGOMEMLIMIT  = "GOMEMLIMIT"
	SourceMemoryLimit = "MEMORY_LIMIT"
	SourceNone        = "none"
)

// Budget splits a container memory limit between the Go heap and libvips,
// which allocates outside it.
type Budget struct {
	Source         string // SourceGOMEMLIMIT, SourceMemoryLimit or SourceNone
	ContainerLimit int64  // MEMORY_LIMIT in bytes, 0 when unknown
	GoMemLimit     int64  // Go runtime soft limit in bytes, 0 when unset
	Ratio          float64

	// VipsCache is the libvips operation cache size in bytes. Zero means
	// no reserve is known and the codec default applies.
	VipsCache int64
}

// Configured reports whether a Go memory limit is in effect.
func (b Budget) Configured() bool {
	return b.GoMemLimit > 0
}

// Reserve is the memory left outside the Go heap.
func (b Budget) Reserve() int64 {
	if b.ContainerLimit <= b.GoMemLimit || b.GoMemLimit <= 0 {
		return 0
	}
	return b.ContainerLimit - b.GoMemLimit
}

// Plan computes a budget from environment values without touching the
// runtime. current is the limit already in effect, as reported by
// debug.SetMemoryLimit(-1).
//
// GOMEMLIMIT wins when set. MEMORY_LIMIT is still read in that case so
// the libvips cache can be sized from what GOMEMLIMIT leaves over.
func Plan(getenv func(string) string, current int64) Budget {
	b := Budget{Source: SourceNone}
	container := parseLimit(getenv("MEMORY_LIMIT"))

	if getenv("GOMEMLIMIT") != "" {
		if current > 0 && current < math.MaxInt64 {
			b.Source = SourceGOMEMLIMIT
			b.GoMemLimit = current
			b.ContainerLimit = container
		}
	} else if container > 0 {
		b.Source = SourceMemoryLimit
		b.ContainerLimit = container
		b.Ratio = parseRatio(getenv("MEMORY_RATIO"))
		b.GoMemLimit = int64(float64(container) * b.Ratio)
	}

	if reserve := b.Reserve(); reserve > 0 {
		b.VipsCache = min(max(int64(float64(reserve)*vipsCacheShare), minVipsCache), maxVipsCache)
	}
	return b
}

// ConfigureFromEnv plans a budget from the process environment and applies
// the Go memory limit when it came from MEMORY_LIMIT. Call it before any
// image is decoded and hand VipsCache to the codec.
func ConfigureFromEnv() Budget {
	b := Plan(os.Getenv, debug.SetMemoryLimit(-1))

	switch b.Source {
	case SourceMemoryLimit:
		debug.SetMemoryLimit(b.GoMemLimit)
		logging.Info("Configured GOMEMLIMIT: %s (%.1f%% of %s container limit)",
			FormatBytes(b.GoMemLimit), b.Ratio*100, FormatBytes(b.ContainerLimit))
	case SourceGOMEMLIMIT:
		logging.Info("GOMEMLIMIT set via environment: %s", FormatBytes(b.GoMemLimit))
	default:
		logging.Debug("No memory limit configured")
	}

	if b.VipsCache > 0 {
		logging.Info("libvips cache budget: %s of %s reserve", FormatBytes(b.VipsCache), FormatBytes(b.Reserve()))
	}
	return b
}

func parseLimit(s string) int64 {
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		logging.Warn("Invalid MEMORY_LIMIT %q, ignoring", s)
		return 0
	}
	return n
}

func parseRatio(s string) float64 {
	if s == "" {
		return DefaultMemoryRatio
	}
	r, err := strconv.ParseFloat(s, 64)
	if err != nil || r <= 0 || r > 1 {
		logging.Warn("MEMORY_RATIO %q must be in (0, 1], using %.2f", s, DefaultMemoryRatio)
		return DefaultMemoryRatio
	}
	return r
}

// FormatBytes formats bytes into a human-readable string
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return strconv.FormatInt(b, 10) + " B"
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return strconv.FormatFloat(float64(b)/float64(div), 'f', 1, 64) + " " + string("KMGTPE"[exp]) + "iB"
}
