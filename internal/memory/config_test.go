package memory

import (
	"math"
	"runtime/debug"
	"testing"
)

const (
	mib = int64(1) << 20
	gib = int64(1) << 30
)

func envMap(m map[string]string) func(string) string {
	return func(key string) string { return m[key] }
}

func TestPlan(t *testing.T) {
	tests := []struct {
		name       string
		env        map[string]string
		current    int64
		wantSource string
		wantGo     int64
		wantRatio  float64
		wantCache  int64
	}{
		{
			name:       "nothing set",
			current:    math.MaxInt64,
			wantSource: SourceNone,
		},
		{
			name:       "default ratio",
			env:        map[string]string{"MEMORY_LIMIT": "1073741824"},
			current:    math.MaxInt64,
			wantSource: SourceMemoryLimit,
			wantGo:     768 * mib,
			wantRatio:  DefaultMemoryRatio,
			wantCache:  64 * mib,
		},
		{
			name:       "custom ratio",
			env:        map[string]string{"MEMORY_LIMIT": "1073741824", "MEMORY_RATIO": "0.5"},
			current:    math.MaxInt64,
			wantSource: SourceMemoryLimit,
			wantGo:     512 * mib,
			wantRatio:  0.5,
			wantCache:  128 * mib,
		},
		{
			name:       "whole container to the heap",
			env:        map[string]string{"MEMORY_LIMIT": "1073741824", "MEMORY_RATIO": "1"},
			current:    math.MaxInt64,
			wantSource: SourceMemoryLimit,
			wantGo:     gib,
			wantRatio:  1,
		},
		{
			name:       "ratio out of range",
			env:        map[string]string{"MEMORY_LIMIT": "1073741824", "MEMORY_RATIO": "1.5"},
			current:    math.MaxInt64,
			wantSource: SourceMemoryLimit,
			wantGo:     768 * mib,
			wantRatio:  DefaultMemoryRatio,
			wantCache:  64 * mib,
		},
		{
			name:       "ratio not a number",
			env:        map[string]string{"MEMORY_LIMIT": "1073741824", "MEMORY_RATIO": "half"},
			current:    math.MaxInt64,
			wantSource: SourceMemoryLimit,
			wantGo:     768 * mib,
			wantRatio:  DefaultMemoryRatio,
			wantCache:  64 * mib,
		},
		{
			name:       "small container clamps cache up",
			env:        map[string]string{"MEMORY_LIMIT": "134217728"},
			current:    math.MaxInt64,
			wantSource: SourceMemoryLimit,
			wantGo:     96 * mib,
			wantRatio:  DefaultMemoryRatio,
			wantCache:  minVipsCache,
		},
		{
			name:       "large container clamps cache down",
			env:        map[string]string{"MEMORY_LIMIT": "17179869184", "MEMORY_RATIO": "0.5"},
			current:    math.MaxInt64,
			wantSource: SourceMemoryLimit,
			wantGo:     8 * gib,
			wantRatio:  0.5,
			wantCache:  maxVipsCache,
		},
		{
			name:       "GOMEMLIMIT alone",
			env:        map[string]string{"GOMEMLIMIT": "500MiB"},
			current:    500 * mib,
			wantSource: SourceGOMEMLIMIT,
			wantGo:     500 * mib,
		},
		{
			name:       "GOMEMLIMIT wins and MEMORY_LIMIT sizes the reserve",
			env:        map[string]string{"GOMEMLIMIT": "768MiB", "MEMORY_LIMIT": "1073741824"},
			current:    768 * mib,
			wantSource: SourceGOMEMLIMIT,
			wantGo:     768 * mib,
			wantCache:  64 * mib,
		},
		{
			name:       "GOMEMLIMIT off",
			env:        map[string]string{"GOMEMLIMIT": "off"},
			current:    math.MaxInt64,
			wantSource: SourceNone,
		},
		{
			name:       "invalid MEMORY_LIMIT",
			env:        map[string]string{"MEMORY_LIMIT": "1.5GB"},
			current:    math.MaxInt64,
			wantSource: SourceNone,
		},
		{
			name:       "negative MEMORY_LIMIT",
			env:        map[string]string{"MEMORY_LIMIT": "-1"},
			current:    math.MaxInt64,
			wantSource: SourceNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Plan(envMap(tt.env), tt.current)

			if b.Source != tt.wantSource {
				t.Errorf("Source = %q, want %q", b.Source, tt.wantSource)
			}
			if b.GoMemLimit != tt.wantGo {
				t.Errorf("GoMemLimit = %s, want %s", FormatBytes(b.GoMemLimit), FormatBytes(tt.wantGo))
			}
			if b.Ratio != tt.wantRatio {
				t.Errorf("Ratio = %v, want %v", b.Ratio, tt.wantRatio)
			}
			if b.VipsCache != tt.wantCache {
				t.Errorf("VipsCache = %s, want %s", FormatBytes(b.VipsCache), FormatBytes(tt.wantCache))
			}
			if b.Configured() != (tt.wantGo > 0) {
				t.Errorf("Configured() = %v, want %v", b.Configured(), tt.wantGo > 0)
			}
		})
	}
}

func TestBudgetReserve(t *testing.T) {
	tests := []struct {
		name string
		b    Budget
		want int64
	}{
		{name: "zero", b: Budget{}, want: 0},
		{name: "no container", b: Budget{GoMemLimit: gib}, want: 0},
		{name: "heap above container", b: Budget{ContainerLimit: gib, GoMemLimit: 2 * gib}, want: 0},
		{name: "split", b: Budget{ContainerLimit: gib, GoMemLimit: 768 * mib}, want: 256 * mib},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.b.Reserve(); got != tt.want {
				t.Errorf("Reserve() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestConfigureFromEnv_AppliesMemoryLimit(t *testing.T) {
	old := debug.SetMemoryLimit(-1)
	t.Cleanup(func() { debug.SetMemoryLimit(old) })

	t.Setenv("GOMEMLIMIT", "")
	t.Setenv("MEMORY_LIMIT", "1073741824")
	t.Setenv("MEMORY_RATIO", "0.5")

	b := ConfigureFromEnv()

	if b.Source != SourceMemoryLimit {
		t.Fatalf("Source = %q, want %q", b.Source, SourceMemoryLimit)
	}
	if got := debug.SetMemoryLimit(-1); got != 512*mib {
		t.Errorf("runtime memory limit = %d, want %d", got, 512*mib)
	}
	if b.VipsCache != 128*mib {
		t.Errorf("VipsCache = %d, want %d", b.VipsCache, 128*mib)
	}
}

func TestConfigureFromEnv_NothingSet(t *testing.T) {
	old := debug.SetMemoryLimit(-1)
	t.Setenv("GOMEMLIMIT", "")
	t.Setenv("MEMORY_LIMIT", "")

	b := ConfigureFromEnv()

	if b.Configured() || b.VipsCache != 0 {
		t.Errorf("expected empty budget, got %+v", b)
	}
	if got := debug.SetMemoryLimit(-1); got != old {
		t.Errorf("runtime memory limit changed from %d to %d", old, got)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		input int64
		want  string
	}{
		{input: 0, want: "0 B"},
		{input: 1023, want: "1023 B"},
		{input: 1024, want: "1.0 KiB"},
		{input: 1536, want: "1.5 KiB"},
		{input: 50 * mib, want: "50.0 MiB"},
		{input: gib, want: "1.0 GiB"},
		{input: 1 << 40, want: "1.0 TiB"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := FormatBytes(tt.input); got != tt.want {
				t.Errorf("FormatBytes(%d) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
