package variants

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"image-variants/internal/codec"
	"image-variants/internal/filesystem"
	"image-variants/internal/metrics"

	dto "github.com/prometheus/client_model/go"
)

// fakeCodec writes small text files describing each operation so tests can
// check which source a variant came from without decoding images.
type fakeCodec struct {
	mu       sync.Mutex
	geometry map[string]codec.Geometry
	// fail returns an error for an operation on dst, or nil.
	fail    func(op, dst string) error
	delay   func(dst string) time.Duration
	crops   []string
	resizes map[string]string // dst -> src
}

func newFakeCodec() *fakeCodec {
	return &fakeCodec{
		geometry: make(map[string]codec.Geometry),
		resizes:  make(map[string]string),
	}
}

func (f *fakeCodec) Name() string { return "fake" }

func (f *fakeCodec) Identify(path string) (codec.Geometry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.geometry[path]
	if !ok {
		return codec.Geometry{}, errors.New("unknown image format")
	}
	return g, nil
}

func (f *fakeCodec) Crop(src, dst string, rect image.Rectangle, _ int) error {
	if f.fail != nil {
		if err := f.fail("crop", dst); err != nil {
			return err
		}
	}
	f.mu.Lock()
	f.crops = append(f.crops, dst)
	f.mu.Unlock()
	return os.WriteFile(dst, []byte(fmt.Sprintf("crop %s %v", filepath.Base(src), rect)), 0o644)
}

func (f *fakeCodec) Resize(src, dst string, opts codec.ResizeOptions) error {
	if f.delay != nil {
		time.Sleep(f.delay(dst))
	}
	if f.fail != nil {
		if err := f.fail("resize", dst); err != nil {
			return err
		}
	}
	if _, err := os.Stat(src); err != nil {
		return err
	}
	f.mu.Lock()
	f.resizes[dst] = src
	f.mu.Unlock()
	return os.WriteFile(dst, []byte(fmt.Sprintf("resize %s %dx%d", filepath.Base(src), opts.Width, opts.Height)), 0o644)
}

func (f *fakeCodec) setGeometry(path string, w, h int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.geometry[path] = codec.Geometry{Width: w, Height: h, Format: "jpeg"}
}

func (f *fakeCodec) resizeSource(dst string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resizes[dst]
}

// addTotal reads the current value of the add_total counter for status.
func addTotal(t *testing.T, status string) float64 {
	t.Helper()
	var m dto.Metric
	if err := metrics.AddTotal.WithLabelValues(status).Write(&m); err != nil {
		t.Fatalf("reading add_total{%s}: %v", status, err)
	}
	return m.GetCounter().GetValue()
}

// testConfig returns a config for dir that never sleeps on retries.
func testConfig(dir string) Config {
	cfg := DefaultConfig(dir)
	cfg.Workers = 4
	cfg.Retry = filesystem.RetryConfig{
		MaxRetries:     1,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Millisecond,
	}
	return cfg
}

// touch creates an upload placeholder and returns its path.
func touch(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("upload"), 0o644); err != nil {
		t.Fatalf("Failed to create %s: %v", path, err)
	}
	return path
}

// listDir returns the sorted file names in dir.
func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("Failed to read %s: %v", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func assertFiles(t *testing.T, dir string, want ...string) {
	t.Helper()
	sort.Strings(want)
	got := listDir(t, dir)
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("files in %s = %v, want %v", filepath.Base(dir), got, want)
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read %s: %v", path, err)
	}
	return string(data)
}

// createTestImage creates a gradient test image and saves it to the given path
func createTestImage(t *testing.T, path string, width, height int, format string) {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8((x * 255) / width),
				G: uint8((y * 255) / height),
				B: 128,
				A: 255,
			})
		}
	}

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create test image file: %v", err)
	}
	defer f.Close()

	switch format {
	case "jpeg", "jpg":
		err = jpeg.Encode(f, img, &jpeg.Options{Quality: 90})
	case "png":
		err = png.Encode(f, img)
	default:
		t.Fatalf("Unsupported test image format: %s", format)
	}
	if err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}
}

// jpegSize decodes the header of a stored variant.
func jpegSize(t *testing.T, path string) (int, int) {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open %s: %v", path, err)
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		t.Fatalf("Failed to decode %s: %v", path, err)
	}
	if format != "jpeg" {
		t.Errorf("%s format = %q, want jpeg", filepath.Base(path), format)
	}
	return cfg.Width, cfg.Height
}

// mkdirWithChild creates a non-empty directory at path.
func mkdirWithChild(path string) error {
	if err := os.Mkdir(path, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(path, "child"), nil, 0o644)
}
