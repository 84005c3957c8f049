package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"image-variants/internal/codec"
	"image-variants/internal/filesystem"
	"image-variants/internal/logging"
	"image-variants/internal/memory"
	"image-variants/internal/metrics"
	"image-variants/internal/startup"
	"image-variants/internal/variants"

	"github.com/google/uuid"
)

// env is everything a command needs after configuration has been loaded.
type env struct {
	cfg   *startup.Config
	codec codec.Codec
	store *variants.Store
}

// setup loads configuration, selects the codec and builds the store.
func setup() (*env, error) {
	budget := memory.ConfigureFromEnv()

	cfg, err := startup.LoadConfig()
	if err != nil {
		return nil, err
	}

	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(map[string]string{
		"storage": cfg.StorageDir,
		"staging": cfg.StagingDir,
	}))
	filesystem.SetObserver(metrics.NewFilesystemObserver())
	metrics.InitializeMetrics()

	c, err := codec.New(cfg.CodecBackend, codec.Options{VipsCacheMem: budget.VipsCache})
	if err != nil {
		return nil, err
	}
	startup.LogCodecInit(cfg.CodecBackend, c.Name())

	info := startup.GetBuildInfo()
	metrics.SetAppInfo(info.Version, info.Commit, info.GoVersion, c.Name())

	store, err := variants.NewStore(cfg.VariantConfig(), c)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, codec: c, store: store}, nil
}

// close flushes metrics and releases the codec.
func (e *env) close() {
	if e.cfg.MetricsTextfile != "" {
		if err := metrics.WriteTextfile(e.cfg.MetricsTextfile); err != nil {
			logging.Warn("%v", err)
		} else {
			logging.Debug("Wrote metrics to %s", e.cfg.MetricsTextfile)
		}
	}
	if e.codec.Name() == codec.BackendVips {
		codec.ShutdownVips()
	}
}

// paramFlags registers the flags shared by add and remove.
type paramFlags struct {
	name     *string
	sizes    *string
	original *bool
	verbose  *bool
}

func newParamFlags(fs *flag.FlagSet) paramFlags {
	return paramFlags{
		name:     fs.String("name", "", "base file name of the variants"),
		sizes:    fs.String("sizes", "", "comma separated size keys (xs,sm,md,lg)"),
		original: fs.Bool("original", false, "include the re-encoded original"),
		verbose:  fs.Bool("v", false, "debug logging"),
	}
}

func (f paramFlags) params() variants.Params {
	return variants.Params{
		Name:     *f.name,
		Sizes:    variants.ParseSizes(*f.sizes),
		Original: *f.original,
	}
}

func (f paramFlags) applyVerbose() {
	if *f.verbose {
		logging.SetLevel(logging.LevelDebug)
	}
}

func (c *cli) add(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	pf := newParamFlags(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(c.stderr, "Error: add needs exactly one image file")
		return 2
	}
	pf.applyVerbose()

	e, err := setup()
	if err != nil {
		fmt.Fprintf(c.stderr, "Error: %v\n", err)
		return 1
	}
	defer e.close()

	staged, err := stageUpload(fs.Arg(0), e.cfg.StagingDir)
	if err != nil {
		fmt.Fprintf(c.stderr, "Error: %v\n", err)
		return 1
	}

	stored, err := e.store.Add(ctx, variants.SourceImage{Path: staged}, pf.params())
	if err != nil {
		// A failed add never consumes the upload; the staged copy is ours
		if rerr := os.Remove(staged); rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
			logging.Warn("Failed to remove staged upload %s: %v", staged, rerr)
		}
		fmt.Fprintf(c.stderr, "Error: %v\n", err)
		return 1
	}
	if _, err := os.Stat(staged); err == nil {
		logging.Info("Upload retained at %s", staged)
	}

	return c.printJSON(stored.Names())
}

func (c *cli) remove(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("remove", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	pf := newParamFlags(fs)
	yes := fs.Bool("y", false, "do not ask for confirmation")
	storedPath := fs.String("stored", "", "JSON file with the mapping printed by add")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(c.stderr, "Error: remove takes no arguments")
		return 2
	}
	pf.applyVerbose()

	p := pf.params()
	stored := variants.Stored{}
	if *storedPath != "" {
		var err error
		if stored, err = loadStored(*storedPath); err != nil {
			fmt.Fprintf(c.stderr, "Error: %v\n", err)
			return 1
		}
	}

	if !*yes && c.interactive && !confirm(c.stdin, c.stdout, p) {
		fmt.Fprintln(c.stdout, "Aborted.")
		return 1
	}

	e, err := setup()
	if err != nil {
		fmt.Fprintf(c.stderr, "Error: %v\n", err)
		return 1
	}
	defer e.close()

	if err := e.store.Remove(ctx, stored, p); err != nil {
		fmt.Fprintf(c.stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func (c *cli) inspect(args []string) int {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(c.stderr, "Error: inspect needs exactly one image file")
		return 2
	}

	e, err := setup()
	if err != nil {
		fmt.Fprintf(c.stderr, "Error: %v\n", err)
		return 1
	}
	defer e.close()

	g, err := variants.NewInspector(e.codec, e.cfg.MaxPixels).Inspect(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(c.stderr, "Error: %v\n", err)
		return 1
	}

	return c.printJSON(struct {
		Width  int    `json:"width"`
		Height int    `json:"height"`
		Format string `json:"format"`
		Square bool   `json:"square"`
	}{g.Width, g.Height, g.Format, g.Square()})
}

func (c *cli) version() int {
	return c.printJSON(startup.GetBuildInfo())
}

func (c *cli) printJSON(v any) int {
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(c.stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// stageUpload copies src into dir under a random name, the way an HTTP
// upload lands in a temp directory. The caller's file is never modified.
func stageUpload(src, dir string) (string, error) {
	in, err := filesystem.OpenWithRetry(src, filesystem.DefaultRetryConfig())
	if err != nil {
		return "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer in.Close()

	dst := filepath.Join(dir, uuid.NewString())
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to stage upload: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return "", fmt.Errorf("failed to stage upload: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return "", fmt.Errorf("failed to stage upload: %w", err)
	}

	logging.Debug("Staged %s as %s", src, dst)
	return dst, nil
}

// loadStored reads a key to file name mapping as printed by add.
func loadStored(path string) (variants.Stored, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read stored mapping: %w", err)
	}

	var names map[string]string
	if err := json.Unmarshal(data, &names); err != nil {
		return nil, fmt.Errorf("failed to parse stored mapping %s: %w", path, err)
	}

	stored := make(variants.Stored, len(names))
	for key, name := range names {
		stored[key] = variants.StoredVariant{Key: key, FileName: name}
	}
	return stored, nil
}

// confirm lists the files p resolves to and asks before deleting them.
func confirm(in io.Reader, out io.Writer, p variants.Params) bool {
	names := make([]string, 0)
	for _, name := range p.FileNames() {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(out, "Delete %s? [y/N]: ", strings.Join(names, ", "))
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
