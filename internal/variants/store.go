package variants

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"image-variants/internal/codec"
	"image-variants/internal/logging"
	"image-variants/internal/metrics"
)

// Store turns uploads into stored variants and removes them again.
// It is safe for concurrent use by Adds with distinct names.
type Store struct {
	cfg       Config
	inspector *Inspector
	cropper   *Cropper
	encoder   *Encoder
	janitor   *Janitor
}

// NewStore validates cfg and creates the storage directory.
func NewStore(cfg Config, c codec.Codec) (*Store, error) {
	if c == nil {
		return nil, errors.New("codec is required")
	}
	cfg, err := cfg.validate()
	if err != nil {
		return nil, fmt.Errorf("invalid variant config: %w", err)
	}
	if err := os.MkdirAll(cfg.StorageDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &Store{
		cfg:       cfg,
		inspector: NewInspector(c, cfg.MaxPixels),
		cropper:   NewCropper(c, cfg),
		encoder:   NewEncoder(c, cfg),
		janitor:   NewJanitor(cfg),
	}, nil
}

// Config returns a copy of the validated configuration.
func (s *Store) Config() Config {
	cfg := s.cfg
	cfg.Sizes = s.cfg.Sizes.Clone()
	return cfg
}

// Path returns the absolute path of a stored file name.
func (s *Store) Path(fileName string) string {
	return filepath.Join(s.cfg.StorageDir, fileName)
}

// addCancelled records an Add abandoned at stage because ctx ended.
func addCancelled(name, stage string, err error) error {
	metrics.AddTotal.WithLabelValues(metrics.AddCancelled).Inc()
	logging.Warn("Add of %s cancelled at %s: %v", name, stage, err)
	return err
}

func observeStage(stage string, start time.Time) {
	elapsed := time.Since(start)
	metrics.PipelineStageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
	logging.Debug("Stage %s took %v", stage, elapsed)
}

// Add runs inspect, crop, encode and cleanup for src.
//
// A *DecodeError leaves every file untouched. An *EncodeError removes
// whatever this call wrote and leaves the upload in place. Cleanup failures
// are logged and do not fail the call.
func (s *Store) Add(ctx context.Context, src SourceImage, p Params) (Stored, error) {
	if err := p.Validate(s.cfg.Sizes); err != nil {
		metrics.AddTotal.WithLabelValues(metrics.AddErrorParams).Inc()
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, addCancelled(p.Name, "inspect", err)
	}

	start := time.Now()
	g, err := s.inspector.Inspect(src.Path)
	observeStage("inspect", start)
	if err != nil {
		metrics.AddTotal.WithLabelValues(metrics.AddErrorDecode).Inc()
		logging.Error("Failed to add %s: %v", p.Name, err)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, addCancelled(p.Name, "crop", err)
	}

	start = time.Now()
	crop, err := s.cropper.Crop(src.Path, g, p.Name)
	observeStage("crop", start)
	if err != nil {
		metrics.AddTotal.WithLabelValues(metrics.AddErrorEncode).Inc()
		logging.Error("Failed to add %s: %v", p.Name, err)
		return nil, err
	}

	start = time.Now()
	results, err := s.encoder.Encode(ctx, crop.WorkingPath, src.Path, p)
	observeStage("encode", start)
	if err != nil {
		var written []StoredVariant
		var encErr *EncodeError
		if errors.As(err, &encErr) {
			written = encErr.Written
		}
		if derr := s.janitor.DiscardFailed(crop, written); derr != nil {
			logging.Warn("Failed to discard partial variants of %s: %v", p.Name, derr)
		}
		if cerr := ctx.Err(); cerr != nil && errors.Is(err, cerr) {
			return nil, addCancelled(p.Name, "encode", err)
		}
		metrics.AddTotal.WithLabelValues(metrics.AddErrorEncode).Inc()
		logging.Error("Failed to add %s: %v", p.Name, err)
		return nil, err
	}

	start = time.Now()
	cropped := crop.WorkingPath != src.Path
	if werr := s.janitor.CleanupIntermediates(crop.WorkingPath, src.Path, cropped, p.Original); werr != nil {
		logging.Warn("Cleanup after adding %s: %v", p.Name, werr)
	}
	observeStage("cleanup", start)

	stored := make(Stored, len(results))
	for _, v := range results {
		if v.Key == OriginalKey {
			v.Width, v.Height = g.Width, g.Height
		}
		stored[v.Key] = v
	}

	metrics.AddTotal.WithLabelValues(metrics.AddSuccess).Inc()
	logging.Info("Stored %d variant(s) of %s (%s, cropped=%v)", len(stored), p.Name, g, cropped)
	return stored, nil
}

// Remove deletes the variants Add produced for p. File names are derived from
// p; entries of stored that disagree are reported and left alone. Files
// already gone are ignored. Only invalid params are returned as an error.
func (s *Store) Remove(ctx context.Context, stored Stored, p Params) error {
	if err := p.Validate(s.cfg.Sizes); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	derived := p.FileNames()
	for key, name := range stored.Names() {
		want, ok := derived[key]
		switch {
		case !ok:
			logging.Warn("Stored variant %s=%s of %s is not in the requested params, leaving it in place", key, name, p.Name)
		case want != name:
			logging.Warn("Stored variant %s=%s of %s does not match %s, leaving it in place", key, name, p.Name, want)
		}
	}

	names := make([]string, 0, len(derived))
	for _, name := range derived {
		names = append(names, name)
	}
	sort.Strings(names)

	if werr := s.janitor.RemoveVariants(names); werr != nil {
		logging.Warn("Removing variants of %s: %v", p.Name, werr)
	}
	logging.Info("Removed variants of %s", p.Name)
	return nil
}
