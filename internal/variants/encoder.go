package variants

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"

	"image-variants/internal/codec"
	"image-variants/internal/filesystem"
	"image-variants/internal/logging"
	"image-variants/internal/metrics"
	"image-variants/internal/workers"
)

const stagingSuffix = ".tmp"

// Encoder produces the requested variants of one upload concurrently.
type Encoder struct {
	codec codec.Codec
	cfg   Config
}

// NewEncoder returns an Encoder for cfg.
func NewEncoder(c codec.Codec, cfg Config) *Encoder {
	return &Encoder{codec: c, cfg: cfg}
}

type encodeJob struct {
	key  string
	op   string
	src  string
	dst  string
	opts codec.ResizeOptions
}

func (j encodeJob) staged() string {
	return j.dst + stagingSuffix
}

func (e *Encoder) jobs(workingPath, originalPath string, p Params) []encodeJob {
	jobs := make([]encodeJob, 0, len(p.Sizes)+1)
	for _, size := range p.Sizes {
		side := e.cfg.Sizes[size]
		jobs = append(jobs, encodeJob{
			key: string(size),
			op:  OpResize,
			src: workingPath,
			dst: filepath.Join(e.cfg.StorageDir, p.SizeFileName(size)),
			opts: codec.ResizeOptions{
				Width:     side,
				Height:    side,
				Quality:   e.cfg.Quality,
				Interlace: e.cfg.Interlace,
			},
		})
	}
	if p.Original {
		jobs = append(jobs, encodeJob{
			key: OriginalKey,
			op:  OpEncodeOriginal,
			src: originalPath,
			dst: filepath.Join(e.cfg.StorageDir, p.OriginalFileName()),
			opts: codec.ResizeOptions{
				Quality:   e.cfg.Quality,
				Interlace: e.cfg.Interlace,
			},
		})
	}
	return jobs
}

// Encode writes one variant per size in p.Sizes from workingPath, then the
// re-encoded original from originalPath when p.Original is set. Results are
// in that order.
//
// Every job writes a staged file; the staged files are renamed into place
// only after all jobs succeeded, sizes first and the original last. The
// original therefore replaces a crop copy at the same path only once no
// size job reads it any more.
//
// Failures are returned as *EncodeError. Staged files are discarded; files
// already renamed into place are listed in EncodeError.Written.
func (e *Encoder) Encode(ctx context.Context, workingPath, originalPath string, p Params) ([]StoredVariant, error) {
	jobs := e.jobs(workingPath, originalPath, p)
	results := make([]StoredVariant, len(jobs))

	err := workers.Run(ctx, len(jobs), e.cfg.Workers, func(_ context.Context, i int) error {
		job := jobs[i]

		metrics.EncodeInFlight.Inc()
		defer metrics.EncodeInFlight.Dec()

		if err := e.codec.Resize(job.src, job.staged(), job.opts); err != nil {
			return &EncodeError{Op: job.op, Path: job.dst, Err: err}
		}

		results[i] = StoredVariant{
			Key:      job.key,
			FileName: filepath.Base(job.dst),
			Width:    job.opts.Width,
			Height:   job.opts.Height,
		}
		logging.Debug("Encoded variant %s for %s", job.key, p.Name)
		return nil
	})
	if err != nil {
		e.discardStaged(jobs)
		var encErr *EncodeError
		if !errors.As(err, &encErr) {
			// Cancelled before the remaining jobs started
			encErr = &EncodeError{Op: OpResize, Path: workingPath, Err: err}
		}
		return nil, encErr
	}

	for i, job := range jobs {
		if err := filesystem.RenameWithRetry(job.staged(), job.dst, e.cfg.Retry); err != nil {
			e.discardStaged(jobs[i:])
			return nil, &EncodeError{Op: OpCommit, Path: job.dst, Err: err, Written: results[:i]}
		}
	}

	for _, v := range results {
		metrics.VariantsWrittenTotal.WithLabelValues(v.Key).Inc()
	}
	return results, nil
}

func (e *Encoder) discardStaged(jobs []encodeJob) {
	for _, job := range jobs {
		err := filesystem.RemoveWithRetry(job.staged(), e.cfg.Retry)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			logging.Warn("Failed to discard staged variant %s: %v", job.staged(), err)
		}
	}
}
