package variants

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestEncodeOrderFollowsRequest(t *testing.T) {
	storage := t.TempDir()
	fake := newFakeCodec()
	// The first requested size finishes last
	fake.delay = func(dst string) time.Duration {
		if strings.Contains(dst, "_lg") {
			return 20 * time.Millisecond
		}
		return 0
	}

	working := touch(t, storage, "p1.jpg")
	upload := touch(t, t.TempDir(), "upload")

	e := NewEncoder(fake, testConfig(storage))
	p := Params{Name: "p1", Sizes: []SizeKey{"lg", "xs", "md"}, Original: true}

	got, err := e.Encode(context.Background(), working, upload, p)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	wantKeys := []string{"lg", "xs", "md", "o"}
	if len(got) != len(wantKeys) {
		t.Fatalf("Encode() returned %d variants, want %d", len(got), len(wantKeys))
	}
	for i, key := range wantKeys {
		if got[i].Key != key {
			t.Errorf("result[%d].Key = %q, want %q", i, got[i].Key, key)
		}
	}
	if got[0].Width != 400 || got[1].Width != 50 || got[2].Height != 200 {
		t.Errorf("unexpected dimensions: %+v", got)
	}
}

func TestEncodeOriginalReplacesCropLast(t *testing.T) {
	storage := t.TempDir()
	fake := newFakeCodec()
	// Keep size jobs reading the crop while the original job is done
	fake.delay = func(dst string) time.Duration {
		if strings.Contains(dst, "_") {
			return 10 * time.Millisecond
		}
		return 0
	}

	crop := touch(t, storage, "p1.jpg")
	upload := touch(t, t.TempDir(), "upload")

	e := NewEncoder(fake, testConfig(storage))
	p := Params{Name: "p1", Sizes: []SizeKey{"xs", "sm"}, Original: true}
	if _, err := e.Encode(context.Background(), crop, upload, p); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	for _, size := range []string{"xs", "sm"} {
		staged := filepath.Join(storage, "p1_"+size+".jpg") + stagingSuffix
		if src := fake.resizeSource(staged); src != crop {
			t.Errorf("%s encoded from %q, want the crop copy", size, src)
		}
	}
	if got := readFile(t, crop); got != "resize upload 0x0" {
		t.Errorf("p1.jpg = %q, want the re-encoded upload", got)
	}
	assertFiles(t, storage, "p1.jpg", "p1_sm.jpg", "p1_xs.jpg")
}

func TestEncodeFailureDiscardsStagedFiles(t *testing.T) {
	storage := t.TempDir()
	fake := newFakeCodec()
	boom := errors.New("disk full")
	fake.fail = func(op, dst string) error {
		if op == "resize" && strings.Contains(dst, "_md") {
			return boom
		}
		return nil
	}

	working := touch(t, t.TempDir(), "upload")
	e := NewEncoder(fake, testConfig(storage))
	p := Params{Name: "p1", Sizes: []SizeKey{"xs", "md", "lg"}}

	got, err := e.Encode(context.Background(), working, working, p)
	if got != nil {
		t.Errorf("Encode() returned %v on failure", got)
	}

	var encErr *EncodeError
	if !errors.As(err, &encErr) {
		t.Fatalf("Encode() error = %v, want *EncodeError", err)
	}
	if encErr.Op != OpResize || !errors.Is(err, boom) {
		t.Errorf("EncodeError = %+v", encErr)
	}
	if !strings.HasSuffix(encErr.Path, "p1_md.jpg") {
		t.Errorf("EncodeError.Path = %q, want p1_md.jpg", encErr.Path)
	}
	if len(encErr.Written) != 0 {
		t.Errorf("nothing should be committed, got %v", encErr.Written)
	}
	assertFiles(t, storage)
}

func TestEncodeOriginalFailureOp(t *testing.T) {
	storage := t.TempDir()
	fake := newFakeCodec()
	fake.fail = func(op, dst string) error {
		if strings.HasSuffix(dst, "p1.jpg"+stagingSuffix) {
			return errors.New("bad original")
		}
		return nil
	}

	upload := touch(t, t.TempDir(), "upload")
	e := NewEncoder(fake, testConfig(storage))

	_, err := e.Encode(context.Background(), upload, upload, Params{Name: "p1", Sizes: []SizeKey{"xs"}, Original: true})
	var encErr *EncodeError
	if !errors.As(err, &encErr) || encErr.Op != OpEncodeOriginal {
		t.Fatalf("Encode() error = %v, want encode_original failure", err)
	}
	assertFiles(t, storage)
}

func TestEncodeCancelledContext(t *testing.T) {
	storage := t.TempDir()
	fake := newFakeCodec()
	upload := touch(t, t.TempDir(), "upload")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := NewEncoder(fake, testConfig(storage))
	_, err := e.Encode(ctx, upload, upload, Params{Name: "p1", Sizes: []SizeKey{"xs", "sm"}})

	var encErr *EncodeError
	if !errors.As(err, &encErr) {
		t.Fatalf("Encode() error = %v, want *EncodeError", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Encode() error = %v, want context.Canceled", err)
	}
	assertFiles(t, storage)
}

func TestEncodeCommitFailureReportsWritten(t *testing.T) {
	storage := t.TempDir()
	fake := newFakeCodec()
	upload := touch(t, t.TempDir(), "upload")

	// A directory at the final path makes that rename fail
	p := Params{Name: "p1", Sizes: []SizeKey{"xs", "sm"}}
	blocker := filepath.Join(storage, p.SizeFileName("sm"))
	if err := mkdirWithChild(blocker); err != nil {
		t.Fatal(err)
	}

	e := NewEncoder(fake, testConfig(storage))
	_, err := e.Encode(context.Background(), upload, upload, p)

	var encErr *EncodeError
	if !errors.As(err, &encErr) || encErr.Op != OpCommit {
		t.Fatalf("Encode() error = %v, want commit failure", err)
	}
	if len(encErr.Written) != 1 || encErr.Written[0].FileName != "p1_xs.jpg" {
		t.Errorf("EncodeError.Written = %+v, want [p1_xs.jpg]", encErr.Written)
	}
	if exists(filepath.Join(storage, "p1_sm.jpg"+stagingSuffix)) {
		t.Error("staged file left behind after commit failure")
	}
}
