package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joseph-ayodele/idcard-reader/internal/common"
)

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestScanDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.png"), []byte("x"))
	writeFile(t, filepath.Join(root, "b.JPG"), []byte("x"))
	writeFile(t, filepath.Join(root, "notes.txt"), []byte("x"))
	writeFile(t, filepath.Join(root, "sub", "c.webp"), []byte("x"))
	writeFile(t, filepath.Join(root, ".cache", "d.png"), []byte("x"))
	writeFile(t, filepath.Join(root, "e.heic"), []byte("x"))

	paths, stats, err := ScanDirectory(root, nil, true)
	if err != nil {
		t.Fatalf("ScanDirectory: %v", err)
	}
	want := []string{
		filepath.Join(root, "a.png"),
		filepath.Join(root, "b.JPG"),
		filepath.Join(root, "sub", "c.webp"),
	}
	if !reflect.DeepEqual(paths, want) {
		t.Fatalf("paths = %v, want %v", paths, want)
	}
	if stats.Matched != 3 {
		t.Errorf("matched = %d", stats.Matched)
	}

	paths, _, err = ScanDirectory(root, Extensions(true), false)
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 5 {
		t.Errorf("with hidden and heic: %v", paths)
	}
}

func TestScanDirectory_Errors(t *testing.T) {
	if _, _, err := ScanDirectory(" ", nil, false); !errors.Is(err, common.ErrInvalidInput) {
		t.Errorf("blank root: %v", err)
	}
	if _, _, err := ScanDirectory(filepath.Join(t.TempDir(), "missing"), nil, false); err == nil {
		t.Error("missing root: expected error")
	}
}

// convertRunner writes a fixed PNG to the converter's output argument.
type convertRunner struct {
	calls atomic.Int32
	out   []byte
	fail  bool
}

func (r *convertRunner) Run(_ context.Context, name string, _ *slog.Logger, args ...string) ([]byte, []byte, error) {
	r.calls.Add(1)
	if r.fail {
		return nil, []byte("boom"), errors.New("exit status 1")
	}
	out := args[len(args)-1]
	if err := os.WriteFile(out, r.out, 0o600); err != nil {
		return nil, nil, err
	}
	return nil, nil, nil
}

func TestLoader_Load(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "card.png")
	writeFile(t, path, []byte("png-bytes"))

	f, err := NewLoader(nil).Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	sum := sha256.Sum256([]byte("png-bytes"))
	if f.HashHex != hex.EncodeToString(sum[:]) || string(f.Data) != "png-bytes" || f.Ext != "png" {
		t.Errorf("file = %+v", f)
	}

	if _, err := NewLoader(nil).Load(context.Background(), filepath.Join(dir, "missing.png")); !errors.Is(err, common.ErrImage) {
		t.Errorf("missing file: %v", err)
	}
	if _, err := NewLoader(nil).Load(context.Background(), filepath.Join(dir, "card.heic")); !errors.Is(err, common.ErrInvalidInput) {
		t.Errorf("heic without converter: %v", err)
	}
}

func TestLoader_HEIC(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "card.heic")
	writeFile(t, path, []byte("heic-bytes"))
	cache := filepath.Join(dir, "cache")

	r := &convertRunner{out: []byte("converted")}
	l := NewLoader(nil, WithHEICConverter("heif-convert"), WithRunner(r), WithCacheDir(cache))

	for i := 0; i < 2; i++ {
		f, err := l.Load(context.Background(), path)
		if err != nil {
			t.Fatalf("Load %d: %v", i, err)
		}
		if string(f.Data) != "converted" {
			t.Fatalf("data = %q", f.Data)
		}
	}
	if r.calls.Load() != 1 {
		t.Errorf("converter ran %d times, want 1 (cached)", r.calls.Load())
	}

	failing := NewLoader(nil, WithHEICConverter("magick"), WithRunner(&convertRunner{fail: true}))
	if _, err := failing.Load(context.Background(), path); !errors.Is(err, common.ErrImage) {
		t.Errorf("failed conversion: %v", err)
	}
}

func TestWatch(t *testing.T) {
	root := t.TempDir()
	existing := filepath.Join(root, "old.png")
	writeFile(t, existing, []byte("x"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, _, err := Watch(ctx, WatchConfig{
		Roots:       []string{root},
		InitialScan: true,
		Debounce:    20 * time.Millisecond,
	}, nil)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}

	next := func() string {
		select {
		case p := <-events:
			return p
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for watch event")
			return ""
		}
	}
	if got := next(); got != existing {
		t.Fatalf("initial = %q, want %q", got, existing)
	}

	writeFile(t, filepath.Join(root, "ignored.txt"), []byte("x"))
	fresh := filepath.Join(root, "new.jpg")
	writeFile(t, fresh, []byte("x"))
	if got := next(); got != fresh {
		t.Fatalf("event = %q, want %q", got, fresh)
	}

	cancel()
	for range events {
	}
}

func TestWatch_NoRoots(t *testing.T) {
	if _, _, err := Watch(context.Background(), WatchConfig{}, nil); err == nil {
		t.Fatal("expected error")
	}
}
