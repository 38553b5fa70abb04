package ocr

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/joseph-ayodele/idcard-reader/constants"
	"github.com/joseph-ayodele/idcard-reader/internal/common"
)

type fakeRunner struct {
	versions atomic.Int32
	mu       sync.Mutex
	calls    [][]string
	okBins   map[string]bool
	run      func(name string, args []string) ([]byte, []byte, error)
}

func (f *fakeRunner) Run(_ context.Context, name string, _ *slog.Logger, args ...string) ([]byte, []byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string{name}, args...))
	f.mu.Unlock()
	if len(args) == 1 && args[0] == "--version" {
		f.versions.Add(1)
		if f.okBins[name] {
			return []byte("tesseract 5.3.0\n leptonica-1.82.0\n"), nil, nil
		}
		return nil, []byte("not found"), errors.New("exec: not found")
	}
	if f.run != nil {
		return f.run(name, args)
	}
	return nil, nil, nil
}

func noLookPath(string) (string, error) { return "", errors.New("not in PATH") }

func blankGray() *image.Gray {
	g := image.NewGray(image.Rect(0, 0, 16, 8))
	for i := range g.Pix {
		g.Pix[i] = 255
	}
	return g
}

func TestTesseractProbeRunsOnce(t *testing.T) {
	t.Parallel()

	r := &fakeRunner{okBins: map[string]bool{"/usr/bin/tesseract": true}}
	e := NewTesseractEngine(TesseractConfig{}, nil,
		WithRunner(r),
		WithLookPath(func(string) (string, error) { return "/usr/bin/tesseract", nil }),
		WithCandidates(),
	)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := e.Available(context.Background()); err != nil {
				t.Errorf("Available() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if got := r.versions.Load(); got != 1 {
		t.Errorf("--version ran %d times, want 1", got)
	}
	if v := e.Version(context.Background()); v != "tesseract 5.3.0" {
		t.Errorf("Version() = %q", v)
	}
}

func TestTesseractResolveOrder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	wellKnown := filepath.Join(dir, "tesseract")
	if err := os.WriteFile(wellKnown, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		cfgPath  string
		lookPath func(string) (string, error)
		okBins   map[string]bool
		want     string
		wantErr  bool
	}{
		{
			name:     "config override wins",
			cfgPath:  "/custom/tesseract",
			lookPath: func(string) (string, error) { return "/usr/bin/tesseract", nil },
			okBins:   map[string]bool{"/custom/tesseract": true, "/usr/bin/tesseract": true},
			want:     "/custom/tesseract",
		},
		{
			name:     "broken override falls back to PATH",
			cfgPath:  "/custom/tesseract",
			lookPath: func(string) (string, error) { return "/usr/bin/tesseract", nil },
			okBins:   map[string]bool{"/usr/bin/tesseract": true},
			want:     "/usr/bin/tesseract",
		},
		{
			name:     "well-known location",
			lookPath: noLookPath,
			okBins:   map[string]bool{wellKnown: true},
			want:     wellKnown,
		},
		{
			name:     "nothing installed",
			lookPath: noLookPath,
			okBins:   map[string]bool{},
			wantErr:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := NewTesseractEngine(TesseractConfig{Path: tt.cfgPath}, nil,
				WithRunner(&fakeRunner{okBins: tt.okBins}),
				WithLookPath(tt.lookPath),
				WithCandidates(wellKnown),
			)
			err := e.Available(context.Background())
			if tt.wantErr {
				if !errors.Is(err, common.ErrEngineUnavailable) {
					t.Fatalf("Available() error = %v, want ErrEngineUnavailable", err)
				}
				if common.KindOf(err) != constants.KindEngineUnavailable {
					t.Errorf("KindOf = %s", common.KindOf(err))
				}
				return
			}
			if err != nil {
				t.Fatalf("Available() error = %v", err)
			}
			if e.bin != tt.want {
				t.Errorf("resolved %q, want %q", e.bin, tt.want)
			}
		})
	}
}

func TestTesseractExtractRaw(t *testing.T) {
	t.Parallel()

	var inputPath string
	r := &fakeRunner{
		okBins: map[string]bool{"tesseract": true},
		run: func(name string, args []string) ([]byte, []byte, error) {
			inputPath = args[0]
			if _, err := os.Stat(inputPath); err != nil {
				t.Errorf("input image missing during run: %v", err)
			}
			return []byte("  ROYAUME DU MAROC\nY510850 \n"), nil, nil
		},
	}
	e := NewTesseractEngine(TesseractConfig{Path: "tesseract", PSM: 6, OEM: 3, TessdataDir: "/td"}, nil,
		WithRunner(r),
		WithLookPath(func(p string) (string, error) { return p, nil }),
		WithCandidates(),
	)

	got, err := e.ExtractRaw(context.Background(), blankGray(), constants.LanguageArabicFrench)
	if err != nil {
		t.Fatalf("ExtractRaw() error = %v", err)
	}
	if got != "ROYAUME DU MAROC\nY510850" {
		t.Errorf("ExtractRaw() = %q", got)
	}
	if _, err := os.Stat(filepath.Dir(inputPath)); !os.IsNotExist(err) {
		t.Errorf("temp dir %s survived the call", filepath.Dir(inputPath))
	}

	last := r.calls[len(r.calls)-1]
	for _, want := range [][]string{
		{"-l", "ara+fra"},
		{"--oem", "3"},
		{"--psm", "6"},
		{"--tessdata-dir", "/td"},
	} {
		i := slices.Index(last, want[0])
		if i < 0 || i+1 >= len(last) || last[i+1] != want[1] {
			t.Errorf("args %v missing %v", last, want)
		}
	}
	if last[2] != "stdout" {
		t.Errorf("args %v: want stdout output", last)
	}
}

func TestTesseractZeroConfigDefaults(t *testing.T) {
	t.Parallel()

	r := &fakeRunner{okBins: map[string]bool{"tesseract": true}}
	e := NewTesseractEngine(TesseractConfig{}, nil,
		WithRunner(r),
		WithLookPath(func(string) (string, error) { return "tesseract", nil }),
		WithCandidates(),
	)

	if _, err := e.ExtractRaw(context.Background(), blankGray(), constants.LanguageFrench); err != nil {
		t.Fatalf("ExtractRaw() error = %v", err)
	}
	last := r.calls[len(r.calls)-1]
	for _, want := range [][]string{
		{"--oem", "3"},
		{"--psm", "6"},
	} {
		i := slices.Index(last, want[0])
		if i < 0 || i+1 >= len(last) || last[i+1] != want[1] {
			t.Errorf("args %v missing %v", last, want)
		}
	}
}

func TestTesseractExtractRawFailure(t *testing.T) {
	t.Parallel()

	var inputPath string
	r := &fakeRunner{
		okBins: map[string]bool{"tesseract": true},
		run: func(name string, args []string) ([]byte, []byte, error) {
			inputPath = args[0]
			return nil, []byte("Failed loading language 'xyz'"), errors.New("exit status 1")
		},
	}
	e := NewTesseractEngine(TesseractConfig{Path: "tesseract"}, nil,
		WithRunner(r),
		WithLookPath(func(p string) (string, error) { return p, nil }),
		WithCandidates(),
	)

	_, err := e.ExtractRaw(context.Background(), blankGray(), constants.LanguageArabic)
	if !errors.Is(err, common.ErrEngine) {
		t.Fatalf("ExtractRaw() error = %v, want ErrEngine", err)
	}
	if inputPath == "" {
		t.Fatal("runner was not called")
	}
	if _, err := os.Stat(filepath.Dir(inputPath)); !os.IsNotExist(err) {
		t.Errorf("temp dir %s survived a failed call", filepath.Dir(inputPath))
	}
}

func TestTesseractUnavailableExtract(t *testing.T) {
	t.Parallel()

	e := NewTesseractEngine(TesseractConfig{}, nil,
		WithRunner(&fakeRunner{}),
		WithLookPath(noLookPath),
		WithCandidates(),
	)
	_, err := e.ExtractRaw(context.Background(), blankGray(), constants.LanguageFrench)
	if !errors.Is(err, common.ErrEngineUnavailable) {
		t.Fatalf("ExtractRaw() error = %v, want ErrEngineUnavailable", err)
	}
}
