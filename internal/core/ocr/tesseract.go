package ocr

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joseph-ayodele/idcard-reader/constants"
	"github.com/joseph-ayodele/idcard-reader/internal/common"
)

const probeTimeout = 10 * time.Second

// TesseractConfig configures the tesseract CLI adapter.
type TesseractConfig struct {
	Path        string // binary name or absolute path; empty -> PATH, then well-known locations
	TessdataDir string
	PSM         int // 6 = uniform block of text
	OEM         int // 3 = default engine; zero selects it too
}

// TesseractEngine runs the tesseract binary on a temporary PNG.
type TesseractEngine struct {
	cfg        TesseractConfig
	runner     Runner
	logger     *slog.Logger
	lookPath   func(string) (string, error)
	candidates []string

	once     sync.Once
	bin      string
	version  string
	probeErr error
}

// TesseractOption customizes a TesseractEngine.
type TesseractOption func(*TesseractEngine)

// WithRunner replaces the command runner.
func WithRunner(r Runner) TesseractOption {
	return func(e *TesseractEngine) { e.runner = r }
}

// WithLookPath replaces the PATH lookup.
func WithLookPath(fn func(string) (string, error)) TesseractOption {
	return func(e *TesseractEngine) { e.lookPath = fn }
}

// WithCandidates replaces the well-known install locations.
func WithCandidates(paths ...string) TesseractOption {
	return func(e *TesseractEngine) { e.candidates = paths }
}

// NewTesseractEngine creates the CLI adapter. The binary is probed lazily,
// once per engine, on first use.
func NewTesseractEngine(cfg TesseractConfig, logger *slog.Logger, opts ...TesseractOption) *TesseractEngine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PSM <= 0 {
		cfg.PSM = 6
	}
	if cfg.OEM <= 0 {
		cfg.OEM = 3
	}
	e := &TesseractEngine{
		cfg:        cfg,
		runner:     ExecRunner{},
		logger:     logger,
		lookPath:   exec.LookPath,
		candidates: wellKnownTesseractPaths(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func wellKnownTesseractPaths() []string {
	if runtime.GOOS == "windows" {
		return []string{
			`C:\Program Files\Tesseract-OCR\tesseract.exe`,
			`C:\Program Files (x86)\Tesseract-OCR\tesseract.exe`,
		}
	}
	return []string{
		"/usr/bin/tesseract",
		"/usr/local/bin/tesseract",
		"/opt/homebrew/bin/tesseract",
		"/opt/local/bin/tesseract",
	}
}

func (e *TesseractEngine) Name() constants.EngineName { return constants.EngineLocal }

// Available probes the binary once and reports the cached outcome.
func (e *TesseractEngine) Available(ctx context.Context) error {
	e.once.Do(func() {
		probeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), probeTimeout)
		defer cancel()
		e.bin, e.version, e.probeErr = e.resolve(probeCtx)
		if e.probeErr != nil {
			e.logger.Warn("ocr.local.unavailable", "error", e.probeErr)
			return
		}
		e.logger.Info("ocr.local.ready", "binary", e.bin, "version", e.version)
	})
	return e.probeErr
}

// Version returns the probed tesseract version line, or "".
func (e *TesseractEngine) Version(ctx context.Context) string {
	if e.Available(ctx) != nil {
		return ""
	}
	return e.version
}

// resolve tries the configured path, the PATH lookup and the well-known
// install locations, returning the first binary that answers --version.
func (e *TesseractEngine) resolve(ctx context.Context) (string, string, error) {
	var tried []string
	seen := map[string]bool{}
	try := func(bin string) (string, bool) {
		if bin == "" || seen[bin] {
			return "", false
		}
		seen[bin] = true
		tried = append(tried, bin)
		out, errb, err := e.runner.Run(ctx, bin, e.logger, "--version")
		if err != nil {
			return "", false
		}
		return firstLine(string(out) + "\n" + string(errb)), true
	}

	if p := e.cfg.Path; p != "" {
		if !strings.ContainsRune(p, filepath.Separator) {
			if found, err := e.lookPath(p); err == nil {
				p = found
			}
		}
		if v, ok := try(p); ok {
			return p, v, nil
		}
	}
	if found, err := e.lookPath("tesseract"); err == nil {
		if v, ok := try(found); ok {
			return found, v, nil
		}
	}
	for _, c := range e.candidates {
		if st, err := os.Stat(c); err != nil || st.IsDir() {
			continue
		}
		if v, ok := try(c); ok {
			return c, v, nil
		}
	}
	return "", "", common.NewAppError("TESSERACT_NOT_FOUND",
		fmt.Sprintf("tesseract binary not found (tried %s)", strings.Join(tried, ", ")),
		common.ErrEngineUnavailable)
}

func firstLine(s string) string {
	for _, ln := range strings.Split(s, "\n") {
		if ln = strings.TrimSpace(ln); ln != "" {
			return ln
		}
	}
	return ""
}

// ExtractRaw writes img to a temporary PNG, runs tesseract on it and
// returns the trimmed stdout. The temporary directory is removed on every
// return path.
func (e *TesseractEngine) ExtractRaw(ctx context.Context, img *image.Gray, lang constants.Language) (string, error) {
	if err := e.Available(ctx); err != nil {
		return "", err
	}
	if img == nil {
		return "", common.NewAppError("TESSERACT", "nil image", common.ErrEngine)
	}
	if lang == "" {
		lang = constants.DefaultLanguage
	}

	tmpDir, err := os.MkdirTemp("", "idcard-ocr-*")
	if err != nil {
		return "", common.NewAppError("TESSERACT", "create temp dir", fmt.Errorf("%w: %v", common.ErrEngine, err))
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			e.logger.Warn("ocr.local.cleanup_failed", "dir", tmpDir, "error", err)
		}
	}()

	in := filepath.Join(tmpDir, "card.png")
	if err := writePNG(in, img); err != nil {
		return "", common.NewAppError("TESSERACT", "write temp image", fmt.Errorf("%w: %v", common.ErrEngine, err))
	}

	args := []string{in, "stdout",
		"-l", string(lang),
		"--oem", strconv.Itoa(e.cfg.OEM),
		"--psm", strconv.Itoa(e.cfg.PSM),
		"-c", "preserve_interword_spaces=1",
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}

	start := time.Now()
	out, errb, err := e.runner.Run(ctx, e.bin, e.logger, args...)
	if err != nil {
		return "", common.NewAppError("TESSERACT",
			fmt.Sprintf("tesseract failed: %s", truncate(strings.TrimSpace(string(errb)), 1<<10)),
			fmt.Errorf("%w: %v", common.ErrEngine, err))
	}
	text := strings.TrimSpace(string(out))
	e.logger.Debug("ocr.local.done",
		"req_id", common.RequestIDFromContext(ctx),
		"lang", string(lang),
		"chars", len(text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return text, nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
