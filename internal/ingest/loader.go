package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/idcard-reader/constants"
	"github.com/joseph-ayodele/idcard-reader/internal/common"
	"github.com/joseph-ayodele/idcard-reader/internal/core/ocr"
)

// File is an image read from disk, ready for the processor.
type File struct {
	Path    string
	Ext     string
	HashHex string
	Data    []byte
}

// Loader reads image files. HEIC/HEIF input is converted to PNG with an
// external converter (heif-convert, magick or sips) when one is set.
type Loader struct {
	runner    ocr.Runner
	converter string
	cacheDir  string
	logger    *slog.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithHEICConverter enables HEIC input through the named converter.
func WithHEICConverter(name string) LoaderOption {
	return func(l *Loader) { l.converter = name }
}

// WithCacheDir keeps converted PNGs under dir, keyed by content hash.
func WithCacheDir(dir string) LoaderOption {
	return func(l *Loader) { l.cacheDir = dir }
}

// WithRunner replaces the command runner used for conversion.
func WithRunner(r ocr.Runner) LoaderOption {
	return func(l *Loader) {
		if r != nil {
			l.runner = r
		}
	}
}

func NewLoader(logger *slog.Logger, opts ...LoaderOption) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Loader{runner: ocr.NewExecRunner(), logger: logger}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Extensions returns the extensions this loader accepts.
func (l *Loader) Extensions() map[string]struct{} {
	return Extensions(l.converter != "")
}

// Load reads path. The hash covers the original file bytes.
func (l *Loader) Load(ctx context.Context, path string) (File, error) {
	ext := constants.NormalizeExt(filepath.Ext(path))
	if !allowed(path, l.Extensions()) {
		return File{}, common.NewAppError("UNSUPPORTED_FORMAT", fmt.Sprintf("unsupported file extension %q", ext), common.ErrInvalidInput)
	}
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the operator
	if err != nil {
		return File{}, fmt.Errorf("%w: read %s: %v", common.ErrImage, path, err)
	}
	sum := sha256.Sum256(data)
	f := File{Path: path, Ext: ext, HashHex: hex.EncodeToString(sum[:]), Data: data}

	if isHEIC(ext) {
		png, err := l.convertHEIC(ctx, path, f.HashHex)
		if err != nil {
			l.logger.Error("ingest.heic.failed", "path", path, "converter", l.converter, "error", err)
			return File{}, fmt.Errorf("%w: %v", common.ErrImage, err)
		}
		f.Data = png
	}
	l.logger.Debug("ingest.loaded", "path", path, "bytes", len(f.Data), "hash", f.HashHex)
	return f, nil
}
